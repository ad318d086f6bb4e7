package signature

import "regexp"

// AICatalog is the parallel signature database for AI-provider usage
// detectable from static page content. Category is always CategoryAI.
var AICatalog = []Signature{
	{
		ID:       "openai",
		Name:     "OpenAI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `openai`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `api\.openai\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `openai-api`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `gpt-4`, Weight: 0.5},
			{Type: RuleHTML, Pattern: `gpt-3\.5`, Weight: 0.5},
			{Type: RuleHTML, Pattern: `chatgpt`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.4},
	},
	{
		ID:       "azure_openai",
		Name:     "Azure OpenAI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `openai\.azure\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `azure.*openai`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `azure.*openai`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "anthropic",
		Name:     "Anthropic",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `anthropic`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `api\.anthropic\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `claude-3`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `claude-2`, Weight: 0.5},
			{Type: RuleHTML, Pattern: `anthropic`, Weight: 0.4},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.4},
	},
	{
		ID:       "google_gemini",
		Name:     "Google Gemini",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `generative-ai`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `generativelanguage\.googleapis\.com`, Weight: 0.9},
			{Type: RuleHTML, Pattern: `gemini-pro`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `gemini-1\.5`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `@google/generative-ai`, Weight: 0.8},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "cohere",
		Name:     "Cohere",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `cohere`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `api\.cohere\.ai`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `cohere\.ai`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "replicate",
		Name:     "Replicate",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.replicate\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `replicate\.com`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `replicate`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "huggingface",
		Name:     "Hugging Face",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `huggingface\.co`, Weight: 0.7},
			{Type: RuleScriptSrc, Pattern: `huggingface`, Weight: 0.7},
			{Type: RuleHTML, Pattern: `api-inference\.huggingface`, Weight: 0.8},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "mistral",
		Name:     "Mistral AI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.mistral\.ai`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `mistral-`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `mistral`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "perplexity",
		Name:     "Perplexity AI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.perplexity\.ai`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `perplexity`, Weight: 0.4},
			{Type: RuleScriptSrc, Pattern: `perplexity`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "together_ai",
		Name:     "Together AI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.together\.xyz`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `together\.ai`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `together`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "groq",
		Name:     "Groq",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.groq\.com`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `groq\.com`, Weight: 0.5},
			{Type: RuleScriptSrc, Pattern: `groq`, Weight: 0.6},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "fireworks",
		Name:     "Fireworks AI",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `api\.fireworks\.ai`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `fireworks\.ai`, Weight: 0.5},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "vercel_ai_sdk",
		Name:     "Vercel AI SDK",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleScriptSrc, Pattern: `ai\.vercel`, Weight: 0.8},
			{Type: RuleHTML, Pattern: `useChat`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `useCompletion`, Weight: 0.6},
			{Type: RuleHTML, Pattern: `@vercel/ai`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
	{
		ID:       "langchain",
		Name:     "LangChain",
		Category: CategoryAI,
		Rules: []Rule{
			{Type: RuleHTML, Pattern: `langchain`, Weight: 0.6},
			{Type: RuleScriptSrc, Pattern: `langchain`, Weight: 0.7},
		},
		Thresholds: Thresholds{High: 0.8, Medium: 0.5},
	},
}

// ProviderDomains maps exact API hostnames to provider names. An exact hit
// in captured network traffic is High confidence; a substring hit on the
// domain with the "api." prefix stripped is Medium.
var ProviderDomains = map[string]string{
	"api.openai.com":                      "OpenAI",
	"openai.azure.com":                    "OpenAI (Azure)",
	"api.anthropic.com":                   "Anthropic",
	"generativelanguage.googleapis.com":   "Google Gemini",
	"api.groq.com":                        "Groq",
	"api.cohere.ai":                       "Cohere",
	"api.mistral.ai":                      "Mistral",
	"api.replicate.com":                   "Replicate",
	"api.together.ai":                     "Together AI",
	"api.perplexity.ai":                   "Perplexity",
	"api.fireworks.ai":                    "Fireworks AI",
}

// GatewayDomains maps AI-gateway hostnames to gateway names.
var GatewayDomains = map[string]string{
	"gateway.ai.cloudflare.com": "Cloudflare AI Gateway",
	"api.portkey.ai":            "Portkey",
	"gateway.helicone.ai":       "Helicone",
	"api.braintrust.dev":        "Braintrust",
}

// GatewaySignature identifies an AI gateway by the mere presence of a
// response header.
type GatewaySignature struct {
	Name      string
	HeaderKey string
}

// GatewaySignatures are header-presence fingerprints for AI gateways.
// Checked against every captured response.
var GatewaySignatures = []GatewaySignature{
	{Name: "Cloudflare AI Gateway", HeaderKey: "cf-aig-event-id"},
	{Name: "Portkey", HeaderKey: "x-portkey-request-id"},
	{Name: "Helicone", HeaderKey: "helicone-id"},
	{Name: "Braintrust", HeaderKey: "x-braintrust-span-id"},
}

// PayloadSignature identifies a provider directly from response wire
// content. Payload hits take precedence over domain-based inference.
type PayloadSignature struct {
	Provider string
	Pattern  *regexp.Regexp
}

// PayloadSignatures are evaluated in order; the first match wins.
var PayloadSignatures = []PayloadSignature{
	{Provider: "OpenAI", Pattern: regexp.MustCompile(`"id"\s*:\s*"chatcmpl-`)},
	{Provider: "OpenAI", Pattern: regexp.MustCompile(`"object"\s*:\s*"chat\.completion`)},
	{Provider: "Anthropic", Pattern: regexp.MustCompile(`"type"\s*:\s*"message_start"`)},
	{Provider: "Anthropic", Pattern: regexp.MustCompile(`"model"\s*:\s*"claude-`)},
	{Provider: "Google Gemini", Pattern: regexp.MustCompile(`"candidates"\s*:\s*\[`)},
	{Provider: "Mistral", Pattern: regexp.MustCompile(`"model"\s*:\s*"mistral-`)},
	{Provider: "OpenAI-compatible", Pattern: regexp.MustCompile(`data:\s*\[DONE\]`)},
}
