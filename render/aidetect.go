package render

import (
	"strings"

	"github.com/hazyhaar/stackprobe/signature"
)

// AIFinding is what network traffic revealed about a site's AI usage.
type AIFinding struct {
	Provider   string
	Confidence signature.Confidence
	Gateway    string
	Transport  string
}

// DetectAI inspects a capture's network log for AI-provider domains, known
// API path shapes, gateway domains and fingerprint headers. An exact domain
// hit is High confidence; a substring or path-shape hit is Medium;
// provider-specific response headers override everything at High.
func DetectAI(c *Capture) AIFinding {
	var f AIFinding
	f.Confidence = signature.Low

	for _, domain := range c.Domains {
		if name, ok := signature.ProviderDomains[domain]; ok {
			f.Provider = name
			f.Confidence = signature.High
			break
		}
		for exact, name := range signature.ProviderDomains {
			if strings.Contains(domain, strings.TrimPrefix(exact, "api.")) {
				f.Provider = name
				f.Confidence = signature.Medium
			}
		}
	}

	for _, domain := range c.Domains {
		if name, ok := signature.GatewayDomains[domain]; ok {
			f.Gateway = name
			break
		}
	}

	// A provider-shaped API path on an unknown host still identifies the
	// protocol family.
	if f.Provider == "" {
		for _, path := range c.Paths {
			switch {
			case strings.Contains(path, "/v1/chat/completions"),
				strings.Contains(path, "/v1/completions"):
				f.Provider = "OpenAI-compatible"
				f.Confidence = signature.Medium
			case strings.Contains(path, "/v1/messages"):
				f.Provider = "Anthropic-compatible"
				f.Confidence = signature.Medium
			}
			if f.Provider != "" {
				break
			}
		}
	}

	if f.Gateway == "" {
	gateways:
		for _, sig := range signature.GatewaySignatures {
			for _, resp := range c.Responses {
				if resp.Headers[sig.HeaderKey] != "" {
					f.Gateway = sig.Name
					break gateways
				}
			}
		}
	}

	for _, resp := range c.Responses {
		if v := resp.Headers["x-vercel-ai-provider"]; v != "" {
			switch {
			case strings.Contains(v, "openai"):
				f.Provider = "OpenAI"
			case strings.Contains(v, "anthropic"):
				f.Provider = "Anthropic"
			case strings.Contains(v, "google"):
				f.Provider = "Google Gemini"
			}
			f.Confidence = signature.High
		}
		if resp.Headers["anthropic-version"] != "" {
			f.Provider = "Anthropic"
			f.Confidence = signature.High
		}
		if resp.Headers["openai-organization"] != "" {
			f.Provider = "OpenAI"
			f.Confidence = signature.High
		}
	}

	f.Transport = transportOf(c)
	return f
}

// transportOf labels how AI traffic moved. Only meaningful when a provider
// was found, but harmless otherwise.
func transportOf(c *Capture) string {
	for _, resp := range c.Responses {
		if strings.Contains(resp.ContentType, "event-stream") {
			return "sse"
		}
	}
	if len(c.Websockets) > 0 {
		return "websocket"
	}
	return "fetch"
}
