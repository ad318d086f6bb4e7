package render

import (
	"testing"

	"github.com/hazyhaar/stackprobe/signature"
)

func TestDetectAI_ExactDomain(t *testing.T) {
	c := &Capture{Domains: []string{"cdn.example.com", "api.openai.com"}}

	f := DetectAI(c)
	if f.Provider != "OpenAI" || f.Confidence != signature.High {
		t.Errorf("got %+v, want OpenAI/High", f)
	}
	if f.Transport != "fetch" {
		t.Errorf("Transport: got %q, want fetch", f.Transport)
	}
}

func TestDetectAI_SubstringDomain(t *testing.T) {
	c := &Capture{Domains: []string{"proxy.openai.com.internal.example"}}

	f := DetectAI(c)
	if f.Provider != "OpenAI" || f.Confidence != signature.Medium {
		t.Errorf("got %+v, want OpenAI/Medium", f)
	}
}

func TestDetectAI_PathShapes(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/v1/chat/completions", "OpenAI-compatible"},
		{"/v1/completions", "OpenAI-compatible"},
		{"/v1/messages", "Anthropic-compatible"},
	}
	for _, tt := range tests {
		f := DetectAI(&Capture{Paths: []string{tt.path}})
		if f.Provider != tt.want || f.Confidence != signature.Medium {
			t.Errorf("path %s: got %+v, want %s/Medium", tt.path, f, tt.want)
		}
	}
}

func TestDetectAI_PathDoesNotDisplaceDomain(t *testing.T) {
	c := &Capture{
		Domains: []string{"api.anthropic.com"},
		Paths:   []string{"/v1/chat/completions"},
	}
	f := DetectAI(c)
	if f.Provider != "Anthropic" {
		t.Errorf("path heuristic must not displace a domain hit, got %q", f.Provider)
	}
}

func TestDetectAI_GatewayHeader(t *testing.T) {
	c := &Capture{Responses: []Response{
		{URL: "https://app.example.com/api/chat", Headers: map[string]string{"helicone-id": "req-1"}},
	}}
	if f := DetectAI(c); f.Gateway != "Helicone" {
		t.Errorf("Gateway: got %q, want Helicone", f.Gateway)
	}
}

func TestDetectAI_ProviderHeaderOverrides(t *testing.T) {
	c := &Capture{
		Domains: []string{"api.openai.com"},
		Responses: []Response{
			{URL: "https://app.example.com/api/chat", Headers: map[string]string{"anthropic-version": "2023-06-01"}},
		},
	}
	f := DetectAI(c)
	if f.Provider != "Anthropic" || f.Confidence != signature.High {
		t.Errorf("provider header must override, got %+v", f)
	}
}

func TestDetectAI_SSETransport(t *testing.T) {
	c := &Capture{
		Domains:    []string{"api.anthropic.com"},
		Websockets: []string{"wss://app.example.com/live"},
		Responses: []Response{
			{URL: "https://api.anthropic.com/v1/messages", ContentType: "text/event-stream", Headers: map[string]string{}},
		},
	}
	if f := DetectAI(c); f.Transport != "sse" {
		t.Errorf("event-stream response must win over websocket, got %q", f.Transport)
	}
}

func TestDetectAI_Nothing(t *testing.T) {
	f := DetectAI(&Capture{Domains: []string{"cdn.example.com"}})
	if f.Provider != "" || f.Gateway != "" || f.Confidence != signature.Low {
		t.Errorf("got %+v, want empty Low finding", f)
	}
}
