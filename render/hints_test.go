package render

import (
	"testing"

	"github.com/hazyhaar/stackprobe/signature"
)

func TestFrameworkFromHints(t *testing.T) {
	tests := []struct {
		name  string
		hints []string
		want  string
	}{
		{"next", []string{"__NEXT_DATA__"}, "Next.js"},
		{"priority order", []string{"Vue", "__NUXT__"}, "Nuxt"},
		{"shopify", []string{"Shopify"}, "Shopify"},
		{"streamlit", []string{"Streamlit"}, "Streamlit"},
		{"unknown hint", []string{"jQuery"}, ""},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw, conf := FrameworkFromHints(tt.hints)
			if fw != tt.want {
				t.Errorf("framework: got %q, want %q", fw, tt.want)
			}
			if tt.want != "" && conf != signature.High {
				t.Errorf("confidence: got %v, want High", conf)
			}
			if tt.want == "" && conf != signature.Low {
				t.Errorf("confidence: got %v, want Low", conf)
			}
		})
	}
}

func TestDeriveDomainsPaths(t *testing.T) {
	reqs := []Request{
		{URL: "https://api.openai.com/v1/chat/completions"},
		{URL: "https://api.openai.com/v1/chat/completions"},
		{URL: "https://cdn.example.com/app.js"},
	}
	resps := []Response{
		{URL: "https://api.openai.com/v1/models"},
	}

	domains, paths := deriveDomainsPaths(reqs, resps)
	if len(domains) != 2 {
		t.Errorf("domains: got %v, want 2 deduplicated entries", domains)
	}
	if len(paths) != 3 {
		t.Errorf("paths: got %v, want 3 deduplicated entries", paths)
	}
}
