package scan

import (
	"net/http"
	"reflect"
	"testing"
)

func TestBuildSignals_Markup(t *testing.T) {
	body := `<!doctype html><html><head>
<meta name="generator" content="WordPress 6.4">
<meta property="og:site_name" content="Acme">
<meta name="generator" content="WordPress 6.5">
<meta name="empty">
<script src="https://js.stripe.com/v3/"></script>
<script>inline();</script>
<script src="/_next/static/chunks/main.js"></script>
</head><body></body></html>`

	s := BuildSignals("https://acme.example/pricing", body, http.Header{})

	wantSrcs := []string{"https://js.stripe.com/v3/", "/_next/static/chunks/main.js"}
	if !reflect.DeepEqual(s.ScriptSrcs, wantSrcs) {
		t.Errorf("ScriptSrcs: got %v, want %v", s.ScriptSrcs, wantSrcs)
	}
	if s.Meta["generator"] != "WordPress 6.5" {
		t.Errorf("later meta duplicate must win, got %q", s.Meta["generator"])
	}
	if s.Meta["og:site_name"] != "Acme" {
		t.Errorf("property meta missing, got %q", s.Meta["og:site_name"])
	}
	if _, ok := s.Meta["empty"]; ok {
		t.Error("meta without content must be skipped")
	}
	if s.Hostname != "acme.example" {
		t.Errorf("Hostname: got %q", s.Hostname)
	}
}

func TestBuildSignals_HeadersAndCookies(t *testing.T) {
	h := http.Header{}
	h.Set("X-Vercel-Id", "iad1::abc")
	h.Add("Set-Cookie", "_ga=GA1.2.1; Path=/, __stripe_mid=xyz; Secure")

	s := BuildSignals("https://acme.example", "", h)

	if s.Headers["x-vercel-id"] != "iad1::abc" {
		t.Errorf("headers must be lower-cased, got %v", s.Headers)
	}
	// Naive comma split yields one entry per fragment.
	want := []string{"_ga=GA1.2.1; Path=/", "__stripe_mid=xyz; Secure"}
	if !reflect.DeepEqual(s.Cookies, want) {
		t.Errorf("Cookies: got %v, want %v", s.Cookies, want)
	}
}

func TestBuildSignals_BadURL(t *testing.T) {
	s := BuildSignals("http://bad url\x7f", "", http.Header{})
	if s.Hostname != "" {
		t.Errorf("unparsable url must yield empty hostname, got %q", s.Hostname)
	}
}
