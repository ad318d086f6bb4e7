package scan

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/stackprobe/signature"
)

// BuildSignals normalizes one fetched page into the bundle rules are
// evaluated against. It never fails: malformed markup yields whatever the
// tokenizer could recover, and an unparsable URL yields an empty hostname.
func BuildSignals(finalURL, body string, headers http.Header) *signature.Signals {
	s := &signature.Signals{
		FinalURL: finalURL,
		HTML:     body,
		Headers:  lowerHeaders(headers),
		Meta:     map[string]string{},
		Hostname: hostnameOf(finalURL),
	}

	s.Cookies = splitCookies(headers.Values("Set-Cookie"))
	parseMarkup(body, s)
	return s
}

func lowerHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[strings.ToLower(k)] = vs[0]
		}
	}
	return out
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// splitCookies breaks Set-Cookie values on commas. Commas inside an Expires
// attribute split the cookie in two; signature patterns tolerate the extra
// fragments, so the naive split is kept.
func splitCookies(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// parseMarkup walks the document once, collecting script srcs in document
// order and meta name/property -> content pairs with later duplicates
// overwriting earlier ones.
func parseMarkup(body string, s *signature.Signals) {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		name, hasAttr := z.TagName()
		switch string(name) {
		case "script":
			if src, ok := attr(z, hasAttr, "src"); ok && src != "" {
				s.ScriptSrcs = append(s.ScriptSrcs, src)
			}
		case "meta":
			key, content := "", ""
			for hasAttr {
				var k, v []byte
				k, v, hasAttr = z.TagAttr()
				switch string(k) {
				case "name", "property":
					key = string(v)
				case "content":
					content = string(v)
				}
			}
			if key != "" && content != "" {
				s.Meta[key] = content
			}
		}
	}
}

func attr(z *html.Tokenizer, hasAttr bool, want string) (string, bool) {
	for hasAttr {
		var k, v []byte
		k, v, hasAttr = z.TagAttr()
		if string(k) == want {
			return string(v), true
		}
	}
	return "", false
}
