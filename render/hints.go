package render

import "github.com/hazyhaar/stackprobe/signature"

// hintFrameworks maps window hint names to framework names in priority
// order; the first present hint wins.
var hintFrameworks = []struct {
	Hint      string
	Framework string
}{
	{"__NEXT_DATA__", "Next.js"},
	{"__NUXT__", "Nuxt"},
	{"Shopify", "Shopify"},
	{"__GATSBY", "Gatsby"},
	{"__remixContext", "Remix"},
	{"__svelte", "Svelte"},
	{"Angular", "Angular"},
	{"Vue", "Vue.js"},
	{"Streamlit", "Streamlit"},
	{"Gradio", "Gradio"},
}

// FrameworkFromHints maps captured window hints to a framework name. A
// runtime global is definitive, so any hit is High; no hit yields no
// framework at Low.
func FrameworkFromHints(hints []string) (string, signature.Confidence) {
	present := make(map[string]bool, len(hints))
	for _, h := range hints {
		present[h] = true
	}
	for _, hf := range hintFrameworks {
		if present[hf.Hint] {
			return hf.Framework, signature.High
		}
	}
	return "", signature.Low
}
