package signature

import (
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxMatchLen caps the literal matched text stored in a receipt.
const maxMatchLen = 160

// snippetPolicy strips all markup from matched text before it lands in a
// receipt. Matched HTML fragments are displayed verbatim downstream.
var snippetPolicy = bluemonday.StrictPolicy()

// Match evaluates one rule against a bundle and returns a receipt when it
// fires. For list-valued fields (script srcs, cookies, meta, network URLs)
// the first match wins and evaluation stops. A header rule whose pattern is
// the literal wildcard ".*" matches on mere presence of the named header,
// regardless of its value.
func Match(rule Rule, s *Signals) (Receipt, bool) {
	switch rule.Type {
	case RuleHTML:
		return matchText(rule, s.HTML)

	case RuleScriptSrc:
		return matchFirst(rule, s.ScriptSrcs)

	case RuleHeader:
		val, ok := s.Headers[strings.ToLower(rule.Key)]
		if !ok {
			return Receipt{}, false
		}
		if rule.Pattern == ".*" {
			return receipt(rule, rule.Key), true
		}
		return matchText(rule, val)

	case RuleCookie:
		return matchFirst(rule, s.Cookies)

	case RuleMeta:
		// Sorted keys keep receipt output deterministic across runs.
		keys := make([]string, 0, len(s.Meta))
		for k := range s.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		re := compile(rule.Pattern)
		for _, k := range keys {
			if m := re.FindString(s.Meta[k]); m != "" {
				return receipt(rule, m), true
			}
			if m := re.FindString(k); m != "" {
				return receipt(rule, m), true
			}
		}
		return Receipt{}, false

	case RuleDNS:
		return matchText(rule, s.Hostname)

	case RuleNetwork:
		return matchFirst(rule, s.NetworkURLs)

	case RuleScriptBody:
		return matchFirst(rule, s.ScriptBodies)
	}

	return Receipt{}, false
}

func matchText(rule Rule, text string) (Receipt, bool) {
	if text == "" {
		return Receipt{}, false
	}
	if m := compile(rule.Pattern).FindString(text); m != "" {
		return receipt(rule, m), true
	}
	return Receipt{}, false
}

func matchFirst(rule Rule, values []string) (Receipt, bool) {
	re := compile(rule.Pattern)
	for _, v := range values {
		if re.FindString(v) != "" {
			return receipt(rule, v), true
		}
	}
	return Receipt{}, false
}

func receipt(rule Rule, matched string) Receipt {
	matched = snippetPolicy.Sanitize(matched)
	if len(matched) > maxMatchLen {
		matched = matched[:maxMatchLen]
	}
	return Receipt{
		Type:    rule.Type,
		Pattern: rule.Pattern,
		Matched: matched,
		Weight:  rule.Weight,
	}
}
