// Package signature holds the declarative technology and AI-provider
// signature catalogues, the rule matcher, and the weighted scorer.
//
// A Signature is a named detector: an unordered set of weighted evidence
// rules plus confidence thresholds. Signatures are loaded once as package
// data and never mutated at runtime. The matcher evaluates one rule against
// a Signals bundle; the scorer sums the weights of all firing rules, caps
// the total at 1.0, and maps it to a confidence tier.
package signature

import (
	"regexp"
	"sync"
)

// Category classifies what a signature detects.
type Category string

const (
	CategoryFramework Category = "framework"
	CategoryHosting   Category = "hosting"
	CategoryCDN       Category = "cdn"
	CategoryPayments  Category = "payments"
	CategoryAuth      Category = "auth"
	CategoryAnalytics Category = "analytics"
	CategorySupport   Category = "support"
	CategoryAI        Category = "ai"
	CategoryCMS       Category = "cms"
)

// TechCategories are the non-AI categories a scan reports one winner for.
// CategoryCDN is not listed: CDN detections only surface as a hosting
// fallback when no dedicated hosting signature fired.
var TechCategories = []Category{
	CategoryFramework,
	CategoryHosting,
	CategoryPayments,
	CategoryAuth,
	CategoryAnalytics,
	CategorySupport,
}

// RuleType selects which field of the Signals bundle a rule probes.
type RuleType string

const (
	RuleHTML       RuleType = "html"
	RuleScriptSrc  RuleType = "script_src"
	RuleHeader     RuleType = "header"
	RuleCookie     RuleType = "cookie"
	RuleMeta       RuleType = "meta"
	RuleDNS        RuleType = "dns"
	RuleNetwork    RuleType = "network"
	RuleScriptBody RuleType = "script_body"
)

// Rule is one weighted evidence test. Pattern is a case-insensitive regular
// expression applied to the field selected by Type. Key is required only for
// header and cookie lookups that name a specific field. Weight is the rule's
// additive score contribution in (0,1]; a rule fires at most once per scan.
type Rule struct {
	Type    RuleType
	Pattern string
	Key     string
	Weight  float64
}

// Thresholds holds score cutoffs in [0,1]. Invariant: High >= Medium.
type Thresholds struct {
	High   float64
	Medium float64
}

// Signature is a named detector for one technology.
type Signature struct {
	ID         string
	Name       string
	Category   Category
	Rules      []Rule
	Thresholds Thresholds
}

// Confidence is the tier assigned to a detection.
type Confidence string

const (
	High   Confidence = "High"
	Medium Confidence = "Medium"
	Low    Confidence = "Low"
)

// Rank orders confidence tiers for merge comparisons. Higher is better.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	}
	return 0
}

// Receipt is proof that one rule fired: the rule's identity plus the literal
// matched text, truncated and stripped of markup.
type Receipt struct {
	Type    RuleType `json:"type"`
	Pattern string   `json:"pattern"`
	Matched string   `json:"matched"`
	Weight  float64  `json:"weight"`
}

// Detection is the output of scoring one signature against one bundle.
type Detection struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   Category   `json:"category"`
	Confidence Confidence `json:"confidence"`
	Score      float64    `json:"score"`
	Receipts   []Receipt  `json:"receipts"`
}

var (
	reMu    sync.RWMutex
	reCache = map[string]*regexp.Regexp{}
)

// compile returns a cached case-insensitive regexp for pattern. Catalogue
// patterns are static literals, so a failed compile is a programming error.
func compile(pattern string) *regexp.Regexp {
	reMu.RLock()
	re, ok := reCache[pattern]
	reMu.RUnlock()
	if ok {
		return re
	}

	re = regexp.MustCompile("(?i)" + pattern)
	reMu.Lock()
	reCache[pattern] = re
	reMu.Unlock()
	return re
}
