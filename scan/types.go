// Package scan defines the durable scan record, the phase state machine
// that governs the passive/render/probe pipeline, the passive orchestrator,
// and the upgrade-only merge rules later phases apply to the record.
package scan

import (
	"time"

	"github.com/hazyhaar/stackprobe/signature"
)

// Mode labels the deepest phase whose results a record carries.
type Mode string

const (
	ModePassive Mode = "passive"
	ModeRender  Mode = "render"
	ModeProbe   Mode = "probe"
)

// TechField is one detected technology with its confidence tier. A nil
// *TechField means the category was not detected; it serializes as null.
type TechField struct {
	Value      string               `json:"value"`
	Confidence signature.Confidence `json:"confidence"`
}

// AIReport bundles everything learned about a site's AI usage across all
// three phases. Zero values mean "not observed".
type AIReport struct {
	Provider      string               `json:"provider,omitempty"`
	Confidence    signature.Confidence `json:"confidence,omitempty"`
	Transport     string               `json:"transport,omitempty"`
	Gateway       string               `json:"gateway,omitempty"`
	InferredModel string               `json:"inferredModel,omitempty"`
	TTFTMillis    int64                `json:"ttftMs,omitempty"`
	TPS           float64              `json:"tps,omitempty"`
}

// Interaction records the diagnostics of one scripted chat probe.
type Interaction struct {
	Submitted   bool    `json:"submitted"`
	Prompt      string  `json:"promptSent,omitempty"`
	TTFTMillis  int64   `json:"ttftMs"`
	TotalMillis int64   `json:"totalTimeMs,omitempty"`
	TPS         float64 `json:"tps"`
	Tokens      int     `json:"tokens"`
	Responses   int     `json:"responses"`
	// ResponseExcerpt is a truncated head of the first captured response.
	ResponseExcerpt string `json:"responseReceived,omitempty"`
}

// Evidence is the scan-level roll-up of everything the phases observed.
// Every subsection is optional; later phases union into it additively.
type Evidence struct {
	// Domains observed via dns rules and script hosts, deduplicated.
	Domains []string `json:"domains,omitempty"`
	// Patterns lists "type: pattern" strings for every firing rule.
	Patterns []string `json:"patterns,omitempty"`
	// Detections groups the full per-technology results behind the winners.
	Detections []signature.Detection `json:"detections,omitempty"`
	// Services groups detected technology names by category for display.
	Services map[string][]string `json:"services,omitempty"`

	// Render-phase network capture.
	NetworkRequests int      `json:"networkRequests,omitempty"`
	NetworkDomains  []string `json:"networkDomains,omitempty"`
	NetworkPaths    []string `json:"networkPaths,omitempty"`
	Websockets      []string `json:"websockets,omitempty"`
	WindowHints     []string `json:"windowHints,omitempty"`

	// Probe-phase diagnostics.
	PayloadProvider string       `json:"payloadProvider,omitempty"`
	Interaction     *Interaction `json:"interaction,omitempty"`
}

// Record is the durable, progressively updated result of scanning one URL.
// It is created when the passive phase finishes and mutated in place by the
// render and probe phases under the upgrade-only merge rules.
type Record struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Framework *TechField `json:"framework"`
	Hosting   *TechField `json:"hosting"`
	Payments  *TechField `json:"payments"`
	Auth      *TechField `json:"auth"`
	Analytics *TechField `json:"analytics"`
	Support   *TechField `json:"support"`

	AI AIReport `json:"ai"`

	Mode     Mode     `json:"scanMode"`
	Phases   Phases   `json:"scanPhases"`
	Evidence Evidence `json:"evidence"`
}

// TechFields returns the six category fields keyed by category name. The
// pointers alias the record, so callers may assign through them.
func (r *Record) TechFields() map[signature.Category]**TechField {
	return map[signature.Category]**TechField{
		signature.CategoryFramework: &r.Framework,
		signature.CategoryHosting:   &r.Hosting,
		signature.CategoryPayments:  &r.Payments,
		signature.CategoryAuth:      &r.Auth,
		signature.CategoryAnalytics: &r.Analytics,
		signature.CategorySupport:   &r.Support,
	}
}

// FieldChange is one modified technology in a rescan diff.
type FieldChange struct {
	Tech string `json:"tech"`
	From string `json:"from"`
	To   string `json:"to"`
}

// ChangeDiff is the structured difference between two scan records for the
// same domain: technologies that appeared, disappeared, or changed value.
type ChangeDiff struct {
	Added    []string      `json:"added"`
	Removed  []string      `json:"removed"`
	Modified []FieldChange `json:"modified"`
}

// Empty reports whether the diff carries no change at all.
func (d ChangeDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Field returns the detected value for one category, or nil.
func (r *Record) Field(cat signature.Category) *TechField {
	switch cat {
	case signature.CategoryFramework:
		return r.Framework
	case signature.CategoryHosting:
		return r.Hosting
	case signature.CategoryPayments:
		return r.Payments
	case signature.CategoryAuth:
		return r.Auth
	case signature.CategoryAnalytics:
		return r.Analytics
	case signature.CategorySupport:
		return r.Support
	}
	return nil
}
