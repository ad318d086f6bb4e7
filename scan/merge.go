package scan

import (
	"time"

	"github.com/hazyhaar/stackprobe/signature"
)

// RenderOutcome is what the render phase learned from a live page load.
type RenderOutcome struct {
	// Framework inferred from window hints, nil when none was found.
	Framework *TechField
	// Provider and its confidence, from captured AI network traffic.
	Provider           string
	ProviderConfidence signature.Confidence
	// Transport is how the AI traffic moved: "sse", "websocket" or "fetch".
	Transport string
	// Gateway is a detected AI gateway name, empty when none.
	Gateway string
	// Evidence is unioned additively into the record.
	Evidence Evidence
}

// ProbeOutcome is what the interaction probe learned from one scripted chat
// exchange.
type ProbeOutcome struct {
	Provider           string
	ProviderConfidence signature.Confidence
	InferredModel      string
	TTFT               time.Duration
	TPS                float64
	Gateway            string
	Evidence           Evidence
}

// MergeRender folds a render outcome into the record. Fields follow the
// upgrade-only rule: an incumbent set by an earlier phase is overwritten
// only when absent or when the new confidence is High. The gateway has no
// incumbent concept and is always set when discovered. Evidence is unioned,
// never replaced.
func (r *Record) MergeRender(o RenderOutcome) {
	if upgrades(fieldConfidence(r.Framework), o.Framework) {
		r.Framework = o.Framework
	}
	if o.Provider != "" && (r.AI.Provider == "" || o.ProviderConfidence == signature.High) {
		r.AI.Provider = o.Provider
		r.AI.Confidence = o.ProviderConfidence
	}
	if o.Transport != "" {
		r.AI.Transport = o.Transport
	}
	if o.Gateway != "" {
		r.AI.Gateway = o.Gateway
	}

	r.Evidence.union(o.Evidence)
	r.Mode = ModeRender
}

// MergeProbe folds a probe outcome into the record. Provider follows the
// same upgrade-only rule; timing and model fields have no earlier-phase
// source, so they are set whenever the probe produced them.
func (r *Record) MergeProbe(o ProbeOutcome) {
	if o.Provider != "" && (r.AI.Provider == "" || o.ProviderConfidence == signature.High) {
		r.AI.Provider = o.Provider
		r.AI.Confidence = o.ProviderConfidence
	}
	if o.InferredModel != "" {
		r.AI.InferredModel = o.InferredModel
	}
	if o.TTFT > 0 {
		r.AI.TTFTMillis = o.TTFT.Milliseconds()
	}
	if o.TPS > 0 {
		r.AI.TPS = o.TPS
	}
	if o.Gateway != "" {
		r.AI.Gateway = o.Gateway
	}

	r.Evidence.union(o.Evidence)
	r.Mode = ModeProbe
}

func fieldConfidence(f *TechField) signature.Confidence {
	if f == nil {
		return ""
	}
	return f.Confidence
}

func upgrades(incumbent signature.Confidence, candidate *TechField) bool {
	if candidate == nil {
		return false
	}
	return incumbent == "" || candidate.Confidence == signature.High
}

// union merges another evidence object into this one additively: string
// sets are deduplicated, detections are appended once per signature id,
// scalar diagnostics are taken from the newer phase when present.
func (e *Evidence) union(o Evidence) {
	e.Domains = mergeUnique(e.Domains, o.Domains)
	e.Patterns = mergeUnique(e.Patterns, o.Patterns)
	e.NetworkDomains = mergeUnique(e.NetworkDomains, o.NetworkDomains)
	e.NetworkPaths = mergeUnique(e.NetworkPaths, o.NetworkPaths)
	e.Websockets = mergeUnique(e.Websockets, o.Websockets)
	e.WindowHints = mergeUnique(e.WindowHints, o.WindowHints)

	seen := map[string]bool{}
	for _, d := range e.Detections {
		seen[d.ID] = true
	}
	for _, d := range o.Detections {
		if !seen[d.ID] {
			seen[d.ID] = true
			e.Detections = append(e.Detections, d)
		}
	}

	for cat, names := range o.Services {
		if e.Services == nil {
			e.Services = map[string][]string{}
		}
		e.Services[cat] = mergeUnique(e.Services[cat], names)
	}

	if o.NetworkRequests > 0 {
		e.NetworkRequests = o.NetworkRequests
	}
	if o.PayloadProvider != "" {
		e.PayloadProvider = o.PayloadProvider
	}
	if o.Interaction != nil {
		e.Interaction = o.Interaction
	}
}

func mergeUnique(dst, src []string) []string {
	if len(src) == 0 {
		return dst
	}
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if v != "" && !seen[v] {
			seen[v] = true
			dst = append(dst, v)
		}
	}
	return dst
}
