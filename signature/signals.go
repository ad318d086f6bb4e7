package signature

// Signals is the normalized, scan-scoped view of one page fetch that rules
// are evaluated against. The passive scan fills the static fields; the
// render phase additionally fills the network-derived ones. Built fresh per
// scan invocation and never persisted; only derived receipts survive.
type Signals struct {
	// FinalURL is the URL after redirects.
	FinalURL string
	// HTML is the raw page body, size-capped by the fetcher.
	HTML string
	// Headers maps lower-cased header names to values.
	Headers map[string]string
	// Cookies holds raw cookie strings.
	Cookies []string
	// ScriptSrcs holds every <script src> value in document order.
	ScriptSrcs []string
	// Meta maps meta name/property to content; later duplicates win.
	Meta map[string]string
	// Hostname parsed from FinalURL; empty when unparsable.
	Hostname string

	// NetworkURLs holds captured request/response URLs (render phase only).
	NetworkURLs []string
	// ScriptBodies holds downloaded script contents (render phase only).
	ScriptBodies []string
}
