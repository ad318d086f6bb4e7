package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/stackprobe/signature"
)

// Config tunes the passive fetch.
type Config struct {
	// Timeout bounds the whole fetch including redirects.
	Timeout time.Duration `yaml:"timeout"`
	// MaxBodyBytes caps how much of the response body is read.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// UserAgent is sent on the fetch request.
	UserAgent string `yaml:"user_agent"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 5 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
}

// Scanner runs the passive phase: fetch one page, extract signals, score
// every signature, and assemble a scan record.
type Scanner struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// NewScanner builds a Scanner. A nil logger discards output.
func NewScanner(cfg Config, log *slog.Logger) *Scanner {
	cfg.defaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scanner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// ErrEmptyURL is returned when a scan is requested with no URL at all.
var ErrEmptyURL = errors.New("scan: empty url")

// Scan fetches rawURL and produces a passive scan record. Fetch and parse
// failures degrade to an empty record rather than an error; only a missing
// URL is rejected. The record has no ID yet; the caller assigns one when
// persisting.
func (s *Scanner) Scan(ctx context.Context, rawURL, userID string) (*Record, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	target := normalizeURL(rawURL)

	finalURL, body, headers := s.fetch(ctx, target)
	sig := BuildSignals(finalURL, body, headers)

	rec := s.assemble(sig)
	rec.URL = target
	rec.UserID = userID
	rec.CreatedAt = time.Now().UTC()
	return rec, nil
}

// Evaluate scores an already-built signal bundle. It exists so the render
// phase and tests can reuse the winner-selection logic without a fetch.
func (s *Scanner) Evaluate(sig *signature.Signals) *Record {
	return s.assemble(sig)
}

func normalizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}

// fetch downloads the page. Every failure path returns empty materials so
// the scan completes with zero detections instead of erroring.
func (s *Scanner) fetch(ctx context.Context, target string) (finalURL, body string, headers http.Header) {
	finalURL = target
	headers = http.Header{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.log.Warn("scan: bad request url", "url", target, "error", err)
		return finalURL, "", headers
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("scan: fetch failed", "url", target, "error", err)
		return finalURL, "", headers
	}
	defer resp.Body.Close()

	finalURL = resp.Request.URL.String()
	headers = resp.Header

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		s.log.Debug("scan: non-html body skipped", "url", finalURL, "content_type", ct)
		return finalURL, "", headers
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.log.Warn("scan: body read failed", "url", finalURL, "error", err)
		return finalURL, "", headers
	}
	return finalURL, string(b), headers
}

// assemble scores both catalogues and fills a record with per-category
// winners and the aggregated evidence roll-up.
func (s *Scanner) assemble(sig *signature.Signals) *Record {
	techs := signature.ScoreAll(signature.Catalog, sig)
	ais := signature.ScoreAll(signature.AICatalog, sig)

	rec := &Record{
		// The record domain drops a leading www so subscriptions and rescan
		// diffs key the same site consistently.
		Domain: strings.TrimPrefix(sig.Hostname, "www."),
		Mode:   ModePassive,
		Phases: NewPhases(),
	}

	// Categories are visited in their declared order so repeated runs over
	// identical signals assemble identical evidence.
	fields := rec.TechFields()
	winners := make([]signature.Detection, 0, len(signature.TechCategories)+1)
	for _, cat := range signature.TechCategories {
		d, ok := topForCategory(techs, cat)
		if !ok && cat == signature.CategoryHosting {
			// A CDN in front of the origin is still the visible hosting layer.
			d, ok = topForCategory(techs, signature.CategoryCDN)
		}
		if !ok {
			continue
		}
		*fields[cat] = &TechField{Value: d.Name, Confidence: d.Confidence}
		winners = append(winners, d)
	}

	if len(ais) > 0 {
		rec.AI.Provider = ais[0].Name
		rec.AI.Confidence = ais[0].Confidence
		winners = append(winners, ais[0])
	}

	rec.Evidence = buildEvidence(winners, techs, ais)
	return rec
}

func topForCategory(ds []signature.Detection, cat signature.Category) (signature.Detection, bool) {
	for _, d := range ds {
		if d.Category == cat {
			return d, true
		}
	}
	return signature.Detection{}, false
}

// buildEvidence aggregates receipts from the winners into the display
// roll-up: deduplicated domains and pattern descriptions, the grouped
// detections behind the winners, and category-grouped service names.
func buildEvidence(winners, techs, ais []signature.Detection) Evidence {
	var ev Evidence

	domains := map[string]bool{}
	patterns := map[string]bool{}
	for _, d := range winners {
		for _, r := range d.Receipts {
			switch r.Type {
			case signature.RuleDNS:
				addUnique(&ev.Domains, domains, r.Matched)
			case signature.RuleScriptSrc:
				if h := receiptHost(r.Matched); h != "" {
					addUnique(&ev.Domains, domains, h)
				}
			}
			addUnique(&ev.Patterns, patterns, string(r.Type)+": "+r.Pattern)
		}
	}

	// Detections list highest score first.
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Score != winners[j].Score {
			return winners[i].Score > winners[j].Score
		}
		return winners[i].ID < winners[j].ID
	})
	ev.Detections = winners

	services := map[string][]string{}
	for _, d := range append(append([]signature.Detection{}, techs...), ais...) {
		cat := string(d.Category)
		services[cat] = append(services[cat], d.Name)
	}
	if len(services) > 0 {
		ev.Services = services
	}
	return ev
}

func addUnique(dst *[]string, seen map[string]bool, v string) {
	if v == "" || seen[v] {
		return
	}
	seen[v] = true
	*dst = append(*dst, v)
}

// receiptHost extracts a hostname from a script src receipt, which may be
// scheme-relative or a bare path.
func receiptHost(v string) string {
	switch {
	case strings.HasPrefix(v, "//"):
		v = "https:" + v
	case !strings.Contains(v, "://"):
		v = "https://" + v
	}
	u, err := url.Parse(v)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
