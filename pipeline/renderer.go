package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/stackprobe/browser"
	"github.com/hazyhaar/stackprobe/render"
	"github.com/hazyhaar/stackprobe/scan"
)

// BrowserRenderer is the production Renderer: one Chrome process per
// operation, torn down on every exit path.
type BrowserRenderer struct {
	browserCfg browser.Config
	collector  *render.Collector
	prober     *render.Prober
	log        *slog.Logger
}

// NewBrowserRenderer builds the rod-backed renderer.
func NewBrowserRenderer(bcfg browser.Config, rcfg render.Config, pcfg render.ProbeConfig, log *slog.Logger) *BrowserRenderer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BrowserRenderer{
		browserCfg: bcfg,
		collector:  render.NewCollector(rcfg, log),
		prober:     render.NewProber(pcfg, log),
		log:        log,
	}
}

// Render captures a live page load and distils it into a merge outcome.
func (r *BrowserRenderer) Render(ctx context.Context, url string) (*scan.RenderOutcome, error) {
	session, err := browser.Open(ctx, r.browserCfg)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	capture, err := r.collector.Capture(ctx, session, url)
	if err != nil {
		return nil, err
	}
	return renderOutcome(capture), nil
}

// Probe runs the scripted chat interaction and distils it into a merge
// outcome.
func (r *BrowserRenderer) Probe(ctx context.Context, url string) (*scan.ProbeOutcome, error) {
	session, err := browser.Open(ctx, r.browserCfg)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	res, err := r.prober.Probe(ctx, session, url)
	if err != nil {
		return nil, err
	}
	return probeOutcome(res), nil
}

func renderOutcome(c *render.Capture) *scan.RenderOutcome {
	out := &scan.RenderOutcome{
		Evidence: scan.Evidence{
			NetworkRequests: len(c.Requests),
			NetworkDomains:  c.Domains,
			NetworkPaths:    c.Paths,
			Websockets:      c.Websockets,
			WindowHints:     c.WindowHints,
		},
	}

	if fw, conf := render.FrameworkFromHints(c.WindowHints); fw != "" {
		out.Framework = &scan.TechField{Value: fw, Confidence: conf}
	}

	finding := render.DetectAI(c)
	if finding.Provider != "" {
		out.Provider = finding.Provider
		out.ProviderConfidence = finding.Confidence
		out.Transport = finding.Transport
	}
	out.Gateway = finding.Gateway
	return out
}

func probeOutcome(res *render.ProbeResult) *scan.ProbeOutcome {
	out := &scan.ProbeOutcome{
		Provider:           res.Provider,
		ProviderConfidence: res.ProviderConfidence,
		InferredModel:      res.InferredModel,
		TTFT:               res.TTFT,
		TPS:                res.TPS,
		Evidence: scan.Evidence{
			NetworkDomains:  res.Domains,
			PayloadProvider: res.PayloadProvider,
		},
	}
	if res.Submitted || res.Responses > 0 {
		out.Evidence.Interaction = &scan.Interaction{
			Submitted:       res.Submitted,
			Prompt:          res.Prompt,
			TTFTMillis:      res.TTFT.Milliseconds(),
			TotalMillis:     res.Total.Milliseconds(),
			TPS:             res.TPS,
			Tokens:          res.Tokens,
			Responses:       res.Responses,
			ResponseExcerpt: res.ResponseExcerpt,
		}
	}
	return out
}

var _ Renderer = (*BrowserRenderer)(nil)
