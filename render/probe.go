package render

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/stackprobe/browser"
	"github.com/hazyhaar/stackprobe/signature"
)

// chatSelectors locate a chat-style input, most specific first.
var chatSelectors = []string{
	`input[placeholder*="message" i]`,
	`input[placeholder*="ask" i]`,
	`input[placeholder*="chat" i]`,
	`input[placeholder*="type" i]`,
	`textarea[placeholder*="message" i]`,
	`textarea[placeholder*="ask" i]`,
	`textarea[placeholder*="chat" i]`,
	`[data-testid*="chat" i] input`,
	`[data-testid*="chat" i] textarea`,
	`[class*="chat" i] input`,
	`[class*="chat" i] textarea`,
	`[role="textbox"]`,
}

// sendSelectors locate a send button; Enter on the input is the fallback.
var sendSelectors = []string{
	`button[type="submit"]`,
	`button[aria-label*="send" i]`,
	`button[aria-label*="submit" i]`,
	`[data-testid*="send" i]`,
	`[class*="send" i] button`,
	`button:has(svg)`,
}

// ProbeResult is what one scripted chat exchange yielded. A zero result
// with Submitted false means no chat input was found, which is not an
// error.
type ProbeResult struct {
	Submitted bool
	Prompt    string

	Provider           string
	ProviderConfidence signature.Confidence
	PayloadProvider    string
	InferredModel      string

	TTFT      time.Duration
	Total     time.Duration
	TPS       float64
	Tokens    int
	Responses int

	// ResponseExcerpt is the head of the first captured response body.
	ResponseExcerpt string

	Domains []string
}

// maxExcerptLen caps the stored response excerpt.
const maxExcerptLen = 500

// ProbeConfig tunes the interaction probe.
type ProbeConfig struct {
	// SettleDelay is the wait after load before searching for a chat input.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// Window bounds the post-submit network observation.
	Window time.Duration `yaml:"window"`
	// Prompt is the message typed into the chat input.
	Prompt string `yaml:"prompt"`
}

func (c *ProbeConfig) defaults() {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 8 * time.Second
	}
	if c.Prompt == "" {
		c.Prompt = "Hi"
	}
}

// Prober runs the scripted chat interaction.
type Prober struct {
	cfg ProbeConfig
	log *slog.Logger
}

// NewProber builds a Prober. A nil logger discards output.
func NewProber(cfg ProbeConfig, log *slog.Logger) *Prober {
	cfg.defaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Prober{cfg: cfg, log: log}
}

// probeState accumulates network observations across event callbacks.
type probeState struct {
	mu sync.Mutex

	armed     bool
	submitAt  time.Time
	firstByte time.Time

	bodyChars int
	responses int
	excerpt   string

	domainProvider  string
	payloadProvider string
	domains         []string
	domainSeen      map[string]bool

	// interesting maps request ids whose bodies should be read once loading
	// finishes.
	interesting map[proto.NetworkRequestID]bool
}

// Probe loads pageURL, submits one short chat message if a chat UI exists,
// and measures the response stream. Navigation failure is the only error;
// interaction failures degrade to an empty result.
func (p *Prober) Probe(ctx context.Context, s *browser.Session, pageURL string) (*ProbeResult, error) {
	page, err := s.BlankPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	st := &probeState{
		domainSeen:  map[string]bool{},
		interesting: map[proto.NetworkRequestID]bool{},
	}

	wait := page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			p.onResponse(st, e)
		},
		func(e *proto.NetworkLoadingFinished) {
			p.onLoadingFinished(st, page, e)
		},
	)
	go wait()

	if err := s.Navigate(ctx, page, pageURL); err != nil {
		return nil, err
	}

	select {
	case <-time.After(p.cfg.SettleDelay):
	case <-ctx.Done():
		return &ProbeResult{}, nil
	}

	inputEl := findVisible(page, chatSelectors)
	if inputEl == nil {
		p.log.Info("render: no chat input found", "url", pageURL)
		return p.finish(st), nil
	}

	if err := p.submit(page, inputEl); err != nil {
		p.log.Warn("render: chat interaction failed", "url", pageURL, "error", err)
		return p.finish(st), nil
	}

	st.mu.Lock()
	st.armed = true
	st.submitAt = time.Now()
	st.mu.Unlock()

	select {
	case <-time.After(p.cfg.Window):
	case <-ctx.Done():
	}

	res := p.finish(st)
	res.Submitted = true
	res.Prompt = p.cfg.Prompt
	return res, nil
}

func (p *Prober) submit(page *rod.Page, inputEl *rod.Element) error {
	if err := inputEl.Input(p.cfg.Prompt); err != nil {
		return err
	}
	if btn := findVisible(page, sendSelectors); btn != nil {
		return btn.Click(proto.InputMouseButtonLeft, 1)
	}
	return inputEl.Type(input.Enter)
}

func (p *Prober) onResponse(st *probeState, e *proto.NetworkResponseReceived) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if u, err := url.Parse(e.Response.URL); err == nil {
		if h := u.Hostname(); h != "" && !st.domainSeen[h] {
			st.domainSeen[h] = true
			st.domains = append(st.domains, h)
			if name, ok := signature.ProviderDomains[h]; ok {
				st.domainProvider = name
			}
		}
		if st.domainProvider == "" {
			path := u.Path
			if strings.Contains(path, "/v1/chat/completions") || strings.Contains(path, "/v1/completions") {
				st.domainProvider = "OpenAI-compatible"
			} else if strings.Contains(path, "/v1/messages") {
				st.domainProvider = "Anthropic-compatible"
			}
		}
	}

	if !st.armed {
		return
	}
	ct := e.Response.MIMEType
	if !strings.Contains(ct, "event-stream") && !strings.Contains(ct, "json") {
		return
	}
	if st.firstByte.IsZero() {
		st.firstByte = time.Now()
	}
	st.responses++
	st.interesting[e.RequestID] = true
}

// onLoadingFinished reads the body of a stream/JSON response once Chrome
// has it buffered, counting its length and scanning payload signatures.
func (p *Prober) onLoadingFinished(st *probeState, page *rod.Page, e *proto.NetworkLoadingFinished) {
	st.mu.Lock()
	want := st.interesting[e.RequestID]
	delete(st.interesting, e.RequestID)
	st.mu.Unlock()
	if !want {
		return
	}

	body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(page)
	if err != nil {
		p.log.Debug("render: response body unavailable", "error", err)
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.bodyChars += len(body.Body)
	if st.excerpt == "" {
		st.excerpt = body.Body
		if len(st.excerpt) > maxExcerptLen {
			st.excerpt = st.excerpt[:maxExcerptLen]
		}
	}
	if st.payloadProvider == "" {
		for _, sig := range signature.PayloadSignatures {
			if sig.Pattern.MatchString(body.Body) {
				st.payloadProvider = sig.Provider
				break
			}
		}
	}
}

// finish turns accumulated state into a result. Timing math: tokens are
// approximated as ceil(chars/4); TPS divides tokens by the generation time
// after the first byte, guarded against a zero window.
func (p *Prober) finish(st *probeState) *ProbeResult {
	st.mu.Lock()
	defer st.mu.Unlock()

	res := &ProbeResult{
		Responses:       st.responses,
		Domains:         st.domains,
		ResponseExcerpt: st.excerpt,
	}

	res.Tokens = (st.bodyChars + 3) / 4
	if !st.firstByte.IsZero() {
		res.TTFT = st.firstByte.Sub(st.submitAt)
		res.Total = p.cfg.Window
		if gen := res.Total - res.TTFT; gen > 0 && res.Tokens > 0 {
			res.TPS = float64(res.Tokens) / gen.Seconds()
		}
	}

	// Wire content identifies the provider more directly than a domain.
	switch {
	case st.payloadProvider != "":
		res.Provider = st.payloadProvider
		res.ProviderConfidence = signature.High
		res.PayloadProvider = st.payloadProvider
	case st.domainProvider != "":
		res.Provider = st.domainProvider
		res.ProviderConfidence = signature.High
		if strings.HasSuffix(st.domainProvider, "-compatible") {
			res.ProviderConfidence = signature.Medium
		}
	}

	if res.Tokens > 0 {
		res.InferredModel = signature.InferModel(res.TTFT, res.TPS)
	}
	return res
}

// findVisible returns the first visible element matching any selector, or
// nil. Selector errors and races are treated as "not found".
func findVisible(page *rod.Page, selectors []string) *rod.Element {
	quick := page.Sleeper(rod.NotFoundSleeper)
	for _, sel := range selectors {
		el, err := quick.Element(sel)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err == nil && visible {
			return el
		}
	}
	return nil
}
