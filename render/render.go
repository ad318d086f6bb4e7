// Package render drives a real browser page load and captures the richer
// signal set a passive fetch cannot see: post-JS HTML, runtime window
// hints, cookies, and the full network request/response/websocket log. It
// also derives AI-provider, gateway and framework findings from that
// capture, and runs the scripted chat interaction probe.
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
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/stackprobe/browser"
)

// Request is one captured outbound request.
type Request struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	ResourceType string `json:"resourceType"`
}

// Response is one captured response with its headers lower-cased.
type Response struct {
	URL         string            `json:"url"`
	Status      int               `json:"status"`
	ContentType string            `json:"contentType"`
	Headers     map[string]string `json:"headers"`
}

// Capture is everything one rendered page load yielded.
type Capture struct {
	FinalURL    string
	HTML        string
	ScriptSrcs  []string
	Meta        map[string]string
	Cookies     []string
	WindowHints []string

	Requests   []Request
	Responses  []Response
	Websockets []string
	Domains    []string
	Paths      []string
}

// Config tunes the render capture.
type Config struct {
	// SettleDelay is how long to wait after load for late JS activity.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// MaxHTMLBytes caps the captured post-JS HTML.
	MaxHTMLBytes int `yaml:"max_html_bytes"`
	// MaxNetworkEntries caps captured requests and responses each.
	MaxNetworkEntries int `yaml:"max_network_entries"`
}

func (c *Config) defaults() {
	if c.SettleDelay <= 0 {
		c.SettleDelay = 1500 * time.Millisecond
	}
	if c.MaxHTMLBytes <= 0 {
		c.MaxHTMLBytes = 2 << 20
	}
	if c.MaxNetworkEntries <= 0 {
		c.MaxNetworkEntries = 400
	}
}

// Collector runs render captures over a browser session.
type Collector struct {
	cfg Config
	log *slog.Logger
}

// NewCollector builds a Collector. A nil logger discards output.
func NewCollector(cfg Config, log *slog.Logger) *Collector {
	cfg.defaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Collector{cfg: cfg, log: log}
}

// Capture loads pageURL in the session and returns everything observed.
// Navigation failure is the only error; everything after a successful load
// degrades to partial data.
func (c *Collector) Capture(ctx context.Context, s *browser.Session, pageURL string) (*Capture, error) {
	page, err := s.BlankPage(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	out := &Capture{Meta: map[string]string{}}
	var mu sync.Mutex

	// Subscribe before navigation so early requests are not missed.
	wait := page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			mu.Lock()
			defer mu.Unlock()
			if len(out.Requests) >= c.cfg.MaxNetworkEntries {
				return
			}
			out.Requests = append(out.Requests, Request{
				URL:          e.Request.URL,
				Method:       e.Request.Method,
				ResourceType: string(e.Type),
			})
		},
		func(e *proto.NetworkResponseReceived) {
			mu.Lock()
			defer mu.Unlock()
			if len(out.Responses) >= c.cfg.MaxNetworkEntries {
				return
			}
			out.Responses = append(out.Responses, Response{
				URL:         e.Response.URL,
				Status:      e.Response.Status,
				ContentType: e.Response.MIMEType,
				Headers:     lowerHeaders(e.Response.Headers),
			})
		},
		func(e *proto.NetworkWebSocketCreated) {
			mu.Lock()
			defer mu.Unlock()
			out.Websockets = append(out.Websockets, e.URL)
		},
	)
	go wait()

	if err := s.Navigate(ctx, page, pageURL); err != nil {
		return nil, err
	}

	select {
	case <-time.After(c.cfg.SettleDelay):
	case <-ctx.Done():
	}

	out.FinalURL = pageURL
	if info, err := page.Info(); err == nil {
		out.FinalURL = info.URL
	}

	if html, err := page.HTML(); err == nil {
		if len(html) > c.cfg.MaxHTMLBytes {
			html = html[:c.cfg.MaxHTMLBytes]
		}
		out.HTML = html
	} else {
		c.log.Warn("render: html capture failed", "url", pageURL, "error", err)
	}

	c.collectDOM(page, out)
	c.collectCookies(page, out)

	mu.Lock()
	defer mu.Unlock()
	out.Domains, out.Paths = deriveDomainsPaths(out.Requests, out.Responses)
	return out, nil
}

// collectDOM pulls script srcs, meta tags and window hints out of the live
// page. Each extraction degrades independently.
func (c *Collector) collectDOM(page *rod.Page, out *Capture) {
	if res, err := page.Eval(scriptSrcJS); err == nil {
		for _, v := range res.Value.Arr() {
			if s := v.Str(); s != "" {
				out.ScriptSrcs = append(out.ScriptSrcs, s)
			}
		}
	}

	if res, err := page.Eval(metaJS); err == nil {
		for k, v := range res.Value.Map() {
			out.Meta[k] = v.Str()
		}
	}

	if res, err := page.Eval(windowHintsJS); err == nil {
		for _, v := range res.Value.Arr() {
			out.WindowHints = append(out.WindowHints, v.Str())
		}
	}
}

func (c *Collector) collectCookies(page *rod.Page, out *Capture) {
	cookies, err := page.Cookies(nil)
	if err != nil {
		c.log.Debug("render: cookie capture failed", "error", err)
		return
	}
	for _, ck := range cookies {
		out.Cookies = append(out.Cookies, ck.Name+"="+ck.Value)
	}
}

const scriptSrcJS = `() => [...document.querySelectorAll('script[src]')].map(s => s.src).filter(Boolean)`

const metaJS = `() => {
	const out = {};
	for (const el of document.querySelectorAll('meta')) {
		const name = el.getAttribute('name') || el.getAttribute('property') || el.getAttribute('http-equiv');
		const content = el.getAttribute('content');
		if (name && content) out[name] = content;
	}
	return out;
}`

// windowHintsJS checks for framework globals left behind by client runtimes.
// The returned names feed the fixed-priority framework mapping in hints.go.
const windowHintsJS = `() => {
	const hints = [];
	const w = window;
	if (w.__NEXT_DATA__) hints.push('__NEXT_DATA__');
	if (w.__NUXT__) hints.push('__NUXT__');
	if (w.Shopify) hints.push('Shopify');
	if (w.__GATSBY) hints.push('__GATSBY');
	if (w.__remixContext) hints.push('__remixContext');
	if (w.__svelte) hints.push('__svelte');
	if (w.getAllAngularRootElements) hints.push('Angular');
	if (document.__vue_app__) hints.push('Vue');
	if (document.querySelector('[data-testid="stAppViewContainer"]')) hints.push('Streamlit');
	if (document.querySelector('.gradio-container')) hints.push('Gradio');
	return hints;
}`

func lowerHeaders(h proto.NetworkHeaders) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[strings.ToLower(k)] = v.Str()
	}
	return out
}

func deriveDomainsPaths(reqs []Request, resps []Response) (domains, paths []string) {
	seenD := map[string]bool{}
	seenP := map[string]bool{}
	add := func(raw string) {
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		if h := u.Hostname(); h != "" && !seenD[h] {
			seenD[h] = true
			domains = append(domains, h)
		}
		if p := u.Path; p != "" && !seenP[p] {
			seenP[p] = true
			paths = append(paths, p)
		}
	}
	for _, r := range reqs {
		add(r.URL)
	}
	for _, r := range resps {
		add(r.URL)
	}
	return domains, paths
}
