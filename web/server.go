// Package web exposes the scan pipeline over HTTP: scan triggers, record
// polling, subscription management and change history.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/stackprobe/idgen"
	"github.com/hazyhaar/stackprobe/netguard"
	"github.com/hazyhaar/stackprobe/pipeline"
	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/store"
)

// Config tunes the HTTP surface.
type Config struct {
	// RateLimitPerMinute caps scan-triggering requests per client IP.
	// 0 disables the limiter. Default: 30.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	// AllowPrivateTargets skips the private-address guard on scan targets.
	// Meant for deployments that scan internal staging sites.
	AllowPrivateTargets bool `yaml:"allow_private_targets"`
}

func (c *Config) defaults() {
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
}

// Server holds the handler dependencies.
type Server struct {
	cfg      Config
	coord    *pipeline.Coordinator
	store    *store.Store
	limiter  *RateLimiter
	newSubID idgen.Generator
	log      *slog.Logger
}

// NewServer builds the HTTP layer. A nil logger discards output.
func NewServer(cfg Config, coord *pipeline.Coordinator, st *store.Store, log *slog.Logger) *Server {
	cfg.defaults()
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		cfg:      cfg,
		coord:    coord,
		store:    st,
		limiter:  NewRateLimiter(cfg.RateLimitPerMinute, time.Minute),
		newSubID: idgen.Prefixed("sub_", idgen.UUIDv7()),
		log:      log,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID(s.log))
	r.Use(SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Post("/scans", s.createScan)
		r.Get("/scans", s.listScans)
		r.Get("/scans/{id}", s.getScan)
		r.Post("/scans/{id}/probe", s.startProbe)

		r.Post("/subscriptions", s.createSubscription)
		r.Get("/subscriptions", s.listSubscriptions)
		r.Get("/subscriptions/{id}", s.getSubscription)
		r.Patch("/subscriptions/{id}", s.updateSubscription)
		r.Delete("/subscriptions/{id}", s.deleteSubscription)

		r.Get("/changes", s.listChanges)
	})
	return r
}

func (s *Server) createScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL    string `json:"url"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}
	if err := s.checkTarget(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, err := s.coord.StartScan(r.Context(), req.URL, req.UserID)
	if err != nil {
		if errors.Is(err, scan.ErrEmptyURL) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		s.log.Error("web: start scan failed", "url", req.URL, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("scan failed"))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.coord.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	var (
		recs []*scan.Record
		err  error
	)
	if userID := r.URL.Query().Get("userId"); userID != "" {
		recs, err = s.store.ListScansForUser(r.Context(), userID, limit)
	} else {
		recs, err = s.store.ListRecentScans(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if recs == nil {
		recs = []*scan.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) startProbe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.coord.StartProbe(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "probing"})
	case errors.Is(err, pipeline.ErrScanNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pipeline.ErrProbeLocked),
		errors.Is(err, pipeline.ErrProbeInFlight),
		errors.Is(err, pipeline.ErrProbeSettled):
		writeError(w, http.StatusConflict, err)
	default:
		s.log.Error("web: start probe failed", "scan_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("probe failed"))
	}
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL    string `json:"url"`
		UserID string `json:"userId"`
		Notify bool   `json:"notify"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body"))
		return
	}
	if err := s.checkTarget(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	domain := normalizeDomain(req.URL)
	if domain == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("url has no valid host"))
		return
	}

	sub := &store.Subscription{
		ID:        s.newSubID(),
		UserID:    req.UserID,
		Domain:    domain,
		URL:       req.URL,
		Notify:    req.Notify,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSubscription(r.Context(), sub); err != nil {
		// The unique (user, domain) index makes a duplicate insert fail.
		writeError(w, http.StatusConflict, fmt.Errorf("subscription already exists for %s", domain))
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("userId is required"))
		return
	}
	subs, err := s.store.ListSubscriptionsForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if subs == nil {
		subs = []*store.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sub == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("subscription not found"))
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("body must carry an active flag"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.SetSubscriptionActive(r.Context(), id, *req.Active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": *req.Active})
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteSubscription(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) listChanges(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("domain is required"))
		return
	}
	evs, err := s.store.ListChangeEvents(r.Context(), domain, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if evs == nil {
		evs = []*store.ChangeEvent{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// checkTarget rejects empty and private-address scan targets.
func (s *Server) checkTarget(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("url is required")
	}
	if s.cfg.AllowPrivateTargets {
		return nil
	}
	target := rawURL
	if !strings.Contains(target, "://") {
		target = "https://" + target
	}
	if err := netguard.ValidateURL(target); err != nil {
		return err
	}
	return nil
}

// normalizeDomain extracts the hostname and strips a leading www.
func normalizeDomain(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
