// Package server provides HTTP and WebSocket handlers
package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/deskpilot/platform/internal/capture"
	"github.com/deskpilot/platform/internal/config"
	"github.com/deskpilot/platform/internal/errors"
	"github.com/deskpilot/platform/internal/input"
	"github.com/deskpilot/platform/internal/ocr"
	"github.com/deskpilot/platform/internal/session"
	"github.com/deskpilot/platform/internal/state"
	"github.com/deskpilot/platform/internal/trace"
)

// Message is the envelope every WebSocket request carries. ID is echoed
// back on the response so callers can correlate.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

type AckMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	capture    *capture.Service
	store      *session.Store
	resolver   *ocr.Resolver
	state      *state.State
	input      *input.Injector
	cfg        *config.Config
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server.
func New(svc *capture.Service, store *session.Store, resolver *ocr.Resolver,
	st *state.State, in *input.Injector, cfg *config.Config) *Server {
	return &Server{
		capture:    svc,
		store:      store,
		resolver:   resolver,
		state:      st,
		input:      in,
		cfg:        cfg,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("GET /api/screen", s.handleScreen)
	mux.HandleFunc("GET /api/screen/size", s.handleScreenSize)
	mux.HandleFunc("GET /api/artifacts", s.handleArtifacts)
	mux.HandleFunc("GET /api/artifacts/{ref}", s.handleArtifact)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/enhancement", s.handleEnhancementGet)
	mux.HandleFunc("POST /api/enhancement", s.handleEnhancementSet)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var raw json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}

		// A client-supplied trace_id continues the caller's trace;
		// otherwise the per-op span starts a fresh one.
		ctx := baseCtx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			ctx = trace.WithContext(ctx, tc)
		}
		ctx, span := trace.StartSpan(ctx, base.Type)
		resp := s.dispatch(ctx, base, raw)
		span.End()

		if err := wsjson.Write(baseCtx, conn, resp); err != nil {
			log.Debug("websocket write error", "error", err)
			return
		}
	}
}

// errorResponse maps an operation failure to the wire shape. The error
// kind travels with the message so callers can branch without string
// matching.
func errorResponse(id string, err error) ErrorMessage {
	return ErrorMessage{
		Type:    "error",
		ID:      id,
		Kind:    string(errors.KindOf(err)),
		Message: err.Error(),
	}
}

// kindStatus maps an error kind to an HTTP status.
func kindStatus(kind errors.Kind) int {
	switch kind {
	case errors.OutOfBounds, errors.Invalid:
		return http.StatusBadRequest
	case errors.NotFound:
		return http.StatusNotFound
	case errors.DeviceUnavailable, errors.ModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kindStatus(kind))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"kind":  string(kind),
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// encodePNG serializes an image as base64-encoded PNG for transport.
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, errors.Internal, "encoding capture")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	maxDim := s.cfg.MaxPreviewDimension
	if q := r.URL.Query().Get("max_dimension"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			maxDim = n
		}
	}

	result, err := s.captureAndArchiveFull(maxDim)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleScreenSize(w http.ResponseWriter, r *http.Request) {
	size, err := s.capture.ScreenSize()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, size)
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	artifacts := s.store.List()
	if len(artifacts) > limit {
		artifacts = artifacts[len(artifacts)-limit:]
	}
	writeJSON(w, map[string]any{
		"session_id": s.store.ID(),
		"artifacts":  artifacts,
	})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	art, data, err := s.store.Retrieve(r.PathValue("ref"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"artifact": art,
		"image":    base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"session_id": s.store.ID(),
		"dir":        s.store.Dir(),
	})
}

func (s *Server) handleEnhancementGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"enabled": s.state.Enhancement()})
}

func (s *Server) handleEnhancementSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errors.Wrap(err, errors.Invalid, "decoding request body"))
		return
	}
	s.state.SetEnhancement(body.Enabled)
	trace.Logger(r.Context()).Info("enhancement toggled", "enabled", body.Enabled)
	writeJSON(w, map[string]bool{"enabled": body.Enabled})
}
