// Package api serves the lucidity subsystem over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
// The SSE stream is the dev notification transport.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/hollowmere/internal/flux"
	"github.com/talgya/hollowmere/internal/lucidity"
	"github.com/talgya/hollowmere/internal/notify"
	"github.com/talgya/hollowmere/internal/persistence"
	"github.com/talgya/hollowmere/internal/world"
)

const maxSSEConns = 8

// Server exposes the subsystem state and control plane.
type Server struct {
	Engine   *lucidity.Engine
	Gateway  *lucidity.Gateway
	Registry *lucidity.CatatoniaRegistry
	Ledger   *persistence.DB
	Loop     *flux.Loop
	Broker   *notify.Broker
	Atlas    *world.Atlas

	Addr     string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	sseConns int32

	httpServer *http.Server
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	adjustLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/actor/", s.handleActor)
	mux.HandleFunc("/api/v1/catatonia", s.handleCatatonia)

	mux.HandleFunc("/api/v1/adjust", s.adminOnly(RateLimitMiddleware(adjustLimiter, s.handleAdjust)))
	mux.HandleFunc("/api/v1/encounter", s.adminOnly(RateLimitMiddleware(adjustLimiter, s.handleEncounter)))
	mux.HandleFunc("/api/v1/recovery", s.adminOnly(RateLimitMiddleware(adjustLimiter, s.handleRecovery)))
	mux.HandleFunc("/api/v1/presence", s.adminOnly(s.handlePresence))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))

	mux.HandleFunc("/api/v1/stream", s.handleStream)

	s.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no LUCIDITYD_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":       "Hollowmere lucidity",
		"tick":       s.Loop.Tick,
		"world_time": world.WorldTime(s.Loop.Tick),
		"night":      world.IsNight(s.Loop.Tick),
		"speed":      s.Loop.Speed,
		"running":    s.Loop.Running,
		"rooms":      s.Atlas.RoomCount(),
		"catatonic":  s.Registry.Len(),
	}
	writeJSON(w, status)
}

// handleActor serves GET /api/v1/actor/{id} and
// GET /api/v1/actor/{id}/log.
func (s *Server) handleActor(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/actor/")
	parts := strings.SplitN(rest, "/", 2)
	actorID := parts[0]
	if actorID == "" {
		http.Error(w, "actor id required", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 && parts[1] == "log" {
		entries, err := s.Ledger.RecentLog(r.Context(), actorID, 50)
		if err != nil {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
		return
	}

	rec, err := s.Ledger.GetOrCreate(r.Context(), actorID)
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	out := map[string]any{
		"actor_id":    rec.ActorID,
		"score":       rec.Score,
		"max_score":   lucidity.ScoreMax,
		"tier":        rec.Tier,
		"liabilities": rec.Liabilities,
		"catatonic":   s.Registry.Contains(actorID),
	}
	if rec.CatatoniaEnteredAt != nil {
		out["catatonia_entered_at"] = rec.CatatoniaEnteredAt
	}
	writeJSON(w, out)
}

func (s *Server) handleCatatonia(w http.ResponseWriter, r *http.Request) {
	type member struct {
		ActorID   string    `json:"actor_id"`
		EnteredAt time.Time `json:"entered_at"`
	}
	var result []member
	for id, at := range s.Registry.Members() {
		result = append(result, member{ActorID: id, EnteredAt: at})
	}
	writeJSON(w, result)
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ActorID    string            `json:"actor_id"`
		Delta      int               `json:"delta"`
		Reason     string            `json:"reason"`
		Metadata   map[string]string `json:"metadata,omitempty"`
		LocationID string            `json:"location_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActorID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Reason == "" {
		req.Reason = "admin"
	}
	res, err := s.Engine.Apply(r.Context(), req.ActorID, req.Delta, req.Reason, req.Metadata, req.LocationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleEncounter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ActorID    string `json:"actor_id"`
		Archetype  string `json:"archetype"`
		Category   string `json:"category"`
		LocationID string `json:"location_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActorID == "" || req.Archetype == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.Gateway.ApplyEncounter(r.Context(), req.ActorID, req.Archetype, req.Category, req.LocationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ActorID    string `json:"actor_id"`
		ActionCode string `json:"action_code"`
		LocationID string `json:"location_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActorID == "" || req.ActionCode == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	res, err := s.Gateway.PerformRecovery(r.Context(), req.ActorID, req.ActionCode, req.LocationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

// handlePresence lets the surrounding game push actor movement and
// activity refreshes into the eligibility scan.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		ActorID string `json:"actor_id"`
		RoomID  string `json:"room_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ActorID == "" || req.RoomID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	now := time.Now().UTC()
	err := s.Ledger.UpsertPresence(r.Context(), lucidity.ActorInfo{
		ActorID:      req.ActorID,
		RoomID:       req.RoomID,
		LastActiveAt: now,
		CreatedAt:    now,
	})
	if err != nil {
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Speed float64 `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Speed < 0 || req.Speed > 100 {
		http.Error(w, "speed must be in [0, 100]", http.StatusBadRequest)
		return
	}
	s.Loop.Speed = req.Speed
	slog.Info("loop speed changed", "speed", req.Speed)
	writeJSON(w, map[string]any{"speed": req.Speed})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	subID, ch := s.Broker.Subscribe()
	defer s.Broker.Unsubscribe(subID)
	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, ev)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, ev notify.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Status, data)
}

// writeDomainError maps ledger errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var cooldown *lucidity.CooldownError
	switch {
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", strconv.Itoa(int(cooldown.Remaining.Seconds())+1))
		http.Error(w, cooldown.Error(), http.StatusConflict)
	case errors.Is(err, lucidity.ErrUnknownActionCode),
		errors.Is(err, lucidity.ErrUnknownEncounterCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, lucidity.ErrActorNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lucidity.ErrStorage):
		http.Error(w, "storage error, retry later", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
