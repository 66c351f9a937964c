// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements the built-in chatbot backend.
//
// Endpoints:
//   - POST /chat        - Streamed chat reply (newline-delimited data frames)
//   - POST /delete_chat - Drop the per-chat conversation context
//   - POST /reset       - Clear a chat's context without deleting it
//   - GET  /health      - Health check
//   - GET  /stats       - Usage statistics
//
// Each chat id gets its own Responder; the pool is capped and evicts the
// least recently used entry past the cap.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HSCN809/vikipedi-WebChatbot/internal/chatapi"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxChats caps concurrently tracked chat contexts.
	DefaultMaxChats = 100

	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 4000

	// MaxRequestBodySize caps request bodies.
	MaxRequestBodySize = 64 * 1024

	// streamChunkRunes is the delta size replies are streamed in.
	streamChunkRunes = 24

	// Version is the backend version.
	Version = "1.0.0"
)

// =============================================================================
// STATS
// =============================================================================

// Stats tracks backend usage counters.
type Stats struct {
	TotalRequests int64
	ChatRequests  int64
	Errors        int64
	StartTime     time.Time
}

// StatsResponse is the GET /stats body.
type StatsResponse struct {
	TotalRequests int64 `json:"total_requests"`
	ChatRequests  int64 `json:"chat_requests"`
	Errors        int64 `json:"errors"`
	ActiveChats   int   `json:"active_chats"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// =============================================================================
// SERVER
// =============================================================================

// Server is the chatbot backend HTTP server.
type Server struct {
	addr     string
	maxChats int
	wiki     Summarizer
	router   *http.ServeMux
	server   *http.Server
	limiter  *rateLimiter

	mu         sync.Mutex
	responders map[string]*Responder

	stats Stats
}

// Config configures the backend server.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:5000".
	Addr string

	// MaxChats caps the responder pool. Zero means DefaultMaxChats.
	MaxChats int

	// RateLimitPerSecond throttles requests per client IP. Zero disables.
	RateLimitPerSecond float64

	// Wiki answers knowledge questions.
	Wiki Summarizer
}

// New creates a backend server.
func New(config Config) *Server {
	if config.MaxChats <= 0 {
		config.MaxChats = DefaultMaxChats
	}
	s := &Server{
		addr:       config.Addr,
		maxChats:   config.MaxChats,
		wiki:       config.Wiki,
		router:     http.NewServeMux(),
		responders: make(map[string]*Responder),
		stats:      Stats{StartTime: time.Now()},
	}
	if config.RateLimitPerSecond > 0 {
		s.limiter = newRateLimiter(config.RateLimitPerSecond)
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("POST /delete_chat", s.handleDeleteChat)
	s.router.HandleFunc("POST /reset", s.handleReset)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// Handler returns the full middleware-wrapped handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.router
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	return recoveryMiddleware(handler)
}

// =============================================================================
// RESPONDER POOL
// =============================================================================

// responder returns the chat's responder, creating it on first use. When the
// pool is at capacity the least recently used responder is evicted first.
func (s *Server) responder(chatID string) *Responder {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.responders[chatID]; ok {
		return r
	}

	if len(s.responders) >= s.maxChats {
		s.evictOldestLocked()
	}

	r := NewResponder(s.wiki)
	s.responders[chatID] = r
	return r
}

// evictOldestLocked removes the least recently used responder. Caller holds
// the lock.
func (s *Server) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, r := range s.responders {
		if oldestID == "" || r.lastUsed.Before(oldest) {
			oldestID, oldest = id, r.lastUsed
		}
	}
	if oldestID != "" {
		delete(s.responders, oldestID)
		slog.Info("evicted chat context", "chat_id", oldestID, "pool_size", len(s.responders))
	}
}

// ActiveChats returns the current responder pool size.
func (s *Server) ActiveChats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.responders)
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.stats.TotalRequests, 1)
	atomic.AddInt64(&s.stats.ChatRequests, 1)
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req chatapi.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	switch {
	case message == "":
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	case len(message) > MaxMessageLength:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("message exceeds %d characters", MaxMessageLength))
		return
	case req.ChatID == "":
		s.writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	reply, err := s.responder(req.ChatID).Respond(r.Context(), message)
	if err != nil {
		atomic.AddInt64(&s.stats.Errors, 1)
		slog.Error("responder failed", "chat_id", req.ChatID, "error", err)
		s.sendFrame(w, flusher, chatapi.Event{Type: chatapi.EventError, Error: "failed to generate a reply"})
		return
	}

	// The full reply is streamed in fixed-size rune chunks so the client
	// exercises its incremental render path.
	for _, delta := range chunkRunes(reply, streamChunkRunes) {
		select {
		case <-r.Context().Done():
			return
		default:
		}
		s.sendFrame(w, flusher, chatapi.Event{Type: chatapi.EventContent, Content: delta})
	}
	s.sendFrame(w, flusher, chatapi.Event{Type: chatapi.EventEnd})
}

// sendFrame writes one data frame and flushes it.
func (s *Server) sendFrame(w http.ResponseWriter, flusher http.Flusher, ev chatapi.Event) {
	frame := struct {
		Type    string `json:"type"`
		Content string `json:"content,omitempty"`
		Error   string `json:"error,omitempty"`
	}{Type: string(ev.Type), Content: ev.Content, Error: ev.Error}

	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// chunkRunes splits s into rune-safe chunks of at most size runes.
func chunkRunes(s string, size int) []string {
	runes := []rune(s)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// =============================================================================
// CONTEXT HANDLERS
// =============================================================================

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.stats.TotalRequests, 1)
	chatID, ok := s.decodeChatRef(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.responders, chatID)
	s.mu.Unlock()

	// Deleting an unknown chat succeeds: the goal state (no context) holds.
	s.writeJSON(w, http.StatusOK, chatapi.StatusResponse{Status: "success"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.stats.TotalRequests, 1)
	chatID, ok := s.decodeChatRef(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	if responder, exists := s.responders[chatID]; exists {
		responder.Reset()
	}
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, chatapi.StatusResponse{Status: "success", Message: "chat context cleared"})
}

func (s *Server) decodeChatRef(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var ref chatapi.ChatRef
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if ref.ChatID == "" {
		s.writeError(w, http.StatusBadRequest, "chat_id is required")
		return "", false
	}
	return ref.ChatID, true
}

// =============================================================================
// HEALTH AND STATS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests: atomic.LoadInt64(&s.stats.TotalRequests),
		ChatRequests:  atomic.LoadInt64(&s.stats.ChatRequests),
		Errors:        atomic.LoadInt64(&s.stats.Errors),
		ActiveChats:   s.ActiveChats(),
		UptimeSeconds: int64(time.Since(s.stats.StartTime).Seconds()),
	})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	slog.Info("backend listening", "addr", s.addr, "version", Version)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	slog.Info("backend shutting down")
	return s.server.Shutdown(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	atomic.AddInt64(&s.stats.Errors, 1)
	s.writeJSON(w, status, chatapi.StatusResponse{Error: message})
}
