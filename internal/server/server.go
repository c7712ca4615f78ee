// Package server hosts the HTTP surface: the WebSocket upgrade
// endpoint, the room listing, and the paginated message history API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/digitalbuzz/buzzchat/internal/chat"
	"github.com/digitalbuzz/buzzchat/internal/ratelimit"
	"github.com/digitalbuzz/buzzchat/internal/store"
)

// Server is the main HTTP server.
type Server struct {
	mux       *http.ServeMux
	httpSrv   *http.Server
	directory store.Directory
	messages  store.MessageStore
}

// New creates a Server listening on addr. The WebSocket handler is
// mounted behind the per-IP rate limiter.
func New(addr string, directory store.Directory, messages store.MessageStore, wsHandler http.Handler, limiter *ratelimit.Limiter) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		directory: directory,
		messages:  messages,
	}
	s.routes(wsHandler, limiter)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux}
	return s
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	return s.httpSrv.ListenAndServe()
}

// Shutdown drains in-flight HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes(wsHandler http.Handler, limiter *ratelimit.Limiter) {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	s.mux.HandleFunc("GET /api/rooms/{id}/messages", s.handleHistory)
	if limiter != nil {
		s.mux.Handle("GET /ws", limiter.Middleware(wsHandler))
	} else {
		s.mux.Handle("GET /ws", wsHandler)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.directory.Rooms(r.Context())
	if err != nil {
		log.Printf("server: list rooms: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rooms"})
		return
	}
	if rooms == nil {
		rooms = []*chat.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

// historyResponse is one page of room history, chronological within
// the page.
type historyResponse struct {
	Messages []chat.NewMessageEvent `json:"messages"`
	HasNext  bool                   `json:"has_next"`
	HasPrev  bool                   `json:"has_prev"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, err := s.directory.Room(r.Context(), roomID); err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
			return
		}
		log.Printf("server: look up room %s: %v", roomID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load room"})
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}

	msgs, hasNext, hasPrev, err := s.messages.Page(r.Context(), roomID, page)
	if err != nil {
		log.Printf("server: load history for %s: %v", roomID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}

	resp := historyResponse{
		Messages: make([]chat.NewMessageEvent, 0, len(msgs)),
		HasNext:  hasNext,
		HasPrev:  hasPrev,
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, chat.NewMessageEventFrom(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}
