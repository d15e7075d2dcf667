// Package server exposes the orchestrator over HTTP. Answers stream back as
// server-sent events: zero or more delta events, then one result event.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/pagechat/pkg/history"
	"github.com/entrhq/pagechat/pkg/logging"
	"github.com/entrhq/pagechat/pkg/types"
)

// Asker runs questions. *orchestrator.Orchestrator implements it.
type Asker interface {
	Ask(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse
	Cancel(tabID string) bool
	Len() int
}

// SnapshotSink receives snapshots pushed by the browser side.
// *snapshot.StaticProvider implements it.
type SnapshotSink interface {
	Put(tabID string, snap types.PageSnapshot)
}

// askBody is the JSON body of an ask request.
type askBody struct {
	Question    string `json:"question"`
	IncludePage bool   `json:"include_page"`
	StreamID    string `json:"stream_id"`
	Stream      *bool  `json:"stream"`
}

// Server serves the pagechat HTTP API.
type Server struct {
	asker     Asker
	snapshots SnapshotSink
	history   history.Store
	logger    *logging.Logger
	heartbeat time.Duration

	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHeartbeat sets the keep-alive comment interval. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// WithWriteTimeout bounds each event write to a client. A client that stops
// reading fails its stream instead of stalling the tab. Zero disables it.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// New creates a server. snapshots may be nil when the host has its own
// snapshot source. A nil history store keeps history in memory.
func New(asker Asker, snapshots SnapshotSink, store history.Store, opts ...Option) *Server {
	if store == nil {
		store = history.NewMemoryStore()
	}
	s := &Server{
		asker:     asker,
		snapshots: snapshots,
		history:   store,
		logger:    logging.Discard("server"),
		heartbeat: defaultHeartbeat,

		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/tabs/{tab}/ask", s.handleAsk)
	mux.HandleFunc("DELETE /v1/tabs/{tab}/ask", s.handleCancel)
	mux.HandleFunc("PUT /v1/tabs/{tab}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /v1/tabs/{tab}/history", s.handleGetHistory)
	mux.HandleFunc("DELETE /v1/tabs/{tab}/history", s.handleResetHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	tabID := r.PathValue("tab")

	var body askBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if body.StreamID == "" {
		body.StreamID = uuid.NewString()
	}

	turns, err := s.history.Load(r.Context(), tabID)
	if err != nil {
		s.logger.Errorf("tab %s: failed to load history: %v", tabID, err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	req := types.AskRequest{
		TabID:            tabID,
		Question:         body.Question,
		History:          turns,
		IncludePage:      body.IncludePage,
		StreamID:         body.StreamID,
		StreamingAllowed: body.Stream == nil || *body.Stream,
	}

	stream := newEventStream(w, s.writeTimeout)
	w.WriteHeader(http.StatusOK)

	done := make(chan struct{})
	defer stream.close()
	defer close(done)
	stream.startHeartbeat(s.heartbeat, done)

	resp := s.asker.Ask(r.Context(), req, func(d types.StreamDelta) {
		if err := stream.sendEvent(types.NewDeltaEvent(d)); err != nil {
			s.logger.Debugf("tab %s: delta dropped: %v", tabID, err)
		}
	})

	if resp.OK {
		// Persist even if the client went away; the answer is complete.
		if err := s.history.Append(context.WithoutCancel(r.Context()), tabID, resp.Turns...); err != nil {
			s.logger.Errorf("tab %s: failed to append history: %v", tabID, err)
		}
	}
	if err := stream.sendEvent(types.NewResultEvent(resp)); err != nil {
		s.logger.Debugf("tab %s: result dropped: %v", tabID, err)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	canceled := s.asker.Cancel(r.PathValue("tab"))
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotImplemented, "snapshots are not accepted by this host")
		return
	}
	var snap types.PageSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}
	s.snapshots.Put(r.PathValue("tab"), snap)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.history.Load(r.Context(), r.PathValue("tab"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if turns == nil {
		turns = []types.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string][]types.Turn{"turns": turns})
}

func (s *Server) handleResetHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Reset(r.Context(), r.PathValue("tab")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "in_flight": s.asker.Len()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
