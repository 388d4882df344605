package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/xui/internal/logging"
	"github.com/aretw0/xui/pkg/ejson"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxEventSize bounds a published event and one streamed event.
const maxEventSize = 1 << 20

// Server serves a Hub.
type Server struct {
	Hub      *Hub
	gatherer prometheus.Gatherer
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithLogger configures a logger for request handling.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for hub.
func NewHandler(hub *Hub, opts ...ServerOption) http.Handler {
	s := &Server{
		Hub:      hub,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
			Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
				http.Error(w, reason.Error(), status)
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Get("/", s.GetDocuments)
		r.Get("/events", s.SubscribeEvents)
		r.Post("/events", s.PublishEvent)
		r.Get("/ws", s.SubscribeWebSocket)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDocuments handles the GET /collections/{name} request.
func (s *Server) GetDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.Hub.Documents(chi.URLParam(r, "name"))
	out := make([]any, len(docs))
	for i, d := range docs {
		b, err := ejson.Marshal(map[string]any(d))
		if err != nil {
			http.Error(w, fmt.Sprintf("Encode error: %v", err), http.StatusInternalServerError)
			return
		}
		out[i] = json.RawMessage(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// PublishEvent handles the POST /collections/{name}/events request.
func (s *Server) PublishEvent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := ejson.DecodeEvent(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid event: %v", err), http.StatusBadRequest)
		s.logger.Warn("PublishEvent: invalid event", "collection", name, "err", err)
		return
	}

	n, err := s.Hub.Publish(name, ev)
	if err != nil {
		http.Error(w, fmt.Sprintf("Publish error: %v", err), http.StatusInternalServerError)
		s.logger.Error("PublishEvent failed", "collection", name, "err", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"clients": n})
}

// SubscribeEvents handles the GET /collections/{name}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	name := chi.URLParam(r, "name")
	backlog, ch, cancel, err := s.Hub.Subscribe(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("Subscribe error: %v", err), http.StatusInternalServerError)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: client subscribed", "collection", name)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	for _, msg := range backlog {
		fmt.Fprintf(w, "data: %s\n\n", msg)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "collection", name)
			return
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("SSE: client dropped by hub", "collection", name)
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeWebSocket handles the GET /collections/{name}/ws request.
func (s *Server) SubscribeWebSocket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WS: upgrade failed", "collection", name, "err", err)
		return
	}
	defer conn.Close()

	backlog, ch, cancel, err := s.Hub.Subscribe(name)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
		return
	}
	defer cancel()
	s.logger.Info("WS: client subscribed", "collection", name)

	// The read loop only detects the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, msg := range backlog {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			s.logger.Info("WS: client disconnected", "collection", name)
			return
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("WS: client dropped by hub", "collection", name)
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "client too slow"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Warn("WS: write failed", "collection", name, "err", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
