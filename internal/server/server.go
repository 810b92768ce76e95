// Package server implements the websocket chat relay.
//
// Concurrency overview
// --------------------
//
//	┌─────────────────────────────────────────────────────────┐
//	│  HTTP listener                                           │
//	│  Upgrades /ws requests; spawns readPump + writePump      │
//	│  goroutines for each Client.                             │
//	└───────────────────┬─────────────────────────────────────┘
//	                    │  Register / Unregister / All
//	                    ▼
//	┌─────────────────────────────────────────────────────────┐
//	│  Registry  (sync.RWMutex)                                │
//	│  username → session; the one piece of shared state.      │
//	└─────────────────────────────────────────────────────────┘
//
// Each connection's frames are processed in arrival order by its own
// readPump; fan-out happens inline on the sending session's goroutine and
// never blocks, because every recipient has a buffered send channel drained
// by its writePump.
package server

import (
	"context"
	"log"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server ties together the Registry, the router, and the HTTP surface
// (websocket upgrade, health check, metrics).
type Server struct {
	registry *Registry
	metrics  *metrics
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener
}

// New creates a Server.  allowedOrigins restricts websocket upgrades to the
// given Origin headers; an empty list accepts any origin, which suits local
// use — lock it down when serving real browsers.
func New(allowedOrigins []string) *Server {
	s := &Server{
		registry: NewRegistry(),
		metrics:  newMetrics(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  maxFrameSize,
		WriteBufferSize: maxFrameSize,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// Handler returns the HTTP surface: /ws (websocket upgrade), /health
// (liveness), and /metrics (prometheus).  Everything else is a 404.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/health", s.serveHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe starts serving on addr.  It blocks until the listener
// fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.Handler()}

	log.Printf("[server] listening on %s", ln.Addr())
	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// WsEndpoint returns the websocket URL (like ws://127.0.0.1:5000/ws).
// It must be called after ListenAndServe has bound the listener.
func (s *Server) WsEndpoint() string {
	if s.listener == nil {
		panic("server: WsEndpoint called before ListenAndServe")
	}
	return "ws://" + s.listener.Addr().String() + "/ws"
}

// Shutdown stops accepting new connections and closes every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, c := range s.registry.All() {
		c.close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// serveWS upgrades the request and runs the session pumps.  The session is
// not registered yet — its first frame has to win a username first.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Printf("[server] upgrade failed: %v", err)
		return
	}

	c := newClient(uuid.NewString(), conn, s)
	go c.writePump()
	c.readPump()
}

// serveHealth answers the liveness probe: GET /health is 200 "OK",
// anything else on the plain endpoint is a 404.
func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Registry exposes the session registry, mainly for tests.
func (s *Server) Registry() *Registry { return s.registry }
