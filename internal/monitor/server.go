// Package monitor serves a live feed of router events over WebSocket plus
// a JSON status endpoint, for dashboards and stage displays.
//
// Protocol (server → client only):
//
//	{"type": "in",   "time": "...", "message": "note_on ch=0 note=1 vel=100", "key": "note:1"}
//	{"type": "fire", "time": "...", "trigger": "...", "action": "program(8)"}
//
// Clients may send {"type": "ping"}; the server answers {"type": "pong"}.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dayuer/midimapper-go/internal/bus"
)

var log = logrus.WithField("component", "monitor")

const (
	writeWait    = 2 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server is the event feed.
type Server struct {
	addr      string
	stats     func() any
	startTime time.Time

	wsConns map[*wsConn]bool
	wsMu    sync.Mutex

	mux *http.ServeMux
	srv *http.Server
}

// ServerConfig configures the monitor Server.
type ServerConfig struct {
	Addr  string     // listen address, e.g. 127.0.0.1:18791
	Stats func() any // optional, served on /status
}

// NewServer creates a monitor server.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		addr:      cfg.Addr,
		stats:     cfg.Stats,
		startTime: time.Now(),
		wsConns:   make(map[*wsConn]bool),
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/ws", s.handleWS)
	return s
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.mux}
	log.WithField("addr", "ws://"+s.addr+"/ws").Info("event feed listening")

	go s.pingLoop(ctx)
	go func() {
		<-ctx.Done()
		s.closeAllWS()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"uptime":  int(time.Since(s.startTime).Seconds()),
		"clients": s.ConnCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"uptime":  int(time.Since(s.startTime).Seconds()),
		"clients": s.ConnCount(),
	}
	if s.stats != nil {
		status["router"] = s.stats()
	}
	writeJSON(w, status)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}

	conn := &wsConn{Conn: raw}
	peer := r.RemoteAddr
	log.WithField("peer", peer).Info("client connected")

	s.wsMu.Lock()
	s.wsConns[conn] = true
	s.wsMu.Unlock()

	defer func() {
		raw.Close()
		s.wsMu.Lock()
		delete(s.wsConns, conn)
		s.wsMu.Unlock()
		log.WithField("peer", peer).Info("client disconnected")
	}()

	raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		raw.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("read failed")
			}
			return
		}
		raw.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(message, &msg) == nil && msg.Type == "ping" {
			conn.WriteJSONSafe(map[string]any{"type": "pong", "time": time.Now()})
		}
	}
}

// Broadcast sends ev to every client. It has the bus subscriber signature.
// Clients that cannot keep up are dropped.
func (s *Server) Broadcast(ev bus.Event) {
	var dead []*wsConn
	for _, c := range s.snapshot() {
		if err := c.WriteJSONSafe(ev); err != nil {
			dead = append(dead, c)
		}
	}
	s.drop(dead)
}

func (s *Server) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var dead []*wsConn
			for _, c := range s.snapshot() {
				if err := c.WritePing(); err != nil {
					dead = append(dead, c)
				}
			}
			s.drop(dead)
		}
	}
}

func (s *Server) snapshot() []*wsConn {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	conns := make([]*wsConn, 0, len(s.wsConns))
	for c := range s.wsConns {
		conns = append(conns, c)
	}
	return conns
}

func (s *Server) drop(dead []*wsConn) {
	if len(dead) == 0 {
		return
	}
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for _, c := range dead {
		delete(s.wsConns, c)
		c.Close()
	}
}

// closeAllWS closes all WebSocket connections (called on shutdown).
func (s *Server) closeAllWS() {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	for c := range s.wsConns {
		c.WriteCloseSafe(websocket.CloseGoingAway, "server shutdown")
		c.Close()
		delete(s.wsConns, c)
	}
}

// ConnCount returns the number of connected clients.
func (s *Server) ConnCount() int {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	return len(s.wsConns)
}

// Handler exposes the routes, for embedding or tests.
func (s *Server) Handler() http.Handler { return s.mux }

// wsConn wraps a websocket.Conn with a write mutex for thread safety.
// gorilla/websocket does NOT support concurrent writes.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) WriteJSONSafe(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(v)
}

func (c *wsConn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *wsConn) WriteCloseSafe(code int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
