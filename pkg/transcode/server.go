// ABOUTME: Websocket transcoding server
// ABOUTME: Runs one encoder session per connection and advertises itself via mDNS
package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dvmvoice/mbe-go/pkg/discovery"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultPort is the port Start listens on when Config.Port is zero
	DefaultPort = 8940

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
)

var errConnClosed = errors.New("connection closed")

// Config holds server configuration
type Config struct {
	Port        int
	Name        string
	Path        string // websocket path, discovery.DefaultPath when empty
	EnableMDNS  bool
	MaxSessions int // 0 means unlimited
}

// Server accepts transcoding sessions over websockets
type Server struct {
	config   Config
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	conns   map[string]*conn
	connsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// conn is one connected client
type conn struct {
	ws       *websocket.Conn
	session  *session
	sendChan chan interface{}
	done     chan struct{}
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Transcoders serve trusted radio networks, not browsers
				if origin := r.Header.Get("Origin"); origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		conns:    make(map[string]*conn),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket path
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the number of open sessions
func (s *Server) Sessions() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Start listens on the configured port and blocks until Stop is called or
// the listener fails.
func (s *Server) Start() error {
	log.Printf("Transcoder starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s%s", addr, s.config.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Transcoder shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked websocket connections survive Shutdown
	s.connsMu.RLock()
	for _, c := range s.conns {
		c.ws.Close()
	}
	s.connsMu.RUnlock()

	s.wg.Wait()
	log.Printf("Transcoder stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(ws)
}

// handleConnection runs a session from session/start to disconnect
func (s *Server) handleConnection(ws *websocket.Conn) {
	defer ws.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	msgType, data, err := ws.ReadMessage()
	if err != nil {
		log.Printf("Error reading session start: %v", err)
		return
	}
	ws.SetReadDeadline(time.Time{})

	start, err := parseStart(msgType, data)
	if err != nil {
		log.Printf("Rejecting session: %v", err)
		writeError(ws, ErrorBadRequest, err.Error())
		return
	}

	sess, err := newSession(start)
	if err != nil {
		log.Printf("Rejecting session from %s: %v", start.Name, err)
		writeError(ws, ErrorInvalidFormat, err.Error())
		return
	}
	defer sess.close()

	c := &conn{
		ws:       ws,
		session:  sess,
		sendChan: make(chan interface{}, 100),
		done:     make(chan struct{}),
	}

	s.connsMu.Lock()
	if s.config.MaxSessions > 0 && len(s.conns) >= s.config.MaxSessions {
		s.connsMu.Unlock()
		log.Printf("Rejecting session from %s: %d sessions open", start.Name, s.config.MaxSessions)
		writeError(ws, ErrorServerBusy, "too many sessions")
		return
	}
	s.conns[sess.id] = c
	s.connsMu.Unlock()

	log.Printf("Session %s started: %s (mode %s, input %s %d Hz x%d)",
		sess.id, start.Name, start.Mode, start.Input.Codec, start.Input.SampleRate, start.Input.Channels)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.connWriter(c)
	}()

	defer func() {
		s.connsMu.Lock()
		delete(s.conns, sess.id)
		s.connsMu.Unlock()
		// Let the writer drain so a final session/flushed is not lost
		close(c.sendChan)
		<-c.done
		log.Printf("Session %s ended after %d frames", sess.id, sess.encoder.Frames())
	}()

	ready := Message{Type: TypeSessionReady, Payload: sess.ready(s.config.Name)}
	if err := s.enqueue(c, ready); err != nil {
		return
	}

	emit := func(msg []byte) error {
		return s.enqueue(c, msg)
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			if err := s.handleAudio(c, data, emit); err != nil {
				return
			}
			continue
		}

		end, err := s.handleControl(c, data, emit)
		if err != nil || end {
			return
		}
	}
}

// handleAudio encodes one binary audio or loss message. Decode failures
// are reported and the session continues.
func (s *Server) handleAudio(c *conn, data []byte, emit func([]byte) error) error {
	var err error
	switch {
	case len(data) >= 1 && data[0] == AudioMessageType:
		err = c.session.process(data[1:], emit)
	case len(data) >= 1 && data[0] == LossMessageType:
		ms, perr := parseLoss(data)
		if perr != nil {
			return s.sendError(c, ErrorBadRequest, perr.Error())
		}
		err = c.session.conceal(ms, emit)
	default:
		return s.sendError(c, ErrorBadRequest, fmt.Sprintf("invalid binary message (%d bytes)", len(data)))
	}

	if errors.Is(err, errConnClosed) {
		return err
	}
	if err != nil {
		log.Printf("Session %s: %v", c.session.id, err)
		return s.sendError(c, ErrorDecodeFailed, err.Error())
	}
	return nil
}

// handleControl processes a JSON message and reports whether the session
// ended.
func (s *Server) handleControl(c *conn, data []byte, emit func([]byte) error) (bool, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return false, s.sendError(c, ErrorBadRequest, "malformed message")
	}

	switch msg.Type {
	case TypeSessionFlush:
		if err := c.session.flush(emit); err != nil {
			return false, err
		}
		return false, s.enqueue(c, Message{Type: TypeSessionFlushed, Payload: c.session.stats()})
	case TypeSessionEnd:
		return true, nil
	default:
		log.Printf("Unknown message type: %s", msg.Type)
		return false, s.sendError(c, ErrorBadRequest, "unknown message type: "+msg.Type)
	}
}

// enqueue hands msg to the connection writer. It fails once the writer
// has gone or the server is stopping.
func (s *Server) enqueue(c *conn, msg interface{}) error {
	select {
	case c.sendChan <- msg:
		return nil
	case <-c.done:
		return errConnClosed
	case <-s.stopChan:
		return errConnClosed
	}
}

func (s *Server) sendError(c *conn, code, message string) error {
	return s.enqueue(c, Message{
		Type:    TypeServerError,
		Payload: ErrorMessage{Error: code, Message: message},
	})
}

// connWriter sends queued messages to the client
func (s *Server) connWriter(c *conn) {
	defer close(c.done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := c.ws.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// parseStart validates the first message of a connection
func parseStart(msgType int, data []byte) (SessionStart, error) {
	var start SessionStart
	if msgType != websocket.TextMessage {
		return start, fmt.Errorf("expected %s, got binary message", TypeSessionStart)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return start, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type != TypeSessionStart {
		return start, fmt.Errorf("expected %s, got %s", TypeSessionStart, msg.Type)
	}
	if err := decodePayload(msg.Payload, &start); err != nil {
		return start, err
	}

	if start.ClientID == "" {
		return start, errors.New("session start missing client_id")
	}
	if start.Mode == "" {
		return start, errors.New("session start missing mode")
	}
	return start, nil
}

// writeError writes an error directly, before a writer goroutine exists
func writeError(ws *websocket.Conn, code, message string) {
	msg := Message{
		Type:    TypeServerError,
		Payload: ErrorMessage{Error: code, Message: message},
	}
	if data, err := json.Marshal(msg); err == nil {
		ws.SetWriteDeadline(time.Now().Add(writeDeadline))
		ws.WriteMessage(websocket.TextMessage, data)
	}
}
