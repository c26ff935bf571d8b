// ABOUTME: Websocket client for the transcoding service
// ABOUTME: Opens a session, streams audio packets and routes codewords to channels
package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/dvmvoice/mbe-go/pkg/discovery"
	"github.com/gorilla/websocket"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	ServerAddr string
	Path       string // discovery.DefaultPath when empty
	ClientID   string
	Name       string
	Mode       string
	Input      AudioFormat
	GainAdjust *float32
}

// Client is one transcoding session on a remote server
type Client struct {
	config ClientConfig
	conn   *websocket.Conn
	mu     sync.Mutex
	ready  SessionReady

	// Message channels
	Codewords chan Codeword
	Flushed   chan SessionStats
	Errors    chan ErrorMessage

	connected bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new transcoding client
func NewClient(config ClientConfig) *Client {
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:    config,
		Codewords: make(chan Codeword, 100),
		Flushed:   make(chan SessionStats, 1),
		Errors:    make(chan ErrorMessage, 10),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the server and opens the session
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("session start failed: %w", err)
	}

	go c.readMessages()
	return nil
}

// handshake sends session/start and waits for session/ready
func (c *Client) handshake() error {
	start := SessionStart{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Mode:       c.config.Mode,
		Input:      c.config.Input,
		GainAdjust: c.config.GainAdjust,
	}
	if err := c.sendJSON(Message{Type: TypeSessionStart, Payload: start}); err != nil {
		return fmt.Errorf("failed to send %s: %w", TypeSessionStart, err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", TypeSessionReady, err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", TypeSessionReady, err)
	}

	switch msg.Type {
	case TypeSessionReady:
		if err := decodePayload(msg.Payload, &c.ready); err != nil {
			return err
		}
	case TypeServerError:
		var e ErrorMessage
		if err := decodePayload(msg.Payload, &e); err != nil {
			return err
		}
		return fmt.Errorf("server rejected session: %s: %s", e.Error, e.Message)
	default:
		return fmt.Errorf("expected %s, got %s", TypeSessionReady, msg.Type)
	}

	log.Printf("Session %s ready: mode=%s codeword=%d bytes", c.ready.SessionID, c.ready.Mode, c.ready.CodewordBytes)
	return nil
}

// Ready returns the server's session/ready payload
func (c *Client) Ready() SessionReady {
	return c.ready
}

// SendAudio sends one packet in the session's input format
func (c *Client) SendAudio(packet []byte) error {
	msg := make([]byte, 1+len(packet))
	msg[0] = AudioMessageType
	copy(msg[1:], packet)
	return c.write(websocket.BinaryMessage, msg)
}

// SendLoss reports ms of audio lost in transit (1 to MaxLossMs). The server
// conceals the gap so frame timing is kept.
func (c *Client) SendLoss(ms int) error {
	if ms <= 0 || ms > MaxLossMs {
		return fmt.Errorf("invalid loss duration: %dms (supported: 1-%d)", ms, MaxLossMs)
	}
	return c.write(websocket.BinaryMessage, encodeLoss(ms))
}

// Flush asks the server to pad and encode any partial frame. The server
// answers on Flushed once every codeword before it has been sent.
func (c *Client) Flush() error {
	return c.sendJSON(Message{Type: TypeSessionFlush})
}

// Close ends the session and closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.sendJSON(Message{Type: TypeSessionEnd})
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.connected = false
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Client) sendJSON(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return errors.New("not connected")
	}
	return c.conn.WriteMessage(messageType, data)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage handles codewords
func (c *Client) handleBinaryMessage(data []byte) {
	cw, err := parseCodeword(data)
	if err != nil {
		log.Printf("Dropping binary message: %v", err)
		return
	}

	select {
	case c.Codewords <- cw:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case TypeSessionFlushed:
		var stats SessionStats
		if err := decodePayload(msg.Payload, &stats); err != nil {
			log.Printf("Bad %s: %v", msg.Type, err)
			return
		}
		select {
		case c.Flushed <- stats:
		case <-c.ctx.Done():
		}

	case TypeServerError:
		var e ErrorMessage
		if err := decodePayload(msg.Payload, &e); err != nil {
			log.Printf("Bad %s: %v", msg.Type, err)
			return
		}
		select {
		case c.Errors <- e:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}
