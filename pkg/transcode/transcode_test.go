// ABOUTME: Tests for the websocket transcoding service
// ABOUTME: Runs sessions end to end against an httptest server
package transcode

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/hraban/opus.v2"
)

func newTestServer(t *testing.T, config Config) (*Server, string) {
	t.Helper()
	srv := New(config)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, strings.TrimPrefix(ts.URL, "http://")
}

func connect(t *testing.T, addr, mode string, input AudioFormat) *Client {
	t.Helper()
	c := NewClient(ClientConfig{
		ServerAddr: addr,
		ClientID:   "test-client",
		Name:       "Test Console",
		Mode:       mode,
		Input:      input,
	})
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func pcmInput() AudioFormat {
	return AudioFormat{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16}
}

func tone(n, offset int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(6000 * math.Sin(2*math.Pi*float64(offset+i)*300/8000))
	}
	return samples
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// flushAndCollect flushes the session and returns the codewords sent
// before session/flushed.
func flushAndCollect(t *testing.T, c *Client) ([]Codeword, SessionStats) {
	t.Helper()
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	var stats SessionStats
	select {
	case stats = <-c.Flushed:
	case e := <-c.Errors:
		t.Fatalf("server error: %s: %s", e.Error, e.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session/flushed")
	}

	var codewords []Codeword
	for {
		select {
		case cw := <-c.Codewords:
			codewords = append(codewords, cw)
		default:
			return codewords, stats
		}
	}
}

func TestSessionReady(t *testing.T) {
	tests := []struct {
		mode          string
		codewordBytes int
	}{
		{"dmr-ambe", 9},
		{"imbe-88", 11},
	}

	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			c := connect(t, addr, tt.mode, pcmInput())
			ready := c.Ready()

			if ready.SessionID == "" {
				t.Error("expected session ID")
			}
			if ready.ServerName != "Test Transcoder" {
				t.Errorf("expected server name Test Transcoder, got %s", ready.ServerName)
			}
			if ready.Mode != tt.mode {
				t.Errorf("expected mode %s, got %s", tt.mode, ready.Mode)
			}
			if ready.FrameSamples != 160 {
				t.Errorf("expected 160 frame samples, got %d", ready.FrameSamples)
			}
			if ready.CodewordBytes != tt.codewordBytes {
				t.Errorf("expected %d codeword bytes, got %d", tt.codewordBytes, ready.CodewordBytes)
			}
			if ready.Version != ProtocolVersion {
				t.Errorf("expected version %d, got %d", ProtocolVersion, ready.Version)
			}
		})
	}
}

func TestPCMSession(t *testing.T) {
	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})
	c := connect(t, addr, "imbe-88", pcmInput())

	// Two whole frames split across packets at an odd byte boundary
	data := pcmBytes(tone(320, 0))
	if err := c.SendAudio(data[:301]); err != nil {
		t.Fatalf("SendAudio() failed: %v", err)
	}
	if err := c.SendAudio(data[301:]); err != nil {
		t.Fatalf("SendAudio() failed: %v", err)
	}

	codewords, stats := flushAndCollect(t, c)
	if len(codewords) != 2 {
		t.Fatalf("expected 2 codewords, got %d", len(codewords))
	}
	for i, cw := range codewords {
		if cw.Sequence != uint32(i) {
			t.Errorf("codeword %d: expected sequence %d, got %d", i, i, cw.Sequence)
		}
		if len(cw.Data) != 11 {
			t.Errorf("codeword %d: expected 11 bytes, got %d", i, len(cw.Data))
		}
	}
	if stats.Frames != 2 || stats.Dropped != 0 {
		t.Errorf("expected 2 frames and 0 dropped, got %+v", stats)
	}

	// A partial frame is padded on flush
	if err := c.SendAudio(pcmBytes(tone(100, 320))); err != nil {
		t.Fatalf("SendAudio() failed: %v", err)
	}
	codewords, stats = flushAndCollect(t, c)
	if len(codewords) != 1 {
		t.Fatalf("expected 1 padded codeword, got %d", len(codewords))
	}
	if codewords[0].Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", codewords[0].Sequence)
	}
	if stats.Frames != 3 {
		t.Errorf("expected 3 frames, got %d", stats.Frames)
	}
}

func TestOpusSession(t *testing.T) {
	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})
	c := connect(t, addr, "dmr-ambe", AudioFormat{Codec: "opus", SampleRate: 8000, Channels: 1, BitDepth: 16})

	enc, err := opus.NewEncoder(8000, 1, opus.AppVoIP)
	if err != nil {
		t.Fatalf("failed to create opus encoder: %v", err)
	}

	const packets = 5
	buf := make([]byte, 1000)
	for p := 0; p < packets; p++ {
		n, err := enc.Encode(tone(160, p*160), buf)
		if err != nil {
			t.Fatalf("opus encode failed: %v", err)
		}
		if err := c.SendAudio(buf[:n]); err != nil {
			t.Fatalf("SendAudio() failed: %v", err)
		}
	}

	codewords, stats := flushAndCollect(t, c)
	if len(codewords) != packets {
		t.Fatalf("expected %d codewords, got %d", packets, len(codewords))
	}
	for i, cw := range codewords {
		if len(cw.Data) != 9 {
			t.Errorf("codeword %d: expected 9 bytes, got %d", i, len(cw.Data))
		}
	}
	if stats.Frames != packets {
		t.Errorf("expected %d frames, got %d", packets, stats.Frames)
	}
}

func TestSessionRejected(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		input AudioFormat
		want  string
	}{
		{"unknown mode", "codec2", pcmInput(), ErrorInvalidFormat},
		{"missing mode", "", pcmInput(), ErrorBadRequest},
		{"unsupported codec", "imbe-88", AudioFormat{Codec: "mp3", SampleRate: 8000, Channels: 1, BitDepth: 16}, ErrorInvalidFormat},
		{"unsupported opus rate", "imbe-88", AudioFormat{Codec: "opus", SampleRate: 44100, Channels: 1, BitDepth: 16}, ErrorInvalidFormat},
		{"8-bit pcm", "imbe-88", AudioFormat{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 8}, ErrorInvalidFormat},
	}

	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(ClientConfig{
				ServerAddr: addr,
				ClientID:   "test-client",
				Mode:       tt.mode,
				Input:      tt.input,
			})
			err := c.Connect()
			if err == nil {
				c.Close()
				t.Fatal("expected Connect() to fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMaxSessions(t *testing.T) {
	srv, addr := newTestServer(t, Config{Name: "Test Transcoder", MaxSessions: 1})
	connect(t, addr, "imbe-88", pcmInput())

	if got := srv.Sessions(); got != 1 {
		t.Errorf("expected 1 session, got %d", got)
	}

	c := NewClient(ClientConfig{ServerAddr: addr, ClientID: "second", Mode: "imbe-88", Input: pcmInput()})
	err := c.Connect()
	if err == nil {
		c.Close()
		t.Fatal("expected second Connect() to fail")
	}
	if !strings.Contains(err.Error(), ErrorServerBusy) {
		t.Errorf("expected %s, got %v", ErrorServerBusy, err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})
	a := connect(t, addr, "imbe-88", pcmInput())
	b := connect(t, addr, "imbe-88", pcmInput())

	if a.Ready().SessionID == b.Ready().SessionID {
		t.Fatal("expected distinct session IDs")
	}

	data := pcmBytes(tone(480, 0))
	for _, c := range []*Client{a, b} {
		if err := c.SendAudio(data); err != nil {
			t.Fatalf("SendAudio() failed: %v", err)
		}
	}

	cwA, _ := flushAndCollect(t, a)
	cwB, _ := flushAndCollect(t, b)
	if len(cwA) != 3 || len(cwB) != 3 {
		t.Fatalf("expected 3 codewords each, got %d and %d", len(cwA), len(cwB))
	}
	for i := range cwA {
		if string(cwA[i].Data) != string(cwB[i].Data) {
			t.Errorf("frame %d: identical streams produced different codewords", i)
		}
	}
}

func TestBadMessagesKeepSession(t *testing.T) {
	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/mbe", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	start := Message{Type: TypeSessionStart, Payload: SessionStart{ClientID: "raw", Mode: "imbe-88", Input: pcmInput()}}
	if err := ws.WriteJSON(start); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	readType := func() string {
		t.Helper()
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		return msg.Type
	}

	if got := readType(); got != TypeSessionReady {
		t.Fatalf("expected %s, got %s", TypeSessionReady, got)
	}

	// Untyped binary message
	if err := ws.WriteMessage(websocket.BinaryMessage, []byte{9, 0, 0}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readType(); got != TypeServerError {
		t.Errorf("expected %s, got %s", TypeServerError, got)
	}

	// Loss message outside 1..MaxLossMs
	if err := ws.WriteMessage(websocket.BinaryMessage, encodeLoss(0)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readType(); got != TypeServerError {
		t.Errorf("expected %s, got %s", TypeServerError, got)
	}

	// Unknown control message
	if err := ws.WriteJSON(Message{Type: "session/rewind"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := readType(); got != TypeServerError {
		t.Errorf("expected %s, got %s", TypeServerError, got)
	}

	// The session still encodes
	audio := append([]byte{AudioMessageType}, pcmBytes(tone(160, 0))...)
	if err := ws.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msgType, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("expected binary codeword, got message type %d", msgType)
	}
	cw, err := parseCodeword(data)
	if err != nil {
		t.Fatalf("parseCodeword() failed: %v", err)
	}
	if cw.Sequence != 0 || len(cw.Data) != 11 {
		t.Errorf("expected sequence 0 with 11 bytes, got %d with %d", cw.Sequence, len(cw.Data))
	}
}

func TestParseStart(t *testing.T) {
	valid, _ := json.Marshal(Message{Type: TypeSessionStart, Payload: SessionStart{ClientID: "c", Mode: "imbe-88"}})
	noID, _ := json.Marshal(Message{Type: TypeSessionStart, Payload: SessionStart{Mode: "imbe-88"}})
	wrongType, _ := json.Marshal(Message{Type: TypeSessionFlush})

	tests := []struct {
		name    string
		msgType int
		data    []byte
		wantErr bool
	}{
		{"valid", websocket.TextMessage, valid, false},
		{"missing client id", websocket.TextMessage, noID, true},
		{"wrong type", websocket.TextMessage, wrongType, true},
		{"binary", websocket.BinaryMessage, valid, true},
		{"malformed", websocket.TextMessage, []byte("{"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := parseStart(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStart() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && start.Mode != "imbe-88" {
				t.Errorf("expected mode imbe-88, got %s", start.Mode)
			}
		})
	}
}

func TestCodewordMessage(t *testing.T) {
	msg := encodeCodeword(0x01020304, []byte{0xAA, 0xBB})
	if msg[0] != CodewordMessageType {
		t.Errorf("expected type %d, got %d", CodewordMessageType, msg[0])
	}

	cw, err := parseCodeword(msg)
	if err != nil {
		t.Fatalf("parseCodeword() failed: %v", err)
	}
	if cw.Sequence != 0x01020304 {
		t.Errorf("expected sequence 0x01020304, got %#x", cw.Sequence)
	}
	if string(cw.Data) != "\xAA\xBB" {
		t.Errorf("unexpected data %x", cw.Data)
	}

	if _, err := parseCodeword([]byte{CodewordMessageType, 0}); err == nil {
		t.Error("expected error for short message")
	}
	if _, err := parseCodeword([]byte{AudioMessageType, 0, 0, 0, 0}); err == nil {
		t.Error("expected error for wrong type")
	}
}

func TestLossConcealment(t *testing.T) {
	tests := []struct {
		name  string
		input AudioFormat
	}{
		{"pcm fills silence", pcmInput()},
		{"opus conceals", AudioFormat{Codec: "opus", SampleRate: 8000, Channels: 1, BitDepth: 16}},
	}

	_, addr := newTestServer(t, Config{Name: "Test Transcoder"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := connect(t, addr, "imbe-88", tt.input)

			packet := pcmBytes(tone(160, 0))
			if tt.input.Codec == "opus" {
				enc, err := opus.NewEncoder(8000, 1, opus.AppVoIP)
				if err != nil {
					t.Fatalf("failed to create opus encoder: %v", err)
				}
				buf := make([]byte, 1000)
				n, err := enc.Encode(tone(160, 0), buf)
				if err != nil {
					t.Fatalf("opus encode failed: %v", err)
				}
				packet = buf[:n]
			}

			if err := c.SendAudio(packet); err != nil {
				t.Fatalf("SendAudio() failed: %v", err)
			}
			// 40ms at 8 kHz is two more frames
			if err := c.SendLoss(40); err != nil {
				t.Fatalf("SendLoss() failed: %v", err)
			}

			codewords, stats := flushAndCollect(t, c)
			if len(codewords) != 3 {
				t.Fatalf("expected 3 codewords, got %d", len(codewords))
			}
			if stats.Frames != 3 || stats.Concealed != 40 {
				t.Errorf("expected 3 frames and 40ms concealed, got %+v", stats)
			}
		})
	}
}

func TestSendLossValidation(t *testing.T) {
	c := NewClient(ClientConfig{ServerAddr: "localhost:0"})
	for _, ms := range []int{0, -20, MaxLossMs + 1} {
		if err := c.SendLoss(ms); err == nil {
			t.Errorf("SendLoss(%d): expected error", ms)
		}
	}
}

func TestParseLoss(t *testing.T) {
	tests := []struct {
		name    string
		msg     []byte
		want    int
		wantErr bool
	}{
		{"20ms", encodeLoss(20), 20, false},
		{"max", encodeLoss(MaxLossMs), MaxLossMs, false},
		{"zero", encodeLoss(0), 0, true},
		{"too long", encodeLoss(MaxLossMs + 1), 0, true},
		{"short", []byte{LossMessageType, 0}, 0, true},
		{"wrong type", []byte{AudioMessageType, 0, 20}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := parseLoss(tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLoss() error = %v, wantErr %v", err, tt.wantErr)
			}
			if ms != tt.want {
				t.Errorf("expected %d, got %d", tt.want, ms)
			}
		})
	}
}
