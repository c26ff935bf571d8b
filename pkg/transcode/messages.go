// ABOUTME: Transcoding protocol message definitions
// ABOUTME: JSON control messages plus typed binary audio and codeword frames
package transcode

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/dvmvoice/mbe-go/pkg/audio"
)

// ProtocolVersion is reported in session/ready
const ProtocolVersion = 1

// Binary message types, carried in the first byte
const (
	CodewordMessageType = 1 // server to client: uint32 sequence + codeword
	AudioMessageType    = 2 // client to server: one encoded audio packet
	LossMessageType     = 3 // client to server: uint16 milliseconds of lost audio
)

// MaxLossMs is the longest gap one loss message may report
const MaxLossMs = 120

// Control message types
const (
	TypeSessionStart   = "session/start"
	TypeSessionReady   = "session/ready"
	TypeSessionFlush   = "session/flush"
	TypeSessionFlushed = "session/flushed"
	TypeSessionEnd     = "session/end"
	TypeServerError    = "server/error"
)

// Message is the top-level wrapper for all control messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// AudioFormat describes the audio a client sends
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// Format converts to the audio package format
func (f AudioFormat) Format() audio.Format {
	return audio.Format{
		Codec:      f.Codec,
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		BitDepth:   f.BitDepth,
	}
}

// SessionStart opens a session
type SessionStart struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Mode       string      `json:"mode"`
	Input      AudioFormat `json:"input"`
	GainAdjust *float32    `json:"gain_adjust,omitempty"`
}

// SessionReady is the server's response to session/start
type SessionReady struct {
	SessionID     string `json:"session_id"`
	ServerName    string `json:"server_name"`
	Version       int    `json:"version"`
	Mode          string `json:"mode"`
	FrameSamples  int    `json:"frame_samples"`
	CodewordBytes int    `json:"codeword_bytes"`
}

// SessionStats reports progress after a flush
type SessionStats struct {
	Frames    uint64 `json:"frames"`
	Dropped   uint64 `json:"dropped"`
	Concealed uint64 `json:"concealed"` // milliseconds
}

// ErrorMessage reports a failure to the client
type ErrorMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes sent in ErrorMessage.Error
const (
	ErrorBadRequest    = "bad_request"
	ErrorInvalidFormat = "invalid_format"
	ErrorDecodeFailed  = "decode_failed"
	ErrorServerBusy    = "server_busy"
)

// Codeword is one encoded frame
type Codeword struct {
	Sequence uint32
	Data     []byte
}

// decodePayload re-decodes a generic payload into v
func decodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// encodeCodeword builds a codeword binary message
func encodeCodeword(seq uint32, codeword []byte) []byte {
	msg := make([]byte, 5+len(codeword))
	msg[0] = CodewordMessageType
	binary.BigEndian.PutUint32(msg[1:5], seq)
	copy(msg[5:], codeword)
	return msg
}

// parseCodeword parses a codeword binary message
func parseCodeword(msg []byte) (Codeword, error) {
	if len(msg) < 5 || msg[0] != CodewordMessageType {
		return Codeword{}, fmt.Errorf("invalid codeword message (%d bytes)", len(msg))
	}
	return Codeword{
		Sequence: binary.BigEndian.Uint32(msg[1:5]),
		Data:     append([]byte(nil), msg[5:]...),
	}, nil
}

// encodeLoss builds a loss message
func encodeLoss(ms int) []byte {
	msg := make([]byte, 3)
	msg[0] = LossMessageType
	binary.BigEndian.PutUint16(msg[1:3], uint16(ms))
	return msg
}

// parseLoss parses a loss message and validates its duration
func parseLoss(msg []byte) (int, error) {
	if len(msg) != 3 || msg[0] != LossMessageType {
		return 0, fmt.Errorf("invalid loss message (%d bytes)", len(msg))
	}
	ms := int(binary.BigEndian.Uint16(msg[1:3]))
	if ms == 0 || ms > MaxLossMs {
		return 0, fmt.Errorf("invalid loss duration: %dms (supported: 1-%d)", ms, MaxLossMs)
	}
	return ms, nil
}
