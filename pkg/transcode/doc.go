// ABOUTME: Websocket transcoding service from VoIP audio to MBE codewords
// ABOUTME: Provides the Server, a Client and the message types they exchange
// Package transcode streams audio over a websocket and returns MBE codewords.
//
// A client opens a session with a session/start message naming the input
// format (16-bit PCM or Opus at any rate) and the encode mode. Audio then
// flows as binary messages; the server downmixes, resamples to 8 kHz,
// frames and encodes it, and sends one binary message per codeword.
// session/flush pads and encodes any partial frame.
//
// Every session owns its own encoder, so parameter history never crosses
// streams.
//
// Example:
//
//	c := transcode.NewClient(transcode.ClientConfig{
//		ServerAddr: "localhost:8940",
//		Mode:       "imbe-88",
//		Input:      transcode.AudioFormat{Codec: "opus", SampleRate: 8000, Channels: 1, BitDepth: 16},
//	})
//	err := c.Connect()
//	err = c.SendAudio(packet)
//	cw := <-c.Codewords
package transcode
