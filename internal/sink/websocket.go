package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/imaging"
	"github.com/bryanchriswhite/framerelay/internal/logger"
)

// Binary payload tags: the first byte of every binary websocket message
// identifies its content.
const (
	binAudioChunk  byte = 0x01
	binCameraFrame byte = 0x02
)

type wsMessage struct {
	messageType int // websocket.TextMessage or websocket.BinaryMessage
	data        []byte
}

type wsEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WebSocketSink broadcasts transport output to connected websocket
// clients: audio chunks and camera frames as tagged binary messages,
// transport messages and metrics as JSON text messages. Slow clients
// skip frames instead of blocking the transport.
type WebSocketSink struct {
	mu      sync.RWMutex
	running bool

	clientsMu sync.RWMutex
	clients   map[chan wsMessage]struct{}

	upgrader websocket.Upgrader
}

// NewWebSocketSink creates a websocket broadcast sink
func NewWebSocketSink() *WebSocketSink {
	return &WebSocketSink{
		clients: make(map[chan wsMessage]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}
}

// Start marks the sink as accepting clients
func (s *WebSocketSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("websocket sink already running")
	}
	s.running = true
	return nil
}

// Stop disconnects all clients
func (s *WebSocketSink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.clientsMu.Lock()
	for ch := range s.clients {
		close(ch)
	}
	s.clients = make(map[chan wsMessage]struct{})
	s.clientsMu.Unlock()

	return nil
}

// IsRunning returns true if the sink is accepting clients
func (s *WebSocketSink) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ClientCount returns the number of connected clients
func (s *WebSocketSink) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// WriteAudioChunk broadcasts one PCM chunk to all clients
func (s *WebSocketSink) WriteAudioChunk(chunk []byte) error {
	if !s.IsRunning() {
		return fmt.Errorf("websocket sink not running")
	}

	// The transport reuses the chunk's backing array; copy before the
	// write goroutines see it.
	data := make([]byte, 1+len(chunk))
	data[0] = binAudioChunk
	copy(data[1:], chunk)

	s.broadcast(wsMessage{messageType: websocket.BinaryMessage, data: data})
	return nil
}

// WriteCameraFrame broadcasts one image to all clients, PNG-encoded
func (s *WebSocketSink) WriteCameraFrame(img *frame.Image) error {
	if !s.IsRunning() {
		return fmt.Errorf("websocket sink not running")
	}

	rgba, err := imaging.ToRGBA(img)
	if err != nil {
		return fmt.Errorf("failed to decode camera frame: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(binCameraFrame)
	if err := png.Encode(buf, rgba); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	s.broadcast(wsMessage{messageType: websocket.BinaryMessage, data: buf.Bytes()})
	return nil
}

// SendMessage broadcasts a transport message as JSON
func (s *WebSocketSink) SendMessage(payload any) error {
	return s.sendEnvelope("message", payload)
}

// SendMetrics broadcasts a metrics payload as JSON
func (s *WebSocketSink) SendMetrics(payload any) error {
	return s.sendEnvelope("metrics", payload)
}

func (s *WebSocketSink) sendEnvelope(kind string, payload any) error {
	if !s.IsRunning() {
		return fmt.Errorf("websocket sink not running")
	}

	data, err := json.Marshal(wsEnvelope{Type: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	s.broadcast(wsMessage{messageType: websocket.TextMessage, data: data})
	return nil
}

func (s *WebSocketSink) broadcast(msg wsMessage) {
	s.clientsMu.RLock()
	for ch := range s.clients {
		select {
		case ch <- msg:
			// Sent successfully
		default:
			// Client is slow, skip this message
		}
	}
	s.clientsMu.RUnlock()
}

// Handler returns an http.HandlerFunc that upgrades the request and
// streams broadcast messages to the client until it disconnects.
func (s *WebSocketSink) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.WithComponent("websocket-sink")

		if !s.IsRunning() {
			http.Error(w, "sink not running", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade websocket connection")
			return
		}
		defer conn.Close()

		msgChan := make(chan wsMessage, 16)

		s.clientsMu.Lock()
		s.clients[msgChan] = struct{}{}
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		log.Info().Int("clients", clientCount).Msg("Client connected")

		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, msgChan)
			remaining := len(s.clients)
			s.clientsMu.Unlock()
			log.Info().Int("clients", remaining).Msg("Client disconnected")
		}()

		// Discard client messages; a read error means the client is gone.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg, ok := <-msgChan:
				if !ok {
					return
				}
				if err := conn.WriteMessage(msg.messageType, msg.data); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
