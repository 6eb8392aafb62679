package sink

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinksWithDefaults(t *testing.T) {
	s := Sinks{}.WithDefaults()

	require.NotNil(t, s.Audio)
	require.NotNil(t, s.Camera)
	require.NotNil(t, s.Message)
	require.NotNil(t, s.Metrics)

	assert.NoError(t, s.Audio.WriteAudioChunk([]byte{1, 2, 3}))
	assert.NoError(t, s.Camera.WriteCameraFrame(nil))
	assert.NoError(t, s.Message.SendMessage("hello"))
	assert.NoError(t, s.Metrics.SendMetrics(nil))
}

func TestSinksWithDefaultsKeepsProvided(t *testing.T) {
	ws := NewWebSocketSink()
	s := Sinks{Audio: ws}.WithDefaults()
	assert.Same(t, ws, s.Audio.(*WebSocketSink))
	assert.NotNil(t, s.Camera)
}

func TestWebSocketSinkLifecycle(t *testing.T) {
	ws := NewWebSocketSink()
	assert.False(t, ws.IsRunning())

	require.NoError(t, ws.Start())
	assert.True(t, ws.IsRunning())
	require.Error(t, ws.Start(), "double start should fail")

	require.NoError(t, ws.Stop())
	assert.False(t, ws.IsRunning())
	require.NoError(t, ws.Stop(), "stop is idempotent")

	require.Error(t, ws.WriteAudioChunk([]byte{0}))
	require.Error(t, ws.SendMessage("late"))
}

func dialSink(t *testing.T, ws *WebSocketSink) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// Wait for the handler to register the client
	deadline := time.Now().Add(time.Second)
	for ws.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, ws.ClientCount())
	return conn
}

func TestWebSocketSinkBroadcastsAudio(t *testing.T) {
	ws := NewWebSocketSink()
	require.NoError(t, ws.Start())
	defer ws.Stop()

	conn := dialSink(t, ws)

	chunk := []byte{10, 20, 30, 40}
	require.NoError(t, ws.WriteAudioChunk(chunk))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, websocket.BinaryMessage, msgType)
	require.NotEmpty(t, data)
	assert.Equal(t, binAudioChunk, data[0])
	assert.Equal(t, chunk, data[1:])
}

func TestWebSocketSinkBroadcastsEnvelopes(t *testing.T) {
	ws := NewWebSocketSink()
	require.NoError(t, ws.Start())
	defer ws.Stop()

	conn := dialSink(t, ws)

	require.NoError(t, ws.SendMessage(map[string]string{"text": "hi"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)

	var env wsEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "message", env.Type)
}
