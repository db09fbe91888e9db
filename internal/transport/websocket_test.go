// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dsp/internal/audio"
)

// newTestWebSocketTransport builds the hub without binding a listen
// address; tests serve handleWebSocket through httptest instead.
func newTestWebSocketTransport(queueDepth int) *WebSocketTransport {
	t := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan spectrumFrame, queueDepth),
		done:      make(chan struct{}),
	}
	go t.handleBroadcasts()
	return t
}

func dialTestServer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	return conn
}

func waitForClients(t *testing.T, wst *WebSocketTransport, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		wst.clientsMu.Lock()
		n := len(wst.clients)
		wst.clientsMu.Unlock()
		if n == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("client count never reached %d", want)
}

func TestWebSocketTransportDeliversFrames(t *testing.T) {
	wst := newTestWebSocketTransport(4)
	defer wst.Close()

	srv := httptest.NewServer(http.HandlerFunc(wst.handleWebSocket))
	defer srv.Close()

	conn := dialTestServer(t, srv)
	defer conn.Close()
	waitForClients(t, wst, 1)

	snap := &audio.Snapshot{
		SampleRate:  48000,
		FrequencyHz: []float64{0, 100, 200},
		SpectrumDB:  []float64{-80, -10, -60},
	}
	if err := wst.Send(snap); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame spectrumFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("reading frame: %v", err)
	}

	if frame.SampleRate != 48000 {
		t.Errorf("frame sample rate = %v, want 48000", frame.SampleRate)
	}
	if frame.Timestamp == 0 {
		t.Error("frame timestamp is zero")
	}
	if len(frame.FrequencyHz) != 3 || frame.FrequencyHz[2] != 200 {
		t.Errorf("frame frequency axis = %v, want [0 100 200]", frame.FrequencyHz)
	}
	if len(frame.SpectrumDB) != 3 || frame.SpectrumDB[1] != -10 {
		t.Errorf("frame spectrum = %v, want [-80 -10 -60]", frame.SpectrumDB)
	}
}

func TestWebSocketTransportClientDisconnect(t *testing.T) {
	wst := newTestWebSocketTransport(4)
	defer wst.Close()

	srv := httptest.NewServer(http.HandlerFunc(wst.handleWebSocket))
	defer srv.Close()

	conn := dialTestServer(t, srv)
	waitForClients(t, wst, 1)

	conn.Close()
	waitForClients(t, wst, 0)
}

func TestWebSocketTransportSendNeverBlocks(t *testing.T) {
	// No broadcaster goroutine drains the channel, so it fills and
	// Send must start dropping instead of blocking.
	wst := &WebSocketTransport{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan spectrumFrame, 2),
		done:      make(chan struct{}),
	}
	defer wst.Close()

	snap := &audio.Snapshot{SampleRate: 48000}
	for i := 0; i < 10; i++ {
		if err := wst.Send(snap); err != nil {
			t.Fatalf("Send() %d error = %v", i, err)
		}
	}
	if got := len(wst.broadcast); got != 2 {
		t.Errorf("broadcast queue length = %d, want capped at 2", got)
	}
}

func TestWebSocketTransportCloseStopsBroadcaster(t *testing.T) {
	wst := newTestWebSocketTransport(1)
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// A second Close must not panic on the done channel.
	if err := wst.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// Once the broadcaster has exited, queued frames stay queued.
	time.Sleep(10 * time.Millisecond)
	wst.Send(&audio.Snapshot{SampleRate: 48000})
	wst.Send(&audio.Snapshot{SampleRate: 48000})
	if got := len(wst.broadcast); got != 1 {
		t.Errorf("broadcast queue length after Close = %d, want 1", got)
	}
}
