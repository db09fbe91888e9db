package transport

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dsp/internal/audio"
	applog "dsp/internal/log"
)

// spectrumFrame is the JSON shape pushed to WebSocket clients, one
// frame per published snapshot.
type spectrumFrame struct {
	Timestamp   int64     `json:"timestamp"` // milliseconds since epoch
	SampleRate  float64   `json:"sampleRate"`
	FrequencyHz []float64 `json:"frequencyHz"`
	SpectrumDB  []float64 `json:"spectrumDb"`
}

// WebSocketTransport serves spectrum frames to browser clients over a
// /ws endpoint. Frames flow through a bounded broadcast channel; when
// clients cannot keep up, frames are dropped rather than backing up
// into the publisher.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan spectrumFrame
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
}

// NewWebSocketTransport starts an HTTP server on addr with a /ws
// WebSocket endpoint and begins broadcasting.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	t := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualization endpoint, any origin may read
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan spectrumFrame, 256),
		done:      make(chan struct{}),
	}
	t.start()
	return t
}

func (t *WebSocketTransport) start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWebSocket)
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}

	go func() {
		applog.Infof("websocket: serving on %s", t.addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("websocket: server error: %v", err)
		}
	}()

	go t.handleBroadcasts()
}

// handleWebSocket upgrades HTTP connections and registers the client.
func (t *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Errorf("websocket: upgrade failed: %v", err)
		return
	}

	t.clientsMu.Lock()
	t.clients[conn] = true
	total := len(t.clients)
	t.clientsMu.Unlock()
	applog.Infof("websocket: client connected, total %d", total)

	// The read loop exists only to notice the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.clientsMu.Lock()
				delete(t.clients, conn)
				total := len(t.clients)
				t.clientsMu.Unlock()
				conn.Close()
				applog.Infof("websocket: client disconnected, total %d", total)
				return
			}
		}
	}()
}

// handleBroadcasts drains the broadcast channel into every connected
// client, dropping clients whose writes fail.
func (t *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case frame := <-t.broadcast:
			t.clientsMu.Lock()
			for client := range t.clients {
				if err := client.WriteJSON(frame); err != nil {
					applog.Warnf("websocket: dropping client: %v", err)
					client.Close()
					delete(t.clients, client)
				}
			}
			t.clientsMu.Unlock()
		case <-t.done:
			return
		}
	}
}

// Send queues a frame for broadcast. A full queue drops the frame; the
// publisher must never wait on slow clients.
func (t *WebSocketTransport) Send(snap *audio.Snapshot) error {
	frame := spectrumFrame{
		Timestamp:   time.Now().UnixMilli(),
		SampleRate:  snap.SampleRate,
		FrequencyHz: snap.FrequencyHz,
		SpectrumDB:  snap.SpectrumDB,
	}
	select {
	case t.broadcast <- frame:
	default:
	}
	return nil
}

// Close stops broadcasting, disconnects all clients, and shuts the
// server down.
func (t *WebSocketTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })

	t.clientsMu.Lock()
	for client := range t.clients {
		client.Close()
	}
	t.clients = make(map[*websocket.Conn]bool)
	t.clientsMu.Unlock()

	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

var _ Transport = (*WebSocketTransport)(nil)
