// SPDX-License-Identifier: MIT
package transport

import (
	"net/http"
	"sync"
	"time"

	"tempo/internal/analysis"
	applog "tempo/internal/log"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// BeatsPath is the endpoint clients connect to.
const BeatsPath = "/beats"

const (
	broadcastQueue = 256
	writeTimeout   = time.Second
)

// Message is the JSON envelope written to WebSocket clients.
type Message struct {
	Type string         `json:"type"`
	Beat *analysis.Beat `json:"beat,omitempty"`
	Data any            `json:"data,omitempty"`
	Sent time.Time      `json:"sent"`
}

// WebSocketTransport broadcasts events as JSON to every client connected
// on BeatsPath.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Message
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	server    *http.Server
}

// NewWebSocketTransport creates a transport and starts its broadcast
// goroutine. Call ListenAndServe to accept connections on addr, or mount
// Handler on an existing server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, broadcastQueue),
		done:      make(chan struct{}),
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving BeatsPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(BeatsPath, wst.handleWebSocket)
	return mux
}

// ListenAndServe starts an HTTP server on the configured address in the
// background. Listen errors after startup are logged.
func (wst *WebSocketTransport) ListenAndServe() {
	wst.server = &http.Server{
		Addr:              wst.addr,
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("Transport: serving beats on ws://%s%s", wst.addr, BeatsPath)
		if err := wst.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			applog.Errorf("Transport: WebSocket server error: %v", err)
		}
	}()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("Transport: WebSocket upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	count := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Debugf("Transport: client %s connected, total: %d", conn.RemoteAddr(), count)

	// Clients only listen; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	if !wst.clients[conn] {
		wst.clientsMu.Unlock()
		return
	}
	delete(wst.clients, conn)
	count := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	applog.Debugf("Transport: client disconnected, total: %d", count)
}

func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case msg := <-wst.broadcast:
			wst.writeAll(msg)
		case <-wst.done:
			return
		}
	}
}

func (wst *WebSocketTransport) writeAll(msg Message) {
	wst.clientsMu.Lock()
	var failed []*websocket.Conn
	for client := range wst.clients {
		client.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := client.WriteJSON(msg); err != nil {
			applog.Warnf("Transport: error sending to client: %v", err)
			failed = append(failed, client)
		}
	}
	wst.clientsMu.Unlock()

	for _, client := range failed {
		wst.removeClient(client)
	}
}

// Send queues data for broadcast. Beats are wrapped in a "beat" message,
// anything else in an "event" message. When the queue is full the message
// is dropped.
func (wst *WebSocketTransport) Send(data any) error {
	msg := Message{Type: "event", Data: data, Sent: time.Now()}
	switch v := data.(type) {
	case analysis.Beat:
		msg = Message{Type: "beat", Beat: &v, Sent: msg.Sent}
	case *analysis.Beat:
		msg = Message{Type: "beat", Beat: v, Sent: msg.Sent}
	}

	select {
	case <-wst.done:
		return errors.New("websocket transport is closed")
	default:
	}

	select {
	case wst.broadcast <- msg:
	default:
		applog.Debugf("Transport: broadcast queue full, dropping %s", msg.Type)
	}
	return nil
}

// Close disconnects every client and shuts down the server.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
		applog.Debugf("Transport: WebSocket transport closed")
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
