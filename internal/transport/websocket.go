package transport

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gestured/internal/config"
	"gestured/internal/gesture"
	"gestured/internal/protocol"
)

// WSOptions configures the WebSocket listener.
type WSOptions struct {
	Host       string
	Port       int
	BufferSize int
	MaxConns   int

	// Token, when non-empty, must be presented at connection time as a
	// bearer header or ?token= query parameter. Messages are not re-checked.
	Token string

	TLS config.TLSConfig
}

// WSListener serves the persistent bidirectional message transport. It is the
// only transport with a reply channel: rejected payloads get a structured
// error reply echoing the original id when one was present.
type WSListener struct {
	opts    WSOptions
	sink    Sink
	monitor *gesture.Monitor

	server    *http.Server
	boundAddr net.Addr
	mu        sync.Mutex
	conns     map[*websocket.Conn]struct{}
	done      chan struct{}
}

// NewWSListener creates the listener; Start binds it.
func NewWSListener(opts WSOptions, sink Sink, monitor *gesture.Monitor) *WSListener {
	return &WSListener{
		opts:    opts,
		sink:    sink,
		monitor: monitor,
		conns:   make(map[*websocket.Conn]struct{}),
		done:    make(chan struct{}),
	}
}

// Start binds the HTTP server hosting the WebSocket endpoint and serves in a
// background goroutine. With TLS enabled the same endpoint is served over wss.
func (l *WSListener) Start() error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// gesture clients connect from arbitrary LAN origins
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !l.authorized(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if l.opts.MaxConns > 0 && l.clientCount() >= l.opts.MaxConns {
			http.Error(w, "Too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WS: failed to upgrade connection from %s: %v", r.RemoteAddr, err)
			return
		}
		go l.readLoop(conn, r.RemoteAddr)
	})

	addr := fmt.Sprintf("%s:%d", l.opts.Host, l.opts.Port)
	l.server = &http.Server{Addr: addr, Handler: mux}

	// bind synchronously so a taken port is reported to the caller
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	l.boundAddr = ln.Addr()

	go func() {
		var serveErr error
		if l.opts.TLS.Enabled {
			log.Printf("WS: listening on wss://%s", addr)
			serveErr = l.server.ServeTLS(ln, l.opts.TLS.CertPath, l.opts.TLS.KeyPath)
		} else {
			log.Printf("WS: listening on ws://%s", addr)
			serveErr = l.server.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Printf("WS: server stopped: %v", serveErr)
		}
	}()
	return nil
}

func (l *WSListener) authorized(r *http.Request) bool {
	if l.opts.Token == "" {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+l.opts.Token {
		return true
	}
	return r.URL.Query().Get("token") == l.opts.Token
}

func (l *WSListener) readLoop(conn *websocket.Conn, remote string) {
	l.mu.Lock()
	l.conns[conn] = struct{}{}
	total := len(l.conns)
	l.mu.Unlock()
	log.Printf("WS: client connected from %s (total: %d)", remote, total)

	defer func() {
		conn.Close()
		l.mu.Lock()
		delete(l.conns, conn)
		total := len(l.conns)
		l.mu.Unlock()
		log.Printf("WS: client disconnected from %s (total: %d)", remote, total)
	}()

	conn.SetReadLimit(int64(l.opts.BufferSize))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				select {
				case <-l.done:
				default:
					log.Printf("WS: read error from %s: %v", remote, err)
				}
			}
			return
		}
		l.handle(conn, remote, message)
	}
}

func (l *WSListener) handle(conn *websocket.Conn, remote string, message []byte) {
	cmd, err := protocol.Decode(message, time.Now())
	if err != nil {
		log.Printf("WS: rejecting payload from %s: %v", remote, err)
		l.monitor.RecordError()
		l.reply(conn, err)
		return
	}
	if cmd == nil {
		return
	}
	l.sink.Submit(cmd)
}

// reply sends the structured error body for a rejected payload. The id field
// is present (possibly null) only for structurally invalid commands.
func (l *WSListener) reply(conn *websocket.Conn, err error) {
	var invalid *protocol.InvalidCommandError
	var body map[string]any
	switch {
	case errors.As(err, &invalid):
		var id any
		if invalid.ID != "" {
			id = invalid.ID
		}
		body = map[string]any{"error": protocol.ErrMsgInvalidCommand, "id": id}
	default:
		body = map[string]any{"error": protocol.ErrMsgInvalidJSON}
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(body); err != nil {
		log.Printf("WS: failed to send error reply: %v", err)
	}
}

func (l *WSListener) clientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Addr reports the bound address, valid after Start.
func (l *WSListener) Addr() net.Addr {
	return l.boundAddr
}

// ClientCount reports the number of active WebSocket connections.
func (l *WSListener) ClientCount() int {
	return l.clientCount()
}

// Stop shuts the server down and closes the active connections.
func (l *WSListener) Stop() {
	close(l.done)
	if l.server != nil {
		l.server.Close()
	}
	l.mu.Lock()
	for conn := range l.conns {
		conn.Close()
	}
	l.mu.Unlock()
}
