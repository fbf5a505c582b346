package transport

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"gestured/internal/gesture"
	"gestured/internal/protocol"
)

// TCPListener accepts streaming connections carrying newline-delimited JSON
// envelopes, one command per line. Like UDP it has no reply channel; bad
// payloads are dropped. A failed connection terminates only itself.
type TCPListener struct {
	addr       string
	bufferSize int
	maxConns   int
	sink       Sink
	monitor    *gesture.Monitor

	ln      net.Listener
	clients atomic.Int64
	done    chan struct{}
}

// NewTCPListener creates a listener for host:port.
func NewTCPListener(host string, port, bufferSize, maxConns int, sink Sink, monitor *gesture.Monitor) *TCPListener {
	return &TCPListener{
		addr:       fmt.Sprintf("%s:%d", host, port),
		bufferSize: bufferSize,
		maxConns:   maxConns,
		sink:       sink,
		monitor:    monitor,
		done:       make(chan struct{}),
	}
}

// Start binds the listener and launches the accept loop.
func (l *TCPListener) Start() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}
	l.ln = ln

	log.Printf("TCP: listening on %s", l.addr)
	go l.acceptLoop()
	return nil
}

func (l *TCPListener) acceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				log.Printf("TCP: accept error: %v", err)
				continue
			}
		}

		if l.maxConns > 0 && int(l.clients.Load()) >= l.maxConns {
			log.Printf("TCP: connection limit reached, rejecting %s", conn.RemoteAddr())
			conn.Close()
			continue
		}

		l.clients.Add(1)
		go l.handleConn(conn)
	}
}

func (l *TCPListener) handleConn(conn net.Conn) {
	log.Printf("TCP: client connected from %s", conn.RemoteAddr())
	defer func() {
		conn.Close()
		l.clients.Add(-1)
		log.Printf("TCP: client disconnected from %s", conn.RemoteAddr())
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, l.bufferSize), l.bufferSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cmd, err := protocol.Decode(line, time.Now())
		if err != nil {
			log.Printf("TCP: dropping payload from %s: %v", conn.RemoteAddr(), err)
			l.monitor.RecordError()
			continue
		}
		if cmd == nil {
			continue
		}
		l.sink.Submit(cmd)
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-l.done:
		default:
			log.Printf("TCP: connection error from %s: %v", conn.RemoteAddr(), err)
		}
	}
}

// Addr reports the bound address, valid after Start.
func (l *TCPListener) Addr() net.Addr {
	return l.ln.Addr()
}

// ClientCount reports the number of active stream connections.
func (l *TCPListener) ClientCount() int {
	return int(l.clients.Load())
}

// Stop closes the listener; per-connection handlers end as their reads fail.
func (l *TCPListener) Stop() {
	close(l.done)
	if l.ln != nil {
		l.ln.Close()
	}
}
