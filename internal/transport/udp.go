package transport

import (
	"fmt"
	"log"
	"net"
	"time"

	"gestured/internal/gesture"
	"gestured/internal/protocol"
)

// UDPListener receives one JSON envelope per datagram. There is no reply
// channel: malformed payloads are dropped after logging.
type UDPListener struct {
	addr       string
	bufferSize int
	sink       Sink
	monitor    *gesture.Monitor

	conn *net.UDPConn
	done chan struct{}
}

// NewUDPListener creates a listener for host:port.
func NewUDPListener(host string, port, bufferSize int, sink Sink, monitor *gesture.Monitor) *UDPListener {
	return &UDPListener{
		addr:       fmt.Sprintf("%s:%d", host, port),
		bufferSize: bufferSize,
		sink:       sink,
		monitor:    monitor,
		done:       make(chan struct{}),
	}
}

// Start binds the socket and launches the receive loop.
func (l *UDPListener) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", l.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	l.conn = conn

	// large read buffer for burst receives
	conn.SetReadBuffer(1 << 20)

	log.Printf("UDP: listening on %s", l.addr)
	go l.readLoop()
	return nil
}

func (l *UDPListener) readLoop() {
	buf := make([]byte, l.bufferSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.done:
				return
			default:
				log.Printf("UDP: read error: %v", err)
				continue
			}
		}
		l.handle(buf[:n])
	}
}

func (l *UDPListener) handle(data []byte) {
	cmd, err := protocol.Decode(data, time.Now())
	if err != nil {
		log.Printf("UDP: dropping payload: %v", err)
		l.monitor.RecordError()
		return
	}
	if cmd == nil {
		return
	}
	l.sink.Submit(cmd)
}

// Addr reports the bound address, valid after Start.
func (l *UDPListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Stop closes the socket and ends the receive loop.
func (l *UDPListener) Stop() {
	close(l.done)
	if l.conn != nil {
		l.conn.Close()
	}
}
