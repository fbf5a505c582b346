// Package server owns the gesture server lifecycle: it wires the execution
// pipeline, the three transport listeners and the REST API together and
// manages startup, the periodic stats log, and shutdown.
package server

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gestured/internal/api"
	"gestured/internal/config"
	"gestured/internal/control"
	"gestured/internal/gesture"
	"gestured/internal/transport"
)

// statsInterval is the period of the performance log line.
const statsInterval = 5 * time.Second

// Server is the multi-transport gesture server.
type Server struct {
	cfgMgr   *config.Manager
	monitor  *gesture.Monitor
	executor *gesture.Executor

	udp *transport.UDPListener
	tcp *transport.TCPListener
	ws  *transport.WSListener
	api *api.Server

	startTime time.Time
	running   atomic.Bool
	done      chan struct{}
}

// New assembles the server against the given controller. Nothing is bound
// until Start.
func New(cfgMgr *config.Manager, controller control.Controller) *Server {
	monitor := gesture.NewMonitor()
	executor := gesture.NewExecutor(cfgMgr, controller, monitor)
	cfg := cfgMgr.Get()

	s := &Server{
		cfgMgr:   cfgMgr,
		monitor:  monitor,
		executor: executor,
		done:     make(chan struct{}),
	}

	s.udp = transport.NewUDPListener(
		cfg.Network.Host, cfg.Network.UDPPort, cfg.Network.BufferSize, executor, monitor)
	s.tcp = transport.NewTCPListener(
		cfg.Network.Host, cfg.Network.TCPPort, cfg.Network.BufferSize,
		cfg.Network.MaxConnections, executor, monitor)
	s.ws = transport.NewWSListener(transport.WSOptions{
		Host:       cfg.Network.Host,
		Port:       cfg.Network.WebSocketPort,
		BufferSize: cfg.Network.BufferSize,
		MaxConns:   cfg.Network.MaxConnections,
		Token:      cfg.Security.SecretToken,
		TLS:        cfg.Security.TLS,
	}, executor, monitor)
	s.api = api.New(cfgMgr, s)

	return s
}

// Start launches the worker, the listeners and the API server. A listener
// that cannot bind is logged and skipped so the rest keep serving; only when
// every transport fails does startup abort.
func (s *Server) Start() error {
	s.startTime = time.Now()
	s.executor.Start()

	started := 0
	if err := s.udp.Start(); err != nil {
		log.Printf("Server: UDP listener failed to start: %v (continuing without datagram transport)", err)
	} else {
		started++
	}
	if err := s.tcp.Start(); err != nil {
		log.Printf("Server: TCP listener failed to start: %v (continuing without stream transport)", err)
	} else {
		started++
	}
	if err := s.ws.Start(); err != nil {
		log.Printf("Server: WebSocket listener failed to start: %v (continuing without message transport)", err)
	} else {
		started++
	}
	if started == 0 {
		s.executor.Stop()
		return fmt.Errorf("no transport listener could start")
	}

	if err := s.api.Start(); err != nil {
		log.Printf("Server: API server failed to start: %v (continuing without dashboard)", err)
	}

	s.running.Store(true)
	go s.statsLoop()

	log.Printf("Server: started (%d/3 transports up)", started)
	return nil
}

// statsLoop periodically logs the performance snapshot while enabled.
func (s *Server) statsLoop() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.cfgMgr.Get().Performance.PerformanceLogging {
				continue
			}
			stats := s.monitor.Snapshot()
			log.Printf("Stats: %.1f cmd/s, avg latency %.2fms, max %.2fms, dropped %d, errors %d",
				stats.CommandsPerSecond, stats.AvgLatencyMs, stats.MaxLatencyMs,
				stats.DroppedCommands, stats.Errors)
		case <-s.done:
			return
		}
	}
}

// Stop closes all listeners and cancels the worker. In-flight injection
// finishes; queued-but-undrained commands are abandoned.
func (s *Server) Stop() {
	s.running.Store(false)
	close(s.done)

	s.udp.Stop()
	s.tcp.Stop()
	s.ws.Stop()
	s.api.Stop()
	s.executor.Stop()

	log.Printf("Server: stopped")
}

// Stats implements api.StatusSource.
func (s *Server) Stats() gesture.Stats {
	return s.monitor.Snapshot()
}

// Uptime implements api.StatusSource.
func (s *Server) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Running implements api.StatusSource.
func (s *Server) Running() bool {
	return s.running.Load()
}

// ClientCounts implements api.StatusSource.
func (s *Server) ClientCounts() (int, int) {
	return s.ws.ClientCount(), s.tcp.ClientCount()
}
