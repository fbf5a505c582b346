// Package api serves the REST status, metrics and configuration endpoints
// for the gesture server.
package api

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gestured/internal/config"
	"gestured/internal/gesture"
)

// StatusSource exposes the running core's state to the API without the API
// owning any of it.
type StatusSource interface {
	Stats() gesture.Stats
	Uptime() time.Duration
	Running() bool
	ClientCounts() (websocket, tcp int)
}

// Server is the HTTP dashboard/config API.
type Server struct {
	cfgMgr  *config.Manager
	source  StatusSource
	limiter *RateLimiter
	http    *http.Server
}

// New creates the API server; Start binds it.
func New(cfgMgr *config.Manager, source StatusSource) *Server {
	return &Server{
		cfgMgr:  cfgMgr,
		source:  source,
		limiter: NewRateLimiter(),
	}
}

// router assembles the gin engine with middleware and routes.
func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RateLimitMiddleware(s.limiter), s.authMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/status", s.getStatus)
	v1.GET("/config", s.getConfig)
	v1.PUT("/config", s.putConfig)
	v1.GET("/metrics", s.getMetrics)

	return router
}

// Start binds the dashboard port and serves in a background goroutine.
func (s *Server) Start() error {
	cfg := s.cfgMgr.Get()
	router := s.router()

	addr := fmt.Sprintf("%s:%d", cfg.Network.Host, cfg.Network.DashboardPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.http = &http.Server{Handler: router}

	tlsCfg := cfg.Security.TLS
	go func() {
		var serveErr error
		if tlsCfg.Enabled {
			log.Printf("API: listening on https://%s", addr)
			serveErr = s.http.ServeTLS(ln, tlsCfg.CertPath, tlsCfg.KeyPath)
		} else {
			log.Printf("API: listening on http://%s", addr)
			serveErr = s.http.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Printf("API: server stopped: %v", serveErr)
		}
	}()
	return nil
}

func (s *Server) getStatus(c *gin.Context) {
	stats := s.source.Stats()
	ws, tcp := s.source.ClientCounts()

	status := "stopped"
	if s.source.Running() {
		status = "running"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"version": s.cfgMgr.Get().Version,
		"uptime":  s.source.Uptime().Seconds(),
		"performance": gin.H{
			"commands_per_second": stats.CommandsPerSecond,
			"avg_latency_ms":      stats.AvgLatencyMs,
		},
		"connected_clients": gin.H{
			"websocket": ws,
			"tcp":       tcp,
			// UDP is connectionless, client count is not applicable
			"udp": "N/A",
		},
	})
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfgMgr.Get())
}

// putConfig updates fields in memory and persists the result to the YAML
// file. Fields absent from the request body keep their current values.
func (s *Server) putConfig(c *gin.Context) {
	updated := s.cfgMgr.Get()
	if err := c.ShouldBindJSON(&updated); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "Invalid JSON format.",
		})
		return
	}

	if err := s.cfgMgr.Update(func(cfg *config.Config) { *cfg = updated }); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	if err := s.cfgMgr.Save(); err != nil {
		log.Printf("API: failed to save config: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to save configuration",
		})
		return
	}

	log.Printf("API: configuration updated from %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Config updated and saved."})
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Stats())
}

// Stop shuts the API server down.
func (s *Server) Stop() {
	if s.http != nil {
		s.http.Close()
	}
}
