// gestured - multi-transport gesture command server
// Ingests spatial input events over UDP, TCP and WebSocket, smooths and
// predicts cursor motion, and injects the resulting actions on the host.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gestured/internal/config"
	"gestured/internal/control"
	"gestured/internal/server"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	cfgMgr := config.NewManager(*configPath)
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v (using defaults)", err)
	}
	cfg := cfgMgr.Get()

	if *showVer {
		fmt.Printf("gestured version %s\n", cfg.Version)
		return
	}

	srv := server.New(cfgMgr, control.New())
	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Block until interrupted
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("Signal received, shutting down")
	srv.Stop()
}
