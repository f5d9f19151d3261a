// Package main is the entry point for the Invisible Gallery engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/anthropics/invisible-gallery/internal/config"
	"github.com/anthropics/invisible-gallery/internal/disclosure"
	"github.com/anthropics/invisible-gallery/internal/dispatch"
	"github.com/anthropics/invisible-gallery/internal/encryption"
	"github.com/anthropics/invisible-gallery/internal/gallery"
	"github.com/anthropics/invisible-gallery/internal/ipc"
	"github.com/anthropics/invisible-gallery/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	genKey := flag.Bool("genkey", false, "print a fresh random secret key and exit")
	configPath := flag.String("config", "", "path to configuration JSON file")
	flag.Parse()

	if *showVersion {
		fmt.Printf("gallery %s (commit=%s, built=%s)\n", version, commit, date)
		os.Exit(0)
	}

	if *genKey {
		key, err := encryption.GenerateKey()
		if err != nil {
			log.Fatalf("generate key: %v", err)
		}
		fmt.Println(key)
		os.Exit(0)
	}

	// Resolve config path: --config flag > GALLERY_CONFIG env > auto-discover next to exe.
	path := *configPath
	if path == "" {
		path = os.Getenv("GALLERY_CONFIG")
	}
	if path == "" {
		path = discoverConfig()
	}
	if path == "" {
		log.Fatal("no config found. Place config.json next to the exe, use --config <path>, or set GALLERY_CONFIG.")
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	secret, err := cfg.Secret()
	if err != nil {
		log.Fatalf("load secret: %v", err)
	}

	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// Wire the engine.
	dispatcher := dispatch.NewDispatcher()
	service := gallery.NewService(db, secret, dispatcher)

	// Optional sweeper for time conditions on idle artworks.
	var sweeper *disclosure.Sweeper
	if cfg.SweepIntervalSec > 0 {
		sweeper = disclosure.NewSweeper(db, service.Orchestrator,
			disclosure.SweeperConfig{IntervalSec: cfg.SweepIntervalSec},
			dispatcher.PublishAll)
		sweeper.Start(context.Background())
	}

	handler := &ipc.Handler{
		Service:    service,
		Dispatcher: dispatcher,
	}
	srv := ipc.NewServer(handler, cfg.ListenAddr)

	// Graceful shutdown on interrupt.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Println("shutting down...")

		if sweeper != nil {
			sweeper.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("invisible gallery engine listening on %s", cfg.ListenAddr)

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// discoverConfig looks for config.json next to the executable, then in the cwd.
func discoverConfig() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}
	return ""
}
