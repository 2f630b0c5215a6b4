// tubepull-server is the flag-only server entrypoint for container
// deployments, where the cobra CLI is unnecessary weight.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tubepull/tubepull/internal/core/config"
	"github.com/tubepull/tubepull/internal/core/extractor"
	"github.com/tubepull/tubepull/internal/core/transcript"
	"github.com/tubepull/tubepull/internal/core/version"
	"github.com/tubepull/tubepull/internal/server"
)

func main() {
	port := flag.Int("port", 0, "HTTP listen port (default: 7783)")
	output := flag.String("output", "", "output directory for queued job artifacts")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tubepull-server %s\n", version.Version)
		return
	}

	cfg := config.LoadOrDefault()

	// Resolve port (flag > config > default)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7783
	}

	// Resolve output directory (flag > config > default)
	outputDir := *output
	if outputDir == "" {
		outputDir = cfg.Server.OutputDir
	}
	if outputDir == "" {
		outputDir = "./downloads"
	}
	if len(outputDir) >= 2 && outputDir[:2] == "~/" {
		home, _ := os.UserHomeDir()
		outputDir = filepath.Join(home, outputDir[2:])
	}

	if err := os.MkdirAll(cfg.TempDir, 0755); err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	ext := extractor.New(cfg)
	svc := transcript.New(cfg, ext.Runner(), ext)
	srv := server.NewServer(cfg, ext, svc, outputDir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	log.Printf("Output directory: %s", outputDir)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
