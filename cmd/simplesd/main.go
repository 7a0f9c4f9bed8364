// simplesd is the durable topic log server.
//
// Usage:
//
//	simplesd [flags]
//
// Flags:
//
//	-addr string      Server address (default ":8080")
//	-data string      Data directory (default "topics")
//	-loglevel string  Log level: debug, info, warn, error (default "info")
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomcumming/simples/internal/config"
	"github.com/tomcumming/simples/internal/httpapi"
	"github.com/tomcumming/simples/internal/topicdir"
	"github.com/tomcumming/simples/internal/version"
)

func main() {
	defaults := config.DefaultConfig()

	// Flags take precedence over environment variables.
	// Env vars: SIMPLES_ADDR, SIMPLES_DATA, SIMPLES_LOG_LEVEL
	addr := flag.String("addr", config.EnvOrDefault("SIMPLES_ADDR", defaults.Addr), "Server address")
	dataDir := flag.String("data", config.EnvOrDefault("SIMPLES_DATA", defaults.DataDir), "Data directory")
	logLevel := flag.String("loglevel", config.EnvOrDefault("SIMPLES_LOG_LEVEL", defaults.LogLevel), "Log level: debug, info, warn, error")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("simplesd v%s (built %s)\n", version.Version, version.BuildTime)
		return
	}

	fmt.Println(`
  ___ _                 _
 / __(_)_ __  _ __ | | ___  ___
 \__ \ | '_ \| '_ \| |/ _ \/ __|
 ___) | | | | | | | |  __/\__ \
|____/|_|_| |_|_| |_|_|\___||___/`)
	log.Printf("simplesd v%s starting...", version.Version)
	log.Printf("Data directory: %s", *dataDir)
	log.Printf("Listening on: %s", *addr)

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dir := topicdir.New(*dataDir)
	defer dir.Close()

	srv := httpapi.New(*addr, dir, *logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("simplesd shutdown complete")
}
