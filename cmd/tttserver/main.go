// Command tttserver runs the tic-tac-toe REST and WebSocket API server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yourusername/tttengine/pkg/api"
	"github.com/yourusername/tttengine/pkg/engine"
	"github.com/yourusername/tttengine/pkg/external"
)

const version = "0.1.0"

func main() {
	defaults := api.DefaultConfig()

	// Command line flags
	host := flag.String("host", defaults.Host, "Host to bind to (use 0.0.0.0 for all interfaces)")
	port := flag.Int("port", defaults.Port, "Port to listen on")
	readTimeout := flag.Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	maxFast := flag.Int("max-fast", defaults.MaxFastWorkers, "Max concurrent searches")
	maxSlow := flag.Int("max-slow", defaults.MaxSlowWorkers, "Max concurrent rollouts")
	maxSessions := flag.Int("max-sessions", defaults.MaxSessions, "Max live game sessions")
	delay := flag.Duration("computer-delay", defaults.ComputerDelay, "Pause before the computer replies in a game session")
	cacheSize := flag.Uint("cache-size", engine.DefaultCacheSize, "Score cache entries (rounded up to a power of 2)")
	seed := flag.Int64("seed", 0, "Random seed (0 = random)")
	externalPort := flag.Int("external-port", 0, "Also serve the external player protocol on this TCP port (0 = off)")
	externalDiff := flag.String("external-difficulty", "hard", "Default difficulty for external player connections")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Tic-Tac-Toe API Server v%s\n", version)
		os.Exit(0)
	}

	log.Printf("Tic-Tac-Toe API Server v%s", version)

	eng, err := engine.NewEngine(engine.EngineOptions{
		Seed:      *seed,
		CacheSize: uint32(*cacheSize),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	log.Printf("Engine ready (score cache: %d entries)", eng.Cache().Size())

	config := api.ServerConfig{
		Host:           *host,
		Port:           *port,
		ReadTimeout:    *readTimeout,
		WriteTimeout:   *writeTimeout,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: *maxFast,
		MaxSlowWorkers: *maxSlow,
		MaxSessions:    *maxSessions,
		ComputerDelay:  *delay,
	}

	if *externalPort > 0 {
		d, err := engine.ParseDifficulty(*externalDiff)
		if err != nil {
			log.Fatalf("Invalid -external-difficulty: %v", err)
		}
		opts := external.DefaultServerOptions()
		opts.Host = *host
		opts.Port = *externalPort
		opts.Difficulty = d

		ext := external.NewServer(eng, opts)
		if err := ext.Start(); err != nil {
			log.Fatalf("External player server error: %v", err)
		}
		defer ext.Stop()
	}

	server := api.NewServer(eng, config, version)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
