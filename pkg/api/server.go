package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yourusername/tttengine/pkg/engine"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host           string        // Host to bind to (default "localhost")
	Port           int           // Port to listen on (default 8080)
	ReadTimeout    time.Duration // Read timeout (default 30s)
	WriteTimeout   time.Duration // Write timeout (default 30s)
	IdleTimeout    time.Duration // Idle timeout (default 60s)
	MaxFastWorkers int           // Max concurrent searches (default 100)
	MaxSlowWorkers int           // Max concurrent rollouts (default 2)
	MaxSessions    int           // Max live game sessions (default 10000)
	ComputerDelay  time.Duration // Pause before the computer replies in a session (default 500ms)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	pool := DefaultPoolConfig()
	return ServerConfig{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: pool.MaxFastWorkers,
		MaxSlowWorkers: pool.MaxSlowWorkers,
		MaxSessions:    DefaultMaxSessions,
		ComputerDelay:  DefaultComputerDelay,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	engine   *engine.Engine
	handlers *Handlers
	server   *http.Server
	pool     *WorkerPool
	version  string
	cancel   context.CancelFunc
}

// NewServer creates a new API server.
func NewServer(e *engine.Engine, config ServerConfig, version string) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	})
	if config.ComputerDelay < 0 {
		config.ComputerDelay = 0
	}

	// Session computer replies outlive the request that triggered them,
	// but not the server.
	ctx, cancel := context.WithCancel(context.Background())

	handlers := NewHandlersWithPool(e, version, pool)
	handlers.sessions = NewSessionStore(config.MaxSessions)
	handlers.computerDelay = config.ComputerDelay
	handlers.baseCtx = ctx

	return &Server{
		config:   config,
		engine:   e,
		handlers: handlers,
		pool:     pool,
		version:  version,
		cancel:   cancel,
	}
}

// Pool returns the worker pool for monitoring.
func (s *Server) Pool() *WorkerPool {
	return s.pool
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Stateless position routes
	mux.HandleFunc("GET /api/health", s.handlers.Health)
	mux.HandleFunc("POST /api/state", s.handlers.State)
	mux.HandleFunc("POST /api/apply", s.handlers.Apply)
	mux.HandleFunc("POST /api/move", s.handlers.Move)
	mux.HandleFunc("POST /api/analyze", s.handlers.Analyze)
	mux.HandleFunc("POST /api/tutor/move", s.handlers.HandleTutorMove)
	mux.HandleFunc("POST /api/tutor/game", s.handlers.HandleTutorGame)
	mux.HandleFunc("POST /api/rollout", s.handlers.Rollout)
	mux.HandleFunc("GET /api/rollout/stream", s.handlers.RolloutSSE)
	mux.HandleFunc("/api/ws", s.handlers.WebSocket)

	// Game session routes
	mux.HandleFunc("POST /api/games", s.handlers.CreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handlers.GetGame)
	mux.HandleFunc("DELETE /api/games/{id}", s.handlers.DeleteGame)
	mux.HandleFunc("POST /api/games/{id}/move", s.handlers.GameMove)
	mux.HandleFunc("POST /api/games/{id}/reset", s.handlers.ResetGame)
	mux.HandleFunc("POST /api/games/{id}/settings", s.handlers.GameSettings)
	mux.HandleFunc("GET /api/games/{id}/record", s.handlers.GameRecord)
	mux.HandleFunc("GET /api/games/{id}/review", s.handlers.GameReview)

	return corsMiddleware(loggingMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.setupRoutes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Printf("Starting tic-tac-toe API server v%s on %s", s.version, addr)
	log.Printf("Endpoints:")
	log.Printf("  GET    /api/health               - Health check")
	log.Printf("  POST   /api/state                - Describe position")
	log.Printf("  POST   /api/apply                - Play a move on a position")
	log.Printf("  POST   /api/move                 - Computer move")
	log.Printf("  POST   /api/analyze              - Score every legal move")
	log.Printf("  POST   /api/tutor/move           - Grade a played move")
	log.Printf("  POST   /api/tutor/game           - Review a whole game")
	log.Printf("  POST   /api/rollout              - Self-play rollout")
	log.Printf("  GET    /api/rollout/stream       - Rollout with SSE progress")
	log.Printf("  POST   /api/games                - Start a game session")
	log.Printf("  GET    /api/games/{id}           - Session state")
	log.Printf("  POST   /api/games/{id}/move      - Human move plus computer reply")
	log.Printf("  POST   /api/games/{id}/reset     - New board, scores kept")
	log.Printf("  POST   /api/games/{id}/settings  - Change mode, difficulty or names")
	log.Printf("  GET    /api/games/{id}/record    - Session record (?format=sgf|text)")
	log.Printf("  GET    /api/games/{id}/review    - Review the current board")
	log.Printf("  DELETE /api/games/{id}           - End a session")
	log.Printf("  WS     /api/ws                   - WebSocket for interactive play")

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	// Channel to listen for errors from server
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until signal or error
	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
