// Package external implements a line-based player protocol so other
// programs (bots, tournament managers, GUIs) can use the engine over TCP.
//
// Protocol overview:
// - Server listens on a TCP port
// - Client connects and sends one command per line
// - Commands include: move, evaluation, set, version, exit
// - Positions are position IDs ("XX-OO----") or board lines
// - Each response is a single line, optionally followed by a prompt
package external

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/yourusername/tttengine/pkg/engine"
)

// Server implements the external player protocol server.
type Server struct {
	engine   *engine.Engine
	listener net.Listener
	mu       sync.Mutex
	running  bool
	options  ServerOptions
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// ServerOptions configures the external player server.
type ServerOptions struct {
	Host          string            // Host to bind to
	Port          int               // TCP port to listen on (0 = any free port)
	Difficulty    engine.Difficulty // Difficulty for new connections
	PromptEnabled bool              // Send prompts after responses
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Host:          "localhost",
		Port:          1234,
		Difficulty:    engine.Hard,
		PromptEnabled: true,
	}
}

// NewServer creates a new external player server.
func NewServer(eng *engine.Engine, opts ServerOptions) *Server {
	return &Server{
		engine:  eng,
		options: opts,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := net.JoinHostPort(s.options.Host, fmt.Sprint(s.options.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.running = true
	log.Printf("External player protocol listening on %s", listener.Addr())

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Addr returns the listening address, or nil if the server is not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	err := s.listener.Close()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return // Server stopped
			}
			log.Printf("External accept error: %v", err)
			continue
		}

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

// session holds per-connection settings.
type session struct {
	difficulty engine.Difficulty
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	reader := bufio.NewReader(conn)
	sess := &session{difficulty: s.options.Difficulty}

	// Send initial prompt if enabled
	if s.options.PromptEnabled {
		conn.Write([]byte("> "))
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Printf("External read error from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		response := s.processCommand(sess, line)
		if _, err := conn.Write([]byte(response)); err != nil {
			return
		}

		// Check for exit command
		if cmd := strings.ToLower(line); cmd == "exit" || cmd == "quit" {
			return
		}

		if s.options.PromptEnabled {
			conn.Write([]byte("> "))
		}
	}
}

// processCommand processes a single command and returns the response.
func (s *Server) processCommand(sess *session, cmd string) string {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return "Error: empty command\n"
	}

	command := strings.ToLower(parts[0])
	arg := strings.TrimSpace(cmd[len(parts[0]):])

	switch command {
	case "version":
		return "tttengine external player protocol 1.0\n"

	case "help":
		return helpResponse

	case "exit", "quit":
		return "Goodbye\n"

	case "set":
		return handleSet(sess, parts[1:])

	case "evaluation", "eval":
		return s.handleEvaluation(arg)

	case "move", "board":
		return s.handleMove(sess, arg)

	default:
		// A bare board line asks for a move
		if strings.HasPrefix(cmd, "board:") {
			return s.handleMove(sess, cmd)
		}
		return fmt.Sprintf("Error: unknown command '%s'\n", command)
	}
}

const helpResponse = `Available commands: version, help, set difficulty <easy|medium|hard>, move <position>, evaluation <position>, exit
`

// handleSet handles the set command.
func handleSet(sess *session, args []string) string {
	if len(args) < 2 {
		return "Error: set requires option and value\n"
	}

	switch option := strings.ToLower(args[0]); option {
	case "difficulty":
		d, err := engine.ParseDifficulty(args[1])
		if err != nil {
			return fmt.Sprintf("Error: %v\n", err)
		}
		sess.difficulty = d
		return fmt.Sprintf("difficulty set to %s\n", d)

	default:
		return fmt.Sprintf("Error: unknown option '%s'\n", option)
	}
}

// parseState reads a position ID or a board line.
func parseState(arg string) (*engine.GameState, error) {
	if arg == "" {
		return nil, fmt.Errorf("no position specified")
	}
	if strings.HasPrefix(arg, "board:") {
		bl, err := ParseBoardLine(arg)
		if err != nil {
			return nil, err
		}
		return bl.ToGameState()
	}
	return engine.ParsePosition(arg)
}

// handleEvaluation handles the evaluation command.
// Returns every legal move ranked best first as cell:score pairs.
func (s *Server) handleEvaluation(arg string) string {
	state, err := parseState(arg)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	analysis, err := s.engine.AnalyzePosition(state)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	pairs := make([]string, len(analysis.Moves))
	for i, m := range analysis.Moves {
		pairs[i] = fmt.Sprintf("%d:%d", m.Move, m.Score)
	}
	return strings.Join(pairs, " ") + "\n"
}

// handleMove handles the move command.
// Returns the cell the engine plays at the session difficulty.
func (s *Server) handleMove(sess *session, arg string) string {
	state, err := parseState(arg)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}

	if out := state.Outcome(); out.Terminal() {
		return fmt.Sprintf("game over: %s\n", out)
	}

	move, err := s.engine.ChooseMove(state, sess.difficulty, state.Turn)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return fmt.Sprintf("%d\n", move)
}
