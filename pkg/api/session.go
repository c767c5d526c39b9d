package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yourusername/tttengine/pkg/engine"
	"github.com/yourusername/tttengine/pkg/match"
)

// Session defaults
const (
	DefaultMaxSessions   = 10000
	DefaultComputerDelay = 500 * time.Millisecond
	defaultNameX         = "Player X"
	defaultNameO         = "Player O"
)

// SessionConfig configures a game session.
type SessionConfig struct {
	VsComputer   bool              // Computer plays ComputerMark
	Difficulty   engine.Difficulty // Computer difficulty
	ComputerMark engine.Mark       // Side the computer plays
	PlayerX      string            // Display name for X
	PlayerO      string            // Display name for O
}

// DefaultSessionConfig returns the settings of a fresh session: the
// computer plays O at Easy.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		VsComputer:   true,
		Difficulty:   engine.Easy,
		ComputerMark: engine.O,
		PlayerX:      defaultNameX,
		PlayerO:      defaultNameO,
	}
}

// SettingsUpdate lists the settings to change; nil fields are kept.
type SettingsUpdate struct {
	VsComputer   *bool
	Difficulty   *engine.Difficulty
	ComputerMark *engine.Mark
	PlayerX      *string
	PlayerO      *string
}

// Scoreboard counts finished games across resets.
type Scoreboard struct {
	X    int
	O    int
	Ties int
}

// GameSession is one board plus the scoreboard and settings around it.
// All access goes through mu, so human and computer moves never interleave.
type GameSession struct {
	id string

	mu           sync.Mutex
	state        *engine.GameState
	config       SessionConfig
	scores       Scoreboard
	record       *match.Match // Every board played in this session
	computerMove int          // Computer reply made during the current request, -1 if none
	updated      time.Time
}

func newGameSession(id string, cfg SessionConfig) *GameSession {
	record := match.NewMatch(cfg.PlayerX, cfg.PlayerO)
	record.Date = time.Now().Format("2006-01-02")
	record.NewGame()

	return &GameSession{
		id:           id,
		state:        engine.NewGame(),
		config:       cfg,
		record:       record,
		computerMove: -1,
		updated:      time.Now(),
	}
}

// ID returns the session ID.
func (s *GameSession) ID() string {
	return s.id
}

// Snapshot returns the current session state.
func (s *GameSession) Snapshot() GameResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Scores returns the scoreboard.
func (s *GameSession) Scores() Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores
}

// WriteRecord writes every board of the session with export, for example
// match.ExportSGF or match.ExportText.
func (s *GameSession) WriteRecord(w io.Writer, export func(io.Writer, *match.Match) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return export(w, s.record)
}

// Moves returns the moves of the current board in play order.
func (s *GameSession) Moves() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.record.Current().Moves...)
}

// Play applies a human move on index and, when the computer is to move
// afterwards, its reply chosen after delay. A computer reply still owed from
// an earlier request, such as a cancelled one or an unopened game, is made
// first. If it takes index, the human move fails as illegal and the reply
// stands.
func (s *GameSession) Play(ctx context.Context, eng *engine.Engine, index int, delay time.Duration) (GameResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.computerMove = -1
	if err := s.computerReply(ctx, eng, delay); err != nil {
		return GameResponse{}, fmt.Errorf("computer reply: %w", err)
	}
	if err := s.apply(index); err != nil {
		return GameResponse{}, err
	}
	if err := s.computerReply(ctx, eng, delay); err != nil {
		return GameResponse{}, fmt.Errorf("computer reply: %w", err)
	}
	return s.snapshotLocked(), nil
}

// Start lets the computer open the game when it plays X.
func (s *GameSession) Start(ctx context.Context, eng *engine.Engine, delay time.Duration) (GameResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.computerMove = -1
	if err := s.computerReply(ctx, eng, delay); err != nil {
		return GameResponse{}, fmt.Errorf("computer reply: %w", err)
	}
	return s.snapshotLocked(), nil
}

// Reset starts a new board. The scoreboard is kept.
func (s *GameSession) Reset(ctx context.Context, eng *engine.Engine, delay time.Duration) (GameResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetBoard()
	if err := s.computerReply(ctx, eng, delay); err != nil {
		return GameResponse{}, fmt.Errorf("computer reply: %w", err)
	}
	return s.snapshotLocked(), nil
}

// UpdateSettings applies upd. Switching between two-player and computer play,
// or changing the computer's side, starts a new board.
func (s *GameSession) UpdateSettings(ctx context.Context, eng *engine.Engine, delay time.Duration, upd SettingsUpdate) (GameResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.computerMove = -1
	newBoard := false

	if upd.VsComputer != nil && *upd.VsComputer != s.config.VsComputer {
		s.config.VsComputer = *upd.VsComputer
		newBoard = true
	}
	if upd.ComputerMark != nil && *upd.ComputerMark != s.config.ComputerMark {
		s.config.ComputerMark = *upd.ComputerMark
		newBoard = true
	}
	if upd.Difficulty != nil {
		s.config.Difficulty = *upd.Difficulty
	}
	if upd.PlayerX != nil && *upd.PlayerX != "" {
		s.config.PlayerX = *upd.PlayerX
		s.record.PlayerX = *upd.PlayerX
	}
	if upd.PlayerO != nil && *upd.PlayerO != "" {
		s.config.PlayerO = *upd.PlayerO
		s.record.PlayerO = *upd.PlayerO
	}

	if newBoard {
		s.resetBoard()
		if err := s.computerReply(ctx, eng, delay); err != nil {
			return GameResponse{}, fmt.Errorf("computer reply: %w", err)
		}
	}
	s.updated = time.Now()
	return s.snapshotLocked(), nil
}

func (s *GameSession) resetBoard() {
	s.state.Reset()
	if len(s.record.Current().Moves) > 0 {
		s.record.NewGame()
	}
	s.computerMove = -1
	s.updated = time.Now()
}

func (s *GameSession) computerToMove() bool {
	return s.config.VsComputer &&
		s.state.Turn == s.config.ComputerMark &&
		!s.state.Outcome().Terminal()
}

// apply plays index and scores the game if the move finished it. A move can
// only succeed while the game is in progress, so each game is scored once.
func (s *GameSession) apply(index int) error {
	if err := s.state.ApplyMove(index); err != nil {
		return err
	}
	if err := s.record.Current().AddMove(index); err != nil {
		return fmt.Errorf("recording move: %w", err)
	}
	s.updated = time.Now()

	out := s.state.Outcome()
	switch {
	case out.Status == engine.Win && out.Winner == engine.X:
		s.scores.X++
	case out.Status == engine.Win:
		s.scores.O++
	case out.Status == engine.Draw:
		s.scores.Ties++
	}
	return nil
}

func (s *GameSession) computerReply(ctx context.Context, eng *engine.Engine, delay time.Duration) error {
	if !s.computerToMove() {
		return nil
	}
	res := <-eng.ChooseMoveAfter(ctx, s.state, s.config.Difficulty, s.config.ComputerMark, delay)
	if res.Err != nil {
		return res.Err
	}
	if err := s.apply(res.Move); err != nil {
		return err
	}
	s.computerMove = res.Move
	return nil
}

func (s *GameSession) name(m engine.Mark) string {
	if m == engine.X {
		return s.config.PlayerX
	}
	return s.config.PlayerO
}

func (s *GameSession) message() string {
	out := s.state.Outcome()
	switch out.Status {
	case engine.Win:
		return s.name(out.Winner) + " Wins!"
	case engine.Draw:
		return "It's a Draw!"
	}
	return s.name(s.state.Turn) + "'s turn"
}

func (s *GameSession) snapshotLocked() GameResponse {
	resp := GameResponse{
		ID:           s.id,
		State:        StateToResponse(s.state),
		VsComputer:   s.config.VsComputer,
		Difficulty:   s.config.Difficulty.String(),
		ComputerMark: s.config.ComputerMark.String(),
		Players:      PlayersResponse{X: s.config.PlayerX, O: s.config.PlayerO},
		Scores:       ScoreboardResponse{X: s.scores.X, O: s.scores.O, Ties: s.scores.Ties},
		Message:      s.message(),
	}
	if s.computerMove >= 0 {
		move := s.computerMove
		resp.ComputerMove = &move
	}
	return resp
}

// SessionStore keeps live sessions in memory, evicting the least recently
// used once full.
type SessionStore struct {
	sessions *lru.Cache[string, *GameSession]
}

// NewSessionStore creates a store holding at most size sessions
// (0 = DefaultMaxSessions).
func NewSessionStore(size int) *SessionStore {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	// lru only rejects non-positive sizes
	sessions, _ := lru.NewWithEvict(size, func(id string, _ *GameSession) {
		log.Printf("Evicted game session %s", id)
	})
	return &SessionStore{sessions: sessions}
}

// Create starts a new session with cfg and stores it.
func (st *SessionStore) Create(cfg SessionConfig) *GameSession {
	if cfg.PlayerX == "" {
		cfg.PlayerX = defaultNameX
	}
	if cfg.PlayerO == "" {
		cfg.PlayerO = defaultNameO
	}
	s := newGameSession(uuid.NewString(), cfg)
	st.sessions.Add(s.id, s)
	return s
}

// Get returns the session with the given ID.
func (st *SessionStore) Get(id string) (*GameSession, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return st.sessions.Get(id)
}

// Delete removes a session, reporting whether it existed.
func (st *SessionStore) Delete(id string) bool {
	return st.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	return st.sessions.Len()
}
