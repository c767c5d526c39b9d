package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/tttengine/pkg/engine"
	"github.com/yourusername/tttengine/pkg/match"
)

// maxRolloutTrials caps a single rollout request
const maxRolloutTrials = 100000

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine        *engine.Engine
	version       string
	pool          *WorkerPool
	sessions      *SessionStore
	computerDelay time.Duration   // Pause before a session's computer reply
	baseCtx       context.Context // Bounds session computer replies; cancelled on shutdown
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(e *engine.Engine, version string) *Handlers {
	return NewHandlersWithPool(e, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool) *Handlers {
	return &Handlers{
		engine:   e,
		version:  version,
		pool:     pool,
		sessions: NewSessionStore(DefaultMaxSessions),
		baseCtx:  context.Background(),
	}
}

// Sessions returns the game session store.
func (h *Handlers) Sessions() *SessionStore {
	return h.sessions
}

// apiError is a request error with its HTTP status and error code.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func badRequest(code, format string, args ...interface{}) error {
	return &apiError{Status: http.StatusBadRequest, Code: code, Message: fmt.Sprintf(format, args...)}
}

// errorInfo maps an error to an HTTP status and error code.
func errorInfo(err error) (int, string) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
		return ae.Status, ae.Code
	case errors.Is(err, engine.ErrIllegalMove):
		return http.StatusConflict, "ILLEGAL_MOVE"
	case errors.Is(err, engine.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// writeEngineError writes err with the status and code from errorInfo.
func writeEngineError(w http.ResponseWriter, err error) {
	status, code := errorInfo(err)
	writeError(w, status, err.Error(), code)
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("INVALID_JSON", "invalid JSON")
	}
	return nil
}

// serve runs fn, in a fast pool slot if a pool is configured, and writes its
// result with status.
func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, status int, fn func() (interface{}, error)) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	resp, err := fn()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, status, resp)
}

// parsePosition creates a GameState from a position ID.
func parsePosition(posID string) (*engine.GameState, error) {
	if posID == "" {
		return nil, badRequest("MISSING_POSITION", "position is required")
	}
	gs, err := engine.ParsePosition(posID)
	if err != nil {
		return nil, badRequest("INVALID_POSITION", "invalid position %q: %v", posID, err)
	}
	return gs, nil
}

func parseDifficulty(s string, def engine.Difficulty) (engine.Difficulty, error) {
	if s == "" {
		return def, nil
	}
	d, err := engine.ParseDifficulty(s)
	if err != nil {
		return def, badRequest("INVALID_DIFFICULTY", "%v", err)
	}
	return d, nil
}

func parseMark(s string, def engine.Mark) (engine.Mark, error) {
	if s == "" {
		return def, nil
	}
	m, ok := engine.ParseMark(s)
	if !ok {
		return def, badRequest("INVALID_MARK", "mark must be X or O, got %q", s)
	}
	return m, nil
}

func requireIndex(index *int) (int, error) {
	if index == nil {
		return 0, badRequest("MISSING_INDEX", "index is required")
	}
	return *index, nil
}

// ============================================================================
// Engine operations shared by the HTTP and WebSocket handlers
// ============================================================================

func (h *Handlers) describe(req StateRequest) (interface{}, error) {
	gs, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}
	return StateToResponse(gs), nil
}

func (h *Handlers) apply(req ApplyRequest) (interface{}, error) {
	gs, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}
	index, err := requireIndex(req.Index)
	if err != nil {
		return nil, err
	}
	if err := gs.ApplyMove(index); err != nil {
		return nil, err
	}
	return StateToResponse(gs), nil
}

func (h *Handlers) chooseMove(req MoveRequest) (interface{}, error) {
	gs, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}
	d, err := parseDifficulty(req.Difficulty, engine.Hard)
	if err != nil {
		return nil, err
	}
	mark, err := parseMark(req.Mark, gs.Turn)
	if err != nil {
		return nil, err
	}

	move, err := h.engine.ChooseMove(gs, d, mark)
	if err != nil {
		return nil, err
	}
	if err := gs.ApplyMove(move); err != nil {
		return nil, fmt.Errorf("applying chosen move: %w", err)
	}

	return &MoveResponse{
		Move:       move,
		Mark:       mark.String(),
		Difficulty: d.String(),
		State:      StateToResponse(gs),
	}, nil
}

func (h *Handlers) analyze(req AnalyzeRequest) (interface{}, error) {
	gs, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}

	analysis, err := h.engine.AnalyzePosition(gs)
	if err != nil {
		return nil, err
	}

	moves := analysis.Moves
	if req.NumMoves > 0 && req.NumMoves < len(moves) {
		moves = moves[:req.NumMoves]
	}

	return &AnalyzeResponse{
		Position:  gs.Board.PositionID(),
		Turn:      analysis.Mover.String(),
		Moves:     MoveScoresToResponse(moves),
		BestMove:  analysis.BestMove,
		BestScore: analysis.BestScore,
		NumLegal:  analysis.NumMoves,
		Nodes:     analysis.Nodes,
	}, nil
}

func (h *Handlers) tutorMove(req TutorMoveRequest) (interface{}, error) {
	gs, err := parsePosition(req.Position)
	if err != nil {
		return nil, err
	}
	index, err := requireIndex(req.Index)
	if err != nil {
		return nil, err
	}

	ms, err := h.engine.AnalyzeMoveSkill(gs, index)
	if err != nil {
		return nil, err
	}

	return &TutorMoveResponse{
		Skill:       skillToString(ms.Skill),
		SkillAbbr:   ms.Skill.Abbr(),
		Loss:        ms.Loss,
		BestMove:    ms.BestMove,
		BestScore:   ms.BestScore,
		PlayedScore: ms.Score,
		IsForced:    ms.IsForced,
		TopMoves:    MoveScoresToResponse(ms.TopMoves),
		Suggestion:  generateMoveSuggestion(ms),
	}, nil
}

// recordFormat is a supported match record format.
type recordFormat struct {
	contentType string
	export      func(io.Writer, *match.Match) error
	parse       func(io.Reader) (*match.Match, error)
}

var recordFormats = map[string]recordFormat{
	"sgf":  {"application/x-go-sgf; charset=utf-8", match.ExportSGF, match.ImportSGF},
	"text": {"text/plain; charset=utf-8", match.ExportText, match.ImportText},
}

func parseRecordFormat(s string) (recordFormat, error) {
	if s == "" {
		s = "sgf"
	}
	f, ok := recordFormats[strings.ToLower(s)]
	if !ok {
		return recordFormat{}, badRequest("INVALID_FORMAT", "unknown record format %q (want sgf or text)", s)
	}
	return f, nil
}

// reviewMoves returns the moves to review: req.Moves, or one game of
// req.Record.
func reviewMoves(req TutorGameRequest) ([]int, error) {
	if req.Record == "" {
		if len(req.Moves) == 0 {
			return nil, badRequest("MISSING_MOVES", "moves or record is required")
		}
		return req.Moves, nil
	}

	format, err := parseRecordFormat(req.Format)
	if err != nil {
		return nil, err
	}
	m, err := format.parse(strings.NewReader(req.Record))
	if err != nil {
		return nil, badRequest("INVALID_RECORD", "invalid record: %v", err)
	}

	n := req.Game
	if n == 0 {
		n = len(m.Games)
	}
	if n < 1 || n > len(m.Games) {
		return nil, badRequest("INVALID_GAME", "game %d not in record (%d games)", req.Game, len(m.Games))
	}
	return m.Games[n-1].Moves, nil
}

func (h *Handlers) tutorGame(req TutorGameRequest) (interface{}, error) {
	moves, err := reviewMoves(req)
	if err != nil {
		return nil, err
	}
	analysis, err := h.engine.AnalyzeGame(moves)
	if err != nil {
		return nil, err
	}
	resp := GameAnalysisToResponse(analysis)
	return &resp, nil
}

// rolloutRequest validates a rollout request and builds engine options.
func rolloutRequest(req RolloutRequest) (*engine.GameState, engine.RolloutOptions, error) {
	opts := engine.DefaultRolloutOptions()

	gs := engine.NewGame()
	if req.Position != "" {
		var err error
		if gs, err = parsePosition(req.Position); err != nil {
			return nil, opts, err
		}
	}

	if req.Trials < 0 || req.Trials > maxRolloutTrials {
		return nil, opts, badRequest("INVALID_TRIALS", "trials must be between 1 and %d", maxRolloutTrials)
	}
	if req.Trials > 0 {
		opts.Trials = req.Trials
	}
	opts.Workers = req.Workers
	opts.Seed = req.Seed

	var err error
	if opts.X, err = parseDifficulty(req.X, opts.X); err != nil {
		return nil, opts, err
	}
	if opts.O, err = parseDifficulty(req.O, opts.O); err != nil {
		return nil, opts, err
	}
	return gs, opts, nil
}

func (h *Handlers) session(id string) (*GameSession, error) {
	s, ok := h.sessions.Get(id)
	if !ok {
		return nil, &apiError{Status: http.StatusNotFound, Code: "GAME_NOT_FOUND", Message: "game not found: " + id}
	}
	return s, nil
}

func (h *Handlers) gameMove(id string, req GameMoveRequest) (interface{}, error) {
	s, err := h.session(id)
	if err != nil {
		return nil, err
	}
	index, err := requireIndex(req.Index)
	if err != nil {
		return nil, err
	}
	resp, err := s.Play(h.baseCtx, h.engine, index, h.computerDelay)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ============================================================================
// HTTP handlers
// ============================================================================

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Ready:    h.engine != nil,
		Sessions: h.sessions.Len(),
	}

	// Include pool stats if available
	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}
	if h.engine != nil && h.engine.Cache() != nil {
		c := h.engine.Cache()
		lookups, hits, _ := c.Stats()
		resp.Cache = &CacheStats{Size: c.Size(), Lookups: lookups, Hits: hits, HitRate: c.HitRate()}
	}

	writeJSON(w, http.StatusOK, resp)
}

// State handles POST /api/state
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	var req StateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.describe(req) })
}

// Apply handles POST /api/apply
func (h *Handlers) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.apply(req) })
}

// Move handles POST /api/move
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.chooseMove(req) })
}

// Analyze handles POST /api/analyze
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.analyze(req) })
}

// HandleTutorMove handles POST /api/tutor/move
func (h *Handlers) HandleTutorMove(w http.ResponseWriter, r *http.Request) {
	var req TutorMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.tutorMove(req) })
}

// HandleTutorGame handles POST /api/tutor/game
func (h *Handlers) HandleTutorGame(w http.ResponseWriter, r *http.Request) {
	var req TutorGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.tutorGame(req) })
}

// Rollout handles POST /api/rollout
func (h *Handlers) Rollout(w http.ResponseWriter, r *http.Request) {
	// Acquire slow worker slot if pool is configured (rollouts use every core)
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req RolloutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}

	gs, opts, err := rolloutRequest(req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	result, err := h.engine.Rollout(gs, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RolloutToResponse(result, opts))
}

// CreateGame handles POST /api/games
func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}

	h.serve(w, r, http.StatusCreated, func() (interface{}, error) {
		cfg := DefaultSessionConfig()
		if req.VsComputer != nil {
			cfg.VsComputer = *req.VsComputer
		}
		var err error
		if cfg.Difficulty, err = parseDifficulty(req.Difficulty, cfg.Difficulty); err != nil {
			return nil, err
		}
		if cfg.ComputerMark, err = parseMark(req.ComputerMark, cfg.ComputerMark); err != nil {
			return nil, err
		}
		cfg.PlayerX = req.PlayerX
		cfg.PlayerO = req.PlayerO

		s := h.sessions.Create(cfg)
		resp, err := s.Start(h.baseCtx, h.engine, h.computerDelay)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

// GetGame handles GET /api/games/{id}
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteGame handles DELETE /api/games/{id}
func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.session(id); err != nil {
		writeEngineError(w, err)
		return
	}
	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// GameRecord handles GET /api/games/{id}/record?format=sgf|text
func (h *Handlers) GameRecord(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	format, err := parseRecordFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := s.WriteRecord(&buf, format.export); err != nil {
		writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GameReview handles GET /api/games/{id}/review
func (h *Handlers) GameReview(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) {
		analysis, err := h.engine.AnalyzeGame(s.Moves())
		if err != nil {
			return nil, err
		}
		resp := GameAnalysisToResponse(analysis)
		return &resp, nil
	})
}

// GameMove handles POST /api/games/{id}/move
func (h *Handlers) GameMove(w http.ResponseWriter, r *http.Request) {
	var req GameMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}
	id := r.PathValue("id")
	h.serve(w, r, http.StatusOK, func() (interface{}, error) { return h.gameMove(id, req) })
}

// ResetGame handles POST /api/games/{id}/reset
func (h *Handlers) ResetGame(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.serve(w, r, http.StatusOK, func() (interface{}, error) {
		resp, err := s.Reset(h.baseCtx, h.engine, h.computerDelay)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

// GameSettings handles POST /api/games/{id}/settings
func (h *Handlers) GameSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var req GameSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeEngineError(w, err)
		return
	}

	upd := SettingsUpdate{
		VsComputer: req.VsComputer,
		PlayerX:    req.PlayerX,
		PlayerO:    req.PlayerO,
	}
	if req.Difficulty != nil {
		d, err := parseDifficulty(*req.Difficulty, engine.Easy)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		upd.Difficulty = &d
	}
	if req.ComputerMark != nil {
		m, err := parseMark(*req.ComputerMark, engine.O)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		upd.ComputerMark = &m
	}

	h.serve(w, r, http.StatusOK, func() (interface{}, error) {
		resp, err := s.UpdateSettings(h.baseCtx, h.engine, h.computerDelay, upd)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	})
}

// skillToString converts SkillType to a lower-case API string.
func skillToString(s engine.SkillType) string {
	return strings.ToLower(s.String())
}

// generateMoveSuggestion creates a suggestion string for a move.
func generateMoveSuggestion(ms *engine.MoveSkill) string {
	if ms.IsForced {
		return "Forced move."
	}

	switch ms.Skill {
	case engine.SkillInaccuracy:
		if ms.BestScore > 0 {
			return fmt.Sprintf("Cell %d wins faster.", ms.BestMove)
		}
		return fmt.Sprintf("Cell %d holds out longer.", ms.BestMove)
	case engine.SkillMistake:
		return fmt.Sprintf("Cell %d wins; this move only draws.", ms.BestMove)
	case engine.SkillBlunder:
		if ms.BestScore > 0 {
			return fmt.Sprintf("Cell %d wins; this move loses.", ms.BestMove)
		}
		return fmt.Sprintf("Cell %d draws; this move loses.", ms.BestMove)
	}
	return "Good move."
}

// playerRating names the level of play shown in a game.
func playerRating(p engine.PlayerAnalysis) string {
	switch {
	case p.Moves == 0:
		return "None"
	case p.Blunders > 0:
		return "Beginner"
	case p.Mistakes > 0:
		return "Casual"
	case p.Inaccuracies > 0:
		return "Strong"
	}
	return "Perfect"
}

// generateGameSuggestions generates overall improvement suggestions for a game.
func generateGameSuggestions(resp *GameAnalysisResponse) []string {
	var suggestions []string

	for _, side := range []struct {
		name  string
		stats PlayerStats
	}{{"X", resp.Players.X}, {"O", resp.Players.O}} {
		if side.stats.Blunders > 0 {
			suggestions = append(suggestions,
				fmt.Sprintf("%s had %d blunder(s). Look for the opponent's threats before moving.", side.name, side.stats.Blunders))
		}
		if side.stats.Mistakes > 0 {
			suggestions = append(suggestions,
				fmt.Sprintf("%s missed %d win(s). Look for forks and open lines.", side.name, side.stats.Mistakes))
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, "Good game! Both players played well.")
	}
	return suggestions
}
