// Package api provides HTTP/JSON REST and WebSocket APIs for the tic-tac-toe engine.
package api

import "github.com/yourusername/tttengine/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// StateRequest is the request body for describing a position.
type StateRequest struct {
	Position string `json:"position"` // Grid ("X---O----") or compact position ID
}

// ApplyRequest is the request body for playing a move on a position.
type ApplyRequest struct {
	Position string `json:"position"` // Position ID
	Index    *int   `json:"index"`    // Cell 0-8
}

// MoveRequest is the request body for asking the computer for a move.
type MoveRequest struct {
	Position   string `json:"position"`             // Position ID
	Difficulty string `json:"difficulty,omitempty"` // "easy", "medium" or "hard" (default hard)
	Mark       string `json:"mark,omitempty"`       // Side the computer plays (default: side to move)
}

// AnalyzeRequest is the request body for scoring every legal move.
type AnalyzeRequest struct {
	Position string `json:"position"`            // Position ID
	NumMoves int    `json:"num_moves,omitempty"` // Max moves to return (0 = all)
}

// TutorMoveRequest is the request for grading a played move.
type TutorMoveRequest struct {
	Position string `json:"position"` // Position ID before the move
	Index    *int   `json:"index"`    // Cell that was played
}

// TutorGameRequest is the request for reviewing a whole game. Either Moves or
// Record must be set.
type TutorGameRequest struct {
	Moves  []int  `json:"moves,omitempty"`  // Cells in play order from the empty board
	Record string `json:"record,omitempty"` // Match record text
	Format string `json:"format,omitempty"` // Record format: "sgf" (default) or "text"
	Game   int    `json:"game,omitempty"`   // Game number in the record (default: last)
}

// RolloutRequest is the request body for self-play rollouts.
type RolloutRequest struct {
	Position string `json:"position,omitempty"` // Start position (default empty board)
	Trials   int    `json:"trials,omitempty"`   // Number of games (default 1000)
	Workers  int    `json:"workers,omitempty"`  // Parallel workers (0 = all cores)
	Seed     int64  `json:"seed,omitempty"`     // Random seed (0 = random)
	X        string `json:"x,omitempty"`        // Difficulty of X (default medium)
	O        string `json:"o,omitempty"`        // Difficulty of O (default hard)
}

// CreateGameRequest is the request body for starting a game session.
type CreateGameRequest struct {
	VsComputer   *bool  `json:"vs_computer,omitempty"`   // Play against the computer (default true)
	Difficulty   string `json:"difficulty,omitempty"`    // Computer difficulty (default easy)
	ComputerMark string `json:"computer_mark,omitempty"` // "X" or "O" (default O)
	PlayerX      string `json:"player_x,omitempty"`      // Display name for X
	PlayerO      string `json:"player_o,omitempty"`      // Display name for O
}

// GameMoveRequest is the request body for a human move in a session.
type GameMoveRequest struct {
	Index *int `json:"index"` // Cell 0-8
}

// GameSettingsRequest changes session settings. Omitted fields are unchanged.
type GameSettingsRequest struct {
	VsComputer   *bool   `json:"vs_computer,omitempty"`   // Toggling the mode starts a new board
	Difficulty   *string `json:"difficulty,omitempty"`    // New difficulty
	ComputerMark *string `json:"computer_mark,omitempty"` // Changing sides starts a new board
	PlayerX      *string `json:"player_x,omitempty"`      // Empty names are ignored
	PlayerO      *string `json:"player_o,omitempty"`      // Empty names are ignored
}

// ============================================================================
// Response Types
// ============================================================================

// StateResponse describes a position.
type StateResponse struct {
	Position    string `json:"position"`               // Grid position ID
	CompactID   string `json:"compact_id"`             // Compact position ID
	Turn        string `json:"turn"`                   // Side to move (last mover once finished)
	Status      string `json:"status"`                 // "in_progress", "win" or "draw"
	Winner      string `json:"winner,omitempty"`       // "X" or "O" when Status is "win"
	WinningLine []int  `json:"winning_line,omitempty"` // Cells of the winning line
	LegalMoves  []int  `json:"legal_moves"`            // Empty cells, ascending; none once finished
}

// MoveResponse is the response for a computer move.
type MoveResponse struct {
	Move       int           `json:"move"`       // Chosen cell
	Mark       string        `json:"mark"`       // Side that moved
	Difficulty string        `json:"difficulty"` // Difficulty used
	State      StateResponse `json:"state"`      // Position after the move
}

// MoveScoreResponse is a single scored move.
type MoveScoreResponse struct {
	Move   int    `json:"move"`   // Cell
	Score  int    `json:"score"`  // Minimax score for the mover
	Result string `json:"result"` // "win", "draw" or "loss" with best play
}

// AnalyzeResponse is the response for move analysis.
type AnalyzeResponse struct {
	Position  string              `json:"position"`   // Position analyzed
	Turn      string              `json:"turn"`       // Side to move
	Moves     []MoveScoreResponse `json:"moves"`      // Moves ranked best first
	BestMove  int                 `json:"best_move"`  // Move Hard would play
	BestScore int                 `json:"best_score"` // Score of the best move
	NumLegal  int                 `json:"num_legal"`  // Total number of legal moves
	Nodes     int                 `json:"nodes"`      // Positions searched
}

// TutorMoveResponse is the response for move skill analysis.
type TutorMoveResponse struct {
	Skill       string              `json:"skill"`        // "none", "inaccuracy", "mistake", "blunder"
	SkillAbbr   string              `json:"skill_abbr"`   // "", "?!", "?", "??"
	Loss        int                 `json:"loss"`         // Best score minus played score
	BestMove    int                 `json:"best_move"`    // Best move
	BestScore   int                 `json:"best_score"`   // Score of best move
	PlayedScore int                 `json:"played_score"` // Score of played move
	IsForced    bool                `json:"is_forced"`    // True if only one legal move
	TopMoves    []MoveScoreResponse `json:"top_moves"`    // Top moves for context
	Suggestion  string              `json:"suggestion"`   // Improvement suggestion
}

// GameAnalysisResponse is the response for a game review.
type GameAnalysisResponse struct {
	Status      string          `json:"status"`           // "in_progress", "win" or "draw"
	Winner      string          `json:"winner,omitempty"` // Winning side
	Players     PlayerStatsPair `json:"players"`          // Stats for each side
	TotalMoves  int             `json:"total_moves"`      // Moves reviewed
	Moves       []MoveGrade     `json:"moves"`            // Every move, in play order
	MoveErrors  []MoveError     `json:"move_errors"`      // Moves that were not the best
	Suggestions []string        `json:"suggestions"`      // Overall improvement suggestions
}

// PlayerStatsPair holds the stats of both sides.
type PlayerStatsPair struct {
	X PlayerStats `json:"x"`
	O PlayerStats `json:"o"`
}

// PlayerStats contains review stats for one side.
type PlayerStats struct {
	Moves        int     `json:"moves"`         // Moves played
	Forced       int     `json:"forced"`        // Moves with one legal choice
	TotalLoss    int     `json:"total_loss"`    // Sum of score lost
	LossPerMove  float64 `json:"loss_per_move"` // Average score lost per unforced move
	Rating       string  `json:"rating"`        // Skill rating
	Blunders     int     `json:"blunders"`
	Mistakes     int     `json:"mistakes"`
	Inaccuracies int     `json:"inaccuracies"`
}

// MoveGrade is the grade of one move in a reviewed game.
type MoveGrade struct {
	Move      int    `json:"move"`       // Cell played
	Score     int    `json:"score"`      // Score of the played move
	BestMove  int    `json:"best_move"`  // Best move
	BestScore int    `json:"best_score"` // Score of the best move
	Skill     string `json:"skill"`      // "none", "inaccuracy", "mistake", "blunder"
	SkillAbbr string `json:"skill_abbr"` // "", "?!", "?", "??"
}

// MoveError is a move in a reviewed game that was not the best.
type MoveError struct {
	MoveNumber int    `json:"move_number"` // 1-indexed move number
	Player     string `json:"player"`      // "X" or "O"
	Position   string `json:"position"`    // Position ID before the move
	Played     int    `json:"played"`      // Cell played
	Best       int    `json:"best"`        // Best cell
	Loss       int    `json:"loss"`        // Score lost
	Skill      string `json:"skill"`       // Skill rating
}

// RolloutResponse is the response for a rollout.
type RolloutResponse struct {
	Trials     int     `json:"trials"`      // Games played
	XWins      int     `json:"x_wins"`      // Games won by X
	OWins      int     `json:"o_wins"`      // Games won by O
	Draws      int     `json:"draws"`       // Drawn games
	XWinRate   float64 `json:"x_win_rate"`  // Percent
	OWinRate   float64 `json:"o_win_rate"`  // Percent
	DrawRate   float64 `json:"draw_rate"`   // Percent
	MeanScore  float64 `json:"mean_score"`  // Mean X score (+1/0/-1)
	StdDev     float64 `json:"std_dev"`     // Standard deviation of the X score
	CI95       float64 `json:"ci95"`        // 95% confidence interval
	MeanLength float64 `json:"mean_length"` // Mean moves per game
	X          string  `json:"x"`           // Difficulty of X
	O          string  `json:"o"`           // Difficulty of O
}

// WSRolloutProgress is a rollout progress update.
type WSRolloutProgress struct {
	TrialsCompleted int     `json:"trials_completed"`
	TrialsTotal     int     `json:"trials_total"`
	Percent         float64 `json:"percent"`
	CurrentScore    float64 `json:"current_score"`
	CurrentCI       float64 `json:"current_ci"`
}

// ScoreboardResponse is the running score of a session.
type ScoreboardResponse struct {
	X    int `json:"x"`
	O    int `json:"o"`
	Ties int `json:"ties"`
}

// PlayersResponse holds the display names of a session.
type PlayersResponse struct {
	X string `json:"x"`
	O string `json:"o"`
}

// GameResponse describes a game session.
type GameResponse struct {
	ID           string             `json:"id"`                      // Session ID
	State        StateResponse      `json:"state"`                   // Current position
	VsComputer   bool               `json:"vs_computer"`             // Playing against the computer
	Difficulty   string             `json:"difficulty"`              // Computer difficulty
	ComputerMark string             `json:"computer_mark"`           // Side the computer plays
	Players      PlayersResponse    `json:"players"`                 // Display names
	Scores       ScoreboardResponse `json:"scores"`                  // Running score
	ComputerMove *int               `json:"computer_move,omitempty"` // Computer's reply to the last request
	Message      string             `json:"message"`                 // Status line
}

// ErrorResponse is returned when an error occurs.
type ErrorResponse struct {
	Error   string `json:"error"`             // Error message
	Code    string `json:"code,omitempty"`    // Error code
	Details string `json:"details,omitempty"` // Additional details
}

// CacheStats reports score cache usage.
type CacheStats struct {
	Size    uint32  `json:"size"`
	Lookups uint64  `json:"lookups"`
	Hits    uint64  `json:"hits"`
	HitRate float64 `json:"hit_rate"` // Percent
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status   string      `json:"status"`          // "ok" or "error"
	Version  string      `json:"version"`         // Engine version
	Ready    bool        `json:"ready"`           // Whether the engine is set
	Sessions int         `json:"sessions"`        // Live game sessions
	Pool     *PoolStats  `json:"pool,omitempty"`  // Worker pool statistics
	Cache    *CacheStats `json:"cache,omitempty"` // Score cache statistics
}

// ============================================================================
// Helper Functions
// ============================================================================

// StateToResponse converts a game state to an API response.
func StateToResponse(gs *engine.GameState) StateResponse {
	out := gs.Outcome()
	resp := StateResponse{
		Position:   gs.Board.PositionID(),
		CompactID:  gs.Board.CompactID(),
		Turn:       gs.Turn.String(),
		Status:     out.Status.String(),
		LegalMoves: gs.LegalMoves(),
	}
	if out.Terminal() {
		resp.LegalMoves = []int{}
	}
	if out.Status == engine.Win {
		resp.Winner = out.Winner.String()
		if line, ok := gs.WinningLine(); ok {
			resp.WinningLine = line[:]
		}
	}
	return resp
}

// MoveScoresToResponse converts ranked move scores to API responses.
func MoveScoresToResponse(moves []engine.MoveScore) []MoveScoreResponse {
	resp := make([]MoveScoreResponse, len(moves))
	for i, m := range moves {
		resp[i] = MoveScoreResponse{Move: m.Move, Score: m.Score, Result: scoreResult(m.Score)}
	}
	return resp
}

// RolloutToResponse converts a rollout result to an API response.
func RolloutToResponse(result *engine.RolloutResult, opts engine.RolloutOptions) RolloutResponse {
	return RolloutResponse{
		Trials:     result.TrialsCompleted,
		XWins:      result.XWins,
		OWins:      result.OWins,
		Draws:      result.Draws,
		XWinRate:   result.XWinRate * 100,
		OWinRate:   result.OWinRate * 100,
		DrawRate:   result.DrawRate * 100,
		MeanScore:  result.MeanScore,
		StdDev:     result.ScoreStdDev,
		CI95:       result.ScoreCI,
		MeanLength: result.MeanLength,
		X:          opts.X.String(),
		O:          opts.O.String(),
	}
}

func scoreResult(score int) string {
	switch {
	case score > 0:
		return "win"
	case score < 0:
		return "loss"
	}
	return "draw"
}

// GameAnalysisToResponse converts a game review to an API response.
func GameAnalysisToResponse(a *engine.GameAnalysis) GameAnalysisResponse {
	resp := GameAnalysisResponse{
		Status:     a.Outcome.Status.String(),
		Players:    PlayerStatsPair{X: playerStats(a.X), O: playerStats(a.O)},
		TotalMoves: len(a.Moves),
		Moves:      make([]MoveGrade, len(a.Moves)),
		MoveErrors: make([]MoveError, len(a.Errors)),
	}
	if a.Outcome.Status == engine.Win {
		resp.Winner = a.Outcome.Winner.String()
	}
	for i, ms := range a.Moves {
		resp.Moves[i] = MoveGrade{
			Move:      ms.Move,
			Score:     ms.Score,
			BestMove:  ms.BestMove,
			BestScore: ms.BestScore,
			Skill:     skillToString(ms.Skill),
			SkillAbbr: ms.Skill.Abbr(),
		}
	}
	for i, e := range a.Errors {
		resp.MoveErrors[i] = MoveError{
			MoveNumber: e.MoveNumber,
			Player:     e.Player.String(),
			Position:   e.Position,
			Played:     e.Played,
			Best:       e.Best,
			Loss:       e.Loss,
			Skill:      skillToString(e.Skill),
		}
	}
	resp.Suggestions = generateGameSuggestions(&resp)
	return resp
}

func playerStats(p engine.PlayerAnalysis) PlayerStats {
	stats := PlayerStats{
		Moves:        p.Moves,
		Forced:       p.Forced,
		TotalLoss:    p.TotalLoss,
		Blunders:     p.Blunders,
		Mistakes:     p.Mistakes,
		Inaccuracies: p.Inaccuracies,
	}
	if unforced := p.Moves - p.Forced; unforced > 0 {
		stats.LossPerMove = float64(p.TotalLoss) / float64(unforced)
	}
	stats.Rating = playerRating(p)
	return stats
}
