package engine

import (
	"sort"
)

// MoveScore is a move together with its minimax score for the side to move
type MoveScore struct {
	Move  int `json:"move"`
	Score int `json:"score"`
}

// AnalysisResult contains the result of move analysis
type AnalysisResult struct {
	Mover     Mark        // Side to move
	Moves     []MoveScore // All moves ranked by score, ties by index
	BestMove  int         // Best move (the move Hard would play)
	BestScore int         // Best score
	NumMoves  int         // Total number of legal moves
	Nodes     int         // Positions visited
}

// AnalyzePosition scores every legal move for the side to move and returns
// them ranked best first.
func (e *Engine) AnalyzePosition(state *GameState) (*AnalysisResult, error) {
	if state == nil {
		return nil, invalidState("nil game state")
	}
	if err := checkSearchable(state, state.Turn); err != nil {
		return nil, err
	}

	mover := state.Turn
	s := &searcher{board: state.Board, max: mover, cache: e.cache}

	result := &AnalysisResult{Mover: mover, Moves: s.rootScores()}
	result.NumMoves = len(result.Moves)
	result.Nodes = s.nodes

	// Stable sort keeps ascending index order among equal scores
	sort.SliceStable(result.Moves, func(i, j int) bool {
		return result.Moves[i].Score > result.Moves[j].Score
	})

	result.BestMove = result.Moves[0].Move
	result.BestScore = result.Moves[0].Score

	return result, nil
}

// RankMoves returns the top n moves for the side to move.
// If n <= 0, returns all moves ranked
func (e *Engine) RankMoves(state *GameState, n int) ([]MoveScore, error) {
	analysis, err := e.AnalyzePosition(state)
	if err != nil {
		return nil, err
	}

	if n <= 0 || n > len(analysis.Moves) {
		return analysis.Moves, nil
	}

	return analysis.Moves[:n], nil
}

// ScoreOf returns the score of move in the ranking.
func (r *AnalysisResult) ScoreOf(move int) (int, bool) {
	for _, m := range r.Moves {
		if m.Move == move {
			return m.Score, true
		}
	}
	return 0, false
}
