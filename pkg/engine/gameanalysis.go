package engine

import "fmt"

// PlayerAnalysis summarizes one side's play over a game.
type PlayerAnalysis struct {
	Moves        int // Moves played
	Forced       int // Moves with a single legal choice
	Inaccuracies int
	Mistakes     int
	Blunders     int
	TotalLoss    int // Sum of score lost to the best move
}

// MoveErrorDetail is a graded move that was not the best.
type MoveErrorDetail struct {
	MoveNumber int    // 1-based ply
	Player     Mark   // Side that moved
	Position   string // Position before the move
	Played     int
	Best       int
	Loss       int
	Skill      SkillType
}

// GameAnalysis is the move-by-move review of a game played from the empty board.
type GameAnalysis struct {
	Moves   []*MoveSkill
	X, O    PlayerAnalysis
	Errors  []MoveErrorDetail
	Outcome Outcome
}

// Player returns the summary for m.
func (a *GameAnalysis) Player(m Mark) *PlayerAnalysis {
	if m == O {
		return &a.O
	}
	return &a.X
}

// AnalyzeGame replays moves from the empty board and grades each one. The game
// need not be finished, but every move must be legal when played.
func (e *Engine) AnalyzeGame(moves []int) (*GameAnalysis, error) {
	state := NewGame()
	analysis := &GameAnalysis{Moves: make([]*MoveSkill, 0, len(moves))}

	for i, index := range moves {
		mover := state.Turn
		before := state.Board.PositionID()

		ms, err := e.AnalyzeMoveSkill(state, index)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		if err := state.ApplyMove(index); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		analysis.Moves = append(analysis.Moves, ms)

		p := analysis.Player(mover)
		p.Moves++
		p.TotalLoss += ms.Loss
		if ms.IsForced {
			p.Forced++
		}

		switch ms.Skill {
		case SkillNone:
			continue
		case SkillInaccuracy:
			p.Inaccuracies++
		case SkillMistake:
			p.Mistakes++
		case SkillBlunder:
			p.Blunders++
		}
		analysis.Errors = append(analysis.Errors, MoveErrorDetail{
			MoveNumber: i + 1,
			Player:     mover,
			Position:   before,
			Played:     index,
			Best:       ms.BestMove,
			Loss:       ms.Loss,
			Skill:      ms.Skill,
		})
	}

	analysis.Outcome = state.Outcome()
	return analysis, nil
}
