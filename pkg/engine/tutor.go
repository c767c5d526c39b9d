// Package engine provides tutor mode for grading human moves.
package engine

import (
	"fmt"
)

// SkillType represents the skill rating of a move.
type SkillType int

const (
	SkillNone       SkillType = iota // Best move, or as good as it
	SkillInaccuracy                  // Same result, but a slower win or a faster loss
	SkillMistake                     // Throws a forced win away into a draw
	SkillBlunder                     // Turns a position that was not lost into a forced loss
)

// String returns the display name of the skill type.
func (s SkillType) String() string {
	return [...]string{"None", "Inaccuracy", "Mistake", "Blunder"}[s]
}

// Abbr returns the annotation used after a move (?!, ?, ??).
func (s SkillType) Abbr() string {
	return [...]string{"", "?!", "?", "??"}[s]
}

// ClassifySkill grades a move by comparing its minimax score with the best
// score available in the same position.
func ClassifySkill(bestScore, playedScore int) SkillType {
	switch {
	case playedScore >= bestScore:
		return SkillNone
	case bestScore >= 0 && playedScore < 0:
		return SkillBlunder
	case bestScore > 0 && playedScore == 0:
		return SkillMistake
	}
	return SkillInaccuracy
}

// MoveSkill contains the detailed analysis of a single move for tutoring.
type MoveSkill struct {
	Move      int         // The move that was played
	BestMove  int         // The best move according to analysis
	Score     int         // Score of the played move
	BestScore int         // Score of the best move
	Loss      int         // BestScore - Score (positive = error)
	Skill     SkillType   // Skill rating
	IsForced  bool        // True if only one legal move
	TopMoves  []MoveScore // Top moves for context
}

// AnalyzeMoveSkill grades playing index for the side to move in state.
// state is not modified.
func (e *Engine) AnalyzeMoveSkill(state *GameState, index int) (*MoveSkill, error) {
	if state == nil {
		return nil, invalidState("nil game state")
	}
	if !state.IsLegal(index) {
		if state.Outcome().Terminal() {
			return nil, illegalMove(index, "game is already over")
		}
		return nil, illegalMove(index, "not a legal move")
	}

	analysisResult, err := e.AnalyzePosition(state)
	if err != nil {
		return nil, fmt.Errorf("analyzing position: %w", err)
	}

	skill := &MoveSkill{
		Move:      index,
		BestMove:  analysisResult.BestMove,
		BestScore: analysisResult.BestScore,
		IsForced:  analysisResult.NumMoves == 1,
	}

	maxTop := 3
	if len(analysisResult.Moves) < maxTop {
		maxTop = len(analysisResult.Moves)
	}
	skill.TopMoves = analysisResult.Moves[:maxTop]

	skill.Score, _ = analysisResult.ScoreOf(index)
	skill.Loss = skill.BestScore - skill.Score
	skill.Skill = ClassifySkill(skill.BestScore, skill.Score)

	return skill, nil
}
