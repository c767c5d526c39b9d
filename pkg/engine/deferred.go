package engine

import (
	"context"
	"time"
)

// MoveResult is delivered by ChooseMoveAfter.
type MoveResult struct {
	Move int
	Err  error
}

// ChooseMoveAfter chooses a move now and delivers it once delay has elapsed,
// giving the computer a visible "thinking" pause. The move is fixed before the
// pause starts. If ctx ends first, the result carries ctx.Err() instead.
// The channel receives exactly one value.
func (e *Engine) ChooseMoveAfter(ctx context.Context, state *GameState, d Difficulty, mark Mark, delay time.Duration) <-chan MoveResult {
	out := make(chan MoveResult, 1)

	move, err := e.ChooseMove(state, d, mark)
	if err != nil || delay <= 0 {
		out <- MoveResult{Move: move, Err: err}
		return out
	}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			out <- MoveResult{Move: move}
		case <-ctx.Done():
			out <- MoveResult{Move: -1, Err: ctx.Err()}
		}
	}()

	return out
}
