package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalMove matches every *IllegalMoveError via errors.Is.
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidState matches every *InvalidStateError via errors.Is.
	ErrInvalidState = errors.New("invalid state")
)

// IllegalMoveError reports an attempt to play an occupied or out-of-range cell,
// or to play after the game has ended.
type IllegalMoveError struct {
	Index  int
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %d: %s", e.Index, e.Reason)
}

func (e *IllegalMoveError) Unwrap() error { return ErrIllegalMove }

// InvalidStateError reports a caller protocol violation: asking for a move on a
// finished board, for the wrong player, or building an unreachable position.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return "invalid state: " + e.Reason }

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

func illegalMove(index int, reason string) error {
	return &IllegalMoveError{Index: index, Reason: reason}
}

func invalidState(format string, args ...interface{}) error {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}
