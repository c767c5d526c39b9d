package engine

import "fmt"

// Line is a winning line: three cell indices.
type Line [3]int

// WinningLines are the 8 lines checked by Outcome, in this order:
// rows, columns, then the two diagonals.
var WinningLines = [8]Line{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Status is the state of play
type Status int

const (
	InProgress Status = iota
	Win
	Draw
)

// String returns the display name of the status.
func (s Status) String() string {
	return [...]string{"in_progress", "win", "draw"}[s]
}

// Outcome is derived from a board and never stored.
// Winner is set only when Status is Win.
type Outcome struct {
	Status Status
	Winner Mark
}

// Terminal reports whether no further moves are allowed.
func (o Outcome) Terminal() bool {
	return o.Status != InProgress
}

func (o Outcome) String() string {
	if o.Status == Win {
		return fmt.Sprintf("win(%s)", o.Winner)
	}
	return o.Status.String()
}

// Outcome scans the winning lines in declared order.
func (b Board) Outcome() Outcome {
	if _, m, ok := b.firstLine(); ok {
		return Outcome{Status: Win, Winner: m}
	}
	if b.Full() {
		return Outcome{Status: Draw}
	}
	return Outcome{Status: InProgress}
}

// WinningLine returns the first satisfied line, if any.
func (b Board) WinningLine() (Line, bool) {
	l, _, ok := b.firstLine()
	return l, ok
}

func (b Board) firstLine() (Line, Mark, bool) {
	for _, l := range WinningLines {
		m := b[l[0]]
		if m != Empty && m == b[l[1]] && m == b[l[2]] {
			return l, m, true
		}
	}
	return Line{}, Empty, false
}

// lineOwner reports whether m has any complete line.
func lineOwner(b Board, m Mark) bool {
	for _, l := range WinningLines {
		if b[l[0]] == m && b[l[1]] == m && b[l[2]] == m {
			return true
		}
	}
	return false
}

// Outcome returns the derived outcome of the current board.
func (gs *GameState) Outcome() Outcome {
	return gs.Board.Outcome()
}

// WinningLine returns the line that won the game; ok is false unless the outcome is Win.
func (gs *GameState) WinningLine() (Line, bool) {
	return gs.Board.WinningLine()
}
