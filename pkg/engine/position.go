// Package engine provides the public API for the tic-tac-toe engine.
package engine

import (
	"strings"

	"github.com/yourusername/tttengine/internal/positionid"
)

// NumCells is the number of cells on the board
const NumCells = 9

// Mark is the content of a cell, and also identifies a player
type Mark uint8

const (
	Empty Mark = iota
	X
	O
)

// String returns "X", "O" or "-" for an empty cell.
func (m Mark) String() string {
	switch m {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "-"
	}
}

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// ParseMark parses "X" or "O" (case-insensitive).
func ParseMark(s string) (Mark, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, true
	case "O":
		return O, true
	}
	return Empty, false
}

// Board is the 3x3 grid in row-major order, cells 0-8
type Board [NumCells]Mark

// GameState is the board together with the player to move.
// X always moves first, so count(X)-count(O) is 0 or 1.
type GameState struct {
	Board Board // Cell contents
	Turn  Mark  // Player to move (or the last mover once the game is over)
}

// NewGame returns an empty board with X to move.
func NewGame() *GameState {
	return &GameState{Turn: X}
}

// NewGameState builds a state from an arbitrary board, deriving the player to move
// from the mark counts.
func NewGameState(b Board) (*GameState, error) {
	x, o := b.Counts()
	if !positionid.CheckPosition(b.raw()) {
		return nil, invalidState("mark counts X=%d O=%d cannot arise with X moving first", x, o)
	}
	xLine, oLine := lineOwner(b, X), lineOwner(b, O)
	switch {
	case xLine && oLine:
		return nil, invalidState("both players have three in a row")
	case xLine && x != o+1:
		return nil, invalidState("O moved after X completed a line")
	case oLine && x != o:
		return nil, invalidState("X moved after O completed a line")
	}

	gs := &GameState{Board: b, Turn: X}
	if x > o {
		gs.Turn = O
	}
	// A finished game keeps the last mover as Turn.
	switch out := b.Outcome(); out.Status {
	case Win:
		gs.Turn = out.Winner
	case Draw:
		gs.Turn = gs.Turn.Opponent()
	}
	return gs, nil
}

// Reset clears the board and gives the move back to X.
func (gs *GameState) Reset() {
	gs.Board = Board{}
	gs.Turn = X
}

// Clone returns an independent copy of the state.
func (gs *GameState) Clone() *GameState {
	c := *gs
	return &c
}

// Counts returns the number of X and O marks.
func (b Board) Counts() (x, o int) {
	return positionid.CountMarks(b.raw())
}

// Full reports whether no empty cell remains.
func (b Board) Full() bool {
	for _, m := range b {
		if m == Empty {
			return false
		}
	}
	return true
}

// String renders the board as three rows, e.g. "X|O|-".
func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < 3; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < 3; c++ {
			if c > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(b[r*3+c].String())
		}
	}
	return sb.String()
}

// PositionID returns the 9-character grid ID of the board.
func (b Board) PositionID() string {
	return positionid.PositionID(b.raw())
}

// CompactID returns the 3-character compact position ID of the board.
func (b Board) CompactID() string {
	return positionid.CompactID(b.raw())
}

// SwapSides returns the board with every X and O exchanged.
func (b Board) SwapSides() Board {
	raw := positionid.SwapSides(b.raw())
	var out Board
	for i, c := range raw {
		out[i] = Mark(c)
	}
	return out
}

// Key returns the compact position key of the board.
func (b Board) Key() positionid.PositionKey {
	return positionid.MakePositionKey(b.raw())
}

func (b Board) raw() positionid.Board {
	var r positionid.Board
	for i, m := range b {
		r[i] = uint8(m)
	}
	return r
}

// BoardFromPositionID parses a grid or compact position ID.
func BoardFromPositionID(id string) (Board, error) {
	raw, err := positionid.BoardFromPositionID(id)
	if err != nil {
		return Board{}, err
	}
	var b Board
	for i, c := range raw {
		b[i] = Mark(c)
	}
	return b, nil
}

// ParsePosition parses a position ID into a game state with the turn derived
// from the board.
func ParsePosition(id string) (*GameState, error) {
	b, err := BoardFromPositionID(id)
	if err != nil {
		return nil, err
	}
	return NewGameState(b)
}
