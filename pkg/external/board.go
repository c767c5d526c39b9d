package external

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yourusername/tttengine/pkg/engine"
)

// boardFields is the number of fields after the "board:" prefix.
const boardFields = 2 + engine.NumCells + 1

// BoardLine represents a parsed board line.
//
// Format: board:playerX:playerO:c0:c1:...:c8:turn
//
// Cells are 1 for X, -1 for O and 0 for empty, in row order. Turn is 1
// when X is to move and -1 when O is.
type BoardLine struct {
	PlayerX string               // Name of the player with X
	PlayerO string               // Name of the player with O
	Cells   [engine.NumCells]int // Cell values
	Turn    int                  // Side to move (1 = X, -1 = O)
}

// ParseBoardLine parses a board line.
func ParseBoardLine(s string) (*BoardLine, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "board:")

	parts := strings.Split(s, ":")
	if len(parts) != boardFields {
		return nil, fmt.Errorf("invalid board: expected %d fields, got %d", boardFields, len(parts))
	}

	bl := &BoardLine{
		PlayerX: parts[0],
		PlayerO: parts[1],
	}

	for i := 0; i < engine.NumCells; i++ {
		v, err := strconv.Atoi(parts[2+i])
		if err != nil || v < -1 || v > 1 {
			return nil, fmt.Errorf("invalid board: cell %d is %q", i, parts[2+i])
		}
		bl.Cells[i] = v
	}

	turn, err := strconv.Atoi(parts[boardFields-1])
	if err != nil || (turn != 1 && turn != -1) {
		return nil, fmt.Errorf("invalid board: turn is %q", parts[boardFields-1])
	}
	bl.Turn = turn

	return bl, nil
}

// Board converts the cell values to an engine board.
func (bl *BoardLine) Board() engine.Board {
	var b engine.Board
	for i, v := range bl.Cells {
		switch v {
		case 1:
			b[i] = engine.X
		case -1:
			b[i] = engine.O
		}
	}
	return b
}

// ToGameState converts the board line to an engine GameState. The turn
// must agree with the mark counts while the game is in progress.
func (bl *BoardLine) ToGameState() (*engine.GameState, error) {
	state, err := engine.NewGameState(bl.Board())
	if err != nil {
		return nil, err
	}
	if !state.Outcome().Terminal() && state.Turn != markOf(bl.Turn) {
		return nil, fmt.Errorf("invalid board: turn %s does not match the marks (%s to move)", markOf(bl.Turn), state.Turn)
	}
	return state, nil
}

// FormatBoardLine formats a game state as a board line.
func FormatBoardLine(playerX, playerO string, state *engine.GameState) string {
	parts := make([]string, 0, boardFields)
	parts = append(parts, playerX, playerO)
	for _, m := range state.Board {
		parts = append(parts, strconv.Itoa(cellValue(m)))
	}
	parts = append(parts, strconv.Itoa(cellValue(state.Turn)))
	return "board:" + strings.Join(parts, ":")
}

func markOf(v int) engine.Mark {
	if v < 0 {
		return engine.O
	}
	return engine.X
}

func cellValue(m engine.Mark) int {
	switch m {
	case engine.X:
		return 1
	case engine.O:
		return -1
	}
	return 0
}
