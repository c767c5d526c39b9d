// Package match records series of tic-tac-toe games between two players.
// Matches can be written and read as SGF or as a plain-text transcript.
package match

import (
	"fmt"

	"github.com/yourusername/tttengine/pkg/engine"
)

// Match is a series of games between the same two players.
type Match struct {
	PlayerX string  // Name of the player with X
	PlayerO string  // Name of the player with O
	Date    string  // Date (YYYY-MM-DD format)
	Event   string  // Event name
	Place   string  // Location
	Comment string  // General comments
	Games   []*Game // Games in play order
}

// Game is a single game, always started from the empty board.
type Game struct {
	Number int        // Game number (1-indexed)
	Moves  []int      // Cells in play order, X first
	Result GameResult // Derived from the moves
}

// GameResult indicates how a game ended.
type GameResult int

const (
	ResultInProgress GameResult = iota // Game not finished
	ResultXWins
	ResultOWins
	ResultDraw
)

// String returns the display name of the result.
func (r GameResult) String() string {
	switch r {
	case ResultXWins:
		return "X wins"
	case ResultOWins:
		return "O wins"
	case ResultDraw:
		return "Draw"
	}
	return "In progress"
}

// resultOf maps a board outcome to a game result.
func resultOf(out engine.Outcome) GameResult {
	switch {
	case out.Status == engine.Draw:
		return ResultDraw
	case out.Status == engine.Win && out.Winner == engine.X:
		return ResultXWins
	case out.Status == engine.Win:
		return ResultOWins
	}
	return ResultInProgress
}

// NewMatch creates a new empty match.
func NewMatch(playerX, playerO string) *Match {
	return &Match{
		PlayerX: playerX,
		PlayerO: playerO,
		Games:   make([]*Game, 0),
	}
}

// NewGame appends a new empty game to the match and returns it.
func (m *Match) NewGame() *Game {
	g := NewGame(len(m.Games) + 1)
	m.Games = append(m.Games, g)
	return g
}

// Current returns the last game, or nil if there is none.
func (m *Match) Current() *Game {
	if len(m.Games) == 0 {
		return nil
	}
	return m.Games[len(m.Games)-1]
}

// Score counts finished games by result.
func (m *Match) Score() (xWins, oWins, draws int) {
	for _, g := range m.Games {
		switch g.Result {
		case ResultXWins:
			xWins++
		case ResultOWins:
			oWins++
		case ResultDraw:
			draws++
		}
	}
	return xWins, oWins, draws
}

// Name returns the name of the player with mark, or the mark itself if unnamed.
func (m *Match) Name(mark engine.Mark) string {
	name := m.PlayerX
	if mark == engine.O {
		name = m.PlayerO
	}
	if name == "" {
		return mark.String()
	}
	return name
}

// NewGame creates an empty game.
func NewGame(number int) *Game {
	return &Game{
		Number: number,
		Moves:  make([]int, 0, engine.NumCells),
		Result: ResultInProgress,
	}
}

// State replays the moves from the empty board.
func (g *Game) State() (*engine.GameState, error) {
	state := engine.NewGame()
	for i, index := range g.Moves {
		if err := state.ApplyMove(index); err != nil {
			return nil, fmt.Errorf("game %d move %d: %w", g.Number, i+1, err)
		}
	}
	return state, nil
}

// AddMove plays index for the side to move and updates the result.
func (g *Game) AddMove(index int) error {
	state, err := g.State()
	if err != nil {
		return err
	}
	if err := state.ApplyMove(index); err != nil {
		return fmt.Errorf("game %d move %d: %w", g.Number, len(g.Moves)+1, err)
	}
	g.Moves = append(g.Moves, index)
	g.Result = resultOf(state.Outcome())
	return nil
}

// Finished reports whether the game has a result.
func (g *Game) Finished() bool {
	return g.Result != ResultInProgress
}

// build replays moves into a new game numbered number. If declared is not
// ResultInProgress it must agree with the board.
func build(number int, moves []int, declared GameResult) (*Game, error) {
	g := NewGame(number)
	for _, index := range moves {
		if err := g.AddMove(index); err != nil {
			return nil, err
		}
	}
	if declared != ResultInProgress && declared != g.Result {
		return nil, fmt.Errorf("game %d: recorded result %q does not match the board (%q)", number, declared, g.Result)
	}
	return g, nil
}
