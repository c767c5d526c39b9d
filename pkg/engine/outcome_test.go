package engine

import (
	"testing"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		status Status
		winner Mark
	}{
		{"empty", "---------", InProgress, Empty},
		{"in progress", "X---O----", InProgress, Empty},
		{"top row", "XXXOO----", Win, X},
		{"middle column", "XOX-OX-O-", Win, O},
		{"main diagonal", "XOOOX---X", Win, X},
		{"anti diagonal", "XXO-OXO--", Win, O},
		{"full board no line", "XOXXOOOXX", Draw, Empty},
		{"full board with line", "XXXOOXOXO", Win, X},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := BoardFromPositionID(tt.id)
			if err != nil {
				t.Fatalf("BoardFromPositionID failed: %v", err)
			}
			out := b.Outcome()
			if out.Status != tt.status || out.Winner != tt.winner {
				t.Errorf("Outcome(%s) = %v, want %v/%v", tt.id, out, tt.status, tt.winner)
			}
		})
	}
}

func TestWinningLineDeclaredOrder(t *testing.T) {
	// X completes the top row and the left column at once
	b, _ := BoardFromPositionID("XXXX--X--")

	line, ok := b.WinningLine()
	if !ok {
		t.Fatal("WinningLine() found no line")
	}
	if line != (Line{0, 1, 2}) {
		t.Errorf("WinningLine() = %v, want [0 1 2]", line)
	}
}

func TestWinningLineNone(t *testing.T) {
	for _, id := range []string{"---------", "XOXXOOOXX"} {
		gs := mustParse(t, id)
		if line, ok := gs.WinningLine(); ok {
			t.Errorf("WinningLine(%s) = %v, want none", id, line)
		}
	}
}

func TestOutcomeExclusive(t *testing.T) {
	for _, gs := range reachableStates() {
		out := gs.Outcome()
		_, hasLine := gs.WinningLine()

		switch out.Status {
		case Win:
			if !hasLine || out.Winner == Empty {
				t.Fatalf("%s: win without a line or winner", gs.Board.PositionID())
			}
		case Draw:
			if hasLine || !gs.Board.Full() {
				t.Fatalf("%s: draw with a line or empty cells", gs.Board.PositionID())
			}
		case InProgress:
			if hasLine || gs.Board.Full() {
				t.Fatalf("%s: in progress but finished", gs.Board.PositionID())
			}
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		out  Outcome
		want string
	}{
		{Outcome{Status: InProgress}, "in_progress"},
		{Outcome{Status: Draw}, "draw"},
		{Outcome{Status: Win, Winner: O}, "win(O)"},
	}

	for _, tt := range tests {
		if got := tt.out.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
