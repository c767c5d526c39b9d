package engine

import (
	"fmt"
	"strings"
)

// Difficulty selects how much of the minimax result the computer uses.
type Difficulty int

const (
	Easy   Difficulty = iota // Uniformly random legal move
	Medium                   // Minimax best with MediumBestMoveProbability, else random
	Hard                     // Always the minimax best move
)

// MediumBestMoveProbability is the chance that Medium plays the minimax move.
const MediumBestMoveProbability = 0.7

// String returns the lower-case name of the difficulty.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return fmt.Sprintf("difficulty(%d)", int(d))
}

// ParseDifficulty parses "easy", "medium" or "hard" (case-insensitive).
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}
