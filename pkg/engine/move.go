package engine

// LegalMoves returns the empty cells in ascending order.
// The result is empty iff the board is full.
func (b Board) LegalMoves() []int {
	moves := make([]int, 0, NumCells)
	for i, m := range b {
		if m == Empty {
			moves = append(moves, i)
		}
	}
	return moves
}

// LegalMoves returns the empty cells of the current board.
func (gs *GameState) LegalMoves() []int {
	return gs.Board.LegalMoves()
}

// IsLegal reports whether index may be played now.
func (gs *GameState) IsLegal(index int) bool {
	return index >= 0 && index < NumCells &&
		gs.Board[index] == Empty &&
		!gs.Board.Outcome().Terminal()
}

// ApplyMove places the mark of the player to move on index. The turn passes to
// the opponent unless the move ended the game. A Turn that does not match the
// mark counts, such as the zero GameState's Empty, is an InvalidStateError.
func (gs *GameState) ApplyMove(index int) error {
	if index < 0 || index >= NumCells {
		return illegalMove(index, "index out of range")
	}
	if gs.Board.Outcome().Terminal() {
		return illegalMove(index, "game is already over")
	}
	if gs.Board[index] != Empty {
		return illegalMove(index, "cell is occupied")
	}
	if want := gs.Board.nextMark(); gs.Turn != want {
		return invalidState("turn is %s but the marks give %s to move", gs.Turn, want)
	}

	gs.Board[index] = gs.Turn
	if !gs.Board.Outcome().Terminal() {
		gs.Turn = gs.Turn.Opponent()
	}
	return nil
}

// nextMark is the player to move on an unfinished board: X when the counts
// are level, O when X is one ahead.
func (b Board) nextMark() Mark {
	if x, o := b.Counts(); x > o {
		return O
	}
	return X
}

// ApplyMove returns the board after m is placed on index, leaving b untouched.
// No legality checks are made.
func ApplyMove(b Board, index int, m Mark) Board {
	result := b
	result[index] = m
	return result
}

// probe places m on the empty cell index, evaluates fn and restores the cell
// on every exit path, including a panic inside fn.
func (b *Board) probe(index int, m Mark, fn func() int) int {
	b[index] = m
	defer func() { b[index] = Empty }()
	return fn()
}
