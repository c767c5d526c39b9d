// Package positionid implements position encoding/decoding for tic-tac-toe boards.
//
// Two textual forms are supported. The grid form is 9 characters, one per
// cell in row-major order ('X', 'O', '-'), optionally split into rows with '/'.
// The compact form is a 3-character base64 string of the base-3 position key.
package positionid

import (
	"errors"
	"strings"
)

const (
	// NumCells is the number of cells on the board
	NumCells = 9
	// PositionIDLength is the length of a grid position ID (without separators)
	PositionIDLength = NumCells
	// CompactIDLength is the length of a compact base64 position ID
	CompactIDLength = 3
	// MaxKey is one past the largest position key (3^9)
	MaxKey = 19683
)

// Cell values
const (
	CellEmpty uint8 = 0
	CellX     uint8 = 1
	CellO     uint8 = 2
)

// Base64 alphabet used for compact position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Board is a raw board: 9 cells, 0 = empty, 1 = X, 2 = O
type Board [NumCells]uint8

// PositionKey is a compact numeric representation of a board position.
// Data holds the base-3 value of the cells, cell 0 being the least significant digit.
type PositionKey struct {
	Data uint32
}

var (
	// ErrInvalidPositionID is returned when a position ID cannot be decoded
	ErrInvalidPositionID = errors.New("invalid position ID")
	// ErrInvalidKey is returned when a key is outside the board space
	ErrInvalidKey = errors.New("invalid position key")
)

// MakePositionKey creates a compact key from a board position
func MakePositionKey(board Board) PositionKey {
	var key uint32
	for i := NumCells - 1; i >= 0; i-- {
		key = key*3 + uint32(board[i])
	}
	return PositionKey{Data: key}
}

// BoardFromKey reconstructs a board from a position key
func BoardFromKey(key PositionKey) (Board, error) {
	var board Board
	if key.Data >= MaxKey {
		return board, ErrInvalidKey
	}
	v := key.Data
	for i := 0; i < NumCells; i++ {
		board[i] = uint8(v % 3)
		v /= 3
	}
	return board, nil
}

// PositionID returns the 9-character grid form of a board
func PositionID(board Board) string {
	var sb strings.Builder
	sb.Grow(NumCells)
	for _, c := range board {
		sb.WriteByte(cellChar(c))
	}
	return sb.String()
}

// CompactID returns the 3-character base64 form of a board
func CompactID(board Board) string {
	key := MakePositionKey(board).Data
	result := make([]byte, CompactIDLength)
	result[0] = base64Chars[(key>>12)&0x3F]
	result[1] = base64Chars[(key>>6)&0x3F]
	result[2] = base64Chars[key&0x3F]
	return string(result)
}

func cellChar(c uint8) byte {
	switch c {
	case CellX:
		return 'X'
	case CellO:
		return 'O'
	default:
		return '-'
	}
}

func parseCell(ch byte) (uint8, bool) {
	switch ch {
	case 'X', 'x':
		return CellX, true
	case 'O', 'o', '0':
		return CellO, true
	case '-', '.', '_', ' ':
		return CellEmpty, true
	}
	return 0, false
}

// base64Decode decodes a single base64 character, returning 255 if invalid
func base64Decode(ch byte) uint8 {
	switch {
	case ch >= 'A' && ch <= 'Z':
		return ch - 'A'
	case ch >= 'a' && ch <= 'z':
		return ch - 'a' + 26
	case ch >= '0' && ch <= '9':
		return ch - '0' + 52
	case ch == '+':
		return 62
	case ch == '/':
		return 63
	}
	return 255
}

// BoardFromPositionID decodes either the grid or the compact form.
// Only the cell contents are checked here; whether the position can arise in
// play is up to the caller.
func BoardFromPositionID(posID string) (Board, error) {
	var board Board

	if len(posID) == CompactIDLength {
		var key uint32
		for i := 0; i < CompactIDLength; i++ {
			d := base64Decode(posID[i])
			if d == 255 {
				return board, ErrInvalidPositionID
			}
			key = key<<6 | uint32(d)
		}
		b, err := BoardFromKey(PositionKey{Data: key})
		if err != nil {
			return board, ErrInvalidPositionID
		}
		return b, nil
	}

	grid := strings.ReplaceAll(posID, "/", "")
	if len(grid) != PositionIDLength {
		return board, ErrInvalidPositionID
	}
	for i := 0; i < PositionIDLength; i++ {
		c, ok := parseCell(grid[i])
		if !ok {
			return board, ErrInvalidPositionID
		}
		board[i] = c
	}
	return board, nil
}

// CountMarks returns the number of X and O marks on the board
func CountMarks(board Board) (x, o int) {
	for _, c := range board {
		switch c {
		case CellX:
			x++
		case CellO:
			o++
		}
	}
	return x, o
}

// CheckPosition reports whether the mark counts are consistent with X moving first
func CheckPosition(board Board) bool {
	for _, c := range board {
		if c > CellO {
			return false
		}
	}
	x, o := CountMarks(board)
	return x-o == 0 || x-o == 1
}

// EqualKeys returns true if two position keys are identical
func EqualKeys(k1, k2 PositionKey) bool {
	return k1.Data == k2.Data
}

// SwapSides exchanges X and O marks
func SwapSides(board Board) Board {
	var out Board
	for i, c := range board {
		switch c {
		case CellX:
			out[i] = CellO
		case CellO:
			out[i] = CellX
		}
	}
	return out
}
