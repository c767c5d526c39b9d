package match

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourusername/tttengine/pkg/engine"
)

// The text format is a plain transcript, one line per pair of moves.
// Example format:
//
//	; [Player X "Alice"]
//	; [Player O "Bob"]
//	; [Event "Club night"]
//
//	Game 1
//	Alice : 0            Bob : 0
//	  1) 4    0
//	  2) 8    2
//	  3) 1    7
//	  4) 6    3
//	  5) 5
//	Result: Draw

var (
	textGameHeaderRE = regexp.MustCompile(`^Game\s+(\d+)$`)
	textScoreLineRE  = regexp.MustCompile(`^(.*?)\s*:\s*(\d+)\s+(.*?)\s*:\s*(\d+)$`)
	textMoveLineRE   = regexp.MustCompile(`^(\d+)\)\s*(.*)$`)
	textResultRE     = regexp.MustCompile(`^Result:\s*(.+)$`)
	textTagRE        = regexp.MustCompile(`\[([^"\]]+?)\s+("(?:[^"\\]|\\.)*")\]`)
)

// pendingGame collects the lines of a game until its moves can be replayed.
type pendingGame struct {
	number int
	moves  []int
	result GameResult
}

// ImportText reads a match from the text transcript format.
func ImportText(r io.Reader) (*Match, error) {
	scanner := bufio.NewScanner(r)
	match := NewMatch("", "")

	var current *pendingGame
	lineNum := 0

	finish := func() error {
		if current == nil {
			return nil
		}
		g, err := build(current.number, current.moves, current.result)
		if err != nil {
			return err
		}
		match.Games = append(match.Games, g)
		current = nil
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		// Metadata
		if strings.HasPrefix(line, ";") {
			if m := textTagRE.FindStringSubmatch(line); m != nil {
				value, err := strconv.Unquote(m[2])
				if err != nil {
					return nil, fmt.Errorf("line %d: bad tag value %s", lineNum, m[2])
				}
				setTag(match, m[1], value)
			}
			continue
		}

		if m := textGameHeaderRE.FindStringSubmatch(line); m != nil {
			if err := finish(); err != nil {
				return nil, err
			}
			number, _ := strconv.Atoi(m[1])
			current = &pendingGame{number: number}
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("line %d: %q outside of a game", lineNum, line)
		}

		if m := textResultRE.FindStringSubmatch(line); m != nil {
			result, ok := parseResultName(m[1])
			if !ok {
				return nil, fmt.Errorf("line %d: unknown result %q", lineNum, m[1])
			}
			current.result = result
			continue
		}

		if m := textMoveLineRE.FindStringSubmatch(line); m != nil {
			if err := parseMoveLine(m, current); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			continue
		}

		if textScoreLineRE.MatchString(line) {
			continue // Derived from the results
		}

		return nil, fmt.Errorf("line %d: unrecognized %q", lineNum, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	if err := finish(); err != nil {
		return nil, err
	}
	if len(match.Games) == 0 {
		return nil, fmt.Errorf("no games found")
	}
	return match, nil
}

// setTag stores a metadata tag on the match. Unknown tags are ignored.
func setTag(match *Match, key, value string) {
	switch strings.ToLower(key) {
	case "player x", "playerx":
		match.PlayerX = value
	case "player o", "playero":
		match.PlayerO = value
	case "event":
		match.Event = value
	case "date":
		match.Date = value
	case "site", "place":
		match.Place = value
	case "comment":
		match.Comment = value
	}
}

// parseMoveLine appends the X move and optional O move of a numbered line.
func parseMoveLine(m []string, game *pendingGame) error {
	n, _ := strconv.Atoi(m[1])
	if want := len(game.moves)/2 + 1; n != want || len(game.moves)%2 != 0 {
		return fmt.Errorf("move line %d out of sequence", n)
	}

	fields := strings.Fields(m[2])
	if len(fields) == 0 || len(fields) > 2 {
		return fmt.Errorf("move line %d: want 1 or 2 cells, got %d", n, len(fields))
	}
	for _, f := range fields {
		index, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("move line %d: bad cell %q", n, f)
		}
		game.moves = append(game.moves, index)
	}
	return nil
}

func parseResultName(s string) (GameResult, bool) {
	for _, r := range []GameResult{ResultXWins, ResultOWins, ResultDraw, ResultInProgress} {
		if strings.EqualFold(strings.TrimSpace(s), r.String()) {
			return r, true
		}
	}
	return ResultInProgress, false
}

// ExportText writes a match as a text transcript.
func ExportText(w io.Writer, match *Match) error {
	bw := bufio.NewWriter(w)

	writeTag := func(key, value string) {
		if value != "" {
			fmt.Fprintf(bw, "; [%s %s]\n", key, strconv.Quote(value))
		}
	}
	writeTag("Player X", match.PlayerX)
	writeTag("Player O", match.PlayerO)
	writeTag("Event", match.Event)
	writeTag("Date", match.Date)
	writeTag("Place", match.Place)
	writeTag("Comment", match.Comment)

	xName, oName := match.Name(engine.X), match.Name(engine.O)
	xWins, oWins := 0, 0

	for _, game := range match.Games {
		fmt.Fprintf(bw, "\nGame %d\n", game.Number)
		fmt.Fprintf(bw, "%-20s %s : %d\n", fmt.Sprintf("%s : %d", xName, xWins), oName, oWins)

		for i := 0; i < len(game.Moves); i += 2 {
			if i+1 < len(game.Moves) {
				fmt.Fprintf(bw, "%3d) %-4d %d\n", i/2+1, game.Moves[i], game.Moves[i+1])
			} else {
				fmt.Fprintf(bw, "%3d) %d\n", i/2+1, game.Moves[i])
			}
		}
		fmt.Fprintf(bw, "Result: %s\n", game.Result)

		switch game.Result {
		case ResultXWins:
			xWins++
		case ResultOWins:
			oWins++
		}
	}

	return bw.Flush()
}
