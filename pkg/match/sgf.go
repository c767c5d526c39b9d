package match

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yourusername/tttengine/pkg/engine"
)

// SGF (Smart Game Format) records each game as a tree of nodes.
// See: https://www.red-bean.com/sgf/
//
// X plays the role of Black (moving first) and O of White. Cells use
// column-then-row letters, so cell 0 is "aa", cell 4 "bb" and cell 8 "cc".
//
// Example SGF:
// (;FF[4]CA[UTF-8]AP[tttengine:0.1]SZ[3]GN[1]
//  PB[Alice]PW[Bob]RE[B+]
//  ;B[bb];W[aa];B[cc])

var (
	sgfPropertyRE = regexp.MustCompile(`([A-Z]+)((?:\[(?:[^\]\\]|\\.)*\])+)`)
	sgfValueRE    = regexp.MustCompile(`\[((?:[^\]\\]|\\.)*)\]`)
)

// ImportSGF reads a match from SGF format.
func ImportSGF(r io.Reader) (*Match, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading SGF file: %w", err)
	}
	return parseSGF(string(data))
}

// parseSGF parses SGF content into a Match.
func parseSGF(content string) (*Match, error) {
	match := NewMatch("", "")

	games := splitSGF(content, '(', ')')
	if len(games) == 0 {
		return nil, fmt.Errorf("no SGF game tree found")
	}

	for i, tree := range games {
		nodes := splitSGFNodes(tree)
		if len(nodes) == 0 {
			return nil, fmt.Errorf("game %d: empty game tree", i+1)
		}

		root := parseSGFProperties(nodes[0])
		if i == 0 {
			extractMatchInfo(root, match)
		}

		game, err := parseSGFGame(i+1, root, nodes[1:])
		if err != nil {
			return nil, err
		}
		match.Games = append(match.Games, game)
	}

	return match, nil
}

// splitSGF returns the top-level spans delimited by open and close, ignoring
// delimiters inside property values.
func splitSGF(content string, open, close byte) []string {
	var spans []string
	depth, start := 0, -1
	inValue, escaped := false, false

	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
		case inValue && ch == '\\':
			escaped = true
		case ch == '[':
			inValue = true
		case ch == ']':
			inValue = false
		case inValue:
		case ch == open:
			if depth == 0 {
				start = i + 1
			}
			depth++
		case ch == close && depth > 0:
			depth--
			if depth == 0 {
				spans = append(spans, content[start:i])
			}
		}
	}
	return spans
}

// splitSGFNodes splits a game tree into nodes at each ';' outside values.
func splitSGFNodes(tree string) []string {
	var nodes []string
	start := -1
	inValue, escaped := false, false

	for i := 0; i < len(tree); i++ {
		ch := tree[i]
		switch {
		case escaped:
			escaped = false
		case inValue && ch == '\\':
			escaped = true
		case ch == '[':
			inValue = true
		case ch == ']':
			inValue = false
		case !inValue && ch == ';':
			if start >= 0 {
				nodes = append(nodes, tree[start:i])
			}
			start = i + 1
		}
	}
	if start >= 0 {
		nodes = append(nodes, tree[start:])
	}
	return nodes
}

// parseSGFProperties extracts the first value of each property in a node.
func parseSGFProperties(node string) map[string]string {
	props := make(map[string]string)
	for _, m := range sgfPropertyRE.FindAllStringSubmatch(node, -1) {
		if v := sgfValueRE.FindStringSubmatch(m[2]); v != nil {
			props[m[1]] = unescapeSGF(v[1])
		}
	}
	return props
}

// extractMatchInfo extracts match-level info from root properties.
func extractMatchInfo(props map[string]string, match *Match) {
	match.PlayerX = props["PB"]
	match.PlayerO = props["PW"]
	match.Date = props["DT"]
	match.Event = props["EV"]
	match.Place = props["PC"]
	match.Comment = props["GC"]
}

// parseSGFGame replays the move nodes of one game tree.
func parseSGFGame(number int, root map[string]string, nodes []string) (*Game, error) {
	if sz, ok := root["SZ"]; ok && sz != "3" {
		return nil, fmt.Errorf("game %d: unsupported board size %s", number, sz)
	}

	var moves []int
	for _, node := range nodes {
		props := parseSGFProperties(node)
		color, coord := "B", ""
		if v, ok := props["B"]; ok {
			coord = v
		} else if v, ok := props["W"]; ok {
			color, coord = "W", v
		} else {
			continue // Comment-only or empty node
		}

		want := "B"
		if len(moves)%2 == 1 {
			want = "W"
		}
		if color != want {
			return nil, fmt.Errorf("game %d move %d: %s played out of turn", number, len(moves)+1, color)
		}

		index, err := sgfPointToCell(coord)
		if err != nil {
			return nil, fmt.Errorf("game %d move %d: %w", number, len(moves)+1, err)
		}
		moves = append(moves, index)
	}

	return build(number, moves, parseSGFResult(root["RE"]))
}

// sgfPointToCell converts a two-letter SGF point to a cell index.
func sgfPointToCell(p string) (int, error) {
	if len(p) != 2 || p[0] < 'a' || p[0] > 'c' || p[1] < 'a' || p[1] > 'c' {
		return -1, fmt.Errorf("invalid SGF point %q", p)
	}
	col, row := int(p[0]-'a'), int(p[1]-'a')
	return row*3 + col, nil
}

// cellToSGFPoint converts a cell index to SGF notation.
func cellToSGFPoint(index int) string {
	return string([]byte{byte('a' + index%3), byte('a' + index/3)})
}

func parseSGFResult(re string) GameResult {
	switch {
	case strings.HasPrefix(re, "B+"):
		return ResultXWins
	case strings.HasPrefix(re, "W+"):
		return ResultOWins
	case re == "0" || re == "Draw":
		return ResultDraw
	}
	return ResultInProgress
}

func formatSGFResult(r GameResult) string {
	switch r {
	case ResultXWins:
		return "B+"
	case ResultOWins:
		return "W+"
	case ResultDraw:
		return "0"
	}
	return "?"
}

func escapeSGF(s string) string {
	return strings.NewReplacer(`\`, `\\`, `]`, `\]`).Replace(s)
}

func unescapeSGF(s string) string {
	var sb strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// ExportSGF writes a match in SGF format, one game tree per game.
func ExportSGF(w io.Writer, match *Match) error {
	for _, game := range match.Games {
		if err := exportGameSGF(w, match, game); err != nil {
			return err
		}
	}
	return nil
}

// exportGameSGF writes a single game in SGF format.
func exportGameSGF(w io.Writer, match *Match, game *Game) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "(;FF[4]CA[UTF-8]AP[tttengine:0.1]SZ[3]GN[%d]\n", game.Number)
	fmt.Fprintf(&sb, "PB[%s]PW[%s]RE[%s]\n", escapeSGF(match.PlayerX), escapeSGF(match.PlayerO), formatSGFResult(game.Result))
	if match.Date != "" {
		fmt.Fprintf(&sb, "DT[%s]\n", escapeSGF(match.Date))
	}
	if match.Event != "" {
		fmt.Fprintf(&sb, "EV[%s]\n", escapeSGF(match.Event))
	}
	if match.Place != "" {
		fmt.Fprintf(&sb, "PC[%s]\n", escapeSGF(match.Place))
	}
	if match.Comment != "" {
		fmt.Fprintf(&sb, "GC[%s]\n", escapeSGF(match.Comment))
	}

	for i, index := range game.Moves {
		if index < 0 || index >= engine.NumCells {
			return fmt.Errorf("game %d move %d: cell %d out of range", game.Number, i+1, index)
		}
		color := "B"
		if i%2 == 1 {
			color = "W"
		}
		fmt.Fprintf(&sb, ";%s[%s]", color, cellToSGFPoint(index))
	}
	sb.WriteString(")\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
