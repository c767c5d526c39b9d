// tttengine - a tic-tac-toe move engine and analysis tool
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/yourusername/tttengine/pkg/engine"
	"github.com/yourusername/tttengine/pkg/match"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "move":
		cmdMove(args)
	case "analyze":
		cmdAnalyze(args)
	case "tutor":
		cmdTutor(args)
	case "rollout":
		cmdRollout(args)
	case "play":
		cmdPlay(args)
	case "review":
		cmdReview(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tttengine - Tic-Tac-Toe Engine

Usage: tttengine <command> [options]

Commands:
  move      Choose a move at a difficulty
  analyze   Score every legal move
  tutor     Grade a played move
  rollout   Self-play games from a position
  play      Play against the computer
  review    Grade every move of recorded games

Use "tttengine <command> -h" for command-specific help.

Position Format:
  Nine cells in row order, X, O or - for empty, optionally split by "/".
  Example: "XX-/OO-/---" or "XX-OO----". The 3-character compact ID
  printed by "analyze" is accepted too. The side to move follows from
  the mark counts.

Record Format:
  Files ending in .sgf are read and written as SGF, anything else as a
  plain-text transcript.`)
}

// fail prints an error and exits.
func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func parsePosition(posStr string) *engine.GameState {
	state, err := engine.ParsePosition(strings.TrimSpace(posStr))
	if err != nil {
		fail("invalid position %q: %v", posStr, err)
	}
	return state
}

func createEngine(seed int64) *engine.Engine {
	e, err := engine.NewEngine(engine.EngineOptions{Seed: seed})
	if err != nil {
		fail("failed to create engine: %v", err)
	}
	return e
}

// positionFlags registers -position and its short form -p.
func positionFlags(fs *flag.FlagSet) func() string {
	long := fs.String("position", "", "Position (e.g. XX-OO----)")
	short := fs.String("p", "", "Position (short form)")
	return func() string {
		if *long != "" {
			return *long
		}
		return *short
	}
}

func printBoard(b engine.Board) {
	for r := 0; r < 3; r++ {
		if r > 0 {
			fmt.Println("  ---+---+---")
		}
		cells := make([]string, 3)
		for c := 0; c < 3; c++ {
			i := r*3 + c
			if b[i] == engine.Empty {
				cells[c] = strconv.Itoa(i)
			} else {
				cells[c] = b[i].String()
			}
		}
		fmt.Printf("   %s | %s | %s\n", cells[0], cells[1], cells[2])
	}
}

func joinCells(cells []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}

func describeScore(score int) string {
	switch {
	case score > 0:
		return fmt.Sprintf("wins in %d", engine.WinScore-score)
	case score < 0:
		return fmt.Sprintf("loses in %d", engine.WinScore+score)
	}
	return "draw"
}

func cmdMove(args []string) {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	position := positionFlags(fs)
	difficulty := fs.String("difficulty", "hard", "Difficulty: easy, medium or hard")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	fs.Parse(args)

	pos := position()
	if pos == "" {
		fmt.Fprintln(os.Stderr, "Error: position required")
		fmt.Fprintln(os.Stderr, "Usage: tttengine move -position <position> [-difficulty hard]")
		os.Exit(1)
	}

	state := parsePosition(pos)
	d, err := engine.ParseDifficulty(*difficulty)
	if err != nil {
		fail("%v", err)
	}

	e := createEngine(*seed)
	mover := state.Turn
	move, err := e.ChooseMove(state, d, mover)
	if err != nil {
		fail("choosing move: %v", err)
	}
	if err := state.ApplyMove(move); err != nil {
		fail("applying move: %v", err)
	}

	fmt.Printf("%s (%s) plays %d\n", mover, d, move)
	printBoard(state.Board)
	if out := state.Outcome(); out.Terminal() {
		fmt.Printf("Result: %s\n", out)
	}
}

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	position := positionFlags(fs)
	numMoves := fs.Int("n", 0, "Number of moves to show (0 = all)")
	fs.Parse(args)

	pos := position()
	if pos == "" {
		fmt.Fprintln(os.Stderr, "Error: position required")
		fmt.Fprintln(os.Stderr, "Usage: tttengine analyze -position <position> [-n 3]")
		os.Exit(1)
	}

	state := parsePosition(pos)
	e := createEngine(0)

	start := time.Now()
	analysis, err := e.AnalyzePosition(state)
	elapsed := time.Since(start)
	if err != nil {
		fail("analyzing position: %v", err)
	}

	moves := analysis.Moves
	if *numMoves > 0 && *numMoves < len(moves) {
		moves = moves[:*numMoves]
	}

	fmt.Printf("Position %s (%s), %s to move\n", state.Board.PositionID(), state.Board.CompactID(), analysis.Mover)
	printBoard(state.Board)
	fmt.Println()
	for i, m := range moves {
		fmt.Printf("  %d. cell %d  %+3d  %s\n", i+1, m.Move, m.Score, describeScore(m.Score))
	}
	fmt.Printf("%s nodes in %v\n", humanize.Comma(int64(analysis.Nodes)), elapsed.Round(time.Microsecond))
}

func cmdTutor(args []string) {
	fs := flag.NewFlagSet("tutor", flag.ExitOnError)
	position := positionFlags(fs)
	index := fs.Int("i", -1, "Cell that was played (0-8)")
	fs.Parse(args)

	pos := position()
	if pos == "" || *index < 0 {
		fmt.Fprintln(os.Stderr, "Error: position and move required")
		fmt.Fprintln(os.Stderr, "Usage: tttengine tutor -position <position> -i <cell>")
		os.Exit(1)
	}

	state := parsePosition(pos)
	e := createEngine(0)

	ms, err := e.AnalyzeMoveSkill(state, *index)
	if err != nil {
		fail("grading move: %v", err)
	}

	fmt.Printf("Move %d%s: %s (%s)\n", ms.Move, ms.Skill.Abbr(), ms.Skill, describeScore(ms.Score))
	switch {
	case ms.IsForced:
		fmt.Println("  Forced move.")
	case ms.Skill != engine.SkillNone:
		fmt.Printf("  Best was %d (%s), losing %d\n", ms.BestMove, describeScore(ms.BestScore), ms.Loss)
	}
}

func cmdRollout(args []string) {
	fs := flag.NewFlagSet("rollout", flag.ExitOnError)
	position := positionFlags(fs)
	defaults := engine.DefaultRolloutOptions()
	trials := fs.Int("trials", defaults.Trials, "Number of games to play")
	workers := fs.Int("workers", 0, "Number of worker goroutines (0 = auto)")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	xDiff := fs.String("x", defaults.X.String(), "Difficulty of X")
	oDiff := fs.String("o", defaults.O.String(), "Difficulty of O")
	progress := fs.Bool("progress", false, "Print progress while running")
	fs.Parse(args)

	state := engine.NewGame()
	if pos := position(); pos != "" {
		state = parsePosition(pos)
	}

	opts := engine.RolloutOptions{Trials: *trials, Workers: *workers, Seed: *seed}
	var err error
	if opts.X, err = engine.ParseDifficulty(*xDiff); err != nil {
		fail("%v", err)
	}
	if opts.O, err = engine.ParseDifficulty(*oDiff); err != nil {
		fail("%v", err)
	}

	var callback engine.ProgressCallback
	if *progress {
		callback = func(p engine.RolloutProgress) {
			fmt.Fprintf(os.Stderr, "\r  %5.1f%%  %s/%s  score %+.3f ± %.3f",
				p.Percent, humanize.Comma(int64(p.TrialsCompleted)), humanize.Comma(int64(p.TrialsTotal)),
				p.CurrentScore, p.CurrentCI)
		}
	}

	e := createEngine(0)
	start := time.Now()
	result, err := e.RolloutWithProgress(state, opts, callback)
	elapsed := time.Since(start)
	if *progress {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fail("during rollout: %v", err)
	}

	fmt.Printf("Rollout of %s games, X %s vs O %s (%.2fs):\n",
		humanize.Comma(int64(result.TrialsCompleted)), opts.X, opts.O, elapsed.Seconds())
	fmt.Printf("  X wins: %6s  (%5.1f%%)\n", humanize.Comma(int64(result.XWins)), result.XWinRate*100)
	fmt.Printf("  O wins: %6s  (%5.1f%%)\n", humanize.Comma(int64(result.OWins)), result.OWinRate*100)
	fmt.Printf("  Draws:  %6s  (%5.1f%%)\n", humanize.Comma(int64(result.Draws)), result.DrawRate*100)
	fmt.Printf("  X score: %+.3f ± %.3f (95%% CI: ±%.3f)\n", result.MeanScore, result.ScoreStdDev, result.ScoreCI)
	fmt.Printf("  Length:  %.2f ± %.2f moves\n", result.MeanLength, result.LengthStdDev)
}

func cmdPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	difficulty := fs.String("difficulty", "easy", "Computer difficulty: easy, medium or hard")
	computer := fs.String("computer", "O", "Side the computer plays: X or O")
	delay := fs.Duration("delay", 500*time.Millisecond, "Pause before the computer moves")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	recordPath := fs.String("record", "", "Save the games to this file (.sgf or text)")
	name := fs.String("name", "", "Your name for the record")
	fs.Parse(args)

	d, err := engine.ParseDifficulty(*difficulty)
	if err != nil {
		fail("%v", err)
	}
	computerMark, ok := engine.ParseMark(*computer)
	if !ok {
		fail("computer must be X or O, got %q", *computer)
	}

	computerName := fmt.Sprintf("tttengine (%s)", d)
	record := match.NewMatch(*name, computerName)
	if computerMark == engine.X {
		record = match.NewMatch(computerName, *name)
	}
	record.Date = time.Now().Format("2006-01-02")

	g := &cliGame{
		eng:         createEngine(*seed),
		difficulty:  d,
		computer:    computerMark,
		delay:       *delay,
		in:          bufio.NewReader(os.Stdin),
		interactive: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
		record:      record,
	}
	g.run(context.Background())

	if *recordPath != "" {
		if err := writeRecord(*recordPath, record); err != nil {
			fail("saving record: %v", err)
		}
		fmt.Printf("Saved %d game(s) to %s\n", len(record.Games), *recordPath)
	}
}

// recordFormat picks the record reader and writer from the file extension.
func recordFormat(path string) (func(io.Reader) (*match.Match, error), func(io.Writer, *match.Match) error) {
	if strings.EqualFold(filepath.Ext(path), ".sgf") {
		return match.ImportSGF, match.ExportSGF
	}
	return match.ImportText, match.ExportText
}

func writeRecord(path string, m *match.Match) error {
	_, export := recordFormat(path)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readRecord(path string) (*match.Match, error) {
	parse, _ := recordFormat(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

// cliGame runs games against the computer on stdin/stdout.
type cliGame struct {
	eng         *engine.Engine
	difficulty  engine.Difficulty
	computer    engine.Mark
	delay       time.Duration
	in          *bufio.Reader
	interactive bool         // Prompts are printed only on a terminal
	record      *match.Match // Every game played, the score included
}

func (g *cliGame) prompt(format string, args ...interface{}) {
	if g.interactive {
		fmt.Printf(format, args...)
	}
}

// readLine returns the next trimmed input line.
func (g *cliGame) readLine() (string, error) {
	line, err := g.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (g *cliGame) run(ctx context.Context) {
	fmt.Printf("You play %s, the computer plays %s at %s. Enter q to quit.\n",
		g.computer.Opponent(), g.computer, g.difficulty)

	for {
		if !g.playOne(ctx) {
			break
		}
		xWins, oWins, ties := g.record.Score()
		fmt.Printf("Score: X %d, O %d, ties %d\n", xWins, oWins, ties)

		g.prompt("Play again? (y/n) ")
		answer, err := g.readLine()
		if err != nil || !strings.HasPrefix(strings.ToLower(answer), "y") {
			break
		}
	}
	xWins, oWins, ties := g.record.Score()
	fmt.Printf("Final score: X %d, O %d, ties %d\n", xWins, oWins, ties)
}

// playOne plays a game to the end. It returns false if the player quit.
func (g *cliGame) playOne(ctx context.Context) bool {
	state := engine.NewGame()
	game := g.record.NewGame()

	for !state.Outcome().Terminal() {
		printBoard(state.Board)

		if state.Turn == g.computer {
			g.prompt("Computer is thinking...\n")
			res := <-g.eng.ChooseMoveAfter(ctx, state, g.difficulty, g.computer, g.delay)
			if res.Err != nil {
				fail("computer move: %v", res.Err)
			}
			if err := state.ApplyMove(res.Move); err != nil {
				fail("computer move: %v", err)
			}
			if err := game.AddMove(res.Move); err != nil {
				fail("recording move: %v", err)
			}
			fmt.Printf("Computer plays %d\n", res.Move)
			continue
		}

		g.prompt("Your move (%s): ", joinCells(state.LegalMoves()))
		line, err := g.readLine()
		if err != nil || line == "q" {
			return false
		}
		index, err := strconv.Atoi(line)
		if err != nil {
			fmt.Println("Enter a cell number 0-8.")
			continue
		}
		if err := state.ApplyMove(index); err != nil {
			fmt.Println(err)
			continue
		}
		if err := game.AddMove(index); err != nil {
			fail("recording move: %v", err)
		}
	}

	printBoard(state.Board)
	out := state.Outcome()
	if out.Status == engine.Draw {
		fmt.Println("It's a Draw!")
	} else {
		fmt.Printf("%s Wins!\n", out.Winner)
	}
	return true
}

func cmdReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	file := fs.String("f", "", "Record file (.sgf or text transcript)")
	gameNum := fs.Int("game", 0, "Game to review (0 = all)")
	fs.Parse(args)

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: record file required")
		fmt.Fprintln(os.Stderr, "Usage: tttengine review -f <file> [-game n]")
		os.Exit(1)
	}

	m, err := readRecord(*file)
	if err != nil {
		fail("reading %s: %v", *file, err)
	}
	if *gameNum < 0 || *gameNum > len(m.Games) {
		fail("game %d not in record (%d games)", *gameNum, len(m.Games))
	}

	e := createEngine(0)
	fmt.Printf("%s (X) vs %s (O)\n", m.Name(engine.X), m.Name(engine.O))

	for _, game := range m.Games {
		if *gameNum != 0 && game.Number != *gameNum {
			continue
		}
		analysis, err := e.AnalyzeGame(game.Moves)
		if err != nil {
			fail("game %d: %v", game.Number, err)
		}

		fmt.Printf("\nGame %d: %s\n", game.Number, game.Result)
		for i, ms := range analysis.Moves {
			mover := engine.X
			if i%2 == 1 {
				mover = engine.O
			}
			fmt.Printf("  %2d. %s %d%-2s  %s", i+1, mover, ms.Move, ms.Skill.Abbr(), describeScore(ms.Score))
			if ms.Skill != engine.SkillNone {
				fmt.Printf("  (best %d, %s)", ms.BestMove, describeScore(ms.BestScore))
			}
			fmt.Println()
		}
		for _, mark := range []engine.Mark{engine.X, engine.O} {
			p := analysis.Player(mark)
			fmt.Printf("  %s: %d moves, %d inaccuracies, %d mistakes, %d blunders\n",
				m.Name(mark), p.Moves, p.Inaccuracies, p.Mistakes, p.Blunders)
		}
	}
}
