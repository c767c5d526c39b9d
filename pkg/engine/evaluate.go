package engine

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/yourusername/tttengine/internal/positionid"
)

// Score constants
const (
	WinScore  = 10 // Score of a win on the first ply, before the depth penalty
	DrawScore = 0
)

// RandSource is the randomness the engine draws from.
// *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
	Float64() float64
}

// lockedRand serializes access to a RandSource shared across goroutines
type lockedRand struct {
	mu  sync.Mutex
	src RandSource
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Engine chooses moves for the computer player
type Engine struct {
	rng   RandSource
	cache *ScoreCache // nil when caching is disabled
}

// EngineOptions configures the engine
type EngineOptions struct {
	Seed         int64      // RNG seed (0 = time-based)
	Rand         RandSource // Explicit random source, overrides Seed
	CacheSize    uint32     // Score cache size (0 = default)
	DisableCache bool       // Search without the score cache
}

// NewEngine creates a new engine with the given options
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.CacheSize > 1<<24 {
		return nil, fmt.Errorf("cache size %d too large (max %d)", opts.CacheSize, 1<<24)
	}

	src := opts.Rand
	if src == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		src = rand.New(rand.NewSource(seed))
	}

	e := &Engine{rng: &lockedRand{src: src}}

	if !opts.DisableCache {
		size := opts.CacheSize
		if size == 0 {
			size = DefaultCacheSize
		}
		e.cache = NewScoreCache(size)
	}

	return e, nil
}

// Cache returns the score cache, or nil if caching is disabled
func (e *Engine) Cache() *ScoreCache {
	return e.cache
}

// SearchResult is the outcome of a full minimax search from the root.
type SearchResult struct {
	Move  int // Chosen cell
	Score int // 10-plies for a forced win, plies-10 for a forced loss, 0 for a draw
	Nodes int // Positions visited (cache hits count once)
}

// ChooseMove returns the cell the computer playing mark picks at difficulty d.
// It fails with an *InvalidStateError when the game is over, when mark is not
// to move or when d is unknown. state is never modified.
func (e *Engine) ChooseMove(state *GameState, d Difficulty, mark Mark) (int, error) {
	return e.chooseMove(state, d, mark, e.rng)
}

func (e *Engine) chooseMove(state *GameState, d Difficulty, mark Mark, rng RandSource) (int, error) {
	if err := checkSearchable(state, mark); err != nil {
		return -1, err
	}

	moves := state.LegalMoves()

	switch d {
	case Easy:
		return moves[rng.Intn(len(moves))], nil
	case Medium:
		if rng.Float64() < MediumBestMoveProbability {
			return e.search(state.Board, mark).Move, nil
		}
		return moves[rng.Intn(len(moves))], nil
	case Hard:
		return e.search(state.Board, mark).Move, nil
	}
	return -1, invalidState("unknown difficulty %d", int(d))
}

// BestMove runs a full minimax search for mark and returns the best move with
// its score. Ties go to the lowest cell index.
func (e *Engine) BestMove(state *GameState, mark Mark) (SearchResult, error) {
	if err := checkSearchable(state, mark); err != nil {
		return SearchResult{Move: -1}, err
	}
	return e.search(state.Board, mark), nil
}

func checkSearchable(state *GameState, mark Mark) error {
	if state == nil {
		return invalidState("nil game state")
	}
	if mark != X && mark != O {
		return invalidState("mark must be X or O")
	}
	if out := state.Outcome(); out.Terminal() {
		return invalidState("game is already over (%s)", out)
	}
	if mark != state.Turn {
		return invalidState("%s asked to move but %s is to move", mark, state.Turn)
	}
	return nil
}

// search probes every empty cell in ascending order and keeps the first
// strictly greater score. b is a copy, so the caller's board is never touched.
func (e *Engine) search(b Board, mark Mark) SearchResult {
	s := &searcher{board: b, max: mark, cache: e.cache}

	best := SearchResult{Move: -1, Score: math.MinInt}
	for _, m := range s.rootScores() {
		if m.Score > best.Score {
			best.Move = m.Move
			best.Score = m.Score
		}
	}
	best.Nodes = s.nodes
	return best
}

// searcher holds the scratch board for one search
type searcher struct {
	board Board
	max   Mark
	cache *ScoreCache
	nodes int
}

// rootScores scores every empty cell for s.max in ascending index order.
func (s *searcher) rootScores() []MoveScore {
	var moves []MoveScore
	for i := 0; i < NumCells; i++ {
		if s.board[i] != Empty {
			continue
		}
		score := s.board.probe(i, s.max, func() int {
			return shift(s.value(s.max.Opponent()), 1)
		})
		moves = append(moves, MoveScore{Move: i, Score: score})
	}
	return moves
}

// value returns the minimax value of the current board for s.max with toMove
// to play. Values are relative to this node: a win n plies below scores
// WinScore-n, so they can be cached regardless of the path that reached it.
func (s *searcher) value(toMove Mark) int {
	s.nodes++

	switch out := s.board.Outcome(); out.Status {
	case Win:
		if out.Winner == s.max {
			return WinScore
		}
		return -WinScore
	case Draw:
		return DrawScore
	}

	var (
		key  positionid.PositionKey
		ctx  int32
		slot uint32
	)
	if s.cache != nil {
		key = s.board.Key()
		ctx = MakeSearchContext(s.max, toMove)
		var v int
		if v, slot = s.cache.Lookup(key, ctx); slot == CacheHit {
			return v
		}
	}

	maximizing := toMove == s.max
	best := WinScore + 1
	if maximizing {
		best = -best
	}

	for i := 0; i < NumCells; i++ {
		if s.board[i] != Empty {
			continue
		}
		v := s.board.probe(i, toMove, func() int {
			return shift(s.value(toMove.Opponent()), 1)
		})
		if (maximizing && v > best) || (!maximizing && v < best) {
			best = v
		}
	}

	if s.cache != nil {
		s.cache.Add(key, ctx, best, slot)
	}
	return best
}

// shift moves a score d plies further from the node that owns it:
// wins and losses lose magnitude, draws stay 0.
func shift(v, d int) int {
	switch {
	case v > 0:
		return v - d
	case v < 0:
		return v + d
	}
	return 0
}
