package engine

import (
	"math"
	"math/rand"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RolloutOptions controls rollout execution
type RolloutOptions struct {
	Trials  int        // Number of games to play (default 1000)
	Seed    int64      // RNG seed (0 = random)
	Workers int        // Number of parallel workers (0 = GOMAXPROCS)
	X       Difficulty // Difficulty of the X player
	O       Difficulty // Difficulty of the O player
}

// RolloutProgress contains progress information during a rollout
type RolloutProgress struct {
	TrialsCompleted int     // Number of trials completed so far
	TrialsTotal     int     // Total number of trials
	Percent         float64 // Percentage complete (0-100)
	CurrentScore    float64 // Current mean X score estimate
	CurrentCI       float64 // Current 95% confidence interval
}

// ProgressCallback is called periodically during rollout with progress updates
type ProgressCallback func(progress RolloutProgress)

// RolloutResult contains the results of a rollout
type RolloutResult struct {
	TrialsCompleted int
	XWins           int
	OWins           int
	Draws           int

	XWinRate float64
	OWinRate float64
	DrawRate float64

	// X score per game: +1 win, 0 draw, -1 loss
	MeanScore   float64
	ScoreStdDev float64
	ScoreCI     float64 // 95% confidence interval

	MeanLength   float64 // Mean number of moves played from the start position
	LengthStdDev float64
}

// partialResult holds results from a single worker batch
type partialResult struct {
	scores  []float64
	lengths []float64
	xWins   int
	oWins   int
	draws   int
}

// DefaultRolloutOptions returns sensible defaults
func DefaultRolloutOptions() RolloutOptions {
	return RolloutOptions{
		Trials:  1000,
		Seed:    0, // Random seed
		Workers: 0, // Use all cores
		X:       Medium,
		O:       Hard,
	}
}

// Rollout plays opts.Trials games from state to completion and reports the
// aggregate result. state is not modified.
func (e *Engine) Rollout(state *GameState, opts RolloutOptions) (*RolloutResult, error) {
	return e.RolloutWithProgress(state, opts, nil)
}

// RolloutWithProgress performs a rollout with periodic progress callbacks
// The callback is called after each batch of trials completes
func (e *Engine) RolloutWithProgress(state *GameState, opts RolloutOptions, callback ProgressCallback) (*RolloutResult, error) {
	if state == nil {
		return nil, invalidState("nil game state")
	}
	if out := state.Outcome(); out.Terminal() {
		return nil, invalidState("cannot roll out a finished game (%s)", out)
	}
	for _, d := range []Difficulty{opts.X, opts.O} {
		if d < Easy || d > Hard {
			return nil, invalidState("unknown difficulty %d", int(d))
		}
	}

	// Set defaults
	if opts.Trials <= 0 {
		opts.Trials = DefaultRolloutOptions().Trials
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Trials {
		opts.Workers = opts.Trials
	}
	if opts.Seed == 0 {
		opts.Seed = rand.Int63()
	}

	// Report progress approximately 20 times during the rollout
	batchSize := opts.Trials / 20
	if batchSize > opts.Trials/opts.Workers {
		batchSize = opts.Trials / opts.Workers
	}
	if batchSize < 1 {
		batchSize = 1
	}

	start := state.Clone()
	results := make(chan partialResult, opts.Workers*20)
	var wg sync.WaitGroup

	// Distribute trials across workers
	trialsPerWorker := opts.Trials / opts.Workers
	extraTrials := opts.Trials % opts.Workers

	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		workerTrials := trialsPerWorker
		if i < extraTrials {
			workerTrials++
		}
		workerSeed := opts.Seed + int64(i)*1000000

		go func(trials int, seed int64) {
			defer wg.Done()
			e.rolloutWorker(start, opts, trials, seed, batchSize, results)
		}(workerTrials, workerSeed)
	}

	// Close channel when all workers done
	go func() {
		wg.Wait()
		close(results)
	}()

	return aggregateResults(results, opts.Trials, callback), nil
}

// rolloutWorker plays its share of games and reports them in batches
func (e *Engine) rolloutWorker(start *GameState, opts RolloutOptions, trials int, seed int64, batchSize int, results chan<- partialResult) {
	rng := rand.New(rand.NewSource(seed))

	for trialsRemaining := trials; trialsRemaining > 0; {
		currentBatch := batchSize
		if currentBatch > trialsRemaining {
			currentBatch = trialsRemaining
		}

		pr := partialResult{
			scores:  make([]float64, 0, currentBatch),
			lengths: make([]float64, 0, currentBatch),
		}
		for i := 0; i < currentBatch; i++ {
			out, length := e.playOutGame(start, opts, rng)

			score := 0.0
			switch {
			case out.Status == Win && out.Winner == X:
				pr.xWins++
				score = 1
			case out.Status == Win:
				pr.oWins++
				score = -1
			default:
				pr.draws++
			}
			pr.scores = append(pr.scores, score)
			pr.lengths = append(pr.lengths, float64(length))
		}

		results <- pr
		trialsRemaining -= currentBatch
	}
}

// playOutGame plays one game from start and returns its outcome and the
// number of moves played.
func (e *Engine) playOutGame(start *GameState, opts RolloutOptions, rng RandSource) (Outcome, int) {
	gs := start.Clone()
	length := 0

	for !gs.Outcome().Terminal() {
		d := opts.X
		if gs.Turn == O {
			d = opts.O
		}
		move, err := e.chooseMove(gs, d, gs.Turn, rng)
		if err != nil {
			break
		}
		if err := gs.ApplyMove(move); err != nil {
			break
		}
		length++
	}

	return gs.Outcome(), length
}

// aggregateResults combines worker batches, calling callback after each one
func aggregateResults(results <-chan partialResult, totalTrials int, callback ProgressCallback) *RolloutResult {
	result := &RolloutResult{}
	scores := make([]float64, 0, totalTrials)
	lengths := make([]float64, 0, totalTrials)

	for pr := range results {
		scores = append(scores, pr.scores...)
		lengths = append(lengths, pr.lengths...)
		result.XWins += pr.xWins
		result.OWins += pr.oWins
		result.Draws += pr.draws

		if callback != nil {
			mean, ci := scoreEstimate(scores)
			callback(RolloutProgress{
				TrialsCompleted: len(scores),
				TrialsTotal:     totalTrials,
				Percent:         float64(len(scores)) / float64(totalTrials) * 100,
				CurrentScore:    mean,
				CurrentCI:       ci,
			})
		}
	}

	result.TrialsCompleted = len(scores)
	if result.TrialsCompleted == 0 {
		return result
	}

	n := float64(result.TrialsCompleted)
	result.XWinRate = float64(result.XWins) / n
	result.OWinRate = float64(result.OWins) / n
	result.DrawRate = float64(result.Draws) / n

	result.MeanScore, result.ScoreStdDev = stat.MeanStdDev(scores, nil)
	result.MeanLength, result.LengthStdDev = stat.MeanStdDev(lengths, nil)
	if n > 1 {
		// 95% confidence interval = 1.96 * stdErr
		result.ScoreCI = 1.96 * stat.StdErr(result.ScoreStdDev, n)
	} else {
		result.ScoreStdDev = 0
		result.LengthStdDev = 0
	}

	return result
}

// scoreEstimate returns the running mean and 95% CI of the X score
func scoreEstimate(scores []float64) (mean, ci float64) {
	n := float64(len(scores))
	if n == 0 {
		return 0, 0
	}
	mean = floats.Sum(scores) / n
	if n > 1 {
		ci = 1.96 * stat.StdDev(scores, nil) / math.Sqrt(n)
	}
	return mean, ci
}
