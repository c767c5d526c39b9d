// Package main provides C-compatible functions for building a shared library.
// Build with: go build -buildmode=c-shared -o libtttengine.so ./pkg/capi
//
// Every call returns its result as a JSON string. Failed calls return
// {"error": "..."} and record the message for ttt_last_error.
package main

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/yourusername/tttengine/pkg/engine"
)

const version = "0.1.0"

var errNotInitialized = errors.New("engine not initialized")

var (
	globalEngine *engine.Engine
	engineMutex  sync.RWMutex
	lastError    string
	errorMutex   sync.Mutex
)

// setError stores an error message for later retrieval.
func setError(err error) {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	if err != nil {
		lastError = err.Error()
	} else {
		lastError = ""
	}
}

func lastErrorMessage() string {
	errorMutex.Lock()
	defer errorMutex.Unlock()
	return lastError
}

func initEngine(seed int64, cacheSize uint32) error {
	engineMutex.Lock()
	defer engineMutex.Unlock()

	eng, err := engine.NewEngine(engine.EngineOptions{Seed: seed, CacheSize: cacheSize})
	if err != nil {
		setError(err)
		return err
	}
	globalEngine = eng
	setError(nil)
	return nil
}

func shutdownEngine() {
	engineMutex.Lock()
	defer engineMutex.Unlock()
	globalEngine = nil
}

func currentEngine() (*engine.Engine, error) {
	engineMutex.RLock()
	defer engineMutex.RUnlock()
	if globalEngine == nil {
		return nil, errNotInitialized
	}
	return globalEngine, nil
}

type moveResult struct {
	Move     int    `json:"move"`
	Mark     string `json:"mark"`
	Position string `json:"position"` // Position after the move
	Status   string `json:"status"`
}

type analyzeResult struct {
	Turn      string             `json:"turn"`
	Moves     []engine.MoveScore `json:"moves"`
	BestMove  int                `json:"best_move"`
	BestScore int                `json:"best_score"`
	NumLegal  int                `json:"num_legal"`
}

type tutorResult struct {
	Skill     string `json:"skill"`
	Loss      int    `json:"loss"`
	BestMove  int    `json:"best_move"`
	BestScore int    `json:"best_score"`
	Score     int    `json:"score"`
	IsForced  bool   `json:"is_forced"`
}

// respond marshals v, or the error as {"error": ...}, and records the error.
func respond(v interface{}, err error) (string, error) {
	setError(err)
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(data), err
	}
	data, err := json.Marshal(v)
	if err != nil {
		setError(err)
		return `{"error": "encoding failed"}`, err
	}
	return string(data), nil
}

func chooseMoveJSON(positionID, difficulty string) (string, error) {
	eng, err := currentEngine()
	if err != nil {
		return respond(nil, err)
	}
	gs, err := engine.ParsePosition(positionID)
	if err != nil {
		return respond(nil, err)
	}
	d := engine.Hard
	if difficulty != "" {
		if d, err = engine.ParseDifficulty(difficulty); err != nil {
			return respond(nil, err)
		}
	}

	mark := gs.Turn
	move, err := eng.ChooseMove(gs, d, mark)
	if err != nil {
		return respond(nil, err)
	}
	if err := gs.ApplyMove(move); err != nil {
		return respond(nil, err)
	}
	return respond(moveResult{
		Move:     move,
		Mark:     mark.String(),
		Position: gs.Board.PositionID(),
		Status:   gs.Outcome().Status.String(),
	}, nil)
}

func analyzeJSON(positionID string) (string, error) {
	eng, err := currentEngine()
	if err != nil {
		return respond(nil, err)
	}
	gs, err := engine.ParsePosition(positionID)
	if err != nil {
		return respond(nil, err)
	}
	analysis, err := eng.AnalyzePosition(gs)
	if err != nil {
		return respond(nil, err)
	}
	return respond(analyzeResult{
		Turn:      analysis.Mover.String(),
		Moves:     analysis.Moves,
		BestMove:  analysis.BestMove,
		BestScore: analysis.BestScore,
		NumLegal:  analysis.NumMoves,
	}, nil)
}

func tutorJSON(positionID string, index int) (string, error) {
	eng, err := currentEngine()
	if err != nil {
		return respond(nil, err)
	}
	gs, err := engine.ParsePosition(positionID)
	if err != nil {
		return respond(nil, err)
	}
	ms, err := eng.AnalyzeMoveSkill(gs, index)
	if err != nil {
		return respond(nil, err)
	}
	return respond(tutorResult{
		Skill:     strings.ToLower(ms.Skill.String()),
		Loss:      ms.Loss,
		BestMove:  ms.BestMove,
		BestScore: ms.BestScore,
		Score:     ms.Score,
		IsForced:  ms.IsForced,
	}, nil)
}

func main() {}
