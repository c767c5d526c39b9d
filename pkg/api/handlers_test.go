package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"

	"github.com/yourusername/tttengine/pkg/engine"
)

// getTestEngine returns a seeded engine for testing.
func getTestEngine(t testing.TB) *engine.Engine {
	t.Helper()
	eng, err := engine.NewEngine(engine.EngineOptions{Seed: 42})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

// newTestServer returns a routed server whose computer replies without delay.
func newTestServer(t testing.TB) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ComputerDelay = 0
	s := NewServer(getTestEngine(t), cfg, "test")
	t.Cleanup(s.cancel)
	return s
}

// doJSON sends body (a string is sent verbatim) and returns the recorded response.
func doJSON(t testing.TB, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t testing.TB, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Decode error: %v (body %q)", err, w.Body.String())
	}
}

// checkError asserts an error response with the given status and code.
func checkError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("Status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	if resp.Code != code {
		t.Errorf("Code = %q, want %q", resp.Code, code)
	}
	if resp.Error == "" {
		t.Error("Expected an error message")
	}
}

func intPtr(i int) *int { return &i }

func TestHealthHandler(t *testing.T) {
	h := NewHandlers(nil, "test-version")

	w := doJSON(t, http.HandlerFunc(h.Health), "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Health status = %d, want %d", w.Code, http.StatusOK)
	}

	var health HealthResponse
	decodeBody(t, w, &health)

	if health.Status != "ok" {
		t.Errorf("Status = %q, want %q", health.Status, "ok")
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want %q", health.Version, "test-version")
	}
	if health.Ready {
		t.Error("Expected ready = false without an engine")
	}
	if health.Cache != nil {
		t.Error("Expected no cache stats without an engine")
	}
}

func TestHealthHandlerReady(t *testing.T) {
	s := newTestServer(t)
	s.handlers.sessions.Create(DefaultSessionConfig())

	w := doJSON(t, s.Handler(), "GET", "/api/health", nil)

	var health HealthResponse
	decodeBody(t, w, &health)

	if !health.Ready {
		t.Error("Expected ready = true when engine is set")
	}
	if health.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", health.Sessions)
	}
	if health.Pool == nil || health.Pool.MaxSlow != DefaultPoolConfig().MaxSlowWorkers {
		t.Errorf("Pool = %+v, want default slow slots", health.Pool)
	}
	if health.Cache == nil || health.Cache.Size != engine.DefaultCacheSize {
		t.Errorf("Cache = %+v, want size %d", health.Cache, engine.DefaultCacheSize)
	}
}

func TestStateHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	tests := []struct {
		name string
		pos  string
		want StateResponse
	}{
		{
			name: "empty board",
			pos:  "---------",
			want: StateResponse{
				Position: "---------", Turn: "X", Status: "in_progress",
				LegalMoves: []int{0, 1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		{
			name: "O to move",
			pos:  "X---O---X",
			want: StateResponse{
				Position: "X---O---X", Turn: "O", Status: "in_progress",
				LegalMoves: []int{1, 2, 3, 5, 6, 7},
			},
		},
		{
			name: "row notation",
			pos:  "xx-/oo-/---",
			want: StateResponse{
				Position: "XX-OO----", Turn: "X", Status: "in_progress",
				LegalMoves: []int{2, 5, 6, 7, 8},
			},
		},
		{
			name: "X wins",
			pos:  "XXXOO----",
			want: StateResponse{
				Position: "XXXOO----", Turn: "X", Status: "win", Winner: "X",
				WinningLine: []int{0, 1, 2}, LegalMoves: []int{},
			},
		},
		{
			name: "draw",
			pos:  "XOXXOOOXX",
			want: StateResponse{
				Position: "XOXXOOOXX", Turn: "X", Status: "draw", LegalMoves: []int{},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.State), "POST", "/api/state", StateRequest{Position: tc.pos})
			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
			}

			var got StateResponse
			decodeBody(t, w, &got)

			// The compact ID must name the same board
			gs, err := engine.ParsePosition(got.CompactID)
			if err != nil {
				t.Fatalf("ParsePosition(%q): %v", got.CompactID, err)
			}
			if gs.Board.PositionID() != tc.want.Position {
				t.Errorf("CompactID %q decodes to %q, want %q", got.CompactID, gs.Board.PositionID(), tc.want.Position)
			}

			got.CompactID = ""
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("State mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStateHandlerErrors(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"empty position", StateRequest{}, http.StatusBadRequest, "MISSING_POSITION"},
		{"bad characters", StateRequest{Position: "invalid!!"}, http.StatusBadRequest, "INVALID_POSITION"},
		{"too many X", StateRequest{Position: "XXXXX----"}, http.StatusBadRequest, "INVALID_POSITION"},
		{"both sides win", StateRequest{Position: "XXXOOO---"}, http.StatusBadRequest, "INVALID_POSITION"},
		{"move after win", StateRequest{Position: "XXXOO-O--"}, http.StatusBadRequest, "INVALID_POSITION"},
		{"invalid json", "not json", http.StatusBadRequest, "INVALID_JSON"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.State), "POST", "/api/state", tc.body)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

func TestApplyHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	w := doJSON(t, http.HandlerFunc(h.Apply), "POST", "/api/apply", ApplyRequest{Position: "XX-OO----", Index: intPtr(2)})
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}
	var got StateResponse
	decodeBody(t, w, &got)
	if got.Position != "XXXOO----" || got.Status != "win" || got.Winner != "X" {
		t.Errorf("Apply result = %+v, want X win on XXXOO----", got)
	}

	tests := []struct {
		name       string
		body       ApplyRequest
		wantStatus int
		wantCode   string
	}{
		{"occupied", ApplyRequest{Position: "X--------", Index: intPtr(0)}, http.StatusConflict, "ILLEGAL_MOVE"},
		{"out of range", ApplyRequest{Position: "X--------", Index: intPtr(9)}, http.StatusConflict, "ILLEGAL_MOVE"},
		{"negative", ApplyRequest{Position: "X--------", Index: intPtr(-1)}, http.StatusConflict, "ILLEGAL_MOVE"},
		{"game over", ApplyRequest{Position: "XXXOO----", Index: intPtr(5)}, http.StatusConflict, "ILLEGAL_MOVE"},
		{"missing index", ApplyRequest{Position: "X--------"}, http.StatusBadRequest, "MISSING_INDEX"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.Apply), "POST", "/api/apply", tc.body)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

func TestMoveHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	t.Run("hard takes the win", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.Move), "POST", "/api/move", MoveRequest{Position: "XX-OO----"})
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		var got MoveResponse
		decodeBody(t, w, &got)
		if got.Move != 2 || got.Mark != "X" || got.Difficulty != "hard" {
			t.Errorf("Move = %d %s %s, want 2 X hard", got.Move, got.Mark, got.Difficulty)
		}
		if got.State.Status != "win" || got.State.Winner != "X" {
			t.Errorf("State = %+v, want X win", got.State)
		}
	})

	t.Run("O blocks", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.Move), "POST", "/api/move",
			MoveRequest{Position: "XX--O----", Difficulty: "HARD", Mark: "o"})
		var got MoveResponse
		decodeBody(t, w, &got)
		if got.Move != 2 || got.Mark != "O" {
			t.Errorf("Move = %d %s, want 2 O", got.Move, got.Mark)
		}
	})

	for _, d := range []string{"easy", "medium"} {
		t.Run(d, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.Move), "POST", "/api/move",
				MoveRequest{Position: "X---O----", Difficulty: d})
			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
			}
			var got MoveResponse
			decodeBody(t, w, &got)
			if got.Move < 0 || got.Move > 8 || got.Move == 0 || got.Move == 4 {
				t.Errorf("Move = %d, want an empty cell", got.Move)
			}
		})
	}

	errTests := []struct {
		name       string
		body       MoveRequest
		wantStatus int
		wantCode   string
	}{
		{"bad difficulty", MoveRequest{Position: "---------", Difficulty: "expert"}, http.StatusBadRequest, "INVALID_DIFFICULTY"},
		{"bad mark", MoveRequest{Position: "---------", Mark: "Z"}, http.StatusBadRequest, "INVALID_MARK"},
		{"not its turn", MoveRequest{Position: "X--------", Mark: "X"}, http.StatusConflict, "INVALID_STATE"},
		{"finished", MoveRequest{Position: "XXXOO----"}, http.StatusConflict, "INVALID_STATE"},
		{"drawn", MoveRequest{Position: "XOXXOOOXX"}, http.StatusConflict, "INVALID_STATE"},
		{"unreachable", MoveRequest{Position: "OO-------"}, http.StatusBadRequest, "INVALID_POSITION"},
	}

	for _, tc := range errTests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.Move), "POST", "/api/move", tc.body)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

func TestAnalyzeHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	t.Run("empty board", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.Analyze), "POST", "/api/analyze",
			AnalyzeRequest{Position: "---------", NumMoves: 3})
		var got AnalyzeResponse
		decodeBody(t, w, &got)

		if got.NumLegal != 9 {
			t.Errorf("NumLegal = %d, want 9", got.NumLegal)
		}
		if len(got.Moves) != 3 {
			t.Fatalf("len(Moves) = %d, want 3", len(got.Moves))
		}
		if got.BestMove != 0 || got.BestScore != 0 {
			t.Errorf("Best = %d (%d), want 0 (0)", got.BestMove, got.BestScore)
		}
		for _, m := range got.Moves {
			if m.Result != "draw" {
				t.Errorf("Move %d result = %q, want draw", m.Move, m.Result)
			}
		}
		if got.Nodes <= 0 {
			t.Errorf("Nodes = %d, want > 0", got.Nodes)
		}
	})

	t.Run("winning move ranked first", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.Analyze), "POST", "/api/analyze", AnalyzeRequest{Position: "XX-OO----"})
		var got AnalyzeResponse
		decodeBody(t, w, &got)

		want := MoveScoreResponse{Move: 2, Score: 9, Result: "win"}
		if len(got.Moves) != 5 {
			t.Fatalf("len(Moves) = %d, want 5", len(got.Moves))
		}
		if diff := cmp.Diff(want, got.Moves[0]); diff != "" {
			t.Errorf("Top move mismatch (-want +got):\n%s", diff)
		}
		for i := 1; i < len(got.Moves); i++ {
			if got.Moves[i].Score > got.Moves[i-1].Score {
				t.Errorf("Moves not sorted: %v", got.Moves)
			}
		}
	})

	t.Run("finished game", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.Analyze), "POST", "/api/analyze", AnalyzeRequest{Position: "XXXOO----"})
		checkError(t, w, http.StatusConflict, "INVALID_STATE")
	})
}

func TestTutorMoveHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	tests := []struct {
		name       string
		pos        string
		index      int
		wantNone   bool
		wantForced bool
	}{
		{"best move", "XX-OO----", 2, true, false},
		{"misses the win", "XX-OO----", 5, false, false},
		{"forced", "XOXXOOOX-", 8, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.HandleTutorMove), "POST", "/api/tutor/move",
				TutorMoveRequest{Position: tc.pos, Index: intPtr(tc.index)})
			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
			}
			var got TutorMoveResponse
			decodeBody(t, w, &got)

			if (got.Skill == "none") != tc.wantNone {
				t.Errorf("Skill = %q, wantNone %v", got.Skill, tc.wantNone)
			}
			if got.IsForced != tc.wantForced {
				t.Errorf("IsForced = %v, want %v", got.IsForced, tc.wantForced)
			}
			if got.Loss != got.BestScore-got.PlayedScore {
				t.Errorf("Loss = %d, want %d", got.Loss, got.BestScore-got.PlayedScore)
			}
			if got.Suggestion == "" {
				t.Error("Expected a suggestion")
			}
			if !tc.wantNone && !strings.Contains(got.Suggestion, "Cell 2") {
				t.Errorf("Suggestion = %q, want it to name cell 2", got.Suggestion)
			}
		})
	}

	w := doJSON(t, http.HandlerFunc(h.HandleTutorMove), "POST", "/api/tutor/move",
		TutorMoveRequest{Position: "XX-OO----", Index: intPtr(0)})
	checkError(t, w, http.StatusConflict, "ILLEGAL_MOVE")
}

func TestTutorGameHandler(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	// O answers the corner on an edge and loses
	check := func(t *testing.T, req TutorGameRequest) {
		t.Helper()
		w := doJSON(t, http.HandlerFunc(h.HandleTutorGame), "POST", "/api/tutor/game", req)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}
		var got GameAnalysisResponse
		decodeBody(t, w, &got)

		if got.Status != "win" || got.Winner != "X" || got.TotalMoves != 5 {
			t.Errorf("Got %s/%s after %d moves, want win/X after 5", got.Status, got.Winner, got.TotalMoves)
		}
		if len(got.Moves) != 5 || got.Moves[1].Skill != "blunder" || got.Moves[1].SkillAbbr != "??" {
			t.Errorf("Moves = %+v, want the second move graded a blunder", got.Moves)
		}
		if len(got.MoveErrors) == 0 {
			t.Fatal("Expected move errors")
		}
		want := MoveError{MoveNumber: 2, Player: "O", Position: "X--------", Played: 1, Best: 4, Loss: got.MoveErrors[0].Loss, Skill: "blunder"}
		if diff := cmp.Diff(want, got.MoveErrors[0]); diff != "" {
			t.Errorf("First error mismatch (-want +got):\n%s", diff)
		}
		if got.Players.O.Rating != "Beginner" || got.Players.O.Blunders != 1 || got.Players.O.Moves != 2 {
			t.Errorf("O stats = %+v, want 2 moves with 1 blunder", got.Players.O)
		}
		if len(got.Suggestions) == 0 || !strings.Contains(got.Suggestions[0], "O had 1 blunder") {
			t.Errorf("Suggestions = %q, want O's blunder first", got.Suggestions)
		}
	}

	t.Run("moves", func(t *testing.T) {
		check(t, TutorGameRequest{Moves: []int{0, 1, 4, 2, 8}})
	})
	t.Run("sgf record", func(t *testing.T) {
		check(t, TutorGameRequest{
			Record: "(;FF[4];B[aa];W[ba];B[bb];W[ca];B[cc])(;FF[4];B[bb])",
			Game:   1,
		})
	})
	t.Run("text record", func(t *testing.T) {
		check(t, TutorGameRequest{
			Record: "Game 1\n  1) 0    1\n  2) 4    2\n  3) 8\n",
			Format: "text",
		})
	})

	t.Run("perfect play", func(t *testing.T) {
		w := doJSON(t, http.HandlerFunc(h.HandleTutorGame), "POST", "/api/tutor/game",
			TutorGameRequest{Moves: []int{4, 0}})
		var got GameAnalysisResponse
		decodeBody(t, w, &got)
		if got.Status != "in_progress" || len(got.MoveErrors) != 0 {
			t.Errorf("Got %+v, want an unfinished game without errors", got)
		}
		if got.Players.X.Rating != "Perfect" {
			t.Errorf("X rating = %q, want Perfect", got.Players.X.Rating)
		}
		if diff := cmp.Diff([]string{"Good game! Both players played well."}, got.Suggestions); diff != "" {
			t.Errorf("Suggestions mismatch (-want +got):\n%s", diff)
		}
	})

	errTests := []struct {
		name       string
		req        TutorGameRequest
		wantStatus int
		wantCode   string
	}{
		{"empty", TutorGameRequest{}, http.StatusBadRequest, "MISSING_MOVES"},
		{"unknown format", TutorGameRequest{Record: "x", Format: "pgn"}, http.StatusBadRequest, "INVALID_FORMAT"},
		{"bad record", TutorGameRequest{Record: "(;FF[4];B[aa];W[aa])"}, http.StatusBadRequest, "INVALID_RECORD"},
		{"missing game", TutorGameRequest{Record: "(;FF[4];B[bb])", Game: 3}, http.StatusBadRequest, "INVALID_GAME"},
		{"illegal move", TutorGameRequest{Moves: []int{0, 0}}, http.StatusConflict, "ILLEGAL_MOVE"},
	}
	for _, tc := range errTests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.HandleTutorGame), "POST", "/api/tutor/game", tc.req)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

func TestRolloutHandler(t *testing.T) {
	h := NewHandlersWithPool(getTestEngine(t), "1.0.0", NewWorkerPool(DefaultPoolConfig()))

	w := doJSON(t, http.HandlerFunc(h.Rollout), "POST", "/api/rollout",
		RolloutRequest{Trials: 20, Seed: 7, X: "hard", O: "hard"})
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
	}

	var got RolloutResponse
	decodeBody(t, w, &got)

	// Perfect play from the empty board always draws
	want := RolloutResponse{Trials: 20, Draws: 20, DrawRate: 100, MeanLength: 9, X: "hard", O: "hard"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rollout mismatch (-want +got):\n%s", diff)
	}

	if stats := h.pool.Stats(); stats.TotalSlow != 1 || stats.ActiveSlow != 0 {
		t.Errorf("Pool stats = %+v, want one finished slow request", stats)
	}

	errTests := []struct {
		name       string
		body       RolloutRequest
		wantStatus int
		wantCode   string
	}{
		{"too many trials", RolloutRequest{Trials: maxRolloutTrials + 1}, http.StatusBadRequest, "INVALID_TRIALS"},
		{"bad difficulty", RolloutRequest{Trials: 10, X: "grandmaster"}, http.StatusBadRequest, "INVALID_DIFFICULTY"},
		{"finished game", RolloutRequest{Position: "XXXOO----", Trials: 10}, http.StatusConflict, "INVALID_STATE"},
	}

	for _, tc := range errTests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, http.HandlerFunc(h.Rollout), "POST", "/api/rollout", tc.body)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

// ============================================================================
// Game Session Tests
// ============================================================================

func createGame(t *testing.T, h http.Handler, req CreateGameRequest) GameResponse {
	t.Helper()
	w := doJSON(t, h, "POST", "/api/games", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, want %d (body %s)", w.Code, http.StatusCreated, w.Body.String())
	}
	var g GameResponse
	decodeBody(t, w, &g)
	return g
}

func playGame(t *testing.T, h http.Handler, id string, index int) GameResponse {
	t.Helper()
	w := doJSON(t, h, "POST", "/api/games/"+id+"/move", GameMoveRequest{Index: intPtr(index)})
	if w.Code != http.StatusOK {
		t.Fatalf("Move %d status = %d, want %d (body %s)", index, w.Code, http.StatusOK, w.Body.String())
	}
	var g GameResponse
	decodeBody(t, w, &g)
	return g
}

func TestGameSessionTwoPlayer(t *testing.T) {
	h := newTestServer(t).Handler()
	vs := false

	g := createGame(t, h, CreateGameRequest{VsComputer: &vs})
	if g.ID == "" {
		t.Fatal("Expected a session ID")
	}
	if g.Message != "Player X's turn" {
		t.Errorf("Message = %q, want %q", g.Message, "Player X's turn")
	}

	for _, i := range []int{0, 3, 1, 4} {
		g = playGame(t, h, g.ID, i)
		if g.ComputerMove != nil {
			t.Fatalf("Unexpected computer move %d in a two-player game", *g.ComputerMove)
		}
	}
	g = playGame(t, h, g.ID, 2)

	if g.Message != "Player X Wins!" {
		t.Errorf("Message = %q, want %q", g.Message, "Player X Wins!")
	}
	if diff := cmp.Diff(ScoreboardResponse{X: 1}, g.Scores); diff != "" {
		t.Errorf("Scores mismatch (-want +got):\n%s", diff)
	}

	w := doJSON(t, h, "POST", "/api/games/"+g.ID+"/move", GameMoveRequest{Index: intPtr(5)})
	checkError(t, w, http.StatusConflict, "ILLEGAL_MOVE")

	w = doJSON(t, h, "POST", "/api/games/"+g.ID+"/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Reset status = %d, want %d", w.Code, http.StatusOK)
	}
	decodeBody(t, w, &g)
	if g.State.Position != "---------" || g.Scores.X != 1 {
		t.Errorf("After reset: position %q scores %+v, want empty board and kept scores", g.State.Position, g.Scores)
	}

	w = doJSON(t, h, "GET", "/api/games/"+g.ID, nil)
	var got GameResponse
	decodeBody(t, w, &got)
	if diff := cmp.Diff(g, got); diff != "" {
		t.Errorf("GET mismatch (-want +got):\n%s", diff)
	}

	w = doJSON(t, h, "DELETE", "/api/games/"+g.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Delete status = %d, want %d", w.Code, http.StatusNoContent)
	}
	w = doJSON(t, h, "GET", "/api/games/"+g.ID, nil)
	checkError(t, w, http.StatusNotFound, "GAME_NOT_FOUND")
}

func TestGameSessionVsComputer(t *testing.T) {
	h := newTestServer(t).Handler()

	g := createGame(t, h, CreateGameRequest{Difficulty: "hard"})
	if !g.VsComputer || g.ComputerMark != "O" || g.Difficulty != "hard" {
		t.Fatalf("Game = %+v, want hard computer playing O", g)
	}

	g = playGame(t, h, g.ID, 0)
	if g.ComputerMove == nil {
		t.Fatal("Expected a computer reply")
	}
	// Hard answers a corner with the centre
	if *g.ComputerMove != 4 {
		t.Errorf("ComputerMove = %d, want 4", *g.ComputerMove)
	}
	if g.State.Turn != "X" || len(g.State.LegalMoves) != 7 {
		t.Errorf("State = %+v, want X to move with 7 empty cells", g.State)
	}
}

func TestGameSessionComputerOpens(t *testing.T) {
	h := newTestServer(t).Handler()

	g := createGame(t, h, CreateGameRequest{Difficulty: "hard", ComputerMark: "X", PlayerO: "Ada"})
	if g.ComputerMove == nil || *g.ComputerMove != 0 {
		t.Fatalf("ComputerMove = %v, want 0", g.ComputerMove)
	}
	if g.State.Position != "X--------" {
		t.Errorf("Position = %q, want %q", g.State.Position, "X--------")
	}
	if g.Message != "Ada's turn" {
		t.Errorf("Message = %q, want %q", g.Message, "Ada's turn")
	}
}

func TestGameSettingsHandler(t *testing.T) {
	h := newTestServer(t).Handler()
	vs := false

	g := createGame(t, h, CreateGameRequest{VsComputer: &vs})
	g = playGame(t, h, g.ID, 4)

	name := "Alice"
	w := doJSON(t, h, "POST", "/api/games/"+g.ID+"/settings", GameSettingsRequest{PlayerO: &name})
	decodeBody(t, w, &g)
	if g.Message != "Alice's turn" || g.State.Position != "----X----" {
		t.Errorf("After rename: %q on %q, want Alice to move on the same board", g.Message, g.State.Position)
	}

	vs = true
	mark := "X"
	w = doJSON(t, h, "POST", "/api/games/"+g.ID+"/settings", GameSettingsRequest{VsComputer: &vs, ComputerMark: &mark})
	decodeBody(t, w, &g)
	if !g.VsComputer || g.ComputerMove == nil {
		t.Fatalf("After toggle: %+v, want computer opening a new board", g)
	}
	if strings.Count(g.State.Position, "X") != 1 || strings.Contains(g.State.Position, "O") {
		t.Errorf("Position = %q, want a new board with one X", g.State.Position)
	}

	bad := "impossible"
	w = doJSON(t, h, "POST", "/api/games/"+g.ID+"/settings", GameSettingsRequest{Difficulty: &bad})
	checkError(t, w, http.StatusBadRequest, "INVALID_DIFFICULTY")
}

func TestGameRecordAndReview(t *testing.T) {
	h := newTestServer(t).Handler()
	vs := false

	g := createGame(t, h, CreateGameRequest{VsComputer: &vs, PlayerX: "Ada", PlayerO: "Ben"})
	for _, i := range []int{0, 3, 1, 4, 2} {
		playGame(t, h, g.ID, i)
	}

	w := doJSON(t, h, "GET", "/api/games/"+g.ID+"/record?format=sgf", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Record status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-go-sgf") {
		t.Errorf("Content-Type = %q, want SGF", ct)
	}
	for _, want := range []string{"PB[Ada]", "PW[Ben]", "RE[B+]", ";B[aa];W[ab];B[ba];W[bb];B[ca])"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("SGF record missing %q:\n%s", want, w.Body.String())
		}
	}

	w = doJSON(t, h, "GET", "/api/games/"+g.ID+"/review", nil)
	var review GameAnalysisResponse
	decodeBody(t, w, &review)
	if review.Status != "win" || review.Winner != "X" || review.TotalMoves != 5 {
		t.Errorf("Review = %s/%s after %d moves, want win/X after 5", review.Status, review.Winner, review.TotalMoves)
	}

	doJSON(t, h, "POST", "/api/games/"+g.ID+"/reset", nil)
	playGame(t, h, g.ID, 4)

	w = doJSON(t, h, "GET", "/api/games/"+g.ID+"/record?format=text", nil)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text", ct)
	}
	body := w.Body.String()
	for _, want := range []string{`; [Player X "Ada"]`, "Game 2", "Ada : 1", "Result: X wins", "Result: In progress"} {
		if !strings.Contains(body, want) {
			t.Errorf("Text record missing %q:\n%s", want, body)
		}
	}

	w = doJSON(t, h, "GET", "/api/games/"+g.ID+"/review", nil)
	decodeBody(t, w, &review)
	if review.Status != "in_progress" || review.TotalMoves != 1 {
		t.Errorf("Review = %s after %d moves, want in_progress after 1", review.Status, review.TotalMoves)
	}

	w = doJSON(t, h, "GET", "/api/games/"+g.ID+"/record?format=xml", nil)
	checkError(t, w, http.StatusBadRequest, "INVALID_FORMAT")
	w = doJSON(t, h, "GET", "/api/games/nope/record", nil)
	checkError(t, w, http.StatusNotFound, "GAME_NOT_FOUND")
	w = doJSON(t, h, "GET", "/api/games/nope/review", nil)
	checkError(t, w, http.StatusNotFound, "GAME_NOT_FOUND")
}

func TestGameHandlerErrors(t *testing.T) {
	h := newTestServer(t).Handler()
	g := createGame(t, h, CreateGameRequest{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"unknown id", "GET", "/api/games/00000000-0000-0000-0000-000000000000", nil, http.StatusNotFound, "GAME_NOT_FOUND"},
		{"malformed id", "GET", "/api/games/nope", nil, http.StatusNotFound, "GAME_NOT_FOUND"},
		{"move on unknown id", "POST", "/api/games/nope/move", GameMoveRequest{Index: intPtr(0)}, http.StatusNotFound, "GAME_NOT_FOUND"},
		{"missing index", "POST", "/api/games/" + g.ID + "/move", GameMoveRequest{}, http.StatusBadRequest, "MISSING_INDEX"},
		{"bad mark", "POST", "/api/games", CreateGameRequest{ComputerMark: "Q"}, http.StatusBadRequest, "INVALID_MARK"},
		{"bad json", "POST", "/api/games", "{", http.StatusBadRequest, "INVALID_JSON"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, h, tc.method, tc.path, tc.body)
			checkError(t, w, tc.wantStatus, tc.wantCode)
		})
	}
}

// ============================================================================
// SSE Tests
// ============================================================================

func TestRolloutSSE(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	server := httptest.NewServer(http.HandlerFunc(h.RolloutSSE))
	defer server.Close()

	resp, err := http.Get(server.URL + "?trials=40&seed=3&x=easy&o=hard")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	text := string(body)

	for _, event := range []string{"event: progress", "event: result", "event: done"} {
		if !strings.Contains(text, event) {
			t.Errorf("Stream missing %q:\n%s", event, text)
		}
	}
	if strings.Index(text, "event: result") > strings.Index(text, "event: done") {
		t.Error("done event sent before result")
	}
}

func TestRolloutSSEError(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")

	server := httptest.NewServer(http.HandlerFunc(h.RolloutSSE))
	defer server.Close()

	resp, err := http.Get(server.URL + "?position=bad")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "event: error") {
		t.Errorf("Expected error event, got:\n%s", body)
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		in   string
		def  int
		want int
	}{
		{"", 5, 5},
		{"12", 5, 12},
		{"-3", 5, -3},
		{"abc", 5, 5},
		{"7x", 5, 5},
	}
	for _, tc := range tests {
		if got := parseIntParam(tc.in, tc.def); got != tc.want {
			t.Errorf("parseIntParam(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func dialTestWS(t *testing.T, h *Handlers) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(h.WebSocket))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Errorf("Status = %d, want %d", resp.StatusCode, http.StatusSwitchingProtocols)
	}
	return ws
}

// roundTrip sends one message and reads its response.
func roundTrip(t *testing.T, ws *websocket.Conn, msgType, id string, payload interface{}) WSResponse {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	if err := ws.WriteJSON(WSMessage{Type: msgType, ID: id, Payload: raw}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp WSResponse
	if err := ws.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if resp.ID != id {
		t.Errorf("Response ID = %q, want %q", resp.ID, id)
	}
	return resp
}

// decodePayload converts a generic response payload into v.
func decodePayload(t *testing.T, resp WSResponse, v interface{}) {
	t.Helper()
	if resp.Type != "result" {
		t.Fatalf("Response type = %q (%s), want result", resp.Type, resp.Error)
	}
	data, _ := json.Marshal(resp.Payload)
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Payload decode error: %v", err)
	}
}

func TestWebSocketPing(t *testing.T) {
	ws := dialTestWS(t, NewHandlers(getTestEngine(t), "1.0.0"))

	resp := roundTrip(t, ws, "ping", "test-ping-1", nil)
	if resp.Type != "pong" {
		t.Errorf("Response type = %q, want %q", resp.Type, "pong")
	}
}

func TestWebSocketMove(t *testing.T) {
	ws := dialTestWS(t, NewHandlers(getTestEngine(t), "1.0.0"))

	var move MoveResponse
	decodePayload(t, roundTrip(t, ws, "move", "move-1", MoveRequest{Position: "XX--O----", Difficulty: "hard"}), &move)
	if move.Move != 2 || move.Mark != "O" {
		t.Errorf("Move = %d %s, want 2 O", move.Move, move.Mark)
	}

	var state StateResponse
	decodePayload(t, roundTrip(t, ws, "apply", "apply-1", ApplyRequest{Position: move.State.Position, Index: intPtr(8)}), &state)
	if state.Position != "XXO-O---X" {
		t.Errorf("Position = %q, want X on 8", state.Position)
	}

	var analysis AnalyzeResponse
	decodePayload(t, roundTrip(t, ws, "analyze", "analyze-1", AnalyzeRequest{Position: "XX-OO----"}), &analysis)
	if analysis.BestMove != 2 {
		t.Errorf("BestMove = %d, want 2", analysis.BestMove)
	}

	var review GameAnalysisResponse
	decodePayload(t, roundTrip(t, ws, "tutor_game", "review-1", TutorGameRequest{Moves: []int{0, 3, 1, 4, 2}}), &review)
	if review.Winner != "X" || review.TotalMoves != 5 {
		t.Errorf("Review = %s after %d moves, want X after 5", review.Winner, review.TotalMoves)
	}
}

func TestWebSocketGameMove(t *testing.T) {
	h := NewHandlers(getTestEngine(t), "1.0.0")
	cfg := DefaultSessionConfig()
	cfg.Difficulty = engine.Hard
	s := h.sessions.Create(cfg)

	ws := dialTestWS(t, h)

	var g GameResponse
	decodePayload(t, roundTrip(t, ws, "game_move", "g-1", WSGameMoveRequest{Game: s.ID(), Index: intPtr(0)}), &g)
	if g.ComputerMove == nil || *g.ComputerMove != 4 {
		t.Errorf("ComputerMove = %v, want 4", g.ComputerMove)
	}
	if g.ID != s.ID() {
		t.Errorf("ID = %q, want %q", g.ID, s.ID())
	}
}

func TestWebSocketErrors(t *testing.T) {
	ws := dialTestWS(t, NewHandlers(getTestEngine(t), "1.0.0"))

	tests := []struct {
		name     string
		msgType  string
		payload  interface{}
		wantCode string
	}{
		{"unknown type", "unknown", nil, "UNKNOWN_TYPE"},
		{"invalid payload", "move", []int{1, 2}, "INVALID_JSON"},
		{"invalid position", "state", StateRequest{Position: "invalid!!!"}, "INVALID_POSITION"},
		{"occupied cell", "apply", ApplyRequest{Position: "X--------", Index: intPtr(0)}, "ILLEGAL_MOVE"},
		{"finished game", "move", MoveRequest{Position: "XXXOO----"}, "INVALID_STATE"},
		{"unknown game", "game_move", WSGameMoveRequest{Game: "nope", Index: intPtr(0)}, "GAME_NOT_FOUND"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := roundTrip(t, ws, tc.msgType, tc.name, tc.payload)
			if resp.Type != "error" {
				t.Errorf("Response type = %q, want %q", resp.Type, "error")
			}
			if resp.Code != tc.wantCode {
				t.Errorf("Code = %q (%s), want %q", resp.Code, resp.Error, tc.wantCode)
			}
		})
	}
}
