package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // "state", "apply", "move", "analyze", "tutor", "tutor_game", "game_move", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // Response type: "result", "error", "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
	Code    string      `json:"code,omitempty"`    // Error code if any
}

// WSGameMoveRequest plays a human move in a game session.
type WSGameMoveRequest struct {
	Game  string `json:"game"`  // Session ID
	Index *int   `json:"index"` // Cell 0-8
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
}

// WebSocket handles WebSocket connections for interactive play and analysis.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	client := &WSClient{conn: conn, handlers: h, sendChan: make(chan WSResponse, 256)}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() { close(c.sendChan); c.conn.Close() }()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	h := c.handlers
	switch msg.Type {
	case "state":
		var req StateRequest
		c.run(msg, &req, func() (interface{}, error) { return h.describe(req) })
	case "apply":
		var req ApplyRequest
		c.run(msg, &req, func() (interface{}, error) { return h.apply(req) })
	case "move":
		var req MoveRequest
		c.run(msg, &req, func() (interface{}, error) { return h.chooseMove(req) })
	case "analyze":
		var req AnalyzeRequest
		c.run(msg, &req, func() (interface{}, error) { return h.analyze(req) })
	case "tutor":
		var req TutorMoveRequest
		c.run(msg, &req, func() (interface{}, error) { return h.tutorMove(req) })
	case "tutor_game":
		var req TutorGameRequest
		c.run(msg, &req, func() (interface{}, error) { return h.tutorGame(req) })
	case "game_move":
		var req WSGameMoveRequest
		c.run(msg, &req, func() (interface{}, error) {
			return h.gameMove(req.Game, GameMoveRequest{Index: req.Index})
		})
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type", Code: "UNKNOWN_TYPE"}
	}
}

// run decodes the payload into req and replies with the result of fn.
func (c *WSClient) run(msg WSMessage, req interface{}, fn func() (interface{}, error)) {
	if err := json.Unmarshal(msg.Payload, req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload", Code: "INVALID_JSON"}
		return
	}

	if pool := c.handlers.pool; pool != nil {
		if !pool.TryAcquireFast() {
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "server busy", Code: "SERVER_BUSY"}
			return
		}
		defer pool.ReleaseFast()
	}

	resp, err := fn()
	if err != nil {
		_, code := errorInfo(err)
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error(), Code: code}
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: resp}
}
