package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type    string `json:"type"` // "ask" or "clear"
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type    string `json:"type"` // "response" or "error"
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// handleWebSocket serves a long-lived chat connection carrying the same
// ask/clear operations as the JSON API.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "ask":
			answer, err := s.engine.Ask(r.Context(), req.Content, req.UserID)
			if err != nil {
				s.sendWSError(conn, req.UserID, err.Error())
				continue
			}
			s.sendWS(conn, wsResponse{Type: "response", UserID: req.UserID, Content: answer})
		case "clear":
			if err := s.engine.Clear(r.Context(), req.UserID); err != nil {
				s.sendWSError(conn, req.UserID, err.Error())
				continue
			}
			s.sendWS(conn, wsResponse{Type: "response", UserID: req.UserID, Content: "conversation cleared"})
		default:
			s.sendWSError(conn, req.UserID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) sendWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, userID, message string) {
	s.sendWS(conn, wsResponse{Type: "error", UserID: userID, Content: message})
}
