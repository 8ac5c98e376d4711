package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/lucasmv/wordclash-backend/internal/game"
)

// clientMessage is the inbound envelope. Data stays raw until the command
// handler knows which payload shape to expect.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type createRoomRequest struct {
	Name     string `json:"name"`
	Rounds   int    `json:"rounds"`
	Language string `json:"language"`
}

type joinRoomRequest struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Resume bool   `json:"resume"`
}

type updateSettingsRequest struct {
	Rounds        int    `json:"rounds"`
	Language      string `json:"language"`
	BotDifficulty string `json:"botDifficulty"`
}

type startGameRequest struct {
	Rounds   int    `json:"rounds"`
	Language string `json:"language"`
}

type submitGuessRequest struct {
	Guess string `json:"guess"`
}

type expelPlayerRequest struct {
	PlayerID string `json:"playerId"`
}

type playAgainRequest struct {
	Rounds int `json:"rounds"`
}

// wsSession is the per-connection state: the verified identity (if any) and
// the seat currently held. Only the read loop mutates it.
type wsSession struct {
	srv    *Server
	conn   *websocket.Conn
	userID string
	name   string

	room   *game.Room
	player *game.Player
}

// HandleWebSocket upgrades the connection and runs its read loop. A session
// token is optional; without one the player is an anonymous guest whose
// results are not persisted.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sess := &wsSession{srv: s, conn: conn}
	if identity, err := s.sessions.FromRequest(r); err == nil {
		sess.userID = identity.UserID
		sess.name = identity.Name
	}

	s.log.Debug().Str("remote", r.RemoteAddr).Str("user", sess.userID).Msg("websocket connected")
	sess.readLoop()
}

func (sess *wsSession) readLoop() {
	defer func() {
		sess.conn.Close()
		if sess.room != nil && sess.player != nil {
			sess.srv.registry.RemovePlayer(sess.room, sess.player.ID)
		}
	}()

	for {
		var msg clientMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				sess.srv.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		sess.dispatch(msg)
	}
}

func (sess *wsSession) dispatch(msg clientMessage) {
	switch msg.Type {
	case "create_room":
		var req createRoomRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.handleCreateRoom(req)
	case "join_room":
		var req joinRoomRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.handleJoinRoom(req)
	case "update_settings":
		var req updateSettingsRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.roomAction(func() error {
			return sess.srv.registry.UpdateSettings(sess.room, sess.player.ID, req.Rounds, req.Language, req.BotDifficulty)
		})
	case "add_bot":
		sess.roomAction(func() error {
			return sess.srv.registry.AddBot(sess.room, sess.player.ID)
		})
	case "start_game":
		var req startGameRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.roomAction(func() error {
			return sess.srv.registry.StartMatch(sess.room, sess.player.ID, req.Rounds, req.Language)
		})
	case "submit_guess":
		var req submitGuessRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.handleSubmitGuess(req)
	case "expel_player":
		var req expelPlayerRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.roomAction(func() error {
			return sess.srv.registry.ExpelPlayer(sess.room, sess.player.ID, req.PlayerID)
		})
	case "play_again":
		var req playAgainRequest
		if !sess.decode(msg.Data, &req) {
			return
		}
		sess.roomAction(func() error {
			return sess.srv.registry.ResetForReplay(sess.room, sess.player.ID, req.Rounds)
		})
	case "leave_room":
		sess.handleLeaveRoom()
	default:
		sess.sendError(game.EventRoomError, "unknown message type: "+msg.Type)
	}
}

func (sess *wsSession) handleCreateRoom(req createRoomRequest) {
	if sess.room != nil {
		sess.handleLeaveRoom()
	}
	name := req.Name
	if name == "" {
		name = sess.name
	}
	sess.room, sess.player = sess.srv.registry.CreateRoom(sess.conn, name, sess.userID, req.Rounds, req.Language)
}

func (sess *wsSession) handleJoinRoom(req joinRoomRequest) {
	if sess.room != nil {
		sess.handleLeaveRoom()
	}
	name := req.Name
	if name == "" {
		name = sess.name
	}
	room, player, err := sess.srv.registry.JoinRoom(sess.conn, req.Code, name, sess.userID, req.Resume)
	if err != nil {
		sess.sendError(game.EventRoomError, err.Error())
		return
	}
	sess.room, sess.player = room, player
}

func (sess *wsSession) handleSubmitGuess(req submitGuessRequest) {
	if sess.room == nil || sess.player == nil {
		sess.sendError(game.EventGuessError, game.ErrUnknownPlayer.Error())
		return
	}
	if err := sess.srv.registry.SubmitGuess(sess.room, sess.player.ID, req.Guess); err != nil {
		sess.sendError(game.EventGuessError, err.Error())
	}
}

func (sess *wsSession) handleLeaveRoom() {
	if sess.room == nil || sess.player == nil {
		return
	}
	room, player := sess.room, sess.player
	sess.srv.registry.RemovePlayer(room, player.ID)
	_ = player.SendJSON(game.Message[game.LeftRoomData]{
		Type: game.EventLeftRoom,
		Data: game.LeftRoomData{Code: room.Code},
	})
	// The player stays behind as the write anchor so replies keep
	// serializing with any broadcast still holding the old snapshot.
	sess.room = nil
}

// roomAction runs a command that requires a seat, mapping errors back to the
// caller as room_error events.
func (sess *wsSession) roomAction(fn func() error) {
	if sess.room == nil || sess.player == nil {
		sess.sendError(game.EventRoomError, game.ErrRoomNotFound.Error())
		return
	}
	if err := fn(); err != nil {
		sess.sendError(game.EventRoomError, err.Error())
	}
}

func (sess *wsSession) decode(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		sess.sendError(game.EventRoomError, "malformed payload: "+err.Error())
		return false
	}
	return true
}

// sendError replies to this connection only. Seated connections write
// through the player so the write serializes with concurrent broadcasts.
func (sess *wsSession) sendError(event, text string) {
	msg := game.Message[game.ErrorData]{Type: event, Data: game.ErrorData{Error: text}}
	if sess.player != nil {
		_ = sess.player.SendJSON(msg)
		return
	}
	_ = sess.conn.WriteJSON(msg)
}
