package ws

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"sum-game-server/auth"
	"sum-game-server/game"
	"sum-game-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Join rejections reuse the close codes of the original protocol:
// 1001 when a game is already in progress, 1002 when the room is full.
const (
	closeGameInProgress = 1001
	closeRoomFull       = 1002
)

// Client is a middleman between one websocket connection and the room.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte

	UUID     string
	Nickname string
	// Op marks an elevated identity (config ops list or a validated
	// operator token); only ops may start games or skip turns.
	Op bool

	authed bool
	done   chan struct{} // closed when ReadPump exits
}

// ReadPump pumps messages from the websocket connection to the room.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		close(c.done)
		if c.authed {
			c.Hub.Unregister <- c
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}
		if !c.handleMessage(message) {
			break
		}
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection. It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage routes one inbound frame. Returns false when the
// connection must be dropped (failed handshake, rejected join, leave).
func (c *Client) handleMessage(data []byte) bool {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		slog.Warn("malformed frame", "tag", "ws", "nickname", c.Nickname, "err", err)
		return c.authed
	}

	if !c.authed {
		// First frame must be auth; anything else drops the socket.
		if env.Type != "auth" {
			return false
		}
		return c.handleAuth(env.Data)
	}

	switch env.Type {
	case "use":
		var msg UseData
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return true
		}
		c.roomAction(game.Action{
			Type:        game.ActionPlayCard,
			UUID:        c.UUID,
			Card:        msg.CardType,
			TargetIndex: msg.TargetIndex,
		})
	case "start":
		c.roomAction(game.Action{Type: game.ActionStartGame, UUID: c.UUID, Operator: c.Op})
	case "skip":
		c.roomAction(game.Action{Type: game.ActionSkipTurn, UUID: c.UUID, Operator: c.Op})
	case "nickname":
		c.handleRename(env.Data)
	case "leave":
		c.roomAction(game.Action{Type: game.ActionLeave, UUID: c.UUID})
		c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return false
	default:
		slog.Warn("unknown message type", "tag", "ws", "nickname", c.Nickname, "type", env.Type)
	}
	return true
}

func (c *Client) handleAuth(raw json.RawMessage) bool {
	var msg AuthData
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UUID == "" || msg.Nickname == "" {
		return false
	}

	c.UUID = msg.UUID
	c.Nickname = trimNickname(msg.Nickname, c.Hub.Config.MaxNicknameLength)
	c.Op = c.Hub.Config.IsOp(c.UUID)
	if !c.Op && msg.Token != "" && c.Hub.Config.AuthBaseURL != "" {
		claims, err := auth.ValidateOperatorToken(c.Hub.Config.AuthBaseURL, msg.Token)
		if err != nil {
			slog.Warn("operator token rejected", "tag", "ws", "nickname", c.Nickname, "err", err)
		} else if sub := auth.SubjectFromClaims(claims); sub == "" || sub == c.UUID {
			c.Op = auth.IsOperator(claims)
		}
	}

	c.authed = true
	c.Hub.Register <- c

	res := c.Hub.Room.Join(c.UUID, c.Nickname, c.Send)
	if res.Err != nil {
		slog.Info("join refused", "tag", "ws", "nickname", c.Nickname, "reason", res.Err.Error())
		code := closeGameInProgress
		if res.Err == game.ErrRoomFull {
			code = closeRoomFull
		}
		c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, res.Err.Error()),
			time.Now().Add(writeWait))
		return false
	}
	return true
}

func (c *Client) handleRename(raw json.RawMessage) {
	var msg NicknameData
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	nickname := trimNickname(msg.Nickname, c.Hub.Config.MaxNicknameLength)
	if nickname != "" && nickname != c.Nickname {
		slog.Info("player renamed", "tag", "ws", "from", c.Nickname, "to", nickname)
		c.Nickname = nickname
		c.roomAction(game.Action{Type: game.ActionRename, UUID: c.UUID, Nickname: nickname})
	}
	echo, _ := json.Marshal(struct {
		Type string       `json:"type"`
		Data NicknameEcho `json:"data"`
	}{Type: "nickname", Data: NicknameEcho{Nickname: c.Nickname}})
	wsutil.SafeSend(c.Send, echo)
}

func (c *Client) roomAction(a game.Action) {
	select {
	case c.Hub.Room.Actions <- a:
	case <-c.Hub.Room.Done:
	}
}

func trimNickname(nickname string, maxLen int) string {
	nickname = strings.TrimSpace(nickname)
	if maxLen > 0 {
		runes := []rune(nickname)
		if len(runes) > maxLen {
			nickname = string(runes[:maxLen])
		}
	}
	return nickname
}
