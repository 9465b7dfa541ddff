package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sum-game-server/config"
	"sum-game-server/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ClientInfo is a point-in-time view of one connection, for the
// operator console's list command.
type ClientInfo struct {
	UUID     string
	Nickname string
	Op       bool
}

// Hub owns the uuid-to-connection mapping. The map is touched only by
// the Run goroutine; registration, removal and snapshots all go
// through channels.
type Hub struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	snapshots  chan chan []ClientInfo
	shutdown   chan chan struct{}
	Config     *config.Config
	Room       *game.Room
}

// NewHub creates a new Hub bound to the room.
func NewHub(cfg *config.Config, room *game.Room) *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client, 64),
		Unregister: make(chan *Client, 64),
		snapshots:  make(chan chan []ClientInfo),
		shutdown:   make(chan chan struct{}),
		Config:     cfg,
		Room:       room,
	}
}

// Run is the hub's main loop. Should be run as a goroutine. It returns
// when ctx is cancelled or a shutdown request has been served.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			// A second connection for the same identity supersedes
			// the first; closing the old socket lets its pumps exit.
			if old, ok := h.Clients[client.UUID]; ok && old != client {
				slog.Info("connection superseded", "tag", "ws", "nickname", old.Nickname)
				old.Conn.Close()
			}
			h.Clients[client.UUID] = client
			slog.Info("client connected", "tag", "ws", "nickname", client.Nickname, "total", len(h.Clients))

		case client := <-h.Unregister:
			// Only the current holder of the identity counts as a
			// disconnect; a superseded socket closing is not one.
			if cur, ok := h.Clients[client.UUID]; ok && cur == client {
				delete(h.Clients, client.UUID)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "nickname", client.Nickname, "total", len(h.Clients))
				select {
				case h.Room.Actions <- game.Action{Type: game.ActionSocketClosed, UUID: client.UUID}:
				case <-h.Room.Done:
				}
			}

		case reply := <-h.snapshots:
			infos := make([]ClientInfo, 0, len(h.Clients))
			for _, c := range h.Clients {
				infos = append(infos, ClientInfo{UUID: c.UUID, Nickname: c.Nickname, Op: c.Op})
			}
			reply <- infos

		case ack := <-h.shutdown:
			h.closeAll()
			close(ack)
			return
		}
	}
}

// Snapshot returns the currently registered connections.
func (h *Hub) Snapshot() []ClientInfo {
	reply := make(chan []ClientInfo, 1)
	h.snapshots <- reply
	return <-reply
}

// Shutdown asks every peer to close and waits a bounded time per
// connection before forcing it. Blocks until the hub loop has exited;
// a single unresponsive peer can never stall it past its budget.
func (h *Hub) Shutdown() {
	ack := make(chan struct{})
	h.shutdown <- ack
	<-ack
}

func (h *Hub) closeAll() {
	if len(h.Clients) == 0 {
		return
	}
	slog.Info("closing connections", "tag", "ws", "total", len(h.Clients))
	wait := time.Duration(h.Config.ShutdownWaitMS) * time.Millisecond
	for _, c := range h.Clients {
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.Conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			c.Conn.Close()
			continue
		}
		select {
		case <-c.done:
		case <-time.After(wait):
			slog.Warn("forcing connection closed", "tag", "ws", "nickname", c.Nickname)
			c.Conn.Close()
		}
	}
}

// ServeWS handles WebSocket upgrade requests and starts the pumps.
// The client is registered only after its auth frame arrives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
		done: make(chan struct{}),
	}

	go client.WritePump()
	go client.ReadPump()
}
