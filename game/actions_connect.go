package game

import (
	"log/slog"
	"time"
)

func (r *Room) handleJoin(a Action) {
	if r.closing {
		a.Reply <- JoinResult{Err: ErrRoomClosed}
		return
	}

	if i := r.indexOf(a.UUID); i >= 0 {
		// Known identity reconnecting: cancel any pending removal,
		// rebind the send channel and replay the table snapshot.
		r.cancelGrace(a.UUID)
		p := r.Players[i]
		p.Send = a.Send
		if a.Nickname != "" {
			p.Nickname = a.Nickname
		}
		if r.Running {
			r.sendTo(p, "index", IndexData{Index: i})
			r.sendTo(p, "start", StartData{SumLimit: r.SumLimit, Players: r.snapshot()})
			r.sendTo(p, "move", MoveData{Index: r.MoveIndex})
			r.sendTo(p, "cards", CardsData{Cards: p.Cards})
		}
		slog.Info("player reconnected", "tag", "room", "nickname", p.Nickname, "index", i)
		a.Reply <- JoinResult{Index: i, Reconnected: true}
		return
	}

	if r.Running {
		a.Reply <- JoinResult{Err: ErrGameInProgress}
		return
	}
	if len(r.Players) >= r.Config.MaxPlayerCount {
		a.Reply <- JoinResult{Err: ErrRoomFull}
		return
	}

	p := NewPlayer(a.UUID, a.Nickname, a.Send)
	r.Players = append(r.Players, p)
	slog.Info("player joined", "tag", "room", "nickname", p.Nickname, "index", len(r.Players)-1)
	a.Reply <- JoinResult{Index: len(r.Players) - 1}
}

func (r *Room) handleLeave(uuid string) {
	r.cancelGrace(uuid)
	r.removePlayer(uuid)
}

// handleSocketClosed starts the reconnect grace window for a dropped
// identity. The player stays on the roster until the window expires.
func (r *Room) handleSocketClosed(uuid string) {
	if r.closing {
		return
	}
	if r.indexOf(uuid) < 0 {
		return
	}
	if _, pending := r.graceCancels[uuid]; pending {
		return
	}

	cancel := make(chan struct{})
	r.graceCancels[uuid] = cancel
	grace := time.Duration(r.Config.DisconnectGraceMS) * time.Millisecond
	go func() {
		select {
		case <-time.After(grace):
			select {
			case r.Actions <- Action{Type: ActionGraceExpired, UUID: uuid}:
			case <-r.Done:
			}
		case <-cancel:
		}
	}()
}

func (r *Room) handleGraceExpired(uuid string) {
	if _, pending := r.graceCancels[uuid]; !pending {
		// Cancelled by a rejoin that raced the expiry.
		return
	}
	delete(r.graceCancels, uuid)
	r.removePlayer(uuid)
}

func (r *Room) cancelGrace(uuid string) {
	if cancel, ok := r.graceCancels[uuid]; ok {
		close(cancel)
		delete(r.graceCancels, uuid)
	}
}

// removePlayer deletes a seat and renumbers every later seat down by
// one. During a running game the departure is broadcast before any
// further turn processing; dropping below two players cancels the game.
func (r *Room) removePlayer(uuid string) {
	i := r.indexOf(uuid)
	if i < 0 {
		return
	}
	p := r.Players[i]
	r.Players = append(r.Players[:i], r.Players[i+1:]...)
	slog.Info("player removed", "tag", "room", "nickname", p.Nickname, "index", i)

	if i <= r.StartIndex {
		r.StartIndex--
	}

	if !r.Running {
		return
	}

	r.broadcast("playerLeft", PlayerLeftData{Index: i})

	if len(r.Players) <= 1 {
		r.endGame(true)
		return
	}

	if i == r.MoveIndex {
		// The mover left; the turn passes to the seat that slid into
		// their position, announced as a skipped advance.
		r.MoveIndex = i - 1
		r.nextMove(true)
	} else if i < r.MoveIndex {
		r.MoveIndex--
	}
}
