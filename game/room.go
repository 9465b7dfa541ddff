package game

import (
	"encoding/json"
	"log/slog"

	"sum-game-server/config"
	"sum-game-server/wsutil"
)

// ActionType enumerates the kinds of actions the room can process.
type ActionType int

const (
	ActionJoin         ActionType = iota
	ActionPlayCard                // mover plays a card on a target seat
	ActionLeave                   // explicit leave, removed immediately
	ActionSocketClosed            // connection lost; start the grace window
	ActionGraceExpired            // grace window elapsed without a rejoin
	ActionStartGame
	ActionStopGame
	ActionSkipTurn
	ActionRename
	ActionSay
	ActionApplyConfig
	ActionShutdown
)

// Action is one unit of work sent into the room's action channel.
// Each action runs to completion before the next one is read, so the
// roster, deck and game state never see interleaved mutations.
type Action struct {
	Type        ActionType
	UUID        string
	Card        string
	TargetIndex int
	Nickname    string
	Message     string
	// Operator marks actions whose privilege was already checked by
	// the caller (console, or a validated op identity on the socket).
	Operator bool
	Config   *config.Config
	Send     chan []byte     // for ActionJoin: the client's send channel
	Reply    chan JoinResult // for ActionJoin
	Ack      chan struct{}   // for ActionShutdown
}

// JoinResult is the synchronous answer to a join request.
type JoinResult struct {
	Index       int
	Reconnected bool
	Err         error
}

// Result describes a finished game for the history hook.
type Result struct {
	LoserUUID     string
	LoserNickname string
	Forced        bool
	Sum           int
	SumLimit      int
	PlayerCount   int
}

// Room is the single authoritative game state: roster, deck, turn
// pointer and running sum. All fields are owned by the goroutine
// inside Run; everything else talks to it through Actions.
type Room struct {
	Config *config.Config

	Players []*Player
	Deck    *Deck

	Running  bool
	Sum      int
	SumLimit int
	// MoveIndex is the seat whose turn it is; only meaningful while
	// Running. StartIndex rotates the opening seat across games.
	MoveIndex  int
	StartIndex int

	Actions chan Action
	Done    chan struct{}

	// closing suppresses outbound broadcasts and new grace windows
	// once the shutdown sequence has begun.
	closing bool

	graceCancels map[string]chan struct{}

	// OnGameEnd is called after every game end (natural or forced);
	// optional, set by the composition root for history persistence.
	OnGameEnd func(Result)
}

// NewRoom creates the room. Run must be started for it to do anything.
func NewRoom(cfg *config.Config) *Room {
	return &Room{
		Config:       cfg,
		Deck:         &Deck{},
		MoveIndex:    -1,
		StartIndex:   -1,
		Actions:      make(chan Action, 64),
		Done:         make(chan struct{}),
		graceCancels: make(map[string]chan struct{}),
	}
}

// Run is the room's main loop. It processes actions sequentially.
// It should be run as a goroutine.
func (r *Room) Run() {
	defer close(r.Done)

	for action := range r.Actions {
		switch action.Type {
		case ActionJoin:
			r.handleJoin(action)
		case ActionPlayCard:
			r.handlePlayCard(action.UUID, action.Card, action.TargetIndex)
		case ActionLeave:
			r.handleLeave(action.UUID)
		case ActionSocketClosed:
			r.handleSocketClosed(action.UUID)
		case ActionGraceExpired:
			r.handleGraceExpired(action.UUID)
		case ActionStartGame:
			r.handleStartRequest(action.UUID, action.Operator)
		case ActionStopGame:
			if r.Running {
				r.endGame(true)
			} else {
				slog.Info("stop requested with no game running", "tag", "game")
			}
		case ActionSkipTurn:
			if action.Operator {
				r.nextMove(true)
			}
		case ActionRename:
			r.handleRename(action.UUID, action.Nickname)
		case ActionSay:
			r.broadcast("say", SayData{Msg: action.Message})
		case ActionApplyConfig:
			if action.Config != nil {
				r.Config = action.Config
			}
		case ActionShutdown:
			r.closing = true
			if r.Running {
				r.endGame(true)
			}
			if action.Ack != nil {
				close(action.Ack)
			}
			return
		}
	}
}

// Join registers an identity, synchronously. The transport needs the
// answer to decide between keeping the socket and refusing it with a
// close code; every other inbound action is fire-and-forget.
func (r *Room) Join(uuid, nickname string, send chan []byte) JoinResult {
	reply := make(chan JoinResult, 1)
	select {
	case r.Actions <- Action{Type: ActionJoin, UUID: uuid, Nickname: nickname, Send: send, Reply: reply}:
	case <-r.Done:
		return JoinResult{Err: ErrRoomClosed}
	}
	select {
	case res := <-reply:
		return res
	case <-r.Done:
		return JoinResult{Err: ErrRoomClosed}
	}
}

// Shutdown force-ends any running game with broadcasts suppressed and
// stops the action loop. Blocks until the loop has drained.
func (r *Room) Shutdown() {
	ack := make(chan struct{})
	select {
	case r.Actions <- Action{Type: ActionShutdown, Ack: ack}:
	case <-r.Done:
		return
	}
	select {
	case <-ack:
	case <-r.Done:
	}
}

func (r *Room) handleStartRequest(uuid string, operator bool) {
	if !operator {
		slog.Warn("start request denied", "tag", "game", "uuid", uuid)
		return
	}
	r.startGame()
}

func (r *Room) startGame() {
	if len(r.Players) < 2 {
		slog.Info("not enough players to start", "tag", "game", "players", len(r.Players))
		return
	}
	if r.Running {
		slog.Warn("game already running", "tag", "game")
		return
	}

	r.Running = true
	r.Sum = 0
	r.SumLimit = r.Config.MinSum
	if n := len(r.Players) * 4; n > r.SumLimit {
		r.SumLimit = n
	}

	for i, p := range r.Players {
		p.ResetForGame()
		r.sendTo(p, "index", IndexData{Index: i})
	}
	r.broadcast("start", StartData{SumLimit: r.SumLimit, Players: r.snapshot()})

	slog.Info("game started", "tag", "game", "players", len(r.Players), "sumLimit", r.SumLimit)

	r.MoveIndex = r.StartIndex
	r.nextMove(false)
	r.StartIndex = (r.StartIndex + 1) % len(r.Players)
}

// endGame stops the game. force means cancelled (disconnect below two
// players, operator stop, shutdown): the loser broadcast carries no
// payload. A natural end names the current mover as loser.
func (r *Room) endGame(force bool) {
	r.Running = false
	res := Result{
		Forced:      force,
		Sum:         r.Sum,
		SumLimit:    r.SumLimit,
		PlayerCount: len(r.Players),
	}
	if force {
		slog.Info("game cancelled", "tag", "game")
		if !r.closing {
			r.broadcast("loser", nil)
		}
	} else {
		loser := r.Players[r.MoveIndex]
		res.LoserUUID = loser.UUID
		res.LoserNickname = loser.Nickname
		r.broadcast("loser", LoserData{UUID: loser.UUID, Nickname: loser.Nickname})
		slog.Info("game over", "tag", "game", "loser", loser.Nickname, "sum", r.Sum, "sumLimit", r.SumLimit)
	}
	if r.OnGameEnd != nil {
		r.OnGameEnd(res)
	}
}

// nextMove advances the turn pointer and broadcasts it. If the new
// mover holds no cards, every hand in the room is refilled to the
// configured size; an empty hand at turn start would deadlock play.
func (r *Room) nextMove(skip bool) {
	if !r.Running {
		return
	}
	r.MoveIndex = (r.MoveIndex + 1) % len(r.Players)
	r.broadcast("move", MoveData{Index: r.MoveIndex, Skip: skip})

	if len(r.Players[r.MoveIndex].Cards) == 0 {
		if !r.replenishHands() {
			return
		}
	}

	slog.Info("turn", "tag", "game", "player", r.Players[r.MoveIndex].Nickname)
}

// replenishHands deals every player up to the hand size, reshuffling
// whenever the deck runs out mid-deal. Returns false if the game was
// force-ended on an internal deck failure.
func (r *Room) replenishHands() bool {
	if r.Deck.Len() == 0 {
		r.reshuffleDeck()
	}
	for i, p := range r.Players {
		for len(p.Cards) < r.Config.CardsInHand {
			card, err := r.Deck.Draw()
			if err != nil {
				// Unreachable while the reshuffle invariant holds;
				// fatal to this game only, never to the process.
				slog.Error("deck empty after reshuffle", "tag", "game", "err", err)
				r.endGame(true)
				return false
			}
			p.Cards = append(p.Cards, card)
			if r.Deck.Len() == 0 {
				r.reshuffleDeck()
			}
		}
		r.sendTo(p, "cards", CardsData{Cards: p.Cards})
		r.broadcast("player", r.playerUpdate(i))
	}
	return true
}

func (r *Room) reshuffleDeck() {
	r.Deck.Reset(r.Config.CardTemplate)
	r.Deck.Shuffle()
}

func (r *Room) handleRename(uuid, nickname string) {
	if nickname == "" {
		return
	}
	if i := r.indexOf(uuid); i >= 0 {
		r.Players[i].Nickname = nickname
	}
}

func (r *Room) indexOf(uuid string) int {
	for i, p := range r.Players {
		if p.UUID == uuid {
			return i
		}
	}
	return -1
}

func (r *Room) sendTo(p *Player, typ string, data any) {
	if p == nil || p.Send == nil {
		return
	}
	if msg := marshalEvent(typ, data); msg != nil {
		wsutil.SafeSend(p.Send, msg)
	}
}

func (r *Room) broadcast(typ string, data any) {
	msg := marshalEvent(typ, data)
	if msg == nil {
		return
	}
	for _, p := range r.Players {
		if p.Send != nil {
			wsutil.SafeSend(p.Send, msg)
		}
	}
}

// marshalEvent wraps a payload in the {type, data} wire envelope.
// A nil payload yields an envelope with no data field.
func marshalEvent(typ string, data any) []byte {
	env := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{Type: typ, Data: data}
	msg, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshaling event", "tag", "game", "type", typ, "err", err)
		return nil
	}
	return msg
}
