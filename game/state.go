package game

// PlayerSnapshot is the public, client-facing view of one seat.
// Hands are never exposed here, only their size.
type PlayerSnapshot struct {
	Index       int      `json:"index"`
	Nickname    string   `json:"nickname,omitempty"`
	CardsNumber int      `json:"cardsNumber"`
	UsedCards   []string `json:"usedCards"`
	Sum         int      `json:"sum"`
}

// StartData is broadcast at game start and re-sent privately on
// reconnect so a returning client can rebuild the table.
type StartData struct {
	SumLimit int              `json:"sumLimit"`
	Players  []PlayerSnapshot `json:"players"`
}

// IndexData tells a player their own seat, privately.
type IndexData struct {
	Index int `json:"index"`
}

// MoveData is broadcast on every turn advance. Skip marks advances
// that happened without a card being resolved.
type MoveData struct {
	Index int  `json:"index"`
	Skip  bool `json:"skip"`
}

// CardsData is a private hand update.
type CardsData struct {
	Cards []string `json:"cards"`
}

// PlayerLeftData is broadcast when a seat is removed mid-game.
type PlayerLeftData struct {
	Index int `json:"index"`
}

// LoserData is broadcast at game end. An empty payload signals a
// cancelled or forced end rather than a natural loss.
type LoserData struct {
	UUID     string `json:"uuid,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// SayData carries an operator announcement.
type SayData struct {
	Msg string `json:"msg"`
}

// snapshot builds the public roster view in seat order.
func (r *Room) snapshot() []PlayerSnapshot {
	players := make([]PlayerSnapshot, len(r.Players))
	for i, p := range r.Players {
		players[i] = r.playerUpdate(i)
		players[i].Nickname = p.Nickname
	}
	return players
}

// playerUpdate builds the public update for one seat, as broadcast in
// "player" events. Nickname is left empty there; clients already know
// names from the start snapshot.
func (r *Room) playerUpdate(index int) PlayerSnapshot {
	p := r.Players[index]
	used := p.UsedCards
	if used == nil {
		used = []string{}
	}
	return PlayerSnapshot{
		Index:       index,
		CardsNumber: len(p.Cards),
		UsedCards:   used,
		Sum:         p.Sum,
	}
}
