package game

// Player is one seat in the room. Seat numbers are positions in the
// roster slice, not stored here; they shift when earlier seats leave.
type Player struct {
	UUID     string
	Nickname string

	// Cards is the hand, private to the player.
	Cards []string
	// UsedCards is the discard pile, visible to everyone.
	UsedCards []string
	// Sum is this player's contribution to the shared total.
	Sum int

	Send chan []byte // reference to the client's send channel
}

// NewPlayer creates a Player with empty hand and discard pile.
func NewPlayer(uuid, nickname string, send chan []byte) *Player {
	return &Player{
		UUID:      uuid,
		Nickname:  nickname,
		Cards:     []string{},
		UsedCards: []string{},
		Send:      send,
	}
}

// ResetForGame clears hand, discard pile and score at game start.
func (p *Player) ResetForGame() {
	p.Cards = []string{}
	p.UsedCards = []string{}
	p.Sum = 0
}

// HasCard reports whether the hand contains the given token.
func (p *Player) HasCard(card string) bool {
	for _, c := range p.Cards {
		if c == card {
			return true
		}
	}
	return false
}

// RemoveCard removes the first occurrence of the token from the hand.
func (p *Player) RemoveCard(card string) bool {
	for i, c := range p.Cards {
		if c == card {
			p.Cards = append(p.Cards[:i], p.Cards[i+1:]...)
			return true
		}
	}
	return false
}
