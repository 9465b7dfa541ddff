package game

import (
	"math/rand"
)

// Card tokens with special-effect semantics. Tokens "0".."4" are
// plain numeric cards whose face value equals the numeral.
const (
	CardPlus = "plus"
	CardBin  = "bin"
	CardSwap = "swap"
)

// cardValues maps numeric tokens to their face value.
var cardValues = map[string]int{
	"0": 0, "1": 1, "2": 2, "3": 3, "4": 4,
}

// Deck is the shared bag of cards, used as a pop-from-end stack.
// It holds nothing until the first Reset.
type Deck struct {
	cards []string
}

// Reset rebuilds the bag from the template, one card per unit of
// count. Call Shuffle afterwards; Reset alone gives no useful order.
func (d *Deck) Reset(template map[string]int) {
	d.cards = d.cards[:0]
	for token, count := range template {
		for i := 0; i < count; i++ {
			d.cards = append(d.cards, token)
		}
	}
}

// Shuffle permutes the bag in place.
func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw pops the top card. ErrEmptyDeck means the caller failed to
// reshuffle before drawing; the engine never retries past it.
func (d *Deck) Draw() (string, error) {
	if len(d.cards) == 0 {
		return "", ErrEmptyDeck
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

// Len returns how many cards remain in the bag.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Counts returns the multiset of remaining cards.
func (d *Deck) Counts() map[string]int {
	counts := make(map[string]int)
	for _, c := range d.cards {
		counts[c]++
	}
	return counts
}
