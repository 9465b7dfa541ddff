package game

import (
	"log/slog"
	"strconv"
)

// handlePlayCard validates and resolves one played card. Every failed
// precondition is a silent no-op: stale or malformed client requests
// (a turn advance racing a click, a duplicate send) are expected and
// must not produce state changes or error events.
func (r *Room) handlePlayCard(uuid, card string, targetIndex int) {
	if !r.Running {
		return
	}
	if card == "" || targetIndex < 0 || targetIndex >= len(r.Players) {
		return
	}
	mover := r.Players[r.MoveIndex]
	if mover.UUID != uuid {
		return
	}
	if !mover.HasCard(card) {
		return
	}
	target := r.Players[targetIndex]

	value, isNumber := cardValues[card]
	switch {
	case isNumber && targetIndex != r.MoveIndex:
		return // numeric cards are self-only
	case card == CardPlus && len(target.Cards) == 0:
		return
	case card == CardBin && len(target.UsedCards) == 0:
		return
	case !isNumber && card != CardPlus && card != CardBin && card != CardSwap:
		return // not a token this game knows
	}

	// The played card moves to the discard pile before the effect
	// resolves, so "bin" on yourself also clears the card you played.
	mover.RemoveCard(card)
	mover.UsedCards = append(mover.UsedCards, card)

	if targetIndex == r.MoveIndex {
		slog.Info("card played", "tag", "game", "player", mover.Nickname, "card", card)
	} else {
		slog.Info("card played", "tag", "game", "player", mover.Nickname, "card", card, "target", target.Nickname)
	}

	var targetHandChanged, targetPublicChanged bool
	if isNumber {
		r.Sum += value
		mover.Sum += value
	} else {
		targetHandChanged, targetPublicChanged = r.applySpecialCard(card, mover, target)
	}

	r.sendTo(mover, "cards", CardsData{Cards: mover.Cards})
	r.broadcast("player", r.playerUpdate(r.MoveIndex))
	if target != mover {
		if targetHandChanged {
			r.sendTo(target, "cards", CardsData{Cards: target.Cards})
		}
		if targetPublicChanged {
			r.broadcast("player", r.playerUpdate(targetIndex))
		}
	}

	if r.Sum > r.SumLimit {
		// Overflow: the mover who tipped the sum loses, no advance.
		r.endGame(false)
		return
	}
	r.nextMove(false)
}

// applySpecialCard resolves plus, bin and swap. It reports whether the
// target's hand (private) and public state changed, so the caller can
// emit target updates after the mover's own, in mutation order.
func (r *Room) applySpecialCard(card string, mover, target *Player) (handChanged, publicChanged bool) {
	switch card {
	case CardPlus:
		r.Sum++
		mover.Sum++
		for i, c := range target.Cards {
			// "4" is exempt: only 0..3 cycle, 3 wraps to 0.
			if v, ok := cardValues[c]; ok && v < 4 {
				target.Cards[i] = strconv.Itoa((v + 1) % 4)
				handChanged = true
			}
		}
	case CardBin:
		r.Sum -= target.Sum
		target.Sum = 0
		target.UsedCards = []string{}
		publicChanged = true
	case CardSwap:
		if mover != target {
			mover.Cards, target.Cards = target.Cards, mover.Cards
			handChanged = true
			publicChanged = true
		}
	}
	return handChanged, publicChanged
}
