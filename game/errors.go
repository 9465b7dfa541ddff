package game

import "errors"

// Join rejection and internal-consistency sentinel errors. Rejections
// are surfaced to the transport as connection-refusal close codes;
// ErrEmptyDeck should be unreachable while the reshuffle invariant
// holds and is treated as fatal to the current game.
var (
	ErrGameInProgress = errors.New("game already in progress")
	ErrRoomFull       = errors.New("room is full")
	ErrRoomClosed     = errors.New("server is shutting down")
	ErrEmptyDeck      = errors.New("deck is empty")
)
