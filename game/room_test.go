package game

import (
	"encoding/json"
	"fmt"
	"testing"

	"sum-game-server/config"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxPlayerCount: 10,
		MinSum:         12,
		CardsInHand:    4,
		CardTemplate: map[string]int{
			"0": 10, "1": 10, "2": 10, "3": 10,
			"4": 3, "plus": 3, "bin": 3, "swap": 3,
		},
		MaxNicknameLength: 16,
		DisconnectGraceMS: 10, // short for testing
		ShutdownWaitMS:    50,
	}
}

// newTestRoom creates a room with the given players seated, without
// starting the action loop: tests drive the handlers directly so no
// other goroutine can interleave.
func newTestRoom(cfg *config.Config, nicknames ...string) (*Room, []chan []byte) {
	r := NewRoom(cfg)
	sends := make([]chan []byte, len(nicknames))
	for i, name := range nicknames {
		sends[i] = make(chan []byte, 100)
		r.Players = append(r.Players, NewPlayer(testUUID(i), name, sends[i]))
	}
	return r, sends
}

// newRunningRoom additionally puts the room mid-game with seat 0 as
// the mover, leaving hands empty for the test to fill.
func newRunningRoom(cfg *config.Config, nicknames ...string) (*Room, []chan []byte) {
	r, sends := newTestRoom(cfg, nicknames...)
	r.Running = true
	r.Sum = 0
	r.SumLimit = cfg.MinSum
	if n := len(nicknames) * 4; n > r.SumLimit {
		r.SumLimit = n
	}
	r.MoveIndex = 0
	return r, sends
}

func testUUID(i int) string {
	return fmt.Sprintf("uuid-%d", i)
}

type event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// drainEvents reads and decodes all buffered messages from a channel.
func drainEvents(t *testing.T, ch chan []byte) []event {
	t.Helper()
	var events []event
	for {
		select {
		case msg := <-ch:
			var e event
			if err := json.Unmarshal(msg, &e); err != nil {
				t.Fatalf("undecodable event %q: %v", msg, err)
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

func eventTypes(events []event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func findEvent(events []event, typ string) (event, bool) {
	for _, e := range events {
		if e.Type == typ {
			return e, true
		}
	}
	return event{}, false
}

// checkSumInvariant verifies sumTotal equals the sum of every
// player's contribution.
func checkSumInvariant(t *testing.T, r *Room) {
	t.Helper()
	total := 0
	for _, p := range r.Players {
		total += p.Sum
	}
	if total != r.Sum {
		t.Errorf("sum invariant broken: room sum=%d, player contributions=%d", r.Sum, total)
	}
}

// checkMoveInvariant verifies the turn pointer indexes a registered
// seat while the game runs.
func checkMoveInvariant(t *testing.T, r *Room) {
	t.Helper()
	if !r.Running {
		return
	}
	if r.MoveIndex < 0 || r.MoveIndex >= len(r.Players) {
		t.Errorf("move invariant broken: moveIndex=%d with %d players", r.MoveIndex, len(r.Players))
	}
}

func TestStartGameRequiresTwoPlayers(t *testing.T) {
	r, sends := newTestRoom(testConfig(), "Alice")
	r.startGame()

	if r.Running {
		t.Error("expected game not to start with one player")
	}
	if events := drainEvents(t, sends[0]); len(events) != 0 {
		t.Errorf("expected no events for refused start, got %v", eventTypes(events))
	}
}

func TestStartGameWhileRunningIsNoOp(t *testing.T) {
	r, sends := newTestRoom(testConfig(), "Alice", "Bob")
	r.startGame()
	drainEvents(t, sends[0])
	drainEvents(t, sends[1])
	sumBefore, moveBefore := r.Sum, r.MoveIndex

	r.startGame()

	if r.Sum != sumBefore || r.MoveIndex != moveBefore {
		t.Error("second start mutated game state")
	}
	if events := drainEvents(t, sends[0]); len(events) != 0 {
		t.Errorf("expected no events from redundant start, got %v", eventTypes(events))
	}
}

func TestStartGameComputesSumLimit(t *testing.T) {
	cfg := testConfig()
	r, _ := newTestRoom(cfg, "Alice", "Bob")
	r.startGame()
	if r.SumLimit != 12 {
		t.Errorf("expected sumLimit=max(12, 2*4)=12, got %d", r.SumLimit)
	}

	r2, _ := newTestRoom(cfg, "A", "B", "C", "D")
	r2.startGame()
	if r2.SumLimit != 16 {
		t.Errorf("expected sumLimit=max(12, 4*4)=16, got %d", r2.SumLimit)
	}
}

func TestStartGameDealsAndAnnounces(t *testing.T) {
	r, sends := newTestRoom(testConfig(), "Alice", "Bob")
	r.startGame()

	if !r.Running {
		t.Fatal("expected game to be running")
	}
	checkMoveInvariant(t, r)
	if r.MoveIndex != 0 {
		t.Errorf("expected first game to open at seat 0, got %d", r.MoveIndex)
	}
	for i, p := range r.Players {
		if len(p.Cards) != 4 {
			t.Errorf("expected seat %d to hold 4 cards, got %d", i, len(p.Cards))
		}
		if p.Sum != 0 || len(p.UsedCards) != 0 {
			t.Errorf("expected seat %d to start clean", i)
		}
	}

	events := drainEvents(t, sends[0])
	if _, ok := findEvent(events, "index"); !ok {
		t.Error("expected private index event on start")
	}
	start, ok := findEvent(events, "start")
	if !ok {
		t.Fatal("expected start broadcast")
	}
	var data StartData
	if err := json.Unmarshal(start.Data, &data); err != nil {
		t.Fatalf("undecodable start data: %v", err)
	}
	if data.SumLimit != 12 || len(data.Players) != 2 {
		t.Errorf("unexpected start snapshot: %+v", data)
	}
	if _, ok := findEvent(events, "move"); !ok {
		t.Error("expected move broadcast after start")
	}
	if _, ok := findEvent(events, "cards"); !ok {
		t.Error("expected private hand after the opening replenishment")
	}
}

func TestStartSeatRotatesAcrossGames(t *testing.T) {
	r, _ := newTestRoom(testConfig(), "Alice", "Bob", "Carol")
	r.startGame()
	if r.MoveIndex != 0 {
		t.Fatalf("expected first game to open at seat 0, got %d", r.MoveIndex)
	}
	r.endGame(true)

	r.startGame()
	if r.MoveIndex != 1 {
		t.Errorf("expected second game to open at seat 1, got %d", r.MoveIndex)
	}
}

func TestStopWithoutGameBroadcastsNothing(t *testing.T) {
	r, sends := newTestRoom(testConfig(), "Alice", "Bob")

	// Drive through the action loop to cover the guard.
	go r.Run()
	r.Actions <- Action{Type: ActionStopGame, Operator: true}
	r.Shutdown()

	if events := drainEvents(t, sends[0]); len(events) != 0 {
		t.Errorf("expected no events, got %v", eventTypes(events))
	}
}

func TestForcedEndBroadcastsEmptyLoser(t *testing.T) {
	r, sends := newRunningRoom(testConfig(), "Alice", "Bob")
	r.endGame(true)

	if r.Running {
		t.Error("expected game stopped")
	}
	events := drainEvents(t, sends[1])
	loser, ok := findEvent(events, "loser")
	if !ok {
		t.Fatal("expected loser broadcast on forced end")
	}
	if len(loser.Data) != 0 {
		t.Errorf("expected no loser payload on forced end, got %s", loser.Data)
	}
}

func TestNaturalEndNamesTheMover(t *testing.T) {
	r, sends := newRunningRoom(testConfig(), "Alice", "Bob")
	r.MoveIndex = 1
	r.endGame(false)

	events := drainEvents(t, sends[0])
	loser, ok := findEvent(events, "loser")
	if !ok {
		t.Fatal("expected loser broadcast")
	}
	var data LoserData
	if err := json.Unmarshal(loser.Data, &data); err != nil {
		t.Fatalf("undecodable loser data: %v", err)
	}
	if data.UUID != testUUID(1) || data.Nickname != "Bob" {
		t.Errorf("expected Bob to lose, got %+v", data)
	}
}

func TestGameEndHookReceivesResult(t *testing.T) {
	r, _ := newRunningRoom(testConfig(), "Alice", "Bob")
	r.Sum = 13
	r.MoveIndex = 0

	var got Result
	r.OnGameEnd = func(res Result) { got = res }
	r.endGame(false)

	if got.LoserNickname != "Alice" || got.Forced || got.Sum != 13 || got.PlayerCount != 2 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestReplenishmentRefillsEveryPlayer(t *testing.T) {
	r, sends := newRunningRoom(testConfig(), "Alice", "Bob", "Carol")
	// Seat 1 is about to move with an empty hand; seat 2 is short one.
	r.Players[0].Cards = []string{"1", "2"}
	r.Players[2].Cards = []string{"0", "0", "0"}
	r.MoveIndex = 0

	r.nextMove(false)

	if r.MoveIndex != 1 {
		t.Fatalf("expected turn at seat 1, got %d", r.MoveIndex)
	}
	for i, p := range r.Players {
		if len(p.Cards) < 4 {
			t.Errorf("expected seat %d refilled to 4 cards, got %d", i, len(p.Cards))
		}
	}
	// Refill tops up to the hand size but never trims past it.
	if len(r.Players[0].Cards) != 4 {
		t.Errorf("expected seat 0 topped up to exactly 4, got %d", len(r.Players[0].Cards))
	}

	for i, ch := range sends {
		events := drainEvents(t, ch)
		if _, ok := findEvent(events, "cards"); !ok {
			t.Errorf("expected seat %d to get a private hand update", i)
		}
	}
}

func TestReplenishmentSkippedWhileMoverHoldsCards(t *testing.T) {
	r, _ := newRunningRoom(testConfig(), "Alice", "Bob")
	r.Players[0].Cards = []string{}
	r.Players[1].Cards = []string{"1"}
	r.MoveIndex = 0

	r.nextMove(false)

	// Seat 1 moves holding a card, so nobody is refilled, not even
	// the empty-handed seat 0.
	if len(r.Players[0].Cards) != 0 {
		t.Errorf("expected no refill while the mover holds cards, seat 0 has %d", len(r.Players[0].Cards))
	}
}

// A single-card template forces a reshuffle between nearly every draw
// of the refill pass.
func TestReplenishmentReshufflesMidPass(t *testing.T) {
	cfg := testConfig()
	cfg.CardTemplate = map[string]int{"0": 1}
	r, _ := newRunningRoom(cfg, "Alice", "Bob")
	r.MoveIndex = 0

	r.nextMove(false) // seat 1 has no cards: full refill of 8 cards from a 1-card template

	for i, p := range r.Players {
		if len(p.Cards) != 4 {
			t.Fatalf("expected seat %d refilled to 4 cards, got %d", i, len(p.Cards))
		}
		for _, c := range p.Cards {
			if c != "0" {
				t.Errorf("expected only %q cards from the template, got %q", "0", c)
			}
		}
	}
	if !r.Running {
		t.Error("expected game still running after mid-pass reshuffles")
	}
}

func TestSkipAdvancesWithoutEffect(t *testing.T) {
	r, sends := newRunningRoom(testConfig(), "Alice", "Bob")
	r.Players[0].Cards = []string{"1"}
	r.Players[1].Cards = []string{"2"}

	go r.Run()
	r.Actions <- Action{Type: ActionSkipTurn, Operator: true}
	r.Shutdown()

	if r.MoveIndex != 1 {
		t.Errorf("expected skip to advance to seat 1, got %d", r.MoveIndex)
	}
	if r.Sum != 0 {
		t.Errorf("expected skip to leave the sum untouched, got %d", r.Sum)
	}
	events := drainEvents(t, sends[1])
	move, ok := findEvent(events, "move")
	if !ok {
		t.Fatal("expected move broadcast on skip")
	}
	var data MoveData
	if err := json.Unmarshal(move.Data, &data); err != nil {
		t.Fatalf("undecodable move data: %v", err)
	}
	if !data.Skip {
		t.Error("expected move event marked as skipped")
	}
}

func TestSkipWithoutOperatorIsIgnored(t *testing.T) {
	r, _ := newRunningRoom(testConfig(), "Alice", "Bob")
	r.Players[0].Cards = []string{"1"}
	r.Players[1].Cards = []string{"2"}

	go r.Run()
	r.Actions <- Action{Type: ActionSkipTurn, UUID: testUUID(1)}
	r.Shutdown()

	if r.MoveIndex != 0 {
		t.Errorf("expected non-operator skip to be dropped, moveIndex=%d", r.MoveIndex)
	}
}

func TestStartRequestRequiresOperator(t *testing.T) {
	r, _ := newTestRoom(testConfig(), "Alice", "Bob")

	go r.Run()
	r.Actions <- Action{Type: ActionStartGame, UUID: testUUID(0)}
	r.Shutdown()

	if r.Running {
		t.Error("expected start request without privilege to be dropped")
	}
}

func TestShutdownSuppressesLoserBroadcast(t *testing.T) {
	r, sends := newRunningRoom(testConfig(), "Alice", "Bob")

	go r.Run()
	r.Shutdown()

	if r.Running {
		t.Error("expected shutdown to end the game")
	}
	events := drainEvents(t, sends[0])
	if _, ok := findEvent(events, "loser"); ok {
		t.Error("expected loser broadcast suppressed during shutdown")
	}
}

func TestSayBroadcast(t *testing.T) {
	r, sends := newTestRoom(testConfig(), "Alice", "Bob")

	go r.Run()
	r.Actions <- Action{Type: ActionSay, Message: "five minute break"}
	r.Shutdown()

	for i, ch := range sends {
		events := drainEvents(t, ch)
		say, ok := findEvent(events, "say")
		if !ok {
			t.Fatalf("expected say broadcast at seat %d", i)
		}
		var data SayData
		if err := json.Unmarshal(say.Data, &data); err != nil {
			t.Fatalf("undecodable say data: %v", err)
		}
		if data.Msg != "five minute break" {
			t.Errorf("unexpected message %q", data.Msg)
		}
	}
}
