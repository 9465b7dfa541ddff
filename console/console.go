package console

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"runtime"
	"strings"
	"time"

	"sum-game-server/config"
	"sum-game-server/game"
	"sum-game-server/ws"
)

// Console is the operator command loop on stdin. Every game-affecting
// command goes through the room's action channel; the console never
// touches game state directly.
type Console struct {
	Room *game.Room
	Hub  *ws.Hub

	// OnExit runs the graceful shutdown sequence ("exit" command).
	OnExit func()

	started time.Time
}

// New creates a Console bound to the room and hub.
func New(room *game.Room, hub *ws.Hub, onExit func()) *Console {
	return &Console{
		Room:    room,
		Hub:     hub,
		OnExit:  onExit,
		started: time.Now(),
	}
}

// Run reads operator commands line by line until input ends.
// Should be run as a goroutine.
func (c *Console) Run(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, args, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		if cmd == "" {
			continue
		}
		c.dispatch(cmd, strings.TrimSpace(args))
	}
}

func (c *Console) dispatch(cmd, args string) {
	switch cmd {
	case "start":
		c.roomAction(game.Action{Type: game.ActionStartGame, Operator: true})
	case "stop":
		c.roomAction(game.Action{Type: game.ActionStopGame, Operator: true})
	case "skip":
		c.roomAction(game.Action{Type: game.ActionSkipTurn, Operator: true})
	case "say":
		if args == "" {
			log.Print("Empty message")
			return
		}
		log.Printf("Announcement: %s", args)
		c.roomAction(game.Action{Type: game.ActionSay, Message: args})
	case "list":
		c.list()
	case "config":
		log.Print("Reloading config")
		cfg := config.Load()
		c.roomAction(game.Action{Type: game.ActionApplyConfig, Config: cfg})
	case "memory":
		c.memory()
	case "exit":
		if c.OnExit != nil {
			c.OnExit()
		}
	case "help":
		log.Print("Commands: start stop skip say <msg> list config memory exit")
	default:
		log.Printf("Unknown command: %s", cmd)
	}
}

func (c *Console) roomAction(a game.Action) {
	select {
	case c.Room.Actions <- a:
	case <-c.Room.Done:
	}
}

func (c *Console) list() {
	clients := c.Hub.Snapshot()
	if len(clients) == 0 {
		log.Print("No connections")
		return
	}
	log.Printf("Connections: %d", len(clients))
	log.Print(" Nickname         UUID                                  Op")
	for _, info := range clients {
		nickname := info.Nickname
		if len(nickname) > 16 {
			nickname = nickname[:16]
		}
		op := "  "
		if info.Op {
			op = "op"
		}
		log.Printf(" %-16s %-37s %s", nickname, info.UUID, op)
	}
}

func (c *Console) memory() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmtBytes := func(v uint64) string {
		if v > 1024*1024 {
			return fmt.Sprintf("%6.1f MB", float64(v)/1024/1024)
		}
		return fmt.Sprintf("%6.1f KB", float64(v)/1024)
	}
	log.Print("Server resources:")
	log.Printf("  Uptime:      %8.2f sec", time.Since(c.started).Seconds())
	log.Printf("  Goroutines:  %8d", runtime.NumGoroutine())
	log.Printf("  Connections: %8d", len(c.Hub.Snapshot()))
	log.Printf("  HeapAlloc:   %s", fmtBytes(m.HeapAlloc))
	log.Printf("  HeapSys:     %s", fmtBytes(m.HeapSys))
	log.Printf("  Sys:         %s", fmtBytes(m.Sys))
	log.Printf("  NumGC:       %8d", m.NumGC)
}
