package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sum-game-server/api"
	"sum-game-server/config"
	"sum-game-server/console"
	"sum-game-server/game"
	"sum-game-server/loghandler"
	"sum-game-server/storage"
	"sum-game-server/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found; using environment variables.")
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()
	log.Printf("Configuration: MaxPlayerCount=%d, MinSum=%d, CardsInHand=%d, WSPort=%d, Ops=%d",
		cfg.MaxPlayerCount, cfg.MinSum, cfg.CardsInHand, cfg.WSPort, len(cfg.Ops))

	// History store is optional; the game runs fine without it.
	var history storage.HistoryStore
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := storage.New(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			log.Printf("History store disabled: %v", err)
		} else {
			history = store
		}
	} else {
		log.Print("History store disabled: DATABASE_URL is not set")
	}

	room := game.NewRoom(cfg)
	if history != nil {
		room.OnGameEnd = func(res game.Result) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				reason := "sum_overflow"
				if res.Forced {
					reason = "cancelled"
				}
				err := history.InsertGameResult(ctx, storage.GameRecord{
					LoserUUID:     res.LoserUUID,
					LoserNickname: res.LoserNickname,
					SumTotal:      res.Sum,
					SumLimit:      res.SumLimit,
					PlayerCount:   res.PlayerCount,
					EndReason:     reason,
				})
				if err != nil {
					slog.Error("recording game result", "tag", "storage", "err", err)
				}
			}()
		}
	}
	go room.Run()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := ws.NewHub(cfg, room)
	go hub.Run(hubCtx)

	handler := api.NewHandler(cfg, history)
	mux := http.NewServeMux()
	mux.HandleFunc("/cookies", handler.Cookies)
	mux.HandleFunc("/api/history", handler.HistoryList)
	mux.HandleFunc("/ws", hub.ServeWS)
	if info, err := os.Stat("client"); err == nil && info.IsDir() {
		mux.Handle("/", http.FileServer(http.Dir("client")))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSPort),
		Handler: mux,
	}

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			log.Print("Shutting down...")
			// Order matters: end the game with broadcasts suppressed,
			// then close sockets with a bounded per-connection wait,
			// then stop accepting HTTP.
			room.Shutdown()
			hub.Shutdown()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("Forcing HTTP server stop: %v", err)
			}
			if history != nil {
				history.Close()
			}
			log.Print("Server stopped")
			os.Exit(0)
		})
	}

	go console.New(room, hub, shutdown).Run(os.Stdin)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		shutdown()
	}()

	log.Printf("Sum game server listening on:")
	log.Printf("  http://localhost:%d", cfg.WSPort)
	for _, addr := range lanAddresses() {
		log.Printf("  http://%s:%d", addr, cfg.WSPort)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

// lanAddresses lists non-loopback IPv4 addresses for the startup banner.
func lanAddresses() []string {
	var out []string
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return out
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			out = append(out, ip4.String())
		}
	}
	// Stable order helps when scanning logs.
	sort.Strings(out)
	return out
}
