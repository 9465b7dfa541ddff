package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all configurable server and game parameters.
type Config struct {
	// MaxPlayerCount is the roster capacity; joins beyond it are refused.
	MaxPlayerCount int `json:"max_player_count"`
	// MinSum is the lower bound for the sum limit; the effective limit
	// is max(MinSum, playerCount*4), recomputed at every game start.
	MinSum int `json:"min_sum"`
	// CardsInHand is the hand size every player is refilled to.
	CardsInHand int `json:"cards_in_hand"`
	// CardTemplate maps card tokens to how many copies one deck holds.
	CardTemplate map[string]int `json:"cards"`

	MaxNicknameLength int `json:"max_nickname_length"`
	WSPort            int `json:"ws_port"`

	// DisconnectGraceMS is how long a dropped identity may reconnect
	// before it is removed from the roster.
	DisconnectGraceMS int `json:"disconnect_grace_ms"`
	// ShutdownWaitMS bounds the per-connection wait for a close
	// acknowledgment during graceful shutdown.
	ShutdownWaitMS int `json:"shutdown_wait_ms"`

	// Ops lists identities allowed to start games and skip turns.
	Ops []string `json:"ops"`

	// AuthBaseURL enables JWT operator tokens (JWKS under
	// /.well-known/jwks.json). Empty disables token auth.
	AuthBaseURL string `json:"auth_base_url"`
	// DatabaseURL enables the game-history store. Empty disables it.
	DatabaseURL string `json:"database_url"`
}

// Defaults returns a Config with the stock card template and limits.
func Defaults() *Config {
	return &Config{
		MaxPlayerCount: 10,
		MinSum:         12,
		CardsInHand:    4,
		CardTemplate: map[string]int{
			"0": 10, "1": 10, "2": 10, "3": 10,
			"4": 3, "plus": 3, "bin": 3, "swap": 3,
		},
		MaxNicknameLength: 16,
		WSPort:            8080,
		DisconnectGraceMS: 500,
		ShutdownWaitMS:    2000,
	}
}

// Load reads configuration from an optional config.json file, creating
// a template file if none exists, then applies environment variable
// overrides. Fields not set in either source retain their defaults.
func Load() *Config {
	cfg := Defaults()

	if _, err := os.Stat("config.json"); os.IsNotExist(err) {
		if data, err := json.MarshalIndent(cfg, "", "    "); err == nil {
			if err := os.WriteFile("config.json", data, 0o644); err == nil {
				log.Print("Created config.json template")
			}
		}
	}

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.MaxPlayerCount, "MAX_PLAYER_COUNT")
	overrideInt(&cfg.MinSum, "MIN_SUM")
	overrideInt(&cfg.CardsInHand, "CARDS_IN_HAND")
	overrideInt(&cfg.MaxNicknameLength, "MAX_NICKNAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideInt(&cfg.DisconnectGraceMS, "DISCONNECT_GRACE_MS")
	overrideInt(&cfg.ShutdownWaitMS, "SHUTDOWN_WAIT_MS")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	if val := os.Getenv("OPS"); val != "" {
		cfg.Ops = nil
		for _, id := range strings.Split(val, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Ops = append(cfg.Ops, id)
			}
		}
	}

	cfg.Sanitize()
	return cfg
}

// Sanitize clamps fields to values the engine can operate with.
// Capacity or limits below these bounds would make a game unplayable.
func (c *Config) Sanitize() {
	if c.MaxPlayerCount < 2 {
		c.MaxPlayerCount = 2
	}
	if c.MinSum < 2 {
		c.MinSum = 2
	}
	if c.CardsInHand < 4 {
		c.CardsInHand = 4
	}
	total := 0
	for _, n := range c.CardTemplate {
		total += n
	}
	if total <= 0 {
		c.CardTemplate = Defaults().CardTemplate
	}
}

// IsOp reports whether the identity is in the operator list.
func (c *Config) IsOp(uuid string) bool {
	for _, id := range c.Ops {
		if id == uuid {
			return true
		}
	}
	return false
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
