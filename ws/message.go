package ws

import "encoding/json"

// Envelope is the generic {type, data} frame used in both directions.
// Data stays raw until the type is known.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// --- Client-to-Server payloads ---

// AuthData must be the first frame on every connection. Token is an
// optional operator JWT; identity itself is taken on faith from the
// uuid cookie (verifying it is out of scope for this server).
type AuthData struct {
	UUID     string `json:"uuid"`
	Nickname string `json:"nickname"`
	Token    string `json:"token,omitempty"`
}

// UseData plays a card on a target seat.
type UseData struct {
	CardType    string `json:"cardType"`
	TargetIndex int    `json:"targetIndex"`
}

// NicknameData renames the sender.
type NicknameData struct {
	Nickname string `json:"nickname"`
}

// --- Server-to-Client payloads (the rest live in the game package) ---

// NicknameEcho confirms the applied nickname after a rename.
type NicknameEcho struct {
	Nickname string `json:"nickname"`
}
