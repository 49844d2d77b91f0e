package models

import (
	"encoding/json"
	"time"
)

// CloseReason tags a room-closed notification.
type CloseReason string

const (
	CloseAbandoned      CloseReason = "abandoned"
	CloseAllPlayersLeft CloseReason = "allPlayersLeft"
	CloseTimeout        CloseReason = "timeout"
)

// Server event types.
const (
	EventSession    = "session"
	EventState      = "state"
	EventPresence   = "presence"
	EventError      = "error"
	EventRoomClosed = "roomClosed"
)

// ClientMessage is the envelope every client frame uses.
type ClientMessage struct {
	Type IntentType      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the envelope every server frame uses.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SessionInfo is sent to a client right after it joins.
type SessionInfo struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// Presence counts connected players against the roster.
type Presence struct {
	Connected int `json:"connected"`
	Total     int `json:"total"`
}

// ErrorInfo reports a rejected intent to the player who sent it.
type ErrorInfo struct {
	Intent  IntentType `json:"intent,omitempty"`
	Message string     `json:"message"`
}

// RoomClosed tells clients the room is going away.
type RoomClosed struct {
	Reason CloseReason `json:"reason"`
}

// CardView is a card as one viewer may see it.
type CardView struct {
	Word       string   `json:"word"`
	Team       Team     `json:"team,omitempty"`
	Revealed   bool     `json:"revealed"`
	RevealedBy string   `json:"revealedBy,omitempty"`
	Votes      []string `json:"votes"`
}

// RoomView is the snapshot sent to a single viewer.
type RoomView struct {
	Code             string           `json:"code"`
	You              string           `json:"you"`
	OwnerID          string           `json:"ownerId"`
	Players          []Player         `json:"players"`
	Board            []CardView       `json:"board"`
	CardVotes        map[int][]string `json:"cardVotes"`
	CurrentTeam      Team             `json:"currentTeam"`
	StartingTeam     Team             `json:"startingTeam"`
	WordPack         WordPack         `json:"wordPack"`
	CurrentClue      *Clue            `json:"currentClue"`
	RemainingGuesses *int             `json:"remainingGuesses"`
	TurnDuration     int              `json:"turnDuration"`
	TurnStartTime    *time.Time       `json:"turnStartTime"`
	TimeRemaining    *int             `json:"timeRemaining"`
	Turn             int              `json:"turn"`
	GameStarted      bool             `json:"gameStarted"`
	GameOver         bool             `json:"gameOver"`
	Winner           Team             `json:"winner,omitempty"`
	Paused           bool             `json:"paused"`
	PauseReason      PauseReason      `json:"pauseReason,omitempty"`
	PausedForTeam    Team             `json:"pausedForTeam,omitempty"`
	Messages         []ChatMessage    `json:"messages"`
}

// RoomSummary is the public HTTP description of a room.
type RoomSummary struct {
	Code        string `json:"code"`
	Connected   int    `json:"connected"`
	Total       int    `json:"total"`
	GameStarted bool   `json:"gameStarted"`
	GameOver    bool   `json:"gameOver"`
}
