package models

import "time"

// Team is the affiliation of a player or a card.
type Team string

const (
	TeamNone    Team = ""
	TeamRed     Team = "red"
	TeamBlue    Team = "blue"
	TeamNeutral Team = "neutral" // card only
	TeamTrap    Team = "trap"    // card only
)

// Other returns the opposing colour team. Non-colour teams map to TeamNone.
func (t Team) Other() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

// IsPlayable reports whether players can belong to t.
func (t Team) IsPlayable() bool {
	return t == TeamRed || t == TeamBlue
}

// Role is what a team member does during a turn.
type Role string

const (
	RoleNone      Role = ""
	RoleClueGiver Role = "clueGiver"
	RoleGuesser   Role = "guesser"
)

// IsValid reports whether r is an assignable role.
func (r Role) IsValid() bool {
	return r == RoleClueGiver || r == RoleGuesser
}

// PauseReason explains why the active team cannot play.
type PauseReason string

const (
	PauseNone                  PauseReason = ""
	PauseTeamDisconnected      PauseReason = "teamDisconnected"
	PauseClueGiverDisconnected PauseReason = "clueGiverDisconnected"
	PauseNoGuessers            PauseReason = "noGuessers"
)

// MessageType classifies chat log entries.
type MessageType string

const (
	MessageChat   MessageType = "chat"
	MessageClue   MessageType = "clue"
	MessageSystem MessageType = "system"
)

// WordPack selects the word list a board is drawn from.
type WordPack string

const (
	WordPackClassic WordPack = "classic"
	WordPackKahoot  WordPack = "kahoot"
)

// Player is a room member. Players are never removed while the room lives;
// disconnecting only clears Connected.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Team      Team      `json:"team,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Connected bool      `json:"connected"`
	LastSeen  time.Time `json:"lastSeen"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// IsSpectator reports whether the player has no team or no role.
func (p *Player) IsSpectator() bool {
	return !p.Team.IsPlayable() || !p.Role.IsValid()
}

// MakeSpectator clears team and role.
func (p *Player) MakeSpectator() {
	p.Team = TeamNone
	p.Role = RoleNone
}

// Card is one of the 25 board positions.
type Card struct {
	Word       string   `json:"word"`
	Team       Team     `json:"team"`
	Revealed   bool     `json:"revealed"`
	RevealedBy string   `json:"revealedBy,omitempty"`
	Votes      []string `json:"votes,omitempty"`
}

// HasVote reports whether playerID currently supports revealing the card.
func (c *Card) HasVote(playerID string) bool {
	for _, id := range c.Votes {
		if id == playerID {
			return true
		}
	}
	return false
}

// ToggleVote adds playerID to the vote set, or removes it when present.
// It returns true when the vote is now cast.
func (c *Card) ToggleVote(playerID string) bool {
	for i, id := range c.Votes {
		if id == playerID {
			c.Votes = append(c.Votes[:i], c.Votes[i+1:]...)
			return false
		}
	}
	c.Votes = append(c.Votes, playerID)
	return true
}

// RemoveVote strips playerID from the vote set.
func (c *Card) RemoveVote(playerID string) {
	for i, id := range c.Votes {
		if id == playerID {
			c.Votes = append(c.Votes[:i], c.Votes[i+1:]...)
			return
		}
	}
}

// ClaimReveal is the test-and-set on the revealed flag. Only the first caller
// gets true; votes are cleared on success.
func (c *Card) ClaimReveal(playerID string) bool {
	if c.Revealed {
		return false
	}
	c.Revealed = true
	c.RevealedBy = playerID
	c.Votes = nil
	return true
}

// Clue is the active (word, count) pair of the current turn.
type Clue struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// ChatMessage is one entry of the room log.
type ChatMessage struct {
	ID         string      `json:"id"`
	PlayerID   string      `json:"playerId,omitempty"`
	PlayerName string      `json:"playerName"`
	Message    string      `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       MessageType `json:"type"`
}

// Room is the authoritative state of one game session.
type Room struct {
	Code             string             `json:"code"`
	OwnerID          string             `json:"ownerId"`
	Players          map[string]*Player `json:"players"`
	PlayerOrder      []string           `json:"playerOrder"`
	Board            []Card             `json:"board"`
	CurrentTeam      Team               `json:"currentTeam"`
	StartingTeam     Team               `json:"startingTeam"`
	WordPack         WordPack           `json:"wordPack"`
	CurrentClue      *Clue              `json:"currentClue,omitempty"`
	RemainingGuesses *int               `json:"remainingGuesses,omitempty"`
	TurnDuration     int                `json:"turnDuration"`
	TurnStartTime    *time.Time         `json:"turnStartTime,omitempty"`
	Turn             int                `json:"turn"`
	GameStarted      bool               `json:"gameStarted"`
	GameOver         bool               `json:"gameOver"`
	Winner           Team               `json:"winner,omitempty"`
	Paused           bool               `json:"paused"`
	PauseReason      PauseReason        `json:"pauseReason,omitempty"`
	PausedForTeam    Team               `json:"pausedForTeam,omitempty"`
	Messages         []ChatMessage      `json:"messages"`
	CreatedAt        time.Time          `json:"createdAt"`
	LastActivity     time.Time          `json:"lastActivity"`
}

// NewRoom returns an empty lobby.
func NewRoom(code string, startingTeam Team, pack WordPack, turnDuration int, now time.Time) *Room {
	return &Room{
		Code:         code,
		Players:      make(map[string]*Player),
		PlayerOrder:  make([]string, 0),
		CurrentTeam:  startingTeam,
		StartingTeam: startingTeam,
		WordPack:     pack,
		TurnDuration: turnDuration,
		Messages:     make([]ChatMessage, 0),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// IsActive reports whether a game is running (started and not over).
func (r *Room) IsActive() bool {
	return r.GameStarted && !r.GameOver
}

// OrderedPlayers returns players in join order.
func (r *Room) OrderedPlayers() []*Player {
	players := make([]*Player, 0, len(r.PlayerOrder))
	for _, id := range r.PlayerOrder {
		if p, ok := r.Players[id]; ok {
			players = append(players, p)
		}
	}
	return players
}

// ConnectedCount returns the number of connected players.
func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// BoardWords returns the words of the full board, revealed or not.
func (r *Room) BoardWords() []string {
	words := make([]string, len(r.Board))
	for i, c := range r.Board {
		words[i] = c.Word
	}
	return words
}

// UnrevealedCount returns how many cards of team t are still hidden.
func (r *Room) UnrevealedCount(t Team) int {
	n := 0
	for _, c := range r.Board {
		if c.Team == t && !c.Revealed {
			n++
		}
	}
	return n
}

// ClearVotes empties the vote set of every card.
func (r *Room) ClearVotes() {
	for i := range r.Board {
		r.Board[i].Votes = nil
	}
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make(map[string]*Player, len(r.Players))
	for id, p := range r.Players {
		cp := *p
		c.Players[id] = &cp
	}
	c.PlayerOrder = cloneStrings(r.PlayerOrder)
	if r.Board != nil {
		c.Board = make([]Card, len(r.Board))
		for i, card := range r.Board {
			card.Votes = cloneStrings(card.Votes)
			c.Board[i] = card
		}
	}
	if r.CurrentClue != nil {
		clue := *r.CurrentClue
		c.CurrentClue = &clue
	}
	if r.RemainingGuesses != nil {
		g := *r.RemainingGuesses
		c.RemainingGuesses = &g
	}
	if r.TurnStartTime != nil {
		t := *r.TurnStartTime
		c.TurnStartTime = &t
	}
	if r.Messages != nil {
		c.Messages = make([]ChatMessage, len(r.Messages))
		copy(c.Messages, r.Messages)
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
