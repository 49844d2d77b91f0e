package services

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/qianlnk/codewords/config"
	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/words"
)

const maxAvatarLength = 64

// Settings are the bounded values the state machine validates intents against.
type Settings struct {
	TurnDurations    []int
	WordPacks        []models.WordPack
	MinPlayers       int
	MessageCap       int
	AutoResume       bool
	MaxClueCount     int
	MaxMessageLength int
	MaxNameLength    int
	StalePlayerGrace time.Duration
}

// SettingsFromConfig extracts game settings from the server configuration.
func SettingsFromConfig(cfg config.Config) Settings {
	packs := make([]models.WordPack, len(cfg.Game.WordPacks))
	for i, p := range cfg.Game.WordPacks {
		packs[i] = models.WordPack(p)
	}
	return Settings{
		TurnDurations:    cfg.Game.TurnDurations,
		WordPacks:        packs,
		MinPlayers:       cfg.Game.MinPlayers,
		MessageCap:       cfg.Game.MessageCap,
		AutoResume:       cfg.Game.AutoResume,
		MaxClueCount:     cfg.Game.MaxClueCount,
		MaxMessageLength: cfg.Game.MaxMessageLength,
		MaxNameLength:    cfg.Game.MaxNameLength,
		StalePlayerGrace: cfg.Lifecycle.StalePlayerGrace,
	}
}

// GameState owns one room and everything needed to mutate it. It is not
// safe for concurrent use; the room's GameController serializes access.
type GameState struct {
	Room     *models.Room
	settings Settings
	words    words.Source
	rng      *rand.Rand
	now      func() time.Time
	newID    func() string
}

// NewGameState wraps room. A nil rng or clock gets a default.
func NewGameState(room *models.Room, settings Settings, src words.Source, rng *rand.Rand, now func() time.Time) *GameState {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &GameState{
		Room:     room,
		settings: settings,
		words:    src,
		rng:      rng,
		now:      now,
		newID:    uuid.NewString,
	}
}

// Join adds a player, or reconnects an existing one when existingID is known.
func (gs *GameState) Join(name, avatar, existingID string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	avatar = strings.TrimSpace(avatar)
	if name == "" || utf8.RuneCountInString(name) > gs.settings.MaxNameLength {
		return nil, ErrInvalidName
	}
	if utf8.RuneCountInString(avatar) > maxAvatarLength {
		return nil, ErrInvalidName
	}

	now := gs.now()
	room := gs.Room

	p, rejoin := room.Players[existingID]
	if !rejoin {
		p = &models.Player{
			ID:       gs.newID(),
			JoinedAt: now,
		}
		room.Players[p.ID] = p
		room.PlayerOrder = append(room.PlayerOrder, p.ID)
	}
	p.Name = name
	p.Avatar = avatar
	p.Connected = true
	p.LastSeen = now

	if _, ok := room.Players[room.OwnerID]; !ok {
		room.OwnerID = p.ID
	}

	gs.evaluatePause()
	gs.touch()
	return p, nil
}

// Disconnect marks the player offline and withdraws their votes. The player
// keeps team and role.
func (gs *GameState) Disconnect(playerID string) error {
	p, ok := gs.Room.Players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	p.Connected = false
	p.LastSeen = gs.now()
	gs.stripVotes(playerID)
	gs.evaluatePause()
	gs.touch()
	return nil
}

// TransferOwnership hands the room to the earliest-joined connected player
// when the current owner is offline. It reports whether the owner changed.
func (gs *GameState) TransferOwnership() bool {
	room := gs.Room
	if owner, ok := room.Players[room.OwnerID]; ok && owner.Connected {
		return false
	}
	for _, p := range room.OrderedPlayers() {
		if p.Connected && p.ID != room.OwnerID {
			room.OwnerID = p.ID
			gs.addSystemMessage(fmt.Sprintf("%s is now the room owner", p.Name))
			gs.touch()
			return true
		}
	}
	return false
}

// OwnerConnected reports whether the owner currently holds a connection.
func (gs *GameState) OwnerConnected() bool {
	owner, ok := gs.Room.Players[gs.Room.OwnerID]
	return ok && owner.Connected
}

func (gs *GameState) leave(actor *models.Player) error {
	if err := gs.Disconnect(actor.ID); err != nil {
		return err
	}
	if gs.Room.OwnerID == actor.ID {
		gs.TransferOwnership()
	}
	return nil
}

func (gs *GameState) setLobbyRole(actor *models.Player, in models.SetLobbyRole) error {
	room := gs.Room
	if room.IsActive() && !room.Paused {
		return ErrRoleChangeLocked
	}
	if in.Team != models.TeamNone && !in.Team.IsPlayable() {
		return ErrInvalidTeam
	}
	if in.Role != models.RoleNone && !in.Role.IsValid() {
		return ErrInvalidRole
	}

	if in.Team == models.TeamNone || in.Role == models.RoleNone {
		actor.MakeSpectator()
	} else {
		if in.Role == models.RoleClueGiver {
			for _, p := range room.Players {
				if p.ID != actor.ID && p.Team == in.Team && p.Role == models.RoleClueGiver {
					return ErrClueGiverTaken
				}
			}
		}
		actor.Team = in.Team
		actor.Role = in.Role
	}

	gs.stripVotes(actor.ID)
	gs.evaluatePause()
	return nil
}

// randomizeTeams shuffles the connected players into two halves; the first
// half (rounded up) plays red. Disconnected players become spectators.
func (gs *GameState) randomizeTeams(actor *models.Player) error {
	room := gs.Room
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if room.IsActive() {
		return ErrGameInProgress
	}

	var connected []*models.Player
	for _, p := range room.OrderedPlayers() {
		if p.Connected {
			connected = append(connected, p)
		}
	}
	if len(connected) < gs.settings.MinPlayers {
		return ErrNotEnoughPlayers
	}

	gs.rng.Shuffle(len(connected), func(i, j int) {
		connected[i], connected[j] = connected[j], connected[i]
	})

	for _, p := range room.Players {
		p.MakeSpectator()
	}
	half := (len(connected) + 1) / 2
	for i, p := range connected {
		p.Team = models.TeamRed
		first := i == 0
		if i >= half {
			p.Team = models.TeamBlue
			first = i == half
		}
		p.Role = models.RoleGuesser
		if first {
			p.Role = models.RoleClueGiver
		}
	}

	gs.addSystemMessage("Teams were randomized")
	return nil
}

func (gs *GameState) setTurnDuration(actor *models.Player, in models.SetTurnDuration) error {
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if gs.Room.GameStarted {
		return ErrGameInProgress
	}
	if !slices.Contains(gs.settings.TurnDurations, in.Seconds) {
		return ErrInvalidDuration
	}
	gs.Room.TurnDuration = in.Seconds
	return nil
}

func (gs *GameState) setWordPack(actor *models.Player, in models.SetWordPack) error {
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	if gs.Room.GameStarted {
		return ErrGameInProgress
	}
	if !slices.Contains(gs.settings.WordPacks, in.Pack) {
		return ErrInvalidWordPack
	}
	gs.Room.WordPack = in.Pack
	return nil
}

func (gs *GameState) sendMessage(actor *models.Player, in models.SendMessage) error {
	if in.Kind != "" && in.Kind != models.MessageChat {
		return ErrInvalidMessage
	}
	text := strings.TrimSpace(in.Text)
	if text == "" || utf8.RuneCountInString(text) > gs.settings.MaxMessageLength {
		return ErrInvalidMessage
	}
	gs.addMessage(actor.ID, actor.Name, text, models.MessageChat)
	return nil
}

// clearStalePlayers turns players offline for longer than the grace period
// into spectators.
func (gs *GameState) clearStalePlayers(actor *models.Player) error {
	if err := gs.requireOwner(actor); err != nil {
		return err
	}
	now := gs.now()
	cleared := 0
	for _, p := range gs.Room.OrderedPlayers() {
		if p.Connected || p.IsSpectator() {
			continue
		}
		if now.Sub(p.LastSeen) < gs.settings.StalePlayerGrace {
			continue
		}
		p.MakeSpectator()
		gs.stripVotes(p.ID)
		cleared++
	}
	if cleared > 0 {
		gs.addSystemMessage(fmt.Sprintf("%d inactive player(s) moved to spectators", cleared))
		gs.evaluatePause()
	}
	return nil
}

func (gs *GameState) requireOwner(actor *models.Player) error {
	if actor.ID != gs.Room.OwnerID {
		return ErrNotOwner
	}
	return nil
}

// teamMembers counts the connected clue-givers and guessers of team t.
func (gs *GameState) teamMembers(t models.Team) (connected, clueGivers, guessers int) {
	for _, p := range gs.Room.Players {
		if p.Team != t || !p.Connected {
			continue
		}
		connected++
		switch p.Role {
		case models.RoleClueGiver:
			clueGivers++
		case models.RoleGuesser:
			guessers++
		}
	}
	return connected, clueGivers, guessers
}

func (gs *GameState) stripVotes(playerID string) {
	for i := range gs.Room.Board {
		gs.Room.Board[i].RemoveVote(playerID)
	}
}

func (gs *GameState) addSystemMessage(text string) {
	gs.addMessage("", "System", text, models.MessageSystem)
}

func (gs *GameState) addMessage(playerID, playerName, text string, typ models.MessageType) {
	room := gs.Room
	room.Messages = append(room.Messages, models.ChatMessage{
		ID:         gs.newID(),
		PlayerID:   playerID,
		PlayerName: playerName,
		Message:    text,
		Timestamp:  gs.now(),
		Type:       typ,
	})
	if over := len(room.Messages) - gs.settings.MessageCap; over > 0 {
		room.Messages = slices.Clone(room.Messages[over:])
	}
}

func (gs *GameState) touch() {
	gs.Room.LastActivity = gs.now()
}

// TimeRemaining returns the whole seconds left on the turn timer, or nil when
// no timer runs.
func (gs *GameState) TimeRemaining() *int {
	room := gs.Room
	if !room.IsActive() || room.Paused || room.TurnStartTime == nil {
		return nil
	}
	elapsed := gs.now().Sub(*room.TurnStartTime)
	left := room.TurnDuration - int(elapsed/time.Second)
	if left < 0 {
		left = 0
	}
	return &left
}

func (gs *GameState) timerExpired() bool {
	left := gs.TimeRemaining()
	if left == nil {
		return false
	}
	return gs.now().Sub(*gs.Room.TurnStartTime) >= time.Duration(gs.Room.TurnDuration)*time.Second
}
