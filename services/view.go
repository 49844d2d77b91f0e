package services

import (
	"slices"

	"github.com/qianlnk/codewords/models"
)

// View builds the snapshot viewerID may see. Card teams stay hidden from
// everyone but clue-givers until the game is over; revealed cards always
// show their team.
func (gs *GameState) View(viewerID string) models.RoomView {
	room := gs.Room

	seeAll := room.GameOver
	if viewer, ok := room.Players[viewerID]; ok && viewer.Role == models.RoleClueGiver && viewer.Team.IsPlayable() {
		seeAll = true
	}

	board := make([]models.CardView, len(room.Board))
	votes := make(map[int][]string)
	for i, card := range room.Board {
		cv := models.CardView{
			Word:       card.Word,
			Revealed:   card.Revealed,
			RevealedBy: card.RevealedBy,
			Votes:      slices.Clone(card.Votes),
		}
		if cv.Votes == nil {
			cv.Votes = []string{}
		}
		if card.Revealed || seeAll {
			cv.Team = card.Team
		}
		if len(card.Votes) > 0 {
			votes[i] = slices.Clone(card.Votes)
		}
		board[i] = cv
	}

	ordered := room.OrderedPlayers()
	players := make([]models.Player, len(ordered))
	for i, p := range ordered {
		players[i] = *p
	}

	messages := room.Messages
	if over := len(messages) - gs.settings.MessageCap; over > 0 {
		messages = messages[over:]
	}

	view := models.RoomView{
		Code:          room.Code,
		You:           viewerID,
		OwnerID:       room.OwnerID,
		Players:       players,
		Board:         board,
		CardVotes:     votes,
		CurrentTeam:   room.CurrentTeam,
		StartingTeam:  room.StartingTeam,
		WordPack:      room.WordPack,
		TurnDuration:  room.TurnDuration,
		TimeRemaining: gs.TimeRemaining(),
		Turn:          room.Turn,
		GameStarted:   room.GameStarted,
		GameOver:      room.GameOver,
		Winner:        room.Winner,
		Paused:        room.Paused,
		PauseReason:   room.PauseReason,
		PausedForTeam: room.PausedForTeam,
		Messages:      slices.Clone(messages),
	}
	if view.Messages == nil {
		view.Messages = []models.ChatMessage{}
	}
	if room.CurrentClue != nil {
		clue := *room.CurrentClue
		view.CurrentClue = &clue
	}
	if room.RemainingGuesses != nil {
		g := *room.RemainingGuesses
		view.RemainingGuesses = &g
	}
	if room.TurnStartTime != nil {
		t := *room.TurnStartTime
		view.TurnStartTime = &t
	}
	return view
}

// Presence counts connected players against the roster.
func (gs *GameState) Presence() models.Presence {
	return models.Presence{
		Connected: gs.Room.ConnectedCount(),
		Total:     len(gs.Room.Players),
	}
}

// Summary is the public HTTP description of the room.
func (gs *GameState) Summary() models.RoomSummary {
	room := gs.Room
	return models.RoomSummary{
		Code:        room.Code,
		Connected:   room.ConnectedCount(),
		Total:       len(room.Players),
		GameStarted: room.GameStarted,
		GameOver:    room.GameOver,
	}
}
