package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qianlnk/codewords/models"
)

func TestViewHidesUnrevealedTeams(t *testing.T) {
	tb := newTable(t, testSettings())
	spectator := join(t, tb.gs, "Eve")
	tb.start(t)
	require.NoError(t, tb.apply(tb.redCG, models.GiveClue{Word: "OCEANIC", Count: 1}))
	revealed := tb.cardOf(t, models.TeamRed)
	tb.reveal(t, tb.redG, revealed)

	for _, viewer := range []*models.Player{tb.redG, tb.blueG, spectator} {
		view := tb.gs.View(viewer.ID)
		require.Len(t, view.Board, BoardSize)
		for i, c := range view.Board {
			if i == revealed {
				assert.Equal(t, models.TeamRed, c.Team)
				continue
			}
			assert.Equal(t, models.TeamNone, c.Team, "%s sees card %d", viewer.Name, i)
		}
	}

	for _, viewer := range []*models.Player{tb.redCG, tb.blueCG} {
		view := tb.gs.View(viewer.ID)
		for i, c := range view.Board {
			assert.Equal(t, tb.gs.Room.Board[i].Team, c.Team)
		}
	}
}

func TestViewShowsEverythingOnceGameIsOver(t *testing.T) {
	tb := newTable(t, testSettings())
	tb.start(t)
	require.NoError(t, tb.apply(tb.redCG, models.GiveClue{Word: "OCEANIC", Count: 1}))
	tb.reveal(t, tb.redG, tb.cardOf(t, models.TeamTrap))

	view := tb.gs.View(tb.blueG.ID)
	for i, c := range view.Board {
		assert.Equal(t, tb.gs.Room.Board[i].Team, c.Team)
	}
	assert.True(t, view.GameOver)
	assert.Equal(t, models.TeamBlue, view.Winner)
}

func TestViewContents(t *testing.T) {
	tb := newTable(t, testSettings())
	tb.start(t)
	require.NoError(t, tb.apply(tb.redCG, models.GiveClue{Word: "OCEANIC", Count: 2}))
	idx := tb.cardOf(t, models.TeamNeutral)
	require.NoError(t, tb.apply(tb.redG, models.VoteCard{CardIndex: idx}))

	view := tb.gs.View(tb.redG.ID)
	assert.Equal(t, tb.redG.ID, view.You)
	assert.Equal(t, tb.redCG.ID, view.OwnerID)
	assert.Equal(t, map[int][]string{idx: {tb.redG.ID}}, view.CardVotes)
	assert.Equal(t, []string{tb.redG.ID}, view.Board[idx].Votes)
	require.Len(t, view.Players, 4)
	assert.Equal(t, "Ann", view.Players[0].Name)
	assert.Equal(t, 1, view.Turn)
	require.NotNil(t, view.TimeRemaining)
	assert.Equal(t, 60, *view.TimeRemaining)

	// the view is a copy
	view.Board[idx].Votes[0] = "someone"
	*view.RemainingGuesses = 99
	assert.Equal(t, []string{tb.redG.ID}, tb.gs.Room.Board[idx].Votes)
	assert.Equal(t, 3, *tb.gs.Room.RemainingGuesses)
}

func TestViewOfLobbyEncodesEmptyCollections(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	ann := join(t, gs, "Ann")

	data, err := json.Marshal(gs.View(ann.ID))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["board"])
	assert.Equal(t, []any{}, decoded["messages"])
	assert.Nil(t, decoded["timeRemaining"])
	assert.Equal(t, false, decoded["gameStarted"])
}

func TestPresenceAndSummary(t *testing.T) {
	tb := newTable(t, testSettings())
	require.NoError(t, tb.gs.Disconnect(tb.blueG.ID))

	assert.Equal(t, models.Presence{Connected: 3, Total: 4}, tb.gs.Presence())
	assert.Equal(t, models.RoomSummary{Code: "ABC234", Connected: 3, Total: 4}, tb.gs.Summary())
}
