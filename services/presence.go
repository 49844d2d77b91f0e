package services

import (
	"fmt"

	"github.com/qianlnk/codewords/models"
)

// pauseReason decides whether the team whose turn it is can play on.
func (gs *GameState) pauseReason() models.PauseReason {
	room := gs.Room
	connected, clueGivers, guessers := gs.teamMembers(room.CurrentTeam)
	switch {
	case connected == 0:
		return models.PauseTeamDisconnected
	case room.CurrentClue == nil && clueGivers == 0:
		return models.PauseClueGiverDisconnected
	case room.CurrentClue != nil && guessers == 0:
		return models.PauseNoGuessers
	}
	return models.PauseNone
}

// evaluatePause recomputes the pause overlay. It runs after every presence
// change and turn boundary. Outside an active game the overlay is cleared.
// It reports whether the pause fields changed.
func (gs *GameState) evaluatePause() bool {
	room := gs.Room
	if !room.IsActive() {
		if !room.Paused {
			return false
		}
		gs.clearPause()
		return true
	}

	reason := gs.pauseReason()
	if reason != models.PauseNone {
		if room.Paused && room.PauseReason == reason && room.PausedForTeam == room.CurrentTeam {
			return false
		}
		wasPaused := room.Paused
		room.Paused = true
		room.PauseReason = reason
		room.PausedForTeam = room.CurrentTeam
		room.TurnStartTime = nil
		if !wasPaused {
			gs.addSystemMessage(fmt.Sprintf("Game paused: %s team %s", room.CurrentTeam, describePause(reason)))
		}
		return true
	}

	if !room.Paused {
		return false
	}
	// a manual resume only waits on the team that was paused
	if !gs.settings.AutoResume && room.PausedForTeam == room.CurrentTeam {
		return false
	}
	gs.resume()
	return true
}

// resume lifts the pause and restarts the turn timer.
func (gs *GameState) resume() {
	gs.clearPause()
	now := gs.now()
	gs.Room.TurnStartTime = &now
	gs.addSystemMessage("Game resumed")
}

func (gs *GameState) clearPause() {
	gs.Room.Paused = false
	gs.Room.PauseReason = models.PauseNone
	gs.Room.PausedForTeam = models.TeamNone
}

func describePause(reason models.PauseReason) string {
	switch reason {
	case models.PauseTeamDisconnected:
		return "has nobody connected"
	case models.PauseClueGiverDisconnected:
		return "is waiting for its clue-giver"
	case models.PauseNoGuessers:
		return "has no connected guessers"
	}
	return ""
}
