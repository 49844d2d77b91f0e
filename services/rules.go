package services

import "github.com/qianlnk/codewords/models"

const maxRequiredVotes = 3

// TeamsAreReady reports whether each team has exactly one clue-giver and at
// least one guesser among players holding both a team and a role.
func TeamsAreReady(players []*models.Player) bool {
	clueGivers := map[models.Team]int{}
	guessers := map[models.Team]int{}
	for _, p := range players {
		if p.IsSpectator() {
			continue
		}
		switch p.Role {
		case models.RoleClueGiver:
			clueGivers[p.Team]++
		case models.RoleGuesser:
			guessers[p.Team]++
		}
	}
	for _, t := range []models.Team{models.TeamRed, models.TeamBlue} {
		if clueGivers[t] != 1 || guessers[t] < 1 {
			return false
		}
	}
	return true
}

// RequiredVotes is the number of votes a card needs before it can be
// revealed, given how many guessers the team has.
func RequiredVotes(guesserCount int) int {
	if guesserCount <= 1 {
		return 1
	}
	return min(maxRequiredVotes, (guesserCount+1)/2)
}
