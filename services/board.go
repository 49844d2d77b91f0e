package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/words"
)

// Board layout.
const (
	BoardSize         = 25
	StartingTeamCards = 9
	OtherTeamCards    = 8
	NeutralCards      = 7
	TrapCards         = 1
)

// GenerateBoard draws BoardSize distinct uppercase words from pack without
// replacement.
func GenerateBoard(ctx context.Context, src words.Source, pack models.WordPack, rng *rand.Rand) ([]string, error) {
	pool, err := src.Words(ctx, pack)
	if err != nil {
		return nil, fmt.Errorf("load pack %s: %w", pack, err)
	}

	seen := make(map[string]struct{}, len(pool))
	unique := make([]string, 0, len(pool))
	for _, w := range pool {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		unique = append(unique, w)
	}
	if len(unique) < BoardSize {
		return nil, fmt.Errorf("%w: pack %s has %d", ErrNotEnoughWords, pack, len(unique))
	}

	rng.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})
	return unique[:BoardSize], nil
}

// AssignTeams pairs the words, in order, with a shuffled 9/8/7/1 label set.
func AssignTeams(boardWords []string, startingTeam models.Team, rng *rand.Rand) ([]models.Card, error) {
	if len(boardWords) != BoardSize {
		return nil, fmt.Errorf("%w: got %d words", ErrNotEnoughWords, len(boardWords))
	}
	if !startingTeam.IsPlayable() {
		return nil, ErrInvalidTeam
	}

	labels := make([]models.Team, 0, BoardSize)
	labels = appendN(labels, startingTeam, StartingTeamCards)
	labels = appendN(labels, startingTeam.Other(), OtherTeamCards)
	labels = appendN(labels, models.TeamNeutral, NeutralCards)
	labels = appendN(labels, models.TeamTrap, TrapCards)

	rng.Shuffle(len(labels), func(i, j int) {
		labels[i], labels[j] = labels[j], labels[i]
	})

	cards := make([]models.Card, BoardSize)
	for i, w := range boardWords {
		cards[i] = models.Card{Word: w, Team: labels[i]}
	}
	return cards, nil
}

func appendN(labels []models.Team, t models.Team, n int) []models.Team {
	for i := 0; i < n; i++ {
		labels = append(labels, t)
	}
	return labels
}

// RandomTeam picks red or blue uniformly.
func RandomTeam(rng *rand.Rand) models.Team {
	if rng.Intn(2) == 0 {
		return models.TeamRed
	}
	return models.TeamBlue
}
