package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qianlnk/codewords/models"
)

func sampleRoom(code string) *models.Room {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	room := models.NewRoom(code, models.TeamRed, models.WordPackClassic, 60, now)
	room.OwnerID = "p1"
	room.Players["p1"] = &models.Player{ID: "p1", Name: "Ann", Team: models.TeamRed, Role: models.RoleClueGiver, JoinedAt: now, LastSeen: now}
	room.PlayerOrder = append(room.PlayerOrder, "p1")
	room.Board = []models.Card{{Word: "APPLE", Team: models.TeamRed, Votes: []string{"p1"}}}
	return room
}

// exerciseStore runs the shared contract against any RoomStore.
func exerciseStore(t *testing.T, s RoomStore) {
	ctx := context.Background()

	_, err := s.Load(ctx, "NOPE22")
	assert.ErrorIs(t, err, ErrNotFound)

	room := sampleRoom("ABC234")
	require.NoError(t, s.Save(ctx, room))

	// later mutation must not leak into the snapshot
	room.Players["p1"].Name = "Changed"
	room.Board[0].Votes[0] = "zz"

	got, err := s.Load(ctx, "ABC234")
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Players["p1"].Name)
	assert.Equal(t, []string{"p1"}, got.Board[0].Votes)
	assert.Equal(t, models.TeamRed, got.StartingTeam)

	require.NoError(t, s.Save(ctx, sampleRoom("XYZ789")))
	list, err := s.List(ctx)
	require.NoError(t, err)
	codes := map[string]bool{}
	for _, r := range list {
		codes[r.Code] = true
	}
	assert.True(t, codes["ABC234"])
	assert.True(t, codes["XYZ789"])

	require.NoError(t, s.Delete(ctx, "ABC234"))
	require.NoError(t, s.Delete(ctx, "XYZ789"))
	_, err = s.Load(ctx, "ABC234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CODEWORDS_TEST_REDIS")
	if addr == "" {
		t.Skip("CODEWORDS_TEST_REDIS not set")
	}
	s := NewRedisStore(addr, "", 0, fmt.Sprintf("codewords:test:%d:", time.Now().UnixNano()), time.Minute)
	defer s.Close()
	require.NoError(t, s.Ping(context.Background()))

	exerciseStore(t, s)
}
