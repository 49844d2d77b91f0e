package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qianlnk/codewords/config"
	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/words"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared between a test and a room actor.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testSettings() Settings {
	return SettingsFromConfig(config.Default())
}

func newTestGame(t *testing.T, settings Settings) (*GameState, *testClock) {
	t.Helper()
	clock := newTestClock()
	room := models.NewRoom("ABC234", models.TeamRed, models.WordPackClassic, 60, clock.Now())
	gs := NewGameState(room, settings, words.NewStaticSource(), rand.New(rand.NewSource(7)), clock.Now)
	return gs, clock
}

// table is the usual four-seat setup; ann owns the room.
type table struct {
	gs      *GameState
	sm      *StateMachine
	clock   *testClock
	redCG   *models.Player
	redG    *models.Player
	blueCG  *models.Player
	blueG   *models.Player
	players []*models.Player
}

func join(t *testing.T, gs *GameState, name string) *models.Player {
	t.Helper()
	p, err := gs.Join(name, "", "")
	require.NoError(t, err)
	return p
}

func seat(t *testing.T, sm *StateMachine, p *models.Player, team models.Team, role models.Role) {
	t.Helper()
	require.NoError(t, sm.Apply(context.Background(), p.ID, models.SetLobbyRole{Team: team, Role: role}))
}

func newTable(t *testing.T, settings Settings) *table {
	t.Helper()
	gs, clock := newTestGame(t, settings)
	sm := NewStateMachine(gs)
	tb := &table{gs: gs, sm: sm, clock: clock}

	tb.redCG = join(t, gs, "Ann")
	tb.redG = join(t, gs, "Bob")
	tb.blueCG = join(t, gs, "Cat")
	tb.blueG = join(t, gs, "Dan")
	seat(t, sm, tb.redCG, models.TeamRed, models.RoleClueGiver)
	seat(t, sm, tb.redG, models.TeamRed, models.RoleGuesser)
	seat(t, sm, tb.blueCG, models.TeamBlue, models.RoleClueGiver)
	seat(t, sm, tb.blueG, models.TeamBlue, models.RoleGuesser)
	tb.players = []*models.Player{tb.redCG, tb.redG, tb.blueCG, tb.blueG}
	return tb
}

func (tb *table) apply(actor *models.Player, intent models.Intent) error {
	return tb.sm.Apply(context.Background(), actor.ID, intent)
}

func (tb *table) start(t *testing.T) {
	t.Helper()
	require.NoError(t, tb.apply(tb.redCG, models.StartGame{}))
	require.Equal(t, models.TeamRed, tb.gs.Room.CurrentTeam)
}

// cardOf returns the index of the first hidden card of team.
func (tb *table) cardOf(t *testing.T, team models.Team) int {
	t.Helper()
	for i, c := range tb.gs.Room.Board {
		if c.Team == team && !c.Revealed {
			return i
		}
	}
	t.Fatalf("no hidden %s card left", team)
	return -1
}

// reveal votes for and confirms a card as guesser g.
func (tb *table) reveal(t *testing.T, g *models.Player, index int) {
	t.Helper()
	require.NoError(t, tb.apply(g, models.VoteCard{CardIndex: index}))
	require.NoError(t, tb.apply(g, models.ConfirmReveal{CardIndex: index}))
}

func TestJoin(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())

	ann := join(t, gs, "  Ann ")
	assert.Equal(t, "Ann", ann.Name)
	assert.True(t, ann.Connected)
	assert.Equal(t, ann.ID, gs.Room.OwnerID)
	assert.True(t, ann.IsSpectator())

	bob := join(t, gs, "Bob")
	assert.Equal(t, ann.ID, gs.Room.OwnerID)
	assert.Equal(t, []string{ann.ID, bob.ID}, gs.Room.PlayerOrder)

	_, err := gs.Join("   ", "", "")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = gs.Join("a name that is far too long for this room", "", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestJoinReconnectsExistingPlayer(t *testing.T) {
	gs, clock := newTestGame(t, testSettings())
	sm := NewStateMachine(gs)
	ann := join(t, gs, "Ann")
	seat(t, sm, ann, models.TeamBlue, models.RoleGuesser)

	require.NoError(t, gs.Disconnect(ann.ID))
	assert.False(t, gs.Room.Players[ann.ID].Connected)

	clock.Advance(time.Minute)
	again, err := gs.Join("Annie", "fox", ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, again.ID)
	assert.Equal(t, "Annie", again.Name)
	assert.Equal(t, models.TeamBlue, again.Team)
	assert.True(t, again.Connected)
	assert.Len(t, gs.Room.Players, 1)
	assert.Equal(t, clock.Now(), again.LastSeen)

	stranger, err := gs.Join("Eve", "", "not-a-player")
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-player", stranger.ID)
	assert.Len(t, gs.Room.Players, 2)
}

func TestDisconnectUnknownPlayer(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	assert.ErrorIs(t, gs.Disconnect("ghost"), ErrUnknownPlayer)
}

func TestTransferOwnership(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	ann := join(t, gs, "Ann")
	bob := join(t, gs, "Bob")
	cat := join(t, gs, "Cat")

	assert.False(t, gs.TransferOwnership(), "connected owner keeps the room")

	require.NoError(t, gs.Disconnect(ann.ID))
	require.NoError(t, gs.Disconnect(bob.ID))
	assert.True(t, gs.TransferOwnership())
	assert.Equal(t, cat.ID, gs.Room.OwnerID)
	assert.True(t, gs.OwnerConnected())
}

func TestLeaveByOwnerTransfersImmediately(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	sm := NewStateMachine(gs)
	ann := join(t, gs, "Ann")
	bob := join(t, gs, "Bob")

	require.NoError(t, sm.Apply(context.Background(), ann.ID, models.Leave{}))
	assert.Equal(t, bob.ID, gs.Room.OwnerID)
	assert.False(t, gs.Room.Players[ann.ID].Connected)
	assert.Contains(t, gs.Room.Players, ann.ID, "players are never removed")
}

func TestSetLobbyRole(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	sm := NewStateMachine(gs)
	ann := join(t, gs, "Ann")
	bob := join(t, gs, "Bob")
	ctx := context.Background()

	require.NoError(t, sm.Apply(ctx, ann.ID, models.SetLobbyRole{Team: models.TeamRed, Role: models.RoleClueGiver}))
	assert.ErrorIs(t, sm.Apply(ctx, bob.ID, models.SetLobbyRole{Team: models.TeamRed, Role: models.RoleClueGiver}), ErrClueGiverTaken)
	require.NoError(t, sm.Apply(ctx, bob.ID, models.SetLobbyRole{Team: models.TeamBlue, Role: models.RoleClueGiver}))

	assert.ErrorIs(t, sm.Apply(ctx, bob.ID, models.SetLobbyRole{Team: models.TeamNeutral, Role: models.RoleGuesser}), ErrInvalidTeam)
	assert.ErrorIs(t, sm.Apply(ctx, bob.ID, models.SetLobbyRole{Team: models.TeamRed, Role: "captain"}), ErrInvalidRole)

	// re-selecting your own seat is fine
	require.NoError(t, sm.Apply(ctx, ann.ID, models.SetLobbyRole{Team: models.TeamRed, Role: models.RoleClueGiver}))

	require.NoError(t, sm.Apply(ctx, ann.ID, models.SetLobbyRole{}))
	assert.True(t, gs.Room.Players[ann.ID].IsSpectator())
}

func TestRandomizeTeams(t *testing.T) {
	gs, _ := newTestGame(t, testSettings())
	sm := NewStateMachine(gs)
	ctx := context.Background()

	owner := join(t, gs, "P0")
	for i := 1; i < 3; i++ {
		join(t, gs, fmt.Sprintf("P%d", i))
	}
	assert.ErrorIs(t, sm.Apply(ctx, owner.ID, models.RandomizeTeams{}), ErrNotEnoughPlayers)

	late := join(t, gs, "P3")
	join(t, gs, "P4")
	offline := join(t, gs, "P5")
	require.NoError(t, gs.Disconnect(offline.ID))

	assert.ErrorIs(t, sm.Apply(ctx, late.ID, models.RandomizeTeams{}), ErrNotOwner)
	require.NoError(t, sm.Apply(ctx, owner.ID, models.RandomizeTeams{}))

	counts := map[models.Team]map[models.Role]int{models.TeamRed: {}, models.TeamBlue: {}}
	for _, p := range gs.Room.Players {
		if p.IsSpectator() {
			continue
		}
		counts[p.Team][p.Role]++
	}
	assert.Equal(t, 1, counts[models.TeamRed][models.RoleClueGiver])
	assert.Equal(t, 2, counts[models.TeamRed][models.RoleGuesser])
	assert.Equal(t, 1, counts[models.TeamBlue][models.RoleClueGiver])
	assert.Equal(t, 1, counts[models.TeamBlue][models.RoleGuesser])
	assert.True(t, gs.Room.Players[offline.ID].IsSpectator())
	assert.True(t, TeamsAreReady(gs.Room.OrderedPlayers()))
}

func TestRandomizeTeamsDuringGame(t *testing.T) {
	tb := newTable(t, testSettings())
	tb.start(t)
	assert.ErrorIs(t, tb.apply(tb.redCG, models.RandomizeTeams{}), ErrGameInProgress)
}

func TestSetTurnDurationAndWordPack(t *testing.T) {
	tb := newTable(t, testSettings())

	assert.ErrorIs(t, tb.apply(tb.redG, models.SetTurnDuration{Seconds: 30}), ErrNotOwner)
	assert.ErrorIs(t, tb.apply(tb.redCG, models.SetTurnDuration{Seconds: 45}), ErrInvalidDuration)
	require.NoError(t, tb.apply(tb.redCG, models.SetTurnDuration{Seconds: 30}))
	assert.Equal(t, 30, tb.gs.Room.TurnDuration)

	assert.ErrorIs(t, tb.apply(tb.redCG, models.SetWordPack{Pack: "emoji"}), ErrInvalidWordPack)
	require.NoError(t, tb.apply(tb.redCG, models.SetWordPack{Pack: models.WordPackKahoot}))
	assert.Equal(t, models.WordPackKahoot, tb.gs.Room.WordPack)

	tb.start(t)
	assert.ErrorIs(t, tb.apply(tb.redCG, models.SetTurnDuration{Seconds: 90}), ErrGameInProgress)
	assert.ErrorIs(t, tb.apply(tb.redCG, models.SetWordPack{Pack: models.WordPackClassic}), ErrGameInProgress)
}

func TestSendMessage(t *testing.T) {
	settings := testSettings()
	settings.MessageCap = 5
	gs, _ := newTestGame(t, settings)
	sm := NewStateMachine(gs)
	ann := join(t, gs, "Ann")
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.SendMessage
		err  error
	}{
		{"plain chat", models.SendMessage{Text: " hello "}, nil},
		{"explicit chat type", models.SendMessage{Text: "hi", Kind: models.MessageChat}, nil},
		{"empty", models.SendMessage{Text: "   "}, ErrInvalidMessage},
		{"too long", models.SendMessage{Text: strings.Repeat("x", 201)}, ErrInvalidMessage},
		{"system type", models.SendMessage{Text: "x", Kind: models.MessageSystem}, ErrInvalidMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sm.Apply(ctx, ann.ID, tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
		})
	}
	last := gs.Room.Messages[len(gs.Room.Messages)-1]
	assert.Equal(t, "hi", last.Message)
	assert.Equal(t, ann.ID, last.PlayerID)

	for i := 0; i < 10; i++ {
		require.NoError(t, sm.Apply(ctx, ann.ID, models.SendMessage{Text: fmt.Sprintf("m%d", i)}))
	}
	require.Len(t, gs.Room.Messages, 5)
	assert.Equal(t, "m5", gs.Room.Messages[0].Message)
	assert.Equal(t, "m9", gs.Room.Messages[4].Message)
}

func TestClearStalePlayers(t *testing.T) {
	tb := newTable(t, testSettings())

	require.NoError(t, tb.gs.Disconnect(tb.blueG.ID))
	tb.clock.Advance(30 * time.Second)
	require.NoError(t, tb.gs.Disconnect(tb.redG.ID))
	tb.clock.Advance(40 * time.Second)

	assert.ErrorIs(t, tb.apply(tb.blueCG, models.ClearStalePlayers{}), ErrNotOwner)
	require.NoError(t, tb.apply(tb.redCG, models.ClearStalePlayers{}))

	assert.True(t, tb.gs.Room.Players[tb.blueG.ID].IsSpectator(), "offline for 70s")
	assert.Equal(t, models.RoleGuesser, tb.gs.Room.Players[tb.redG.ID].Role, "offline for 40s")
	assert.Contains(t, tb.gs.Room.Players, tb.blueG.ID)
}

func TestTimeRemaining(t *testing.T) {
	tb := newTable(t, testSettings())
	assert.Nil(t, tb.gs.TimeRemaining())

	tb.start(t)
	require.NotNil(t, tb.gs.TimeRemaining())
	assert.Equal(t, 60, *tb.gs.TimeRemaining())

	tb.clock.Advance(25 * time.Second)
	assert.Equal(t, 35, *tb.gs.TimeRemaining())
	assert.False(t, tb.gs.timerExpired())

	tb.clock.Advance(40 * time.Second)
	assert.Equal(t, 0, *tb.gs.TimeRemaining())
	assert.True(t, tb.gs.timerExpired())
}

func TestUnknownActorIsRejected(t *testing.T) {
	tb := newTable(t, testSettings())
	err := tb.sm.Apply(context.Background(), "ghost", models.StartGame{})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}
