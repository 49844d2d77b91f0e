package services

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qianlnk/codewords/config"
	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/store"
	"github.com/qianlnk/codewords/words"
)

// RoomManager is the registry of live rooms, keyed by room code.
type RoomManager struct {
	games    map[string]*GameController
	settings Settings
	timings  Timings
	defaults roomDefaults
	words    words.Source
	store    store.RoomStore
	notifier Notifier
	mutex    sync.RWMutex

	idleTimeout   time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	newRand       func() *rand.Rand
	entropy       io.Reader
}

type roomDefaults struct {
	pack         models.WordPack
	turnDuration int
}

// NewRoomManager creates an empty registry. A nil store keeps snapshots in
// memory.
func NewRoomManager(cfg config.Config, src words.Source, st store.RoomStore, notifier Notifier) *RoomManager {
	if st == nil {
		st = store.NewMemoryStore()
	}
	pack := models.WordPackClassic
	if len(cfg.Game.WordPacks) > 0 {
		pack = models.WordPack(cfg.Game.WordPacks[0])
	}
	return &RoomManager{
		games:    make(map[string]*GameController),
		settings: SettingsFromConfig(cfg),
		timings: Timings{
			OwnerGrace:           cfg.Lifecycle.OwnerGrace,
			EmptyRoomGraceLobby:  cfg.Lifecycle.EmptyRoomGraceLobby,
			EmptyRoomGraceActive: cfg.Lifecycle.EmptyRoomGraceActive,
			TimerInterval:        cfg.Lifecycle.TimerInterval,
		},
		defaults: roomDefaults{
			pack:         pack,
			turnDuration: cfg.Game.DefaultTurnDuration,
		},
		words:         src,
		store:         st,
		notifier:      notifier,
		idleTimeout:   cfg.Lifecycle.IdleTimeout,
		sweepInterval: cfg.Lifecycle.SweepInterval,
		now:           time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		entropy: crand.Reader,
	}
}

// CreateRoom allocates a fresh code and opens an empty lobby under it.
func (rm *RoomManager) CreateRoom() (*GameController, error) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	for attempt := 0; attempt < 100; attempt++ {
		code, err := newRoomCode(rm.entropy)
		if err != nil {
			return nil, err
		}
		if _, exists := rm.games[code]; exists {
			continue
		}
		return rm.openLocked(code), nil
	}
	return nil, fmt.Errorf("allocate room code: too many collisions")
}

// GetOrCreate returns the room under code, opening it on first use.
func (rm *RoomManager) GetOrCreate(code string) (*GameController, error) {
	if !ValidRoomCode(code) {
		return nil, ErrInvalidRoomCode
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	if gc, exists := rm.games[code]; exists {
		return gc, nil
	}
	return rm.openLocked(code), nil
}

// GetGameController returns the live room under code.
func (rm *RoomManager) GetGameController(code string) (*GameController, bool) {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	gc, exists := rm.games[code]
	return gc, exists
}

// GetRoom describes the room under code.
func (rm *RoomManager) GetRoom(code string) (models.RoomSummary, error) {
	gc, ok := rm.GetGameController(code)
	if !ok {
		return models.RoomSummary{}, ErrRoomNotFound
	}
	summary, err := gc.Summary()
	if err != nil {
		return models.RoomSummary{}, ErrRoomNotFound
	}
	return summary, nil
}

// Count returns the number of live rooms.
func (rm *RoomManager) Count() int {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	return len(rm.games)
}

func (rm *RoomManager) openLocked(code string) *GameController {
	rng := rm.newRand()
	room := models.NewRoom(code, RandomTeam(rng), rm.defaults.pack, rm.defaults.turnDuration, rm.now())
	return rm.startLocked(NewGameState(room, rm.settings, rm.words, rng, rm.now))
}

func (rm *RoomManager) startLocked(state *GameState) *GameController {
	gc := NewGameController(state, rm.notifier, rm.store, rm.timings, rm.remove)
	rm.games[gc.Code()] = gc
	gc.Start()
	log.Info().Str("room", gc.Code()).Int("rooms", len(rm.games)).Msg("room opened")
	return gc
}

// remove drops a closed room. It runs on the room's own goroutine.
func (rm *RoomManager) remove(code string) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	delete(rm.games, code)
}

// Restore reopens every room found in the store. All players come back
// disconnected, so each room starts its empty-room grace period and closes
// unless someone reconnects.
func (rm *RoomManager) Restore(ctx context.Context) (int, error) {
	rooms, err := rm.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored rooms: %w", err)
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	restored := 0
	now := rm.now()
	for _, room := range rooms {
		if _, exists := rm.games[room.Code]; exists || !ValidRoomCode(room.Code) {
			continue
		}
		for _, p := range room.Players {
			if p.Connected {
				p.Connected = false
				p.LastSeen = now
			}
		}
		for i := range room.Board {
			room.Board[i].Votes = nil
		}
		state := NewGameState(room, rm.settings, rm.words, rm.newRand(), rm.now)
		state.evaluatePause()
		rm.startLocked(state)
		restored++
	}
	return restored, nil
}

// Run sweeps idle rooms until ctx is done.
func (rm *RoomManager) Run(ctx context.Context) {
	ticker := time.NewTicker(rm.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.SweepIdle()
		}
	}
}

// SweepIdle closes rooms with no accepted intent for the idle timeout.
func (rm *RoomManager) SweepIdle() int {
	rm.mutex.RLock()
	games := make([]*GameController, 0, len(rm.games))
	for _, gc := range rm.games {
		games = append(games, gc)
	}
	rm.mutex.RUnlock()

	closed := 0
	now := rm.now()
	for _, gc := range games {
		last, err := gc.LastActivity()
		if err != nil {
			continue
		}
		if now.Sub(last) < rm.idleTimeout {
			continue
		}
		if err := gc.Close(models.CloseTimeout); err == nil {
			closed++
		}
	}
	if closed > 0 {
		log.Info().Int("closed", closed).Msg("idle rooms swept")
	}
	return closed
}

// Shutdown stops every room actor. Snapshots stay in the store so the next
// process can restore them.
func (rm *RoomManager) Shutdown() {
	rm.mutex.RLock()
	games := make([]*GameController, 0, len(rm.games))
	for _, gc := range rm.games {
		games = append(games, gc)
	}
	rm.mutex.RUnlock()

	for _, gc := range games {
		gc.Stop()
	}
}
