package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qianlnk/codewords/logger"
	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/store"
)

const (
	inboxSize    = 64
	storeTimeout = 2 * time.Second
)

// Notifier delivers server messages to the connections of a room.
type Notifier interface {
	SendToPlayer(roomCode, playerID string, msg models.ServerMessage)
	CloseRoom(roomCode string, msg models.ServerMessage)
}

// Timings are the grace periods a room actor enforces.
type Timings struct {
	OwnerGrace           time.Duration
	EmptyRoomGraceLobby  time.Duration
	EmptyRoomGraceActive time.Duration
	TimerInterval        time.Duration
}

// GameController is the single writer of one room. Every mutation runs as a
// closure on its goroutine, so intents from many connections are applied one
// at a time.
type GameController struct {
	code         string
	game         *GameState
	stateMachine *StateMachine
	notifier     Notifier
	store        store.RoomStore
	timings      Timings
	onClose      func(code string)
	log          zerolog.Logger

	inbox     chan func()
	done      chan struct{}
	startOnce sync.Once
	closed    bool

	// epochs counts joins per player; only the newest connection may
	// mark the player offline
	epochs map[string]int

	// timers post back into the inbox; a bumped generation drops stale firings
	emptyTimer *time.Timer
	emptyGen   int
	ownerTimer *time.Timer
	ownerGen   int
}

// NewGameController creates the actor for game. Call Start to run it.
func NewGameController(game *GameState, notifier Notifier, st store.RoomStore, timings Timings, onClose func(code string)) *GameController {
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &GameController{
		code:         game.Room.Code,
		game:         game,
		stateMachine: NewStateMachine(game),
		notifier:     notifier,
		store:        st,
		timings:      timings,
		onClose:      onClose,
		log:          logger.Room(game.Room.Code),
		inbox:        make(chan func(), inboxSize),
		done:         make(chan struct{}),
		epochs:       make(map[string]int),
	}
}

// Code returns the room code.
func (gc *GameController) Code() string {
	return gc.code
}

// Start launches the actor goroutine and arms the lifecycle timers for the
// current roster.
func (gc *GameController) Start() {
	gc.startOnce.Do(func() {
		go gc.run()
		gc.post(gc.reconcileTimers)
	})
}

func (gc *GameController) run() {
	interval := gc.timings.TimerInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case fn := <-gc.inbox:
			fn()
		case <-ticker.C:
			gc.tick()
		case <-gc.done:
			return
		}
	}
}

func (gc *GameController) post(fn func()) bool {
	select {
	case <-gc.done:
		return false
	default:
	}
	select {
	case gc.inbox <- fn:
		return true
	case <-gc.done:
		return false
	}
}

// call runs fn on the actor and waits for its result.
func (gc *GameController) call(fn func() error) error {
	reply := make(chan error, 1)
	if !gc.post(func() { reply <- fn() }) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-gc.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	}
}

// Join adds or reconnects a player and tells the rest of the room. The new
// connection is expected to call Sync once it can receive messages. The
// returned epoch identifies this connection in Disconnect.
func (gc *GameController) Join(name, avatar, existingID string) (models.Player, int, error) {
	var (
		player models.Player
		epoch  int
	)
	err := gc.call(func() error {
		if gc.closed {
			return ErrRoomClosed
		}
		p, err := gc.game.Join(name, avatar, existingID)
		if err != nil {
			return err
		}
		gc.epochs[p.ID]++
		player, epoch = *p, gc.epochs[p.ID]
		gc.log.Info().Str("player", p.ID).Str("name", p.Name).Bool("rejoin", p.ID == existingID).Msg("player joined")
		gc.changed()
		return nil
	})
	return player, epoch, err
}

// Sync sends the current snapshot and presence to one player.
func (gc *GameController) Sync(playerID string) error {
	return gc.call(func() error {
		if gc.closed {
			return ErrRoomClosed
		}
		gc.notifier.SendToPlayer(gc.code, playerID, models.ServerMessage{Type: models.EventState, Data: gc.game.View(playerID)})
		gc.notifier.SendToPlayer(gc.code, playerID, models.ServerMessage{Type: models.EventPresence, Data: gc.game.Presence()})
		return nil
	})
}

// Disconnect records that the connection opened at epoch went away. It is
// ignored when the player has reconnected since.
func (gc *GameController) Disconnect(playerID string, epoch int) error {
	return gc.call(func() error {
		if gc.closed {
			return ErrRoomClosed
		}
		if epoch != gc.epochs[playerID] {
			return nil
		}
		if err := gc.game.Disconnect(playerID); err != nil {
			return err
		}
		gc.log.Info().Str("player", playerID).Msg("player disconnected")
		gc.changed()
		return nil
	})
}

// Handle applies an intent from playerID. A rejected intent changes nothing
// and nothing is broadcast.
func (gc *GameController) Handle(ctx context.Context, playerID string, intent models.Intent) error {
	return gc.call(func() error {
		if gc.closed {
			return ErrRoomClosed
		}
		if err := gc.stateMachine.Apply(ctx, playerID, intent); err != nil {
			gc.log.Debug().Str("player", playerID).Str("intent", string(intent.Type())).Err(err).Msg("intent rejected")
			return err
		}
		gc.changed()
		return nil
	})
}

// Summary describes the room for the HTTP API.
func (gc *GameController) Summary() (models.RoomSummary, error) {
	var s models.RoomSummary
	err := gc.call(func() error {
		s = gc.game.Summary()
		return nil
	})
	return s, err
}

// Snapshot returns a deep copy of the room.
func (gc *GameController) Snapshot() (*models.Room, error) {
	var room *models.Room
	err := gc.call(func() error {
		room = gc.game.Room.Clone()
		return nil
	})
	return room, err
}

// LastActivity returns when the room last accepted an intent.
func (gc *GameController) LastActivity() (time.Time, error) {
	var t time.Time
	err := gc.call(func() error {
		t = gc.game.Room.LastActivity
		return nil
	})
	return t, err
}

// Close notifies every client and shuts the room down.
func (gc *GameController) Close(reason models.CloseReason) error {
	err := gc.call(func() error {
		gc.shutdown(reason)
		return nil
	})
	if errors.Is(err, ErrRoomClosed) {
		return nil
	}
	return err
}

func (gc *GameController) tick() {
	if gc.closed {
		return
	}
	if gc.stateMachine.Tick() {
		gc.log.Debug().Int("turn", gc.game.Room.Turn).Msg("turn timer expired")
		gc.changed()
	}
}

// changed runs after every accepted mutation.
func (gc *GameController) changed() {
	gc.reconcileTimers()
	gc.broadcast()
	gc.persist()
}

func (gc *GameController) broadcast() {
	presence := models.ServerMessage{Type: models.EventPresence, Data: gc.game.Presence()}
	for _, p := range gc.game.Room.OrderedPlayers() {
		if !p.Connected {
			continue
		}
		gc.notifier.SendToPlayer(gc.code, p.ID, models.ServerMessage{Type: models.EventState, Data: gc.game.View(p.ID)})
		gc.notifier.SendToPlayer(gc.code, p.ID, presence)
	}
}

func (gc *GameController) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := gc.store.Save(ctx, gc.game.Room.Clone()); err != nil {
		gc.log.Warn().Err(err).Msg("save room snapshot")
	}
}

// reconcileTimers arms or cancels the empty-room and owner grace timers to
// match the roster.
func (gc *GameController) reconcileTimers() {
	if gc.closed {
		return
	}
	room := gc.game.Room
	connected := room.ConnectedCount()

	if connected == 0 {
		if gc.emptyTimer == nil {
			grace := gc.timings.EmptyRoomGraceLobby
			if room.IsActive() {
				grace = gc.timings.EmptyRoomGraceActive
			}
			gc.armEmptyTimer(grace)
			gc.log.Debug().Dur("grace", grace).Msg("room empty, cleanup scheduled")
		}
	} else {
		gc.cancelEmptyTimer()
	}

	if connected > 0 && !gc.game.OwnerConnected() {
		if gc.ownerTimer == nil {
			gc.armOwnerTimer(gc.timings.OwnerGrace)
		}
	} else {
		gc.cancelOwnerTimer()
	}
}

func (gc *GameController) armEmptyTimer(d time.Duration) {
	gc.emptyGen++
	gen := gc.emptyGen
	gc.emptyTimer = time.AfterFunc(d, func() {
		gc.post(func() {
			if !gc.closed && gen == gc.emptyGen {
				gc.emptyRoomExpired()
			}
		})
	})
}

func (gc *GameController) cancelEmptyTimer() {
	if gc.emptyTimer == nil {
		return
	}
	gc.emptyTimer.Stop()
	gc.emptyTimer = nil
	gc.emptyGen++
}

func (gc *GameController) armOwnerTimer(d time.Duration) {
	gc.ownerGen++
	gen := gc.ownerGen
	gc.ownerTimer = time.AfterFunc(d, func() {
		gc.post(func() {
			if !gc.closed && gen == gc.ownerGen {
				gc.ownerGraceExpired()
			}
		})
	})
}

func (gc *GameController) cancelOwnerTimer() {
	if gc.ownerTimer == nil {
		return
	}
	gc.ownerTimer.Stop()
	gc.ownerTimer = nil
	gc.ownerGen++
}

func (gc *GameController) emptyRoomExpired() {
	gc.emptyTimer = nil
	room := gc.game.Room
	if room.ConnectedCount() > 0 {
		return
	}
	reason := models.CloseAllPlayersLeft
	if room.IsActive() {
		reason = models.CloseAbandoned
	}
	gc.shutdown(reason)
}

func (gc *GameController) ownerGraceExpired() {
	gc.ownerTimer = nil
	if gc.game.TransferOwnership() {
		gc.log.Info().Str("owner", gc.game.Room.OwnerID).Msg("ownership transferred")
		gc.changed()
	}
}

// shutdown runs on the actor. It is idempotent.
func (gc *GameController) shutdown(reason models.CloseReason) {
	if gc.closed {
		return
	}
	gc.closed = true
	gc.notifier.CloseRoom(gc.code, models.ServerMessage{Type: models.EventRoomClosed, Data: models.RoomClosed{Reason: reason}})

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := gc.store.Delete(ctx, gc.code); err != nil {
		gc.log.Warn().Err(err).Msg("delete room snapshot")
	}

	gc.log.Info().Str("reason", string(reason)).Msg("room closed")
	gc.stop()
}

// Stop halts the actor without notifying clients or dropping the snapshot.
// It is used on process shutdown.
func (gc *GameController) Stop() {
	_ = gc.call(func() error {
		gc.stop()
		return nil
	})
}

// stop unregisters the room before closing done, so a caller that sees
// ErrRoomClosed can open a fresh room under the same code.
func (gc *GameController) stop() {
	gc.closed = true
	gc.cancelEmptyTimer()
	gc.cancelOwnerTimer()
	if gc.onClose != nil {
		gc.onClose(gc.code)
	}
	select {
	case <-gc.done:
	default:
		close(gc.done)
	}
}
