package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/session"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 45 * time.Second
	pingPeriod     = 15 * time.Second
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// client is one websocket connection bound to a player of a room.
type client struct {
	roomCode string
	playerID string
	epoch    int
	conn     *websocket.Conn
	send     chan []byte
	limiter  *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

// close stops the write pump without a final frame.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

// enqueue hands a frame to the write pump. A nil frame asks the pump to
// send a close frame and stop.
func (c *client) enqueue(frame []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

// WebSocketManager owns every websocket connection and fans room events out
// to them. It implements Notifier.
type WebSocketManager struct {
	rooms       map[string]map[string]*client // roomCode -> playerID -> client
	mutex       sync.RWMutex
	roomManager *RoomManager
	sessions    *session.Manager
	perSecond   rate.Limit
	burst       int
	log         zerolog.Logger
}

// NewWebSocketManager creates the connection manager. The room manager may be
// wired later with SetRoomManager.
func NewWebSocketManager(rm *RoomManager, sessions *session.Manager, perSecond float64, burst int) *WebSocketManager {
	return &WebSocketManager{
		rooms:       make(map[string]map[string]*client),
		roomManager: rm,
		sessions:    sessions,
		perSecond:   rate.Limit(perSecond),
		burst:       burst,
		log:         log.Logger,
	}
}

// SetRoomManager sets the room registry.
func (wm *WebSocketManager) SetRoomManager(rm *RoomManager) {
	wm.roomManager = rm
}

// Serve joins the connection to roomCode and runs its pumps. It returns once
// the pumps are started; the connection is closed on any failure.
func (wm *WebSocketManager) Serve(conn *websocket.Conn, roomCode, name, avatar, token string) {
	gc, player, epoch, err := wm.join(roomCode, name, avatar, token)
	if err != nil {
		wm.log.Debug().Str("room", roomCode).Err(err).Msg("websocket join rejected")
		rejectConnection(conn, err)
		return
	}

	c := &client{
		roomCode: roomCode,
		playerID: player.ID,
		epoch:    epoch,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		limiter:  rate.NewLimiter(wm.perSecond, wm.burst),
		done:     make(chan struct{}),
	}
	wm.RegisterConnection(c)
	go wm.writePump(c)

	newToken, err := wm.sessions.Issue(roomCode, player.ID)
	if err != nil {
		wm.log.Error().Err(err).Str("room", roomCode).Msg("issue session token")
	}
	wm.SendToPlayer(roomCode, player.ID, models.ServerMessage{
		Type: models.EventSession,
		Data: models.SessionInfo{RoomCode: roomCode, PlayerID: player.ID, Token: newToken},
	})
	if err := gc.Sync(player.ID); err != nil {
		wm.RemoveConnection(c)
		c.conn.Close()
		return
	}

	go wm.readPump(c, gc)
}

// join resolves the room and the player's identity. A room that closed while
// being looked up is reopened once.
func (wm *WebSocketManager) join(roomCode, name, avatar, token string) (*GameController, models.Player, int, error) {
	existingID := ""
	if token != "" {
		if id, err := wm.sessions.Verify(token, roomCode); err == nil {
			existingID = id
		}
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		gc, err := wm.roomManager.GetOrCreate(roomCode)
		if err != nil {
			return nil, models.Player{}, 0, err
		}
		player, epoch, err := gc.Join(name, avatar, existingID)
		if errors.Is(err, ErrRoomClosed) {
			lastErr = err
			continue
		}
		return gc, player, epoch, err
	}
	return nil, models.Player{}, 0, lastErr
}

func rejectConnection(conn *websocket.Conn, cause error) {
	msg, _ := json.Marshal(models.ServerMessage{Type: models.EventError, Data: models.ErrorInfo{Message: cause.Error()}})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, msg)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, cause.Error()))
	conn.Close()
}

// RegisterConnection binds c to its player. An older connection of the same
// player is closed; its shutdown will not mark the player offline.
func (wm *WebSocketManager) RegisterConnection(c *client) {
	wm.mutex.Lock()
	defer wm.mutex.Unlock()

	players, ok := wm.rooms[c.roomCode]
	if !ok {
		players = make(map[string]*client)
		wm.rooms[c.roomCode] = players
	}
	if old, exists := players[c.playerID]; exists {
		old.enqueue(nil)
		old.close()
	}
	players[c.playerID] = c
}

// RemoveConnection forgets c unless a newer connection replaced it. It
// reports whether c was still the player's current connection.
func (wm *WebSocketManager) RemoveConnection(c *client) bool {
	c.close()

	wm.mutex.Lock()
	defer wm.mutex.Unlock()

	players, ok := wm.rooms[c.roomCode]
	if !ok || players[c.playerID] != c {
		return false
	}
	delete(players, c.playerID)
	if len(players) == 0 {
		delete(wm.rooms, c.roomCode)
	}
	return true
}

// SendToPlayer queues msg for one player. A client that cannot keep up is
// dropped.
func (wm *WebSocketManager) SendToPlayer(roomCode, playerID string, msg models.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		wm.log.Error().Err(err).Str("type", msg.Type).Msg("encode server message")
		return
	}

	wm.mutex.RLock()
	c, ok := wm.rooms[roomCode][playerID]
	wm.mutex.RUnlock()
	if !ok {
		return
	}
	if err := c.enqueue(frame); errors.Is(err, errSendBufferFull) {
		wm.log.Warn().Str("room", roomCode).Str("player", playerID).Msg("send buffer full, dropping connection")
		c.close()
	}
}

// BroadcastToRoom queues msg for every connection in the room.
func (wm *WebSocketManager) BroadcastToRoom(roomCode string, msg models.ServerMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		wm.log.Error().Err(err).Str("type", msg.Type).Msg("encode server message")
		return
	}

	wm.mutex.RLock()
	clients := make([]*client, 0, len(wm.rooms[roomCode]))
	for _, c := range wm.rooms[roomCode] {
		clients = append(clients, c)
	}
	wm.mutex.RUnlock()

	for _, c := range clients {
		c.enqueue(frame)
	}
}

// CloseRoom sends msg to every connection of the room and closes them.
func (wm *WebSocketManager) CloseRoom(roomCode string, msg models.ServerMessage) {
	wm.BroadcastToRoom(roomCode, msg)

	wm.mutex.Lock()
	players := wm.rooms[roomCode]
	delete(wm.rooms, roomCode)
	wm.mutex.Unlock()

	for _, c := range players {
		if err := c.enqueue(nil); err != nil {
			c.close()
		}
	}
}

// ConnectionCount returns the number of open connections across all rooms.
func (wm *WebSocketManager) ConnectionCount() int {
	wm.mutex.RLock()
	defer wm.mutex.RUnlock()
	n := 0
	for _, players := range wm.rooms {
		n += len(players)
	}
	return n
}

func (wm *WebSocketManager) readPump(c *client, gc *GameController) {
	left := false
	defer func() {
		wm.RemoveConnection(c)
		if !left {
			if err := gc.Disconnect(c.playerID, c.epoch); err != nil && !errors.Is(err, ErrRoomClosed) {
				wm.log.Warn().Err(err).Str("room", c.roomCode).Str("player", c.playerID).Msg("disconnect")
			}
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wm.log.Debug().Err(err).Str("room", c.roomCode).Str("player", c.playerID).Msg("websocket read")
			}
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			wm.sendError(c, "", errors.New("malformed message"))
			continue
		}
		if !c.limiter.Allow() {
			wm.sendError(c, msg.Type, errors.New("too many requests"))
			continue
		}
		intent, err := models.DecodeIntent(msg.Type, msg.Data)
		if err != nil {
			wm.sendError(c, msg.Type, err)
			continue
		}

		err = gc.Handle(context.Background(), c.playerID, intent)
		switch {
		case errors.Is(err, ErrRoomClosed):
			return
		case err != nil:
			wm.sendError(c, msg.Type, err)
		case intent.Type() == models.IntentLeave:
			left = true
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "left"), time.Now().Add(writeWait))
			return
		}
	}
}

func (wm *WebSocketManager) sendError(c *client, intent models.IntentType, err error) {
	frame, mErr := json.Marshal(models.ServerMessage{
		Type: models.EventError,
		Data: models.ErrorInfo{Intent: intent, Message: err.Error()},
	})
	if mErr != nil {
		return
	}
	c.enqueue(frame)
}

func (wm *WebSocketManager) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if frame == nil {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				c.close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				wm.log.Debug().Err(err).Str("room", c.roomCode).Str("player", c.playerID).Msg("websocket write")
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}
