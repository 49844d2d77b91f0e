package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qianlnk/codewords/config"
	"github.com/qianlnk/codewords/services"
	"github.com/qianlnk/codewords/session"
	"github.com/qianlnk/codewords/store"
	"github.com/qianlnk/codewords/words"
)

func newTestRouter(t *testing.T) (*gin.Engine, *services.RoomManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Server.PublicURL = "https://play.example.com"
	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	webSocketMgr := services.NewWebSocketManager(nil, sessions, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	roomManager := services.NewRoomManager(cfg, words.NewStaticSource(), store.NewMemoryStore(), webSocketMgr)
	webSocketMgr.SetRoomManager(roomManager)
	t.Cleanup(roomManager.Shutdown)

	return newRouter(cfg, roomManager, webSocketMgr), roomManager
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","rooms":0,"connections":0}`, w.Body.String())
}

func TestCreateAndGetRoom(t *testing.T) {
	r, roomManager := newTestRouter(t)

	w := do(r, http.MethodPost, "/api/rooms")
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Code string `json:"code"`
		URL  string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, services.ValidRoomCode(created.Code))
	assert.Equal(t, "https://play.example.com/?room="+created.Code, created.URL)
	assert.Equal(t, 1, roomManager.Count())

	w = do(r, http.MethodGet, "/api/rooms/"+created.Code)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":"`+created.Code+`","connected":0,"total":0,"gameStarted":false,"gameOver":false}`, w.Body.String())
}

func TestGetUnknownRoom(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/rooms/NOPE99")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/rooms/NOPE99/qr")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomQRCode(t *testing.T) {
	r, roomManager := newTestRouter(t)
	gc, err := roomManager.CreateRoom()
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/rooms/"+gc.Code()+"/qr")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestServeWSRejectsBadRoomCode(t *testing.T) {
	r, roomManager := newTestRouter(t)

	w := do(r, http.MethodGet, "/ws?room=bad&name=Ann")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, roomManager.Count())
}

func TestCheckOrigin(t *testing.T) {
	s := &server{cfg: config.Default()}
	s.cfg.Server.AllowedOrigins = []string{"https://play.example.com"}

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, s.checkOrigin(req), "no origin header")

	req.Header.Set("Origin", "https://PLAY.example.com")
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, s.checkOrigin(req))
}
