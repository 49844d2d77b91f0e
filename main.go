package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/qianlnk/codewords/config"
	"github.com/qianlnk/codewords/logger"
	"github.com/qianlnk/codewords/models"
	"github.com/qianlnk/codewords/services"
	"github.com/qianlnk/codewords/session"
	"github.com/qianlnk/codewords/store"
	"github.com/qianlnk/codewords/words"
)

const (
	qrSize          = 256
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeWords := openWordSource(ctx, cfg)
	defer closeWords()
	st, closeStore := openStore(ctx, cfg)
	defer closeStore()

	sessions := session.NewManager(cfg.Session.Secret, cfg.Session.TTL)
	webSocketMgr := services.NewWebSocketManager(nil, sessions, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	roomManager := services.NewRoomManager(cfg, src, st, webSocketMgr)
	webSocketMgr.SetRoomManager(roomManager)
	log.Info().Msg("websocket manager and room manager configured")

	if restored, err := roomManager.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("restore rooms")
	} else if restored > 0 {
		log.Info().Int("rooms", restored).Msg("rooms restored")
	}
	go roomManager.Run(ctx)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newRouter(cfg, roomManager, webSocketMgr),
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	roomManager.Shutdown()
}

// openWordSource uses PostgreSQL when configured and the built-in packs
// otherwise, or when the database is unreachable.
func openWordSource(ctx context.Context, cfg config.Config) (words.Source, func()) {
	static := words.NewStaticSource()
	for _, pack := range cfg.Game.WordPacks {
		if !slices.Contains(static.Packs(), models.WordPack(pack)) {
			log.Warn().Str("pack", pack).Msg("no built-in words for pack")
		}
	}
	if cfg.Postgres.URL == "" {
		return static, func() {}
	}
	pg, err := words.NewPostgresSource(ctx, cfg.Postgres.URL, static)
	if err != nil {
		log.Warn().Err(err).Msg("postgres unavailable, using built-in word packs")
		return static, func() {}
	}
	log.Info().Msg("word packs served from postgres")
	return pg, pg.Close
}

// openStore uses Redis when configured and falls back to memory.
func openStore(ctx context.Context, cfg config.Config) (store.RoomStore, func()) {
	if cfg.Redis.Addr == "" {
		return store.NewMemoryStore(), func() {}
	}
	rs := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix, cfg.Lifecycle.IdleTimeout)
	if err := rs.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, rooms kept in memory")
		_ = rs.Close()
		return store.NewMemoryStore(), func() {}
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("room snapshots stored in redis")
	return rs, func() { _ = rs.Close() }
}

type server struct {
	cfg          config.Config
	roomManager  *services.RoomManager
	webSocketMgr *services.WebSocketManager
	upgrader     websocket.Upgrader
}

func newRouter(cfg config.Config, roomManager *services.RoomManager, webSocketMgr *services.WebSocketManager) *gin.Engine {
	s := &server{
		cfg:          cfg,
		roomManager:  roomManager,
		webSocketMgr: webSocketMgr,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 0 || slices.Contains(cfg.Server.AllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.health)
	r.GET("/ws", s.serveWS)

	api := r.Group("/api")
	{
		api.POST("/rooms", s.createRoom)
		api.GET("/rooms/:code", s.getRoomInfo)
		api.GET("/rooms/:code/qr", s.getRoomQR)
	}
	return r
}

func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"rooms":       s.roomManager.Count(),
		"connections": s.webSocketMgr.ConnectionCount(),
	})
}

func (s *server) createRoom(c *gin.Context) {
	gc, err := s.roomManager.CreateRoom()
	if err != nil {
		log.Error().Err(err).Msg("create room")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code": gc.Code(),
		"url":  s.joinURL(gc.Code()),
	})
}

func (s *server) getRoomInfo(c *gin.Context) {
	room, err := s.roomManager.GetRoom(strings.ToUpper(c.Param("code")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, room)
}

// getRoomQR renders the join link of an open room as a PNG.
func (s *server) getRoomQR(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if _, ok := s.roomManager.GetGameController(code); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrRoomNotFound.Error()})
		return
	}
	png, err := qrcode.Encode(s.joinURL(code), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("encode qr code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render qr code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *server) joinURL(code string) string {
	return s.cfg.Server.PublicURL + "/?room=" + code
}

func (s *server) serveWS(c *gin.Context) {
	roomCode := strings.ToUpper(strings.TrimSpace(c.Query("room")))
	if !services.ValidRoomCode(roomCode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidRoomCode.Error()})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", roomCode).Msg("websocket upgrade failed")
		return
	}
	s.webSocketMgr.Serve(ws, roomCode, c.Query("name"), c.Query("avatar"), c.Query("token"))
}
