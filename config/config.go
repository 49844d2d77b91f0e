package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Server    Server
	Game      Game
	Lifecycle Lifecycle
	Session   Session
	RateLimit RateLimit
	Redis     Redis
	Postgres  Postgres
	Log       Log
}

type Server struct {
	Addr           string
	AllowedOrigins []string
	PublicURL      string
}

// Game holds the bounded settings the state machine validates against.
type Game struct {
	DefaultTurnDuration int
	TurnDurations       []int
	WordPacks           []string
	MinPlayers          int
	MessageCap          int
	AutoResume          bool
	MaxClueCount        int
	MaxMessageLength    int
	MaxNameLength       int
}

// Lifecycle holds the grace periods and sweep intervals of the room registry.
type Lifecycle struct {
	StalePlayerGrace     time.Duration
	OwnerGrace           time.Duration
	EmptyRoomGraceLobby  time.Duration
	EmptyRoomGraceActive time.Duration
	IdleTimeout          time.Duration
	SweepInterval        time.Duration
	TimerInterval        time.Duration
}

type Session struct {
	Secret string
	TTL    time.Duration
}

type RateLimit struct {
	PerSecond float64
	Burst     int
}

type Redis struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type Postgres struct {
	URL string
}

type Log struct {
	Level  string
	Pretty bool
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.public_url", "http://localhost:8080")

	v.SetDefault("game.default_turn_duration", 60)
	v.SetDefault("game.turn_durations", []int{30, 60, 90})
	v.SetDefault("game.word_packs", []string{"classic", "kahoot"})
	v.SetDefault("game.min_players", 4)
	v.SetDefault("game.message_cap", 100)
	v.SetDefault("game.auto_resume", true)
	v.SetDefault("game.max_clue_count", 9)
	v.SetDefault("game.max_message_length", 200)
	v.SetDefault("game.max_name_length", 24)

	v.SetDefault("lifecycle.stale_player_grace", time.Minute)
	v.SetDefault("lifecycle.owner_grace", 10*time.Second)
	v.SetDefault("lifecycle.empty_room_grace_lobby", 30*time.Second)
	v.SetDefault("lifecycle.empty_room_grace_active", 2*time.Minute)
	v.SetDefault("lifecycle.idle_timeout", 4*time.Hour)
	v.SetDefault("lifecycle.sweep_interval", 10*time.Minute)
	v.SetDefault("lifecycle.timer_interval", time.Second)

	v.SetDefault("session.secret", "change-me")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("ratelimit.per_second", 8.0)
	v.SetDefault("ratelimit.burst", 16)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "codewords:room:")

	v.SetDefault("postgres.url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Load reads .env, an optional config.yaml and CODEWORDS_* environment
// variables, in increasing order of precedence.
func Load() (Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CODEWORDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a validated Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
			PublicURL:      strings.TrimRight(v.GetString("server.public_url"), "/"),
		},
		Game: Game{
			DefaultTurnDuration: v.GetInt("game.default_turn_duration"),
			TurnDurations:       v.GetIntSlice("game.turn_durations"),
			WordPacks:           v.GetStringSlice("game.word_packs"),
			MinPlayers:          v.GetInt("game.min_players"),
			MessageCap:          v.GetInt("game.message_cap"),
			AutoResume:          v.GetBool("game.auto_resume"),
			MaxClueCount:        v.GetInt("game.max_clue_count"),
			MaxMessageLength:    v.GetInt("game.max_message_length"),
			MaxNameLength:       v.GetInt("game.max_name_length"),
		},
		Lifecycle: Lifecycle{
			StalePlayerGrace:     v.GetDuration("lifecycle.stale_player_grace"),
			OwnerGrace:           v.GetDuration("lifecycle.owner_grace"),
			EmptyRoomGraceLobby:  v.GetDuration("lifecycle.empty_room_grace_lobby"),
			EmptyRoomGraceActive: v.GetDuration("lifecycle.empty_room_grace_active"),
			IdleTimeout:          v.GetDuration("lifecycle.idle_timeout"),
			SweepInterval:        v.GetDuration("lifecycle.sweep_interval"),
			TimerInterval:        v.GetDuration("lifecycle.timer_interval"),
		},
		Session: Session{
			Secret: v.GetString("session.secret"),
			TTL:    v.GetDuration("session.ttl"),
		},
		RateLimit: RateLimit{
			PerSecond: v.GetFloat64("ratelimit.per_second"),
			Burst:     v.GetInt("ratelimit.burst"),
		},
		Redis: Redis{
			Addr:      v.GetString("redis.addr"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Postgres: Postgres{
			URL: v.GetString("postgres.url"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration with every default applied.
func Default() Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := FromViper(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks the bounded-value settings.
func (c Config) Validate() error {
	if len(c.Game.TurnDurations) == 0 {
		return errors.New("config: game.turn_durations is empty")
	}
	for _, d := range c.Game.TurnDurations {
		if d <= 0 {
			return fmt.Errorf("config: turn duration %d must be positive", d)
		}
	}
	if !slices.Contains(c.Game.TurnDurations, c.Game.DefaultTurnDuration) {
		return fmt.Errorf("config: default turn duration %d not in %v", c.Game.DefaultTurnDuration, c.Game.TurnDurations)
	}
	if len(c.Game.WordPacks) == 0 {
		return errors.New("config: game.word_packs is empty")
	}
	if c.Game.MinPlayers < 4 {
		return fmt.Errorf("config: game.min_players %d below 4", c.Game.MinPlayers)
	}
	if c.Game.MessageCap <= 0 || c.Game.MaxMessageLength <= 0 || c.Game.MaxNameLength <= 0 {
		return errors.New("config: message and name limits must be positive")
	}
	if c.Game.MaxClueCount <= 0 {
		return errors.New("config: game.max_clue_count must be positive")
	}

	l := c.Lifecycle
	for name, d := range map[string]time.Duration{
		"stale_player_grace":      l.StalePlayerGrace,
		"owner_grace":             l.OwnerGrace,
		"empty_room_grace_lobby":  l.EmptyRoomGraceLobby,
		"empty_room_grace_active": l.EmptyRoomGraceActive,
		"idle_timeout":            l.IdleTimeout,
		"sweep_interval":          l.SweepInterval,
		"timer_interval":          l.TimerInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("config: lifecycle.%s must be positive", name)
		}
	}

	if c.Session.Secret == "" {
		return errors.New("config: session.secret is empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: session.ttl must be positive")
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("config: rate limit must be positive")
	}
	return nil
}
