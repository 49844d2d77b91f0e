package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/qianlnk/codewords/models"
)

// RedisStore keeps each room as a JSON string under prefix+code. Keys expire
// after ttl so rooms abandoned by a crashed process do not pile up.
type RedisStore struct {
	pool   *redis.Pool
	prefix string
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, prefix string, ttl time.Duration) *RedisStore {
	pool := &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 5 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialPassword(password),
				redis.DialDatabase(db),
				redis.DialConnectTimeout(5*time.Second),
			)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &RedisStore{pool: pool, prefix: prefix, ttl: ttl}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) key(code string) string {
	return s.prefix + code
}

func (s *RedisStore) Save(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.Code, err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if s.ttl > 0 {
		_, err = conn.Do("SET", s.key(room.Code), data, "PX", s.ttl.Milliseconds())
	} else {
		_, err = conn.Do("SET", s.key(room.Code), data)
	}
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.Code, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, code string) (*models.Room, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", s.key(code)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", code, err)
	}
	return decodeRoom(data)
}

func (s *RedisStore) Delete(ctx context.Context, code string) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", s.key(code)); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Room, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	defer conn.Close()

	var keys []string
	cursor := 0
	for {
		values, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", s.prefix+"*", "COUNT", 100))
		if err != nil {
			return nil, fmt.Errorf("scan rooms: %w", err)
		}
		var batch []string
		if _, err := redis.Scan(values, &cursor, &batch); err != nil {
			return nil, fmt.Errorf("scan rooms: %w", err)
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			break
		}
	}

	rooms := make([]*models.Room, 0, len(keys))
	for _, key := range keys {
		data, err := redis.Bytes(conn.Do("GET", key))
		if errors.Is(err, redis.ErrNil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		room, err := decodeRoom(data)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}

func decodeRoom(data []byte) (*models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	if room.Players == nil {
		room.Players = make(map[string]*models.Player)
	}
	if room.PlayerOrder == nil {
		room.PlayerOrder = make([]string, 0)
	}
	if room.Messages == nil {
		room.Messages = make([]models.ChatMessage, 0)
	}
	return &room, nil
}
