package store

import (
	"context"
	"errors"
	"sync"

	"github.com/qianlnk/codewords/models"
)

var ErrNotFound = errors.New("room snapshot not found")

// RoomStore persists room snapshots so a restarted server can pick rooms up
// again. Implementations must be safe for concurrent use.
type RoomStore interface {
	Save(ctx context.Context, room *models.Room) error
	Load(ctx context.Context, code string) (*models.Room, error)
	Delete(ctx context.Context, code string) error
	List(ctx context.Context) ([]*models.Room, error)
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	rooms map[string]*models.Room
	mutex sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*models.Room)}
}

func (s *MemoryStore) Save(_ context.Context, room *models.Room) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, code string) (*models.Room, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, code string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*models.Room, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]*models.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room.Clone())
	}
	return out, nil
}
