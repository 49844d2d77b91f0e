package words

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/qianlnk/codewords/models"
)

var ErrUnknownPack = errors.New("unknown word pack")

// Source yields the word pool of a pack. Words are uppercase and may contain
// duplicates; board generation dedupes.
type Source interface {
	Words(ctx context.Context, pack models.WordPack) ([]string, error)
}

// StaticSource serves the built-in packs.
type StaticSource struct {
	packs map[models.WordPack][]string
}

func NewStaticSource() *StaticSource {
	return NewStaticSourceWith(map[models.WordPack][]string{
		models.WordPackClassic: classic,
		models.WordPackKahoot:  kahoot,
	})
}

// NewStaticSourceWith builds a source from explicit lists.
func NewStaticSourceWith(packs map[models.WordPack][]string) *StaticSource {
	s := &StaticSource{packs: make(map[models.WordPack][]string, len(packs))}
	for pack, list := range packs {
		s.packs[pack] = Normalize(list)
	}
	return s
}

func (s *StaticSource) Words(_ context.Context, pack models.WordPack) ([]string, error) {
	list, ok := s.packs[pack]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPack, pack)
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, nil
}

// Packs lists the packs the source knows.
func (s *StaticSource) Packs() []models.WordPack {
	out := make([]models.WordPack, 0, len(s.packs))
	for p := range s.packs {
		out = append(out, p)
	}
	return out
}

// Normalize trims, uppercases and drops empty entries.
func Normalize(list []string) []string {
	out := make([]string, 0, len(list))
	for _, w := range list {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
