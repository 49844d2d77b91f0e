package words

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/qianlnk/codewords/models"
)

// minPoolSize is the board size; a smaller SQL pool falls back.
const minPoolSize = 25

// PostgresSource reads packs from a words(pack, word) table. When a pack has
// too few rows or the query fails, it falls back to another source.
type PostgresSource struct {
	pool     *pgxpool.Pool
	fallback Source
}

func NewPostgresSource(ctx context.Context, connString string, fallback Source) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect word database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping word database: %w", err)
	}
	return &PostgresSource{pool: pool, fallback: fallback}, nil
}

func (s *PostgresSource) Words(ctx context.Context, pack models.WordPack) ([]string, error) {
	list, err := s.query(ctx, pack)
	if err == nil && len(list) >= minPoolSize {
		return list, nil
	}
	if s.fallback == nil {
		if err != nil {
			return nil, err
		}
		return list, nil
	}

	ev := log.Warn().Str("pack", string(pack)).Int("rows", len(list))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("word database unusable, using built-in pack")
	return s.fallback.Words(ctx, pack)
}

func (s *PostgresSource) query(ctx context.Context, pack models.WordPack) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT upper(word) FROM words WHERE pack = $1", string(pack))
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var list []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		list = append(list, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read words: %w", err)
	}
	return Normalize(list), nil
}

func (s *PostgresSource) Close() {
	s.pool.Close()
}
