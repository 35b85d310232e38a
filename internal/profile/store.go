package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the database surface Store needs. *pgxpool.Pool satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists profiles to the company_profiles table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// NewStore creates a Store over db.
func NewStore(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Upsert writes the whole profile for id, replacing any previous row.
func (s *Store) Upsert(ctx context.Context, id, userID string, p Profile) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO company_profiles (id, user_id, name, industry, description, ai_maturity_level, ai_usage, goals)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   industry = excluded.industry,
		   description = excluded.description,
		   ai_maturity_level = excluded.ai_maturity_level,
		   ai_usage = excluded.ai_usage,
		   goals = excluded.goals,
		   updated_at = now()`,
		id, userID, p.Name, p.Industry, p.Description, p.AIMaturityLevel, p.AIUsage, p.Goals)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", id, err)
	}
	return nil
}

// Get loads the profile for id. found is false when no row exists.
func (s *Store) Get(ctx context.Context, id string) (p Profile, found bool, err error) {
	row := s.db.QueryRow(ctx,
		`SELECT name, industry, description, ai_maturity_level, ai_usage, goals
		 FROM company_profiles
		 WHERE id = $1`,
		id)
	err = row.Scan(&p.Name, &p.Industry, &p.Description, &p.AIMaturityLevel, &p.AIUsage, &p.Goals)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("load profile %s: %w", id, err)
	}
	return p, true, nil
}
