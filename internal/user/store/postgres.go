package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nearhelp/internal/user"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Schema creates the users table.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   TEXT PRIMARY KEY,
	nickname             TEXT NOT NULL,
	icon_url             TEXT NOT NULL,
	physical_description TEXT NOT NULL,
	available_for_help   BOOLEAN NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
`

// Postgres persists user profiles.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the store schema. Idempotent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *Postgres) Save(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, nickname, icon_url, physical_description, available_for_help, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE SET
		   nickname = EXCLUDED.nickname,
		   icon_url = EXCLUDED.icon_url,
		   physical_description = EXCLUDED.physical_description,
		   available_for_help = EXCLUDED.available_for_help,
		   updated_at = EXCLUDED.updated_at`,
		u.ID.String(), u.Nickname, u.IconURL, u.PhysicalDescription,
		u.AvailableForHelp, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.UserID) (user.User, error) {
	var u user.User
	var rawID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nickname, icon_url, physical_description, available_for_help, created_at, updated_at
		 FROM users WHERE id = $1`,
		id.String(),
	).Scan(&rawID, &u.Nickname, &u.IconURL, &u.PhysicalDescription, &u.AvailableForHelp, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, fmt.Errorf("%w: user %s", sentinel.ErrNotFound, id)
	}
	if err != nil {
		return user.User{}, fmt.Errorf("select user: %w", err)
	}
	u.ID = domain.UserID(rawID)
	return u, nil
}

// FindManyByIDs resolves the given ids, skipping unknown ones.
func (s *Postgres) FindManyByIDs(ctx context.Context, ids []domain.UserID) ([]user.User, error) {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, nickname, icon_url, physical_description, available_for_help, created_at, updated_at
		 FROM users WHERE id = ANY($1)`,
		pq.Array(raw),
	)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	byID := make(map[domain.UserID]user.User, len(ids))
	for rows.Next() {
		var u user.User
		var rawID string
		if err := rows.Scan(&rawID, &u.Nickname, &u.IconURL, &u.PhysicalDescription,
			&u.AvailableForHelp, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.ID = domain.UserID(rawID)
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	out := make([]user.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}
