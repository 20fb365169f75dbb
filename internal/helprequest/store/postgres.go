package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Schema creates the tables this store needs. Applied by deploy tooling and
// by the integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS help_requests (
	id                    TEXT PRIMARY KEY,
	verification_id       TEXT NOT NULL,
	requester_id          TEXT NOT NULL,
	status                TEXT NOT NULL,
	latitude              DOUBLE PRECISION NOT NULL,
	longitude             DOUBLE PRECISION NOT NULL,
	geohash               TEXT NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL,
	verification_deadline TIMESTAMPTZ,
	version               BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS help_request_candidates (
	help_request_id      TEXT NOT NULL REFERENCES help_requests(id),
	user_id              TEXT NOT NULL,
	nickname             TEXT NOT NULL,
	icon_url             TEXT NOT NULL,
	physical_description TEXT NOT NULL,
	device_id            TEXT NOT NULL,
	status               TEXT NOT NULL,
	position             INT NOT NULL,
	PRIMARY KEY (help_request_id, user_id)
);
`

// Postgres persists HelpRequest aggregates with candidates in a child table.
// Save is a transactional conditional write on the version column.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a store over an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the store schema. Idempotent.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// Add inserts a new aggregate at version 1.
func (s *Postgres) Add(ctx context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	hr.Version = 1
	_, err = tx.ExecContext(ctx,
		`INSERT INTO help_requests
		 (id, verification_id, requester_id, status, latitude, longitude, geohash,
		  created_at, updated_at, verification_deadline, version)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		hr.ID.String(), hr.VerificationID.String(), hr.RequesterID.String(), string(hr.Status),
		hr.Location.Latitude(), hr.Location.Longitude(), hr.Location.Geohash(),
		hr.CreatedAt, hr.UpdatedAt, nullTime(hr.VerificationDeadline), hr.Version,
	)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("insert help request: %w", err)
	}
	if err := s.insertCandidates(ctx, tx, hr); err != nil {
		return helprequest.HelpRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("commit: %w", err)
	}
	return hr, nil
}

// FindByID loads the aggregate with its candidates.
func (s *Postgres) FindByID(ctx context.Context, id domain.HelpRequestID) (helprequest.HelpRequest, error) {
	var (
		verificationID, requesterID, status, geohash string
		lat, lng                                     float64
		createdAt, updatedAt                         time.Time
		deadline                                     sql.NullTime
		version                                      int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT verification_id, requester_id, status, latitude, longitude, geohash,
		        created_at, updated_at, verification_deadline, version
		 FROM help_requests WHERE id = $1`,
		id.String(),
	).Scan(&verificationID, &requesterID, &status, &lat, &lng, &geohash,
		&createdAt, &updatedAt, &deadline, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s", sentinel.ErrNotFound, id)
	}
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("select help request: %w", err)
	}

	loc, err := domain.NewLocation(lat, lng)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("stored location invalid: %w", err)
	}
	st, err := helprequest.ParseStatus(status)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("stored status invalid: %w", err)
	}
	candidates, err := s.loadCandidates(ctx, id)
	if err != nil {
		return helprequest.HelpRequest{}, err
	}

	hr := helprequest.HelpRequest{
		ID:             id,
		VerificationID: domain.VerificationID(verificationID),
		RequesterID:    domain.UserID(requesterID),
		Status:         st,
		Location:       loc,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		Candidates:     candidates,
		Version:        version,
	}
	if deadline.Valid {
		hr.VerificationDeadline = deadline.Time
	}
	return hr, nil
}

// Save overwrites the aggregate, conditioned on the version it was read at.
// A stale version returns ErrConflict so the caller can re-load and re-apply.
func (s *Postgres) Save(ctx context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE help_requests
		 SET status = $1, updated_at = $2, verification_deadline = $3, version = version + 1
		 WHERE id = $4 AND version = $5`,
		string(hr.Status), hr.UpdatedAt, nullTime(hr.VerificationDeadline),
		hr.ID.String(), hr.Version,
	)
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("update help request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM help_requests WHERE id = $1)`, hr.ID.String(),
		).Scan(&exists); err != nil {
			return helprequest.HelpRequest{}, fmt.Errorf("check existence: %w", err)
		}
		if !exists {
			return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s", sentinel.ErrNotFound, hr.ID)
		}
		return helprequest.HelpRequest{}, fmt.Errorf("%w: help request %s version %d is stale",
			sentinel.ErrConflict, hr.ID, hr.Version)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM help_request_candidates WHERE help_request_id = $1`, hr.ID.String(),
	); err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("clear candidates: %w", err)
	}
	if err := s.insertCandidates(ctx, tx, hr); err != nil {
		return helprequest.HelpRequest{}, err
	}
	if err := tx.Commit(); err != nil {
		return helprequest.HelpRequest{}, fmt.Errorf("commit: %w", err)
	}
	hr.Version++
	return hr, nil
}

func (s *Postgres) insertCandidates(ctx context.Context, tx *sql.Tx, hr helprequest.HelpRequest) error {
	for i, c := range hr.Candidates.All() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO help_request_candidates
			 (help_request_id, user_id, nickname, icon_url, physical_description, device_id, status, position)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			hr.ID.String(), c.Info.ID.String(), c.Info.Nickname, c.Info.IconURL,
			c.Info.PhysicalDescription, c.Info.DeviceID.String(), string(c.Status), i,
		)
		if err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Info.ID, err)
		}
	}
	return nil
}

func (s *Postgres) loadCandidates(ctx context.Context, id domain.HelpRequestID) (helprequest.Candidates, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, nickname, icon_url, physical_description, device_id, status
		 FROM help_request_candidates WHERE help_request_id = $1 ORDER BY position`,
		id.String(),
	)
	if err != nil {
		return helprequest.Candidates{}, fmt.Errorf("select candidates: %w", err)
	}
	defer rows.Close()

	var list []helprequest.Candidate
	for rows.Next() {
		var userID, nickname, iconURL, physical, deviceID, status string
		if err := rows.Scan(&userID, &nickname, &iconURL, &physical, &deviceID, &status); err != nil {
			return helprequest.Candidates{}, fmt.Errorf("scan candidate: %w", err)
		}
		st, err := helprequest.ParseCandidateStatus(status)
		if err != nil {
			return helprequest.Candidates{}, fmt.Errorf("stored candidate status invalid: %w", err)
		}
		list = append(list, helprequest.Candidate{
			Info: helprequest.UserInfo{
				ID:                  domain.UserID(userID),
				Nickname:            nickname,
				IconURL:             iconURL,
				PhysicalDescription: physical,
				DeviceID:            domain.DeviceID(deviceID),
			},
			Status: st,
		})
	}
	if err := rows.Err(); err != nil {
		return helprequest.Candidates{}, fmt.Errorf("iterate candidates: %w", err)
	}
	return helprequest.NewCandidates(list...)
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
