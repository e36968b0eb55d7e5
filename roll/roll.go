// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package roll

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/models"
)

var (
	ErrNotFound         = errors.New("voter roll entry not found")
	ErrAlreadyVoted     = errors.New("voter has already voted")
	ErrImmutableField   = errors.New("voted flag cannot be changed")
	ErrConcurrentInsert = errors.New("voter roll entry was created concurrently")
)

// Provenance records who granted eligibility
type Provenance string

const (
	ProvenanceAdmin    Provenance = "admin"
	ProvenanceExternal Provenance = "external"
)

// Guard runs inside a roll write transaction before anything is changed.
// A non-nil error aborts the write and is returned as is.
type Guard func(ctx context.Context, tx *sql.Tx) error

// Grant is an eligibility change. Voted is only present so that callers can
// forward what a client sent; any attempt to change the flag is rejected.
// CreateOnly refuses to touch an existing entry.
type Grant struct {
	Allowed    bool
	Provenance Provenance
	Voted      *bool
	CreateOnly bool
	Guard      Guard
}

type Roll struct {
	db  *db.DB
	now func() time.Time
}

func New(d *db.DB) *Roll {
	return &Roll{db: d, now: time.Now}
}

const selectEntry = `
	SELECT id, election_id, user_id, allowed, voted, ext_verified, created_at, updated_at
	FROM voter_roll
`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (models.VoterRollEntry, error) {
	var e models.VoterRollEntry
	var userID sql.NullString
	err := row.Scan(&e.ID, &e.ElectionID, &userID, &e.Allowed, &e.Voted, &e.ExtVerified, &e.CreatedAt, &e.UpdatedAt)
	if userID.Valid {
		e.UserID = &userID.String
	}
	return e, err
}

func (r *Roll) get(ctx context.Context, q db.Querier, electionID, userID, suffix string) (models.VoterRollEntry, error) {
	e, err := scanEntry(q.QueryRowContext(ctx, selectEntry+`
		WHERE election_id = $1 AND user_id = $2`+suffix, electionID, userID))
	if err == sql.ErrNoRows {
		return models.VoterRollEntry{}, ErrNotFound
	}
	if err != nil {
		return models.VoterRollEntry{}, fmt.Errorf("failed to query voter roll: %w", err)
	}
	return e, nil
}

// Get reads an entry without locking it
func (r *Roll) Get(ctx context.Context, electionID, userID string) (models.VoterRollEntry, error) {
	return r.get(ctx, r.db, electionID, userID, "")
}

// GetForUpdate reads an entry and holds it exclusively until tx ends.
// No two transactions can both observe voted=false for the same pair and
// go on to finalize.
func (r *Roll) GetForUpdate(ctx context.Context, tx *sql.Tx, electionID, userID string) (models.VoterRollEntry, error) {
	return r.get(ctx, tx, electionID, userID, r.db.ForUpdate())
}

// MarkVoted flips voted false→true. The update is conditional, so it fails
// with ErrAlreadyVoted even if the caller's lock was somehow bypassed.
func (r *Roll) MarkVoted(ctx context.Context, tx *sql.Tx, entry *models.VoterRollEntry) error {
	if entry.Voted {
		return ErrAlreadyVoted
	}

	now := r.now()
	res, err := tx.ExecContext(ctx, `
		UPDATE voter_roll SET voted = $1, updated_at = $2
		WHERE id = $3 AND voted = $4
	`, true, now, entry.ID, false)
	if err != nil {
		return fmt.Errorf("failed to mark voter as voted: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark voter as voted: %w", err)
	}
	if n != 1 {
		return ErrAlreadyVoted
	}

	entry.Voted = true
	entry.UpdatedAt = now
	return nil
}

// UpsertAllowed creates or updates the entry for (election, user).
// External provenance also sets ext_verified; it is never cleared.
func (r *Roll) UpsertAllowed(ctx context.Context, electionID, userID string, g Grant) (models.VoterRollEntry, error) {
	var result models.VoterRollEntry
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		if g.Guard != nil {
			if err := g.Guard(ctx, tx); err != nil {
				return err
			}
		}

		now := r.now()
		existing, err := r.GetForUpdate(ctx, tx, electionID, userID)

		switch {
		case errors.Is(err, ErrNotFound):
			if g.Voted != nil && *g.Voted {
				return ErrImmutableField
			}
			id, err := auth.GenerateID(16)
			if err != nil {
				return err
			}
			result = models.VoterRollEntry{
				ID:          id,
				ElectionID:  electionID,
				UserID:      &userID,
				Allowed:     g.Allowed,
				ExtVerified: g.Provenance == ProvenanceExternal,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO voter_roll (id, election_id, user_id, allowed, voted, ext_verified, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, result.ID, electionID, userID, result.Allowed, false, result.ExtVerified, now, now)
			if db.IsUniqueViolation(err) {
				return ErrConcurrentInsert
			}
			if err != nil {
				return fmt.Errorf("failed to insert voter roll entry: %w", err)
			}
			return nil

		case err != nil:
			return err
		}

		if g.CreateOnly {
			return ErrConcurrentInsert
		}

		if g.Voted != nil && *g.Voted != existing.Voted {
			return ErrImmutableField
		}

		existing.Allowed = g.Allowed
		existing.ExtVerified = existing.ExtVerified || g.Provenance == ProvenanceExternal
		existing.UpdatedAt = now
		_, err = tx.ExecContext(ctx, `
			UPDATE voter_roll SET allowed = $1, ext_verified = $2, updated_at = $3
			WHERE id = $4
		`, existing.Allowed, existing.ExtVerified, now, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to update voter roll entry: %w", err)
		}
		result = existing
		return nil
	})
	return result, err
}

// List returns the roll of an election
func (r *Roll) List(ctx context.Context, electionID string) ([]models.VoterRollEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntry+` WHERE election_id = $1 ORDER BY created_at, id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query voter roll: %w", err)
	}
	defer rows.Close()

	entries := []models.VoterRollEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter roll entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry that has not voted. guard may be nil.
func (r *Roll) Delete(ctx context.Context, electionID, entryID string, guard Guard) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		if guard != nil {
			if err := guard(ctx, tx); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			DELETE FROM voter_roll WHERE id = $1 AND election_id = $2 AND voted = $3
		`, entryID, electionID, false)
		if err != nil {
			return fmt.Errorf("failed to delete voter roll entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete voter roll entry: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountAllowed returns the number of eligible voters in an election
func (r *Roll) CountAllowed(ctx context.Context, q db.Querier, electionID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voter_roll WHERE election_id = $1 AND allowed = $2
	`, electionID, true).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count eligible voters: %w", err)
	}
	return count, nil
}
