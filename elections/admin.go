// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package elections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/models"
)

var (
	ErrNotOwner           = errors.New("only the election owner may do this")
	ErrNotMutable         = errors.New("election can only be changed while in draft")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrDuplicateCandidate = errors.New("user is already a candidate in this election")
	ErrMissingName        = errors.New("name is required")
	ErrUnknownUser        = errors.New("linked user does not exist")
)

// Create inserts a draft election owned by ownerID
func Create(ctx context.Context, d *db.DB, ownerID string, req models.CreateElectionRequest, now time.Time) (models.Election, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.Election{}, fmt.Errorf("%w: title", ErrMissingName)
	}
	if err := Validate(&req); err != nil {
		return models.Election{}, err
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Election{}, err
	}

	e := models.Election{
		ID:               id,
		OwnerID:          ownerID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		Kind:             req.Kind,
		MaxSelections:    req.MaxSelections,
		Status:           models.StatusDraft,
		ExtValidationURL: req.ExtValidationURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = d.ExecContext(ctx, `
		INSERT INTO election (id, owner_id, title, description, start_at, end_at, kind,
		                      max_selections, status, ext_validation_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, e.ID, e.OwnerID, e.Title, e.Description, e.StartAt, e.EndAt, e.Kind,
		e.MaxSelections, e.Status, e.ExtValidationURL, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to insert election: %w", err)
	}
	return e, nil
}

// editable locks an election inside tx and checks that userID may change it.
// The lock holds until tx ends, so the election cannot leave draft meanwhile.
func editable(ctx context.Context, d *db.DB, tx *sql.Tx, id, userID string) (models.Election, error) {
	e, err := scanElection(tx.QueryRowContext(ctx, selectElection+` WHERE id = $1`+d.ForUpdate(), id))
	if err == sql.ErrNoRows {
		return models.Election{}, ErrNotFound
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to query election: %w", err)
	}
	if e.OwnerID != userID {
		return models.Election{}, ErrNotOwner
	}
	if !IsMutable(e.Status) {
		return models.Election{}, ErrNotMutable
	}
	return e, nil
}

// EditGuard is the ownership and draft gate for writes to an election's
// dependents that happen in another package. It runs inside the caller's
// transaction.
func EditGuard(d *db.DB, id, userID string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := editable(ctx, d, tx, id, userID)
		return err
	}
}

// Update replaces the configuration of a draft election
func Update(ctx context.Context, d *db.DB, id, userID string, req models.CreateElectionRequest, now time.Time) (models.Election, error) {
	if strings.TrimSpace(req.Title) == "" {
		return models.Election{}, fmt.Errorf("%w: title", ErrMissingName)
	}
	if err := Validate(&req); err != nil {
		return models.Election{}, err
	}

	var updated models.Election
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		e, err := editable(ctx, d, tx, id, userID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE election
			SET title = $1, description = $2, start_at = $3, end_at = $4, kind = $5,
			    max_selections = $6, ext_validation_url = $7, updated_at = $8
			WHERE id = $9 AND status = $10
		`, strings.TrimSpace(req.Title), req.Description, req.StartAt, req.EndAt, req.Kind,
			req.MaxSelections, req.ExtValidationURL, now, id, models.StatusDraft)
		if err != nil {
			return fmt.Errorf("failed to update election: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update election: %w", err)
		}
		if n != 1 {
			return ErrNotMutable
		}

		e.Title = strings.TrimSpace(req.Title)
		e.Description = req.Description
		e.StartAt = req.StartAt
		e.EndAt = req.EndAt
		e.Kind = req.Kind
		e.MaxSelections = req.MaxSelections
		e.ExtValidationURL = req.ExtValidationURL
		e.UpdatedAt = now
		updated = e
		return nil
	})
	return updated, err
}

// Delete removes a draft election with its candidates and roll
func Delete(ctx context.Context, d *db.DB, id, userID string) error {
	return d.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := editable(ctx, d, tx, id, userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM election WHERE id = $1 AND status = $2`, id, models.StatusDraft)
		if err != nil {
			return fmt.Errorf("failed to delete election: %w", err)
		}
		return nil
	})
}

// AddCandidate adds a candidate to a draft election
func AddCandidate(ctx context.Context, d *db.DB, electionID, userID string, req models.AddCandidateRequest, now time.Time) (models.Candidate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Candidate{}, ErrMissingName
	}

	if req.UserID != nil && *req.UserID == "" {
		req.UserID = nil
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Candidate{}, err
	}
	c := models.Candidate{
		ID:         id,
		ElectionID: electionID,
		UserID:     req.UserID,
		Name:       name,
		Bio:        req.Bio,
		ImageURL:   req.ImageURL,
		CreatedAt:  now,
	}

	err = d.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := editable(ctx, d, tx, electionID, userID); err != nil {
			return err
		}
		if c.UserID != nil {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM app_user WHERE id = $1`, *c.UserID).Scan(&exists)
			if err == sql.ErrNoRows {
				return ErrUnknownUser
			}
			if err != nil {
				return fmt.Errorf("failed to look up linked user: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO candidate (id, election_id, user_id, name, bio, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, c.ID, c.ElectionID, c.UserID, c.Name, c.Bio, c.ImageURL, c.CreatedAt)
		if db.IsUniqueViolation(err) {
			return ErrDuplicateCandidate
		}
		if err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Candidate{}, err
	}
	return c, nil
}

// DeleteCandidate removes a candidate from a draft election
func DeleteCandidate(ctx context.Context, d *db.DB, electionID, candidateID, userID string) error {
	return d.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := editable(ctx, d, tx, electionID, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM candidate WHERE id = $1 AND election_id = $2`, candidateID, electionID)
		if err != nil {
			return fmt.Errorf("failed to delete candidate: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete candidate: %w", err)
		}
		if n == 0 {
			return ErrCandidateNotFound
		}
		return nil
	})
}
