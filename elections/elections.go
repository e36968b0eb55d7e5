// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package elections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/models"
)

var (
	ErrNotFound          = errors.New("election not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoCandidates      = errors.New("election has no candidates")
	ErrInvalidWindow     = errors.New("end_at must be after start_at")
	ErrInvalidMaxSel     = errors.New("max_selections must be at least 1")
	ErrInvalidKind       = errors.New("kind must be public, private or internal")
	ErrInvalidURL        = errors.New("ext_validation_url must be an absolute http(s) URL")
)

// next lists the only status each status may move to
var next = map[string]string{
	models.StatusDraft:  models.StatusOpen,
	models.StatusOpen:   models.StatusClosed,
	models.StatusClosed: models.StatusArchived,
}

// CanTransition reports whether from → to is a forward, single-step move
func CanTransition(from, to string) bool {
	return next[from] == to
}

// IsMutable reports whether configuration, candidates and roll may still change
func IsMutable(status string) bool {
	return status == models.StatusDraft
}

// ResultsAvailable reports whether status is closed or a later terminal state
func ResultsAvailable(status string) bool {
	return status == models.StatusClosed || status == models.StatusArchived
}

// Validate checks the invariants of a create/update request and fills defaults
func Validate(req *models.CreateElectionRequest) error {
	if !req.EndAt.After(req.StartAt) {
		return ErrInvalidWindow
	}

	if req.MaxSelections == 0 {
		req.MaxSelections = 1
	}
	if req.MaxSelections < 1 {
		return ErrInvalidMaxSel
	}

	switch req.Kind {
	case "":
		req.Kind = models.KindPrivate
	case models.KindPublic, models.KindPrivate, models.KindInternal:
	default:
		return ErrInvalidKind
	}

	if req.ExtValidationURL != nil {
		if *req.ExtValidationURL == "" {
			req.ExtValidationURL = nil
		} else {
			u, err := url.Parse(*req.ExtValidationURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return ErrInvalidURL
			}
		}
	}

	return nil
}

const selectElection = `
	SELECT id, owner_id, title, description, start_at, end_at, kind,
	       max_selections, status, ext_validation_url, created_at, updated_at
	FROM election
`

type scanner interface {
	Scan(dest ...any) error
}

func scanElection(row scanner) (models.Election, error) {
	var e models.Election
	var extURL sql.NullString
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.StartAt, &e.EndAt, &e.Kind,
		&e.MaxSelections, &e.Status, &extURL, &e.CreatedAt, &e.UpdatedAt,
	)
	if extURL.Valid {
		e.ExtValidationURL = &extURL.String
	}
	return e, err
}

// Lookup loads one election
func Lookup(ctx context.Context, q db.Querier, id string) (models.Election, error) {
	e, err := scanElection(q.QueryRowContext(ctx, selectElection+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return models.Election{}, ErrNotFound
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

// List returns all elections, most recent start first
func List(ctx context.Context, q db.Querier) ([]models.Election, error) {
	rows, err := q.QueryContext(ctx, selectElection+` ORDER BY start_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query elections: %w", err)
	}
	defer rows.Close()

	list := []models.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Candidates returns the candidates of an election ordered by ID
func Candidates(ctx context.Context, q db.Querier, electionID string) ([]models.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, election_id, user_id, name, bio, image_url, created_at
		FROM candidate
		WHERE election_id = $1
		ORDER BY id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var userID, imageURL sql.NullString
		if err := rows.Scan(&c.ID, &c.ElectionID, &userID, &c.Name, &c.Bio, &imageURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if userID.Valid {
			c.UserID = &userID.String
		}
		if imageURL.Valid {
			c.ImageURL = &imageURL.String
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Transition moves an election one step forward. The update is conditional
// on the status read, so two concurrent transitions cannot both apply.
func Transition(ctx context.Context, d *db.DB, id, to string, now time.Time) (models.Election, error) {
	var updated models.Election
	err := d.InTx(ctx, func(tx *sql.Tx) error {
		e, err := Lookup(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanTransition(e.Status, to) {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, e.Status, to)
		}

		if to == models.StatusOpen {
			var count int
			err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM candidate WHERE election_id = $1`, id).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to count candidates: %w", err)
			}
			if count == 0 {
				return ErrNoCandidates
			}
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE election SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`, to, now, id, e.Status)
		if err != nil {
			return fmt.Errorf("failed to update election status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update election status: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}

		e.Status = to
		e.UpdatedAt = now
		updated = e
		return nil
	})
	return updated, err
}
