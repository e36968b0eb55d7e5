// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/models"
)

const selectRecord = `
	SELECT id, election_id, user_id, tx_id, vote_hash, published_at, created_at
	FROM vote_record
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.VoteRecord, error) {
	var rec models.VoteRecord
	var userID sql.NullString
	err := row.Scan(&rec.ID, &rec.ElectionID, &userID, &rec.TxID, &rec.VoteHash, &rec.PublishedAt, &rec.CreatedAt)
	if userID.Valid {
		rec.UserID = &userID.String
	}
	return rec, err
}

// insertRecord relies on the table's unique constraints; a violation means
// another finalization got there first and is reported as ErrFinalizationConflict.
func insertRecord(ctx context.Context, tx *sql.Tx, rec models.VoteRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vote_record (id, election_id, user_id, tx_id, vote_hash, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.ElectionID, rec.UserID, rec.TxID, rec.VoteHash, rec.PublishedAt, rec.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrFinalizationConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert vote record: %w", err)
	}
	return nil
}

// RecordFor returns the record of one voter in one election
func RecordFor(ctx context.Context, q db.Querier, electionID, userID string) (models.VoteRecord, error) {
	rec, err := scanRecord(q.QueryRowContext(ctx, selectRecord+`
		WHERE election_id = $1 AND user_id = $2`, electionID, userID))
	if err == sql.ErrNoRows {
		return models.VoteRecord{}, ErrNoRecordFound
	}
	if err != nil {
		return models.VoteRecord{}, fmt.Errorf("failed to query vote record: %w", err)
	}
	return rec, nil
}

// Records returns every vote record of an election. This is the
// authoritative list of votes that count.
func Records(ctx context.Context, q db.Querier, electionID string) ([]models.VoteRecord, error) {
	rows, err := q.QueryContext(ctx, selectRecord+` WHERE election_id = $1 ORDER BY created_at, id`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote records: %w", err)
	}
	defer rows.Close()

	records := []models.VoteRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountRecords returns the number of distinct voters who cast a vote
func CountRecords(ctx context.Context, q db.Querier, electionID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_record WHERE election_id = $1`, electionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vote records: %w", err)
	}
	return count, nil
}
