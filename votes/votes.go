// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/roll"
)

var (
	ErrElectionNotFound     = elections.ErrNotFound
	ErrElectionNotOpen      = errors.New("election is not open for voting")
	ErrNotEligible          = errors.New("voter is not on the roll")
	ErrNotAllowed           = errors.New("voter is not allowed to vote")
	ErrAlreadyVoted         = roll.ErrAlreadyVoted
	ErrLedgerMismatch       = errors.New("transaction and hash not found together in the ledger")
	ErrFinalizationConflict = errors.New("vote was finalized concurrently")
	ErrNoRecordFound        = errors.New("no vote record for this election")
	ErrLedgerInconsistency  = errors.New("vote record has no matching ledger transaction")
)

// Submission is a voter's claim that a published ledger transaction is their vote
type Submission struct {
	ElectionID string
	UserID     string
	TxID       string
	VoteHash   string
}

// Verification is what a voter sees when checking their own vote
type Verification struct {
	Record models.VoteRecord
	Tx     models.LedgerTx
}

type Service struct {
	db     *db.DB
	ledger *ledger.Store
	roll   *roll.Roll
	now    func() time.Time
}

func NewService(d *db.DB, l *ledger.Store, r *roll.Roll) *Service {
	return &Service{db: d, ledger: l, roll: r, now: time.Now}
}

// Register finalizes a vote. All steps run in one transaction: the roll
// entry is locked, the (tx_id, hash) pair is reconciled against the ledger,
// the vote record is inserted and the roll entry is marked voted. Any
// failure rolls everything back; nothing is retried.
func (s *Service) Register(ctx context.Context, sub Submission) (models.VoteRecord, error) {
	var rec models.VoteRecord
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		election, err := elections.Lookup(ctx, tx, sub.ElectionID)
		if err != nil {
			return err
		}
		if election.Status != models.StatusOpen {
			return ErrElectionNotOpen
		}

		entry, err := s.roll.GetForUpdate(ctx, tx, sub.ElectionID, sub.UserID)
		if errors.Is(err, roll.ErrNotFound) {
			return ErrNotEligible
		}
		if err != nil {
			return err
		}
		if !entry.Allowed {
			return ErrNotAllowed
		}
		if entry.Voted {
			return ErrAlreadyVoted
		}

		anchor, err := s.ledger.Match(ctx, tx, sub.TxID, sub.VoteHash)
		if errors.Is(err, ledger.ErrNotFound) {
			return ErrLedgerMismatch
		}
		if err != nil {
			return err
		}

		id, err := auth.GenerateID(16)
		if err != nil {
			return err
		}
		now := s.now()
		rec = models.VoteRecord{
			ID:          id,
			ElectionID:  sub.ElectionID,
			UserID:      &sub.UserID,
			TxID:        anchor.TxID,
			VoteHash:    anchor.PayloadHash,
			PublishedAt: now,
			CreatedAt:   now,
		}
		if err := insertRecord(ctx, tx, rec); err != nil {
			return err
		}

		return s.roll.MarkVoted(ctx, tx, &entry)
	})
	if err != nil {
		return models.VoteRecord{}, err
	}

	slog.Info("vote finalized", "election_id", sub.ElectionID, "tx_id", rec.TxID)
	return rec, nil
}

// Verify reconciles a voter's record against the ledger. A record whose
// anchor is missing or disagrees is an audit alarm, reported separately
// from having no record at all.
func (s *Service) Verify(ctx context.Context, electionID, userID string) (Verification, error) {
	rec, err := RecordFor(ctx, s.db, electionID, userID)
	if err != nil {
		return Verification{}, err
	}

	anchor, err := s.ledger.Get(ctx, rec.TxID)
	if errors.Is(err, ledger.ErrNotFound) {
		slog.Error("vote record without ledger anchor",
			"alarm", "ledger_inconsistency",
			"election_id", electionID,
			"record_id", rec.ID,
			"tx_id", rec.TxID,
		)
		return Verification{}, ErrLedgerInconsistency
	}
	if err != nil {
		return Verification{}, err
	}

	if anchor.PayloadHash != rec.VoteHash {
		slog.Error("vote record hash differs from ledger",
			"alarm", "ledger_inconsistency",
			"election_id", electionID,
			"record_id", rec.ID,
			"tx_id", rec.TxID,
		)
		return Verification{}, fmt.Errorf("%w: hash mismatch", ErrLedgerInconsistency)
	}

	return Verification{Record: rec, Tx: anchor}, nil
}
