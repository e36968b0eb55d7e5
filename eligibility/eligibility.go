// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package eligibility

import (
	"context"
	"errors"
	"log/slog"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/roll"
)

const (
	ReasonAlreadyVoted = "already voted"
	ReasonNotAllowed   = "not allowed"
	ReasonNotOnRoll    = "not on roll"
	ReasonExternalNo   = "rejected by external validator"
)

// Decision is the outcome of an eligibility check
type Decision struct {
	Eligible bool
	Source   string
	Reason   string
}

type Checker struct {
	db        *db.DB
	roll      *roll.Roll
	validator Validator
}

func NewChecker(d *db.DB, r *roll.Roll, v Validator) *Checker {
	return &Checker{db: d, roll: r, validator: v}
}

// fromEntry covers the cases where a roll entry already exists
func fromEntry(e models.VoterRollEntry) Decision {
	switch {
	case e.Voted:
		return Decision{Eligible: false, Source: models.SourceInternal, Reason: ReasonAlreadyVoted}
	case e.Allowed:
		return Decision{Eligible: true, Source: models.SourceInternal}
	default:
		return Decision{Eligible: false, Source: models.SourceInternal, Reason: ReasonNotAllowed}
	}
}

// Check decides whether user may vote in the election. The roll is consulted
// first; only a user without an entry is sent to the election's external
// validator, and only an affirmative answer creates an entry. A validator
// failure returns ErrValidatorUnavailable and leaves the roll untouched.
func (c *Checker) Check(ctx context.Context, electionID string, user models.User) (Decision, error) {
	election, err := elections.Lookup(ctx, c.db, electionID)
	if err != nil {
		return Decision{}, err
	}

	entry, err := c.roll.Get(ctx, electionID, user.ID)
	if err == nil {
		return fromEntry(entry), nil
	}
	if !errors.Is(err, roll.ErrNotFound) {
		return Decision{}, err
	}

	if election.ExtValidationURL == nil {
		return Decision{Eligible: false, Source: models.SourceInternal, Reason: ReasonNotOnRoll}, nil
	}

	answer, err := c.validator.Check(ctx, *election.ExtValidationURL, user.Email)
	if err != nil {
		slog.Warn("external eligibility check failed",
			"election_id", electionID,
			"user_id", user.ID,
			"error", err,
		)
		return Decision{}, err
	}
	if !answer.Eligible {
		reason := answer.Reason
		if reason == "" {
			reason = ReasonExternalNo
		}
		return Decision{Eligible: false, Source: models.SourceExternal, Reason: reason}, nil
	}

	entry, err = c.roll.UpsertAllowed(ctx, electionID, user.ID, roll.Grant{
		Allowed:    true,
		Provenance: roll.ProvenanceExternal,
		CreateOnly: true,
	})
	if errors.Is(err, roll.ErrConcurrentInsert) {
		// Someone else created the entry meanwhile; theirs wins
		entry, err = c.roll.Get(ctx, electionID, user.ID)
		if err != nil {
			return Decision{}, err
		}
		return fromEntry(entry), nil
	}
	if err != nil {
		return Decision{}, err
	}

	slog.Info("voter approved by external validator", "election_id", electionID, "user_id", user.ID)
	return Decision{Eligible: true, Source: models.SourceExternal}, nil
}
