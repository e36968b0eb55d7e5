// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/osmelmr/validvote-server/eligibility"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/roll"
	"github.com/osmelmr/validvote-server/votes"
)

// statusFor maps domain errors to HTTP status codes
var statusFor = []struct {
	err    error
	status int
}{
	{elections.ErrNotFound, http.StatusNotFound},
	{elections.ErrCandidateNotFound, http.StatusNotFound},
	{elections.ErrNotOwner, http.StatusForbidden},
	{elections.ErrNotMutable, http.StatusConflict},
	{elections.ErrInvalidTransition, http.StatusConflict},
	{elections.ErrNoCandidates, http.StatusConflict},
	{elections.ErrDuplicateCandidate, http.StatusConflict},
	{elections.ErrInvalidWindow, http.StatusBadRequest},
	{elections.ErrInvalidMaxSel, http.StatusBadRequest},
	{elections.ErrInvalidKind, http.StatusBadRequest},
	{elections.ErrInvalidURL, http.StatusBadRequest},
	{elections.ErrMissingName, http.StatusBadRequest},
	{elections.ErrUnknownUser, http.StatusBadRequest},

	{votes.ErrNotEligible, http.StatusForbidden},
	{votes.ErrNotAllowed, http.StatusForbidden},
	{votes.ErrAlreadyVoted, http.StatusForbidden},
	{votes.ErrElectionNotOpen, http.StatusConflict},
	{votes.ErrLedgerMismatch, http.StatusBadRequest},
	{votes.ErrFinalizationConflict, http.StatusConflict},
	{votes.ErrNoRecordFound, http.StatusNotFound},
	{votes.ErrLedgerInconsistency, http.StatusNotFound},

	{roll.ErrNotFound, http.StatusNotFound},
	{roll.ErrImmutableField, http.StatusBadRequest},
	{roll.ErrConcurrentInsert, http.StatusConflict},

	{ledger.ErrDuplicateEntry, http.StatusConflict},
	{ledger.ErrNotFound, http.StatusNotFound},
	{ledger.ErrInvalidPayload, http.StatusBadRequest},

	{eligibility.ErrValidatorUnavailable, http.StatusServiceUnavailable},
}

// writeError answers with the status of a known domain error, or logs err
// and answers 500
func writeError(w http.ResponseWriter, err error, action string) {
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			middleware.ErrorResponse(w, m.status, m.err.Error())
			return
		}
	}

	slog.Error("failed to "+action, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
}
