// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package elections

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/testutil"
)

func TestCanTransition(t *testing.T) {
	statuses := []string{models.StatusDraft, models.StatusOpen, models.StatusClosed, models.StatusArchived}
	allowed := map[[2]string]bool{
		{models.StatusDraft, models.StatusOpen}:     true,
		{models.StatusOpen, models.StatusClosed}:    true,
		{models.StatusClosed, models.StatusArchived}: true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			require.Equal(t, allowed[[2]string{from, to}], CanTransition(from, to), "%s → %s", from, to)
		}
	}
}

func TestValidate(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	url := func(s string) *string { return &s }

	tests := []struct {
		name    string
		req     models.CreateElectionRequest
		wantErr error
	}{
		{"defaults", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour)}, nil},
		{"end before start", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(-time.Hour)}, ErrInvalidWindow},
		{"end equals start", models.CreateElectionRequest{StartAt: start, EndAt: start}, ErrInvalidWindow},
		{"negative max selections", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), MaxSelections: -1}, ErrInvalidMaxSel},
		{"unknown kind", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), Kind: "secret"}, ErrInvalidKind},
		{"relative url", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), ExtValidationURL: url("/check")}, ErrInvalidURL},
		{"ftp url", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), ExtValidationURL: url("ftp://x/check")}, ErrInvalidURL},
		{"https url", models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), ExtValidationURL: url("https://registry.example/check")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := Validate(&req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.GreaterOrEqual(t, req.MaxSelections, 1)
			require.NotEmpty(t, req.Kind)
		})
	}

	req := models.CreateElectionRequest{StartAt: start, EndAt: start.Add(time.Hour), ExtValidationURL: url("")}
	require.NoError(t, Validate(&req))
	require.Nil(t, req.ExtValidationURL)
}

func TestLifecycle(t *testing.T) {
	d := testutil.SetupTestDB(t)
	ctx := context.Background()
	owner, _ := testutil.CreateTestUser(t, d, "owner@example.com")

	e, err := Create(ctx, d, owner.ID, models.CreateElectionRequest{
		Title:   "Council",
		StartAt: time.Now(),
		EndAt:   time.Now().Add(24 * time.Hour),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.StatusDraft, e.Status)
	require.Equal(t, 1, e.MaxSelections)
	require.Equal(t, models.KindPrivate, e.Kind)

	_, err = Transition(ctx, d, e.ID, models.StatusOpen, time.Now())
	require.ErrorIs(t, err, ErrNoCandidates)

	_, err = AddCandidate(ctx, d, e.ID, owner.ID, models.AddCandidateRequest{Name: "Alice"}, time.Now())
	require.NoError(t, err)

	_, err = Transition(ctx, d, e.ID, models.StatusClosed, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)

	for _, to := range []string{models.StatusOpen, models.StatusClosed, models.StatusArchived} {
		got, err := Transition(ctx, d, e.ID, to, time.Now())
		require.NoError(t, err)
		require.Equal(t, to, got.Status)

		stored, err := Lookup(ctx, d, e.ID)
		require.NoError(t, err)
		require.Equal(t, to, stored.Status)
	}

	_, err = Transition(ctx, d, e.ID, models.StatusOpen, time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Transition(ctx, d, "missing", models.StatusOpen, time.Now())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerAndDraftGate(t *testing.T) {
	d := testutil.SetupTestDB(t)
	ctx := context.Background()
	owner, _ := testutil.CreateTestUser(t, d, "owner@example.com")
	other, _ := testutil.CreateTestUser(t, d, "other@example.com")

	req := models.CreateElectionRequest{Title: "Board", StartAt: time.Now(), EndAt: time.Now().Add(time.Hour)}
	e, err := Create(ctx, d, owner.ID, req, time.Now())
	require.NoError(t, err)

	req.Title = "Board 2026"
	_, err = Update(ctx, d, e.ID, other.ID, req, time.Now())
	require.ErrorIs(t, err, ErrNotOwner)

	updated, err := Update(ctx, d, e.ID, owner.ID, req, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Board 2026", updated.Title)

	c, err := AddCandidate(ctx, d, e.ID, owner.ID, models.AddCandidateRequest{Name: "Alice", UserID: &owner.ID}, time.Now())
	require.NoError(t, err)
	_, err = AddCandidate(ctx, d, e.ID, owner.ID, models.AddCandidateRequest{Name: "Alice again", UserID: &owner.ID}, time.Now())
	require.ErrorIs(t, err, ErrDuplicateCandidate)
	ghost := "no-such-user"
	_, err = AddCandidate(ctx, d, e.ID, owner.ID, models.AddCandidateRequest{Name: "Ghost", UserID: &ghost}, time.Now())
	require.ErrorIs(t, err, ErrUnknownUser)
	_, err = AddCandidate(ctx, d, e.ID, other.ID, models.AddCandidateRequest{Name: "Bob"}, time.Now())
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = Transition(ctx, d, e.ID, models.StatusOpen, time.Now())
	require.NoError(t, err)

	_, err = Update(ctx, d, e.ID, owner.ID, req, time.Now())
	require.ErrorIs(t, err, ErrNotMutable)
	_, err = AddCandidate(ctx, d, e.ID, owner.ID, models.AddCandidateRequest{Name: "Late"}, time.Now())
	require.ErrorIs(t, err, ErrNotMutable)
	require.ErrorIs(t, DeleteCandidate(ctx, d, e.ID, c.ID, owner.ID), ErrNotMutable)
	require.ErrorIs(t, Delete(ctx, d, e.ID, owner.ID), ErrNotMutable)

	candidates, err := Candidates(ctx, d, e.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestDeleteCascades(t *testing.T) {
	d := testutil.SetupTestDB(t)
	ctx := context.Background()
	owner, _ := testutil.CreateTestUser(t, d, "owner@example.com")
	electionID := testutil.CreateTestElection(t, d, owner.ID, models.StatusDraft, 1, nil)
	testutil.AddTestCandidate(t, d, electionID, "c1", "Alice")
	testutil.AddTestVoter(t, d, electionID, owner.ID, true, false)

	require.NoError(t, Delete(ctx, d, electionID, owner.ID))

	_, err := Lookup(ctx, d, electionID)
	require.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM candidate WHERE election_id = $1`, electionID).Scan(&n))
	require.Zero(t, n)
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM voter_roll WHERE election_id = $1`, electionID).Scan(&n))
	require.Zero(t, n)
}

func TestEditGuard(t *testing.T) {
	d := testutil.SetupTestDB(t)
	ctx := context.Background()
	owner, _ := testutil.CreateTestUser(t, d, "owner@example.com")
	other, _ := testutil.CreateTestUser(t, d, "other@example.com")
	draft := testutil.CreateTestElection(t, d, owner.ID, models.StatusDraft, 1, nil)
	open := testutil.CreateTestElection(t, d, owner.ID, models.StatusOpen, 1, nil)

	tests := []struct {
		name       string
		electionID string
		userID     string
		want       error
	}{
		{"owner on draft", draft, owner.ID, nil},
		{"other user", draft, other.ID, ErrNotOwner},
		{"owner on open", open, owner.ID, ErrNotMutable},
		{"missing election", "missing", owner.ID, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.InTx(ctx, func(tx *sql.Tx) error {
				return EditGuard(d, tt.electionID, tt.userID)(ctx, tx)
			})
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
