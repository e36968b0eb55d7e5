// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/osmelmr/validvote-server/cliparse"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/eligibility"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/roll"
	"github.com/osmelmr/validvote-server/tally"
	"github.com/osmelmr/validvote-server/testutil"
	"github.com/osmelmr/validvote-server/votes"
)

// testEnv wires every handler over one test database
type testEnv struct {
	db     *db.DB
	cfg    cliparse.Config
	ledger *ledger.Store
	roll   *roll.Roll

	users      *UserHandler
	elections  *ElectionHandler
	candidates *CandidateHandler
	voters     *VoterHandler
	ledgerH    *LedgerHandler
	votes      *VoteHandler
	results    *ResultsHandler
	validator  *ValidatorHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	d := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	l := testutil.NewTestLedger(t, d)
	r := roll.New(d)
	checker := eligibility.NewChecker(d, r, eligibility.NewHTTPValidator(time.Second))

	return &testEnv{
		db:         d,
		cfg:        cfg,
		ledger:     l,
		roll:       r,
		users:      NewUserHandler(d, cfg),
		elections:  NewElectionHandler(d, checker),
		candidates: NewCandidateHandler(d),
		voters:     NewVoterHandler(d, r),
		ledgerH:    NewLedgerHandler(l),
		votes:      NewVoteHandler(votes.NewService(d, l, r)),
		results:    NewResultsHandler(tally.NewEngine(d, l, r)),
		validator:  NewValidatorHandler(d),
	}
}

// asUser attaches an authenticated user the way RequireUser does
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID))
}

// withPath sets path values alternating name, value
func withPath(r *http.Request, kv ...string) *http.Request {
	for i := 0; i+1 < len(kv); i += 2 {
		r.SetPathValue(kv[i], kv[i+1])
	}
	return r
}
