// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/testutil"
)

// TestConcurrentRegistrationsSameVoter verifies that one voter racing
// several different ballots gets exactly one of them counted
func TestConcurrentRegistrationsSameVoter(t *testing.T) {
	env := newTestEnv(t)

	owner, _ := testutil.CreateTestUser(t, env.db, "owner@example.com")
	electionID := testutil.CreateTestElection(t, env.db, owner.ID, models.StatusOpen, 1, nil)
	testutil.AddTestCandidate(t, env.db, electionID, "cand-a", "A")
	voter, _ := testutil.CreateTestUser(t, env.db, "voter@example.com")
	testutil.AddTestVoter(t, env.db, electionID, voter.ID, true, false)

	const attempts = 10
	ballots := make([]models.LedgerTx, attempts)
	for i := range ballots {
		ballots[i] = testutil.PublishTestBallot(t, env.ledger, electionID, "cand-a")
	}

	var created, forbidden atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(tx models.LedgerTx) {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/votes/register-tx", models.RegisterVoteRequest{
				ElectionID: electionID, TxID: tx.TxID, VoteHash: tx.PayloadHash,
			}, nil)
			w := httptest.NewRecorder()
			env.votes.RegisterTx(w, asUser(req, voter.ID))

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusForbidden:
				forbidden.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(ballots[i])
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 successful registration, got %d", created.Load())
	}
	if forbidden.Load() != attempts-1 {
		t.Errorf("Expected %d already-voted responses, got %d", attempts-1, forbidden.Load())
	}

	var records int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM vote_record WHERE election_id = $1`, electionID).Scan(&records); err != nil {
		t.Fatalf("Failed to count records: %v", err)
	}
	if records != 1 {
		t.Errorf("Expected 1 vote record, got %d", records)
	}
}

// TestConcurrentRegistrationsSameProof verifies that one published ballot
// cannot be claimed by more than one voter
func TestConcurrentRegistrationsSameProof(t *testing.T) {
	env := newTestEnv(t)

	owner, _ := testutil.CreateTestUser(t, env.db, "owner@example.com")
	electionID := testutil.CreateTestElection(t, env.db, owner.ID, models.StatusOpen, 1, nil)
	testutil.AddTestCandidate(t, env.db, electionID, "cand-a", "A")

	const voters = 8
	userIDs := make([]string, voters)
	for i := range userIDs {
		u, _ := testutil.CreateTestUser(t, env.db, fmt.Sprintf("voter%d@example.com", i))
		testutil.AddTestVoter(t, env.db, electionID, u.ID, true, false)
		userIDs[i] = u.ID
	}
	tx := testutil.PublishTestBallot(t, env.ledger, electionID, "cand-a")

	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for _, id := range userIDs {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/votes/register-tx", models.RegisterVoteRequest{
				ElectionID: electionID, TxID: tx.TxID, VoteHash: tx.PayloadHash,
			}, nil)
			w := httptest.NewRecorder()
			env.votes.RegisterTx(w, asUser(req, userID))

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(id)
	}
	wg.Wait()

	if created.Load() != 1 || conflicts.Load() != voters-1 {
		t.Errorf("Expected 1 success and %d conflicts, got %d and %d", voters-1, created.Load(), conflicts.Load())
	}

	var voted int
	if err := env.db.QueryRow(`SELECT COUNT(*) FROM voter_roll WHERE election_id = $1 AND voted = $2`, electionID, true).Scan(&voted); err != nil {
		t.Fatalf("Failed to count voted entries: %v", err)
	}
	if voted != 1 {
		t.Errorf("Expected exactly 1 voted roll entry, got %d", voted)
	}
}

// TestConcurrentPublish verifies block numbers stay unique under load
func TestConcurrentPublish(t *testing.T) {
	env := newTestEnv(t)

	const n = 15
	var wg sync.WaitGroup
	blocks := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			env.ledgerH.Publish(w, testutil.MakeRequest("POST", "/ledger/publish", map[string]any{
				"payload": map[string]int{"ballot": i},
			}, nil))
			if w.Code != http.StatusCreated {
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
				return
			}
			var resp models.PublishTxResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Errorf("Failed to decode response: %v", err)
				return
			}
			blocks <- resp.BlockNumber
		}(i)
	}
	wg.Wait()
	close(blocks)

	seen := make(map[int64]bool)
	for b := range blocks {
		if seen[b] {
			t.Errorf("Block %d assigned twice", b)
		}
		seen[b] = true
	}
	if len(seen) != n {
		t.Errorf("Expected %d distinct blocks, got %d", n, len(seen))
	}
}
