// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package votes

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/roll"
	"github.com/osmelmr/validvote-server/testutil"
)

type fixture struct {
	db         *db.DB
	ledger     *ledger.Store
	roll       *roll.Roll
	svc        *Service
	electionID string
	voter      models.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	d := testutil.SetupTestDB(t)
	owner, _ := testutil.CreateTestUser(t, d, "owner@example.com")
	voter, _ := testutil.CreateTestUser(t, d, "voter@example.com")
	electionID := testutil.CreateTestElection(t, d, owner.ID, models.StatusOpen, 1, nil)
	testutil.AddTestCandidate(t, d, electionID, "cand-a", "A")

	l := testutil.NewTestLedger(t, d)
	r := roll.New(d)
	return fixture{
		db:         d,
		ledger:     l,
		roll:       r,
		svc:        NewService(d, l, r),
		electionID: electionID,
		voter:      voter,
	}
}

func (f fixture) submit(userID string, tx models.LedgerTx) Submission {
	return Submission{ElectionID: f.electionID, UserID: userID, TxID: tx.TxID, VoteHash: tx.PayloadHash}
}

// requireConsistent checks that voted is true exactly when a record exists
func requireConsistent(t *testing.T, f fixture, userID string) {
	t.Helper()
	entry, err := f.roll.Get(context.Background(), f.electionID, userID)
	require.NoError(t, err)
	_, err = RecordFor(context.Background(), f.db, f.electionID, userID)
	if entry.Voted {
		require.NoError(t, err, "voted=true without a vote record")
	} else {
		require.ErrorIs(t, err, ErrNoRecordFound, "vote record without voted=true")
	}
}

func TestRegisterHappyPath(t *testing.T) {
	f := newFixture(t)
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")

	rec, err := f.svc.Register(context.Background(), f.submit(f.voter.ID, tx))
	require.NoError(t, err)
	require.Equal(t, tx.TxID, rec.TxID)
	require.Equal(t, tx.PayloadHash, rec.VoteHash)

	entry, err := f.roll.Get(context.Background(), f.electionID, f.voter.ID)
	require.NoError(t, err)
	require.True(t, entry.Voted)

	records, err := Records(context.Background(), f.db, f.electionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	requireConsistent(t, f, f.voter.ID)
}

func TestRegisterReplay(t *testing.T) {
	f := newFixture(t)
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	ctx := context.Background()

	_, err := f.svc.Register(ctx, f.submit(f.voter.ID, tx))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, f.submit(f.voter.ID, tx))
	require.ErrorIs(t, err, ErrAlreadyVoted)

	// A different proof does not help either
	other := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	_, err = f.svc.Register(ctx, f.submit(f.voter.ID, other))
	require.ErrorIs(t, err, ErrAlreadyVoted)

	n, err := CountRecords(ctx, f.db, f.electionID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRegisterForgedProof(t *testing.T) {
	f := newFixture(t)
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	published := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	other := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	ctx := context.Background()

	tests := []struct {
		name string
		tx   string
		hash string
	}{
		{"unknown pair", "T_FAKE", "H_FAKE"},
		{"published tx, fake hash", published.TxID, "H_FAKE"},
		{"fake tx, published hash", "T_FAKE", published.PayloadHash},
		{"hash of another tx", published.TxID, other.PayloadHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, Submission{
				ElectionID: f.electionID,
				UserID:     f.voter.ID,
				TxID:       tt.tx,
				VoteHash:   tt.hash,
			})
			require.ErrorIs(t, err, ErrLedgerMismatch)
			requireConsistent(t, f, f.voter.ID)

			entry, err := f.roll.Get(ctx, f.electionID, f.voter.ID)
			require.NoError(t, err)
			require.False(t, entry.Voted)
		})
	}
}

func TestRegisterEligibilityFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notAllowed, _ := testutil.CreateTestUser(t, f.db, "blocked@example.com")
	testutil.AddTestVoter(t, f.db, f.electionID, notAllowed.ID, false, false)
	alreadyVoted, _ := testutil.CreateTestUser(t, f.db, "done@example.com")
	testutil.AddTestVoter(t, f.db, f.electionID, alreadyVoted.ID, true, true)

	tests := []struct {
		name   string
		userID string
		want   error
	}{
		{"no roll entry", f.voter.ID, ErrNotEligible},
		{"allowed=false", notAllowed.ID, ErrNotAllowed},
		{"voted=true", alreadyVoted.ID, ErrAlreadyVoted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
			_, err := f.svc.Register(ctx, f.submit(tt.userID, tx))
			require.ErrorIs(t, err, tt.want)
		})
	}

	n, err := CountRecords(ctx, f.db, f.electionID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRegisterElectionState(t *testing.T) {
	f := newFixture(t)
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	ctx := context.Background()

	for _, status := range []string{models.StatusDraft, models.StatusClosed, models.StatusArchived} {
		testutil.SetElectionStatus(t, f.db, f.electionID, status)
		_, err := f.svc.Register(ctx, f.submit(f.voter.ID, tx))
		require.ErrorIs(t, err, ErrElectionNotOpen, status)
	}

	_, err := f.svc.Register(ctx, Submission{ElectionID: "missing", UserID: f.voter.ID, TxID: tx.TxID, VoteHash: tx.PayloadHash})
	require.ErrorIs(t, err, ErrElectionNotFound)
	require.ErrorIs(t, err, elections.ErrNotFound)
}

func TestRegisterProofReuseConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, _ := testutil.CreateTestUser(t, f.db, "other@example.com")
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	testutil.AddTestVoter(t, f.db, f.electionID, other.ID, true, false)

	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	_, err := f.svc.Register(ctx, f.submit(f.voter.ID, tx))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, f.submit(other.ID, tx))
	require.ErrorIs(t, err, ErrFinalizationConflict)

	// Full rollback: the loser's roll entry is untouched
	entry, err := f.roll.Get(ctx, f.electionID, other.ID)
	require.NoError(t, err)
	require.False(t, entry.Voted)
	requireConsistent(t, f, other.ID)
}

func TestConcurrentRegistrationSameVoter(t *testing.T) {
	f := newFixture(t)
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)

	const attempts = 8
	txs := make([]models.LedgerTx, attempts)
	for i := range txs {
		txs[i] = testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	}

	var wins, alreadyVoted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(tx models.LedgerTx) {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), f.submit(f.voter.ID, tx))
			switch err {
			case nil:
				wins.Add(1)
			case ErrAlreadyVoted:
				alreadyVoted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(txs[i])
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(attempts-1), alreadyVoted.Load())

	rec, err := RecordFor(context.Background(), f.db, f.electionID, f.voter.ID)
	require.NoError(t, err)
	used := 0
	for _, tx := range txs {
		if tx.TxID == rec.TxID {
			used++
		}
	}
	require.Equal(t, 1, used, "losers' transactions must stay unused")
	requireConsistent(t, f, f.voter.ID)
}

func TestConcurrentRegistrationSameProof(t *testing.T) {
	f := newFixture(t)
	const voters = 6
	users := make([]models.User, voters)
	for i := range users {
		users[i], _ = testutil.CreateTestUser(t, f.db, "v"+string(rune('a'+i))+"@example.com")
		testutil.AddTestVoter(t, f.db, f.electionID, users[i].ID, true, false)
	}
	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), f.submit(userID, tx))
			switch err {
			case nil:
				wins.Add(1)
			case ErrFinalizationConflict:
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(u.ID)
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(voters-1), conflicts.Load())
	for _, u := range users {
		requireConsistent(t, f, u.ID)
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)

	_, err := f.svc.Verify(ctx, f.electionID, f.voter.ID)
	require.ErrorIs(t, err, ErrNoRecordFound)

	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	_, err = f.svc.Register(ctx, f.submit(f.voter.ID, tx))
	require.NoError(t, err)

	v, err := f.svc.Verify(ctx, f.electionID, f.voter.ID)
	require.NoError(t, err)
	require.Equal(t, tx.TxID, v.Tx.TxID)
	require.Equal(t, tx.PayloadHash, v.Record.VoteHash)
	require.Equal(t, tx.BlockNumber, v.Tx.BlockNumber)
	require.JSONEq(t, string(tx.Payload), string(v.Tx.Payload))
}

func TestVerifyLedgerInconsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A record whose anchor was never published
	now := time.Now()
	_, err := f.db.Exec(`
		INSERT INTO vote_record (id, election_id, user_id, tx_id, vote_hash, published_at, created_at)
		VALUES ('r1', $1, $2, 'ghost-tx', 'ghost-hash', $3, $4)
	`, f.electionID, f.voter.ID, now, now)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, f.electionID, f.voter.ID)
	require.ErrorIs(t, err, ErrLedgerInconsistency)
	require.NotErrorIs(t, err, ErrNoRecordFound)
}

func TestRecordSurvivesUserDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.AddTestVoter(t, f.db, f.electionID, f.voter.ID, true, false)
	tx := testutil.PublishTestBallot(t, f.ledger, f.electionID, "cand-a")
	_, err := f.svc.Register(ctx, f.submit(f.voter.ID, tx))
	require.NoError(t, err)

	_, err = f.db.Exec(`DELETE FROM app_user WHERE id = $1`, f.voter.ID)
	require.NoError(t, err)

	records, err := Records(ctx, f.db, f.electionID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Nil(t, records[0].UserID)
	require.Equal(t, tx.TxID, records[0].TxID)
}
