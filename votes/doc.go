// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package votes finalizes and verifies votes.

# Registration

A voter publishes their ballot to the ledger, then submits the resulting
transaction ID and payload hash:

	rec, err := svc.Register(ctx, votes.Submission{
		ElectionID: electionID,
		UserID:     userID,
		TxID:       txID,
		VoteHash:   hash,
	})

Register fails with exactly one of:

  - elections.ErrNotFound, ErrElectionNotOpen
  - ErrNotEligible: no roll entry
  - ErrNotAllowed: roll entry with allowed=false
  - ErrAlreadyVoted: roll entry already voted (also every replay)
  - ErrLedgerMismatch: the (tx_id, hash) pair was never published together
  - ErrFinalizationConflict: a vote record for the pair, the tx or the hash
    already exists

On any failure neither the vote record nor the voted flag is persisted.

# Records

vote_record is the only enumeration of votes that count. Each record is
unique per (election, user), per tx_id and per vote_hash.

# Verification

Verify returns the record and its ledger anchor, ErrNoRecordFound, or
ErrLedgerInconsistency when the anchor is missing.
*/
package votes
