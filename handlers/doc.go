// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the ValidVote API.

# Handler Types

Each handler is a struct holding the stores or services it needs:

  - UserHandler: registration, login and profile
  - ElectionHandler: election CRUD, lifecycle, eligibility checks
  - CandidateHandler: candidates of a draft election
  - VoterHandler: voter roll of a draft election
  - LedgerHandler: transaction publication and lookup
  - VoteHandler: vote registration and verification
  - ResultsHandler: tallies of closed elections
  - ValidatorHandler: a simulated external eligibility registry

Handlers behind middleware.RequireUser read the caller with
middleware.UserID.

# Election Lifecycle

	POST /elections              → CreateElection (draft)
	POST /elections/{id}/open    → OpenElection (needs a candidate)
	POST /elections/{id}/close   → CloseElection
	POST /elections/{id}/archive → ArchiveElection

# Voting Flow

	GET  /elections/{id}/verify-eligibility → VerifyEligibility
	POST /ledger/publish                    → Publish (returns tx_id, payload_hash)
	POST /votes/register-tx                 → RegisterTx
	GET  /votes/verify/{id}                 → Verify
	GET  /results/{id}                      → GetResults (closed elections only)

# Errors

Domain errors are mapped to status codes in one table (errors.go). Anything
unrecognized is logged and answered with 500.
*/
package handlers
