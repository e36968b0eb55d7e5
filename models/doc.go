// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterUserRequest, LoginRequest: email, password
  - CreateElectionRequest: title, window, kind, max_selections, ext_validation_url
  - AddCandidateRequest: name, bio, image_url, user_id
  - UpsertVoterRequest: user_id or email, allowed
  - PublishTxRequest: payload, payload_hash
  - RegisterVoteRequest: election_id, tx_id, vote_hash

# Response Types

  - AuthResponse: user, access token
  - PublishTxResponse: tx_id, block_number, payload_hash
  - RegisterVoteResponse: status, tx_id
  - EligibilityResponse: eligible, source or reason
  - VerificationResponse: transaction id, hash, publication time, ledger payload
  - TallyResult: totals and per-candidate counts
  - ErrorResponse: error, message

# Domain Types

  - Election: voting process and lifecycle state
  - Candidate: ballot entry, optionally linked to a user
  - VoterRollEntry: allowed / voted / ext_verified per (election, user)
  - LedgerTx: immutable published transaction
  - VoteRecord: audit link from (election, user) to a ledger transaction

# Constants

Status values (forward only):

	StatusDraft → StatusOpen → StatusClosed → StatusArchived

Election kinds:

	KindPublic, KindPrivate, KindInternal
*/
package models
