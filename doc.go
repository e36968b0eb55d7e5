// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the ValidVote API server.

ValidVote runs elections whose votes are anchored in an append-only ledger.
A voter publishes a ballot to the ledger, then registers the resulting
transaction against their single-use place on the voter roll. Results are
computed only after an election closes, and only from ledger-confirmed
vote records.

# Starting the Server

	DATABASE_URL=file:validvote.db JWT_SECRET=... go run .

Or with flags:

	go run . -p 8000 -t postgres -d "postgres://..." -jwt-secret ...

A .env file in the working directory is loaded first.

# Configuration

Required settings:

  - DATABASE_URL (-d): database DSN
  - JWT_SECRET (-jwt-secret): access token signing key, at least 32 bytes

Optional settings:

  - PORT (-p): server port (default: 8000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - TOKEN_TTL (-token-ttl): access token lifetime (default: 24h)
  - VALIDATOR_TIMEOUT (-validator-timeout): external eligibility call bound (default: 5s)
  - LEDGER_CACHE_SIZE (-ledger-cache): ledger read cache entries (default: 1024)

# Architecture

  - ledger: append-only transaction store
  - roll: voter roll with the single-use voted flag
  - votes: vote registration and verification
  - eligibility: roll and external eligibility checks
  - tally: results of closed elections
  - elections: elections, candidates and lifecycle
  - handlers, router, middleware: HTTP layer
  - db, models, auth, cliparse: supporting packages

See package documentation for each component.
*/
package main
