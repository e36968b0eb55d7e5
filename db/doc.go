// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation, and transactions.

# Connecting

Open picks the driver from the configured database type:

	conn, err := db.Open("postgres", "postgres://...")
	conn, err := db.Open("sqlite", "validvote.db")

SQLite DSNs are completed by SQLiteDSN: _txlock=immediate so that every
transaction takes the write lock up front, foreign_keys(1) for the cascades
and SET NULL links, and a busy_timeout when none is given. Immediate locking
is what serializes voter roll acquisition on SQLite, where
SELECT ... FOR UPDATE does not exist.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - app_user: registered accounts
  - election: voting processes and lifecycle state
  - candidate: ballot entries per election
  - voter_roll: per (election, user) eligibility and single-use voted flag
  - ledger_sequence: the global block counter
  - ledger_tx: append-only published transactions
  - vote_record: audit link from (election, user) to one ledger transaction
  - ext_user: registry behind the simulated external validator

# Relationships

	app_user 1──* election (owner, CASCADE)
	election 1──* candidate (CASCADE)
	election 1──* voter_roll (CASCADE)
	election 1──* vote_record (CASCADE)
	app_user 1──* candidate / voter_roll / vote_record (SET NULL)

User deletion never removes audit rows; their user_id becomes NULL.

# Uniqueness

The single-vote guarantees rest on these constraints:

  - voter_roll (election_id, user_id)
  - vote_record (election_id, user_id), tx_id, vote_hash
  - ledger_tx payload_hash, block_number

IsUniqueViolation recognizes violations from both lib/pq and modernc sqlite.
*/
package db
