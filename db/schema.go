// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, d *DB) error {
	_, err := d.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Schema is portable between PostgreSQL and SQLite. Timestamps are always
// written by the application, never defaulted by the database.
const Schema = `
-- Users
CREATE TABLE IF NOT EXISTS app_user (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    is_staff BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);

-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL REFERENCES app_user(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    kind TEXT NOT NULL DEFAULT 'private' CHECK (kind IN ('public', 'private', 'internal')),
    max_selections INTEGER NOT NULL DEFAULT 1 CHECK (max_selections >= 1),
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'open', 'closed', 'archived')),
    ext_validation_url TEXT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_election_status ON election(status);
CREATE INDEX IF NOT EXISTS idx_election_owner ON election(owner_id);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    user_id TEXT REFERENCES app_user(id) ON DELETE SET NULL,
    name TEXT NOT NULL,
    bio TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_candidate_election_id ON candidate(election_id);

-- Voter roll
CREATE TABLE IF NOT EXISTS voter_roll (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    user_id TEXT REFERENCES app_user(id) ON DELETE SET NULL,
    allowed BOOLEAN NOT NULL DEFAULT FALSE,
    voted BOOLEAN NOT NULL DEFAULT FALSE,
    ext_verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_voter_roll_election_id ON voter_roll(election_id);

-- Ledger block counter (single global sequence)
CREATE TABLE IF NOT EXISTS ledger_sequence (
    name TEXT PRIMARY KEY,
    value BIGINT NOT NULL
);

INSERT INTO ledger_sequence (name, value) VALUES ('block', 0)
ON CONFLICT (name) DO NOTHING;

-- Ledger transactions (append-only)
CREATE TABLE IF NOT EXISTS ledger_tx (
    tx_id TEXT PRIMARY KEY,
    payload_hash TEXT NOT NULL UNIQUE,
    payload TEXT NOT NULL,
    block_number BIGINT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL
);

-- Vote records (no FK to ledger_tx: divergence must stay detectable)
CREATE TABLE IF NOT EXISTS vote_record (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    user_id TEXT REFERENCES app_user(id) ON DELETE SET NULL,
    tx_id TEXT NOT NULL UNIQUE,
    vote_hash TEXT NOT NULL UNIQUE,
    published_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (election_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_record_election_id ON vote_record(election_id);

-- Simulated external eligibility registry
CREATE TABLE IF NOT EXISTS ext_user (
    email TEXT PRIMARY KEY,
    full_name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'student',
    created_at TIMESTAMP NOT NULL
);
`
