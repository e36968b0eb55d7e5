// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ledger is the append-only store of published vote transactions.

It stands in for a distributed ledger: the only properties it guarantees are
append-only immutability, a unique payload hash per entry, and a strictly
increasing global block number. Everything that decides whether a vote
counts is reconciled against it.

	store, err := ledger.NewStore(conn, 1024)
	tx, err := store.Publish(ctx, payload, "")       // hash computed when empty
	tx, err := store.Match(ctx, conn, txID, hash)     // both must match one entry

Publishing a payload hash that already exists fails with ErrDuplicateEntry.
*/
package ledger
