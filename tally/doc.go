// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally computes election results from ledger-confirmed votes.

Results exist only for closed and archived elections. The set of ballots is
the election's vote records, never the raw ledger; each record's ledger
transaction supplies the selections.

Ballot payloads carry candidate IDs under "selections" (or "candidates"):

	{"selections": ["c1", "c3"]}

Per ballot, unknown candidates are dropped and repeated IDs count once. A
ballot with more remaining selections than the election's max_selections is
spoiled and credits nobody. Every candidate is listed, ordered by count
descending and then by candidate ID.
*/
package tally
