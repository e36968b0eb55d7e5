// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package elections manages elections, their candidates and their lifecycle.

Status only moves forward, one step at a time:

	draft → open → closed → archived

Opening requires at least one candidate. Configuration, candidates and the
voter roll change only while an election is in draft, and only by its owner.
Results are available once an election is closed.
*/
package elections
