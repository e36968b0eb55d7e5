// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package roll manages the voter roll: one entry per (election, user) holding
allowed, voted and ext_verified.

The voted flag belongs to the vote registration transaction. It moves from
false to true exactly once through MarkVoted, under the lock taken by
GetForUpdate, and is never reset. UpsertAllowed, the path used by roll
administration and by external eligibility confirmation, refuses to touch it
and answers ErrImmutableField instead.
*/
package roll
