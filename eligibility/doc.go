// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package eligibility decides whether a user may vote in an election.

Decisions are taken in order:

 1. roll entry with voted=true: ineligible, "already voted"
 2. roll entry with allowed=true: eligible, source "internal"
 3. roll entry with allowed=false: ineligible, "not allowed"
 4. no entry, no external endpoint: ineligible, "not on roll"
 5. no entry, external endpoint: ask the endpoint once

An affirmative external answer creates the roll entry (allowed, ext_verified)
before eligibility is reported. Transport errors, non-2xx replies and
undecodable bodies are ErrValidatorUnavailable, never an ineligible decision.
*/
package eligibility
