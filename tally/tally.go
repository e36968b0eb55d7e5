// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/roll"
	"github.com/osmelmr/validvote-server/votes"
)

const notAvailableMessage = "results are available once the election is closed"

type Engine struct {
	db     *db.DB
	ledger *ledger.Store
	roll   *roll.Roll
}

func NewEngine(d *db.DB, l *ledger.Store, r *roll.Roll) *Engine {
	return &Engine{db: d, ledger: l, roll: r}
}

// ballot is the part of a ledger payload the tally reads
type ballot struct {
	Selections []json.RawMessage `json:"selections"`
	Candidates []json.RawMessage `json:"candidates"`
}

// selectionsOf extracts candidate references from a payload. Elements may
// be JSON strings or bare numbers; anything else is ignored.
func selectionsOf(payload json.RawMessage) []string {
	var b ballot
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil
	}
	raw := b.Selections
	if raw == nil {
		raw = b.Candidates
	}

	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		if bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(r))
		dec.UseNumber()
		if err := dec.Decode(&n); err == nil {
			ids = append(ids, n.String())
		}
	}
	return ids
}

// Compute tallies a closed election. Before closure it returns a result with
// Available=false and no counts. Only transactions referenced by a vote
// record are read; a record whose anchor is missing or disagrees is left
// out and raised as an alarm.
func (e *Engine) Compute(ctx context.Context, electionID string) (models.TallyResult, error) {
	started := time.Now()

	election, err := elections.Lookup(ctx, e.db, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}

	result := models.TallyResult{
		ElectionID: election.ID,
		Title:      election.Title,
		Status:     election.Status,
	}
	if !elections.ResultsAvailable(election.Status) {
		result.Message = notAvailableMessage
		return result, nil
	}
	result.Available = true

	candidates, err := elections.Candidates(ctx, e.db, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}
	records, err := votes.Records(ctx, e.db, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}
	result.TotalEligibleVoters, err = e.roll.CountAllowed(ctx, e.db, electionID)
	if err != nil {
		return models.TallyResult{}, err
	}
	result.TotalVotersCast = len(records)

	txIDs := make([]string, len(records))
	for i, rec := range records {
		txIDs[i] = rec.TxID
	}
	anchors, err := e.ledger.GetMany(ctx, txIDs)
	if err != nil {
		return models.TallyResult{}, err
	}

	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c.ID] = 0
	}

	for _, rec := range records {
		tx, ok := anchors[rec.TxID]
		if !ok || tx.PayloadHash != rec.VoteHash {
			result.UnverifiedRecords++
			slog.Error("vote record excluded from tally",
				"alarm", "ledger_inconsistency",
				"election_id", electionID,
				"record_id", rec.ID,
				"tx_id", rec.TxID,
				"anchor_found", ok,
			)
			continue
		}

		seen := make(map[string]bool)
		var valid []string
		for _, id := range selectionsOf(tx.Payload) {
			if _, known := counts[id]; !known || seen[id] {
				continue
			}
			seen[id] = true
			valid = append(valid, id)
		}
		if len(valid) > election.MaxSelections {
			result.SpoiledBallots++
			continue
		}
		for _, id := range valid {
			counts[id]++
		}
	}

	result.Results = make([]models.CandidateCount, 0, len(candidates))
	for _, c := range candidates {
		result.Results = append(result.Results, models.CandidateCount{
			CandidateID:   c.ID,
			CandidateName: c.Name,
			VoteCount:     counts[c.ID],
		})
	}
	sort.Slice(result.Results, func(i, j int) bool {
		a, b := result.Results[i], result.Results[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.CandidateID < b.CandidateID
	})

	slog.Info("tally computed",
		"election_id", electionID,
		"ballots", humanize.Comma(int64(len(records))),
		"eligible", humanize.Comma(int64(result.TotalEligibleVoters)),
		"spoiled", result.SpoiledBallots,
		"unverified", result.UnverifiedRecords,
		"took", time.Since(started).String(),
	)
	return result, nil
}
