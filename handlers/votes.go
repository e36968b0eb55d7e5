// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/votes"
)

type VoteHandler struct {
	votes *votes.Service
}

func NewVoteHandler(svc *votes.Service) *VoteHandler {
	return &VoteHandler{votes: svc}
}

// RegisterTx handles POST /votes/register-tx
// Binds a published ledger transaction to the authenticated voter.
func (h *VoteHandler) RegisterTx(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ElectionID == "" || req.TxID == "" || req.VoteHash == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election_id, tx_id and vote_hash are required")
		return
	}

	rec, err := h.votes.Register(r.Context(), votes.Submission{
		ElectionID: req.ElectionID,
		UserID:     middleware.UserID(r.Context()),
		TxID:       req.TxID,
		VoteHash:   req.VoteHash,
	})
	if err != nil {
		writeError(w, err, "register vote")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterVoteResponse{
		Status: "registered",
		TxID:   rec.TxID,
	})
}

// Verify handles GET /votes/verify/{id}
// Returns the caller's own vote in election {id} as the ledger holds it.
func (h *VoteHandler) Verify(w http.ResponseWriter, r *http.Request) {
	v, err := h.votes.Verify(r.Context(), r.PathValue("id"), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err, "verify vote")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VerificationResponse{
		Status:        "verified",
		ElectionID:    v.Record.ElectionID,
		TransactionID: v.Tx.TxID,
		VoteHash:      v.Tx.PayloadHash,
		BlockNumber:   v.Tx.BlockNumber,
		PublishedAt:   v.Record.PublishedAt,
		PublishedAgo:  humanize.Time(v.Record.PublishedAt),
		Payload:       v.Tx.Payload,
	})
}
