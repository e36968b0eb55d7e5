// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
)

type CandidateHandler struct {
	db *db.DB
}

func NewCandidateHandler(d *db.DB) *CandidateHandler {
	return &CandidateHandler{db: d}
}

// ListCandidates handles GET /elections/{id}/candidates
func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if _, err := elections.Lookup(r.Context(), h.db, electionID); err != nil {
		writeError(w, err, "list candidates")
		return
	}

	list, err := elections.Candidates(r.Context(), h.db, electionID)
	if err != nil {
		writeError(w, err, "list candidates")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// AddCandidate handles POST /elections/{id}/candidates
func (h *CandidateHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	electionID := r.PathValue("id")
	c, err := elections.AddCandidate(r.Context(), h.db, electionID, middleware.UserID(r.Context()), req, time.Now())
	if err != nil {
		writeError(w, err, "add candidate")
		return
	}

	slog.Info("candidate added", "election_id", electionID, "candidate_id", c.ID)
	middleware.JSONResponse(w, http.StatusCreated, c)
}

// DeleteCandidate handles DELETE /elections/{id}/candidates/{cid}
func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	candidateID := r.PathValue("cid")
	err := elections.DeleteCandidate(r.Context(), h.db, electionID, candidateID, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err, "delete candidate")
		return
	}

	slog.Info("candidate removed", "election_id", electionID, "candidate_id", candidateID)
	w.WriteHeader(http.StatusNoContent)
}
