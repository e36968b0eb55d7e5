// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/eligibility"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
)

type ElectionHandler struct {
	db      *db.DB
	checker *eligibility.Checker
}

func NewElectionHandler(d *db.DB, checker *eligibility.Checker) *ElectionHandler {
	return &ElectionHandler{db: d, checker: checker}
}

// ListElections handles GET /elections
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	list, err := elections.List(r.Context(), h.db)
	if err != nil {
		writeError(w, err, "list elections")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID := middleware.UserID(r.Context())
	e, err := elections.Create(r.Context(), h.db, userID, req, time.Now())
	if err != nil {
		writeError(w, err, "create election")
		return
	}

	slog.Info("election created", "election_id", e.ID, "owner_id", userID)
	middleware.JSONResponse(w, http.StatusCreated, e)
}

// GetElection handles GET /elections/{id}
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	e, err := elections.Lookup(r.Context(), h.db, r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get election")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, e)
}

// UpdateElection handles PUT /elections/{id}
func (h *ElectionHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	e, err := elections.Update(r.Context(), h.db, r.PathValue("id"), middleware.UserID(r.Context()), req, time.Now())
	if err != nil {
		writeError(w, err, "update election")
		return
	}

	slog.Info("election updated", "election_id", e.ID)
	middleware.JSONResponse(w, http.StatusOK, e)
}

// DeleteElection handles DELETE /elections/{id}
func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if err := elections.Delete(r.Context(), h.db, electionID, middleware.UserID(r.Context())); err != nil {
		writeError(w, err, "delete election")
		return
	}

	slog.Info("election deleted", "election_id", electionID)
	w.WriteHeader(http.StatusNoContent)
}

// transition returns a handler moving an election to status to. Only the
// owner may drive the lifecycle.
func (h *ElectionHandler) transition(to string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		electionID := r.PathValue("id")

		e, err := elections.Lookup(r.Context(), h.db, electionID)
		if err != nil {
			writeError(w, err, "load election")
			return
		}
		if e.OwnerID != middleware.UserID(r.Context()) {
			writeError(w, elections.ErrNotOwner, "change election status")
			return
		}

		e, err = elections.Transition(r.Context(), h.db, electionID, to, time.Now())
		if err != nil {
			writeError(w, err, "change election status")
			return
		}

		slog.Info("election status changed", "election_id", electionID, "status", to)
		middleware.JSONResponse(w, http.StatusOK, e)
	}
}

// OpenElection handles POST /elections/{id}/open
func (h *ElectionHandler) OpenElection(w http.ResponseWriter, r *http.Request) {
	h.transition(models.StatusOpen)(w, r)
}

// CloseElection handles POST /elections/{id}/close
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	h.transition(models.StatusClosed)(w, r)
}

// ArchiveElection handles POST /elections/{id}/archive
func (h *ElectionHandler) ArchiveElection(w http.ResponseWriter, r *http.Request) {
	h.transition(models.StatusArchived)(w, r)
}

// VerifyEligibility handles GET /elections/{id}/verify-eligibility
// Ineligible decisions are 200 with eligible=false; only a failed external
// check is an error (503).
func (h *ElectionHandler) VerifyEligibility(w http.ResponseWriter, r *http.Request) {
	u, err := lookupUser(r.Context(), h.db, middleware.UserID(r.Context()))
	if errors.Is(err, errUserNotFound) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "User no longer exists")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	decision, err := h.checker.Check(r.Context(), r.PathValue("id"), u)
	if err != nil {
		writeError(w, err, "verify eligibility")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EligibilityResponse{
		Eligible: decision.Eligible,
		Source:   decision.Source,
		Reason:   decision.Reason,
	})
}
