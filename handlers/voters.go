// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/elections"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/roll"
)

// VoterHandler administers an election's voter roll. Only the owner may
// touch the roll, and only while the election is in draft.
type VoterHandler struct {
	db   *db.DB
	roll *roll.Roll
}

func NewVoterHandler(d *db.DB, r *roll.Roll) *VoterHandler {
	return &VoterHandler{db: d, roll: r}
}

// ListVoters handles GET /elections/{id}/voters
func (h *VoterHandler) ListVoters(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	e, err := elections.Lookup(r.Context(), h.db, electionID)
	if err != nil {
		writeError(w, err, "list voters")
		return
	}
	if e.OwnerID != middleware.UserID(r.Context()) {
		writeError(w, elections.ErrNotOwner, "list voters")
		return
	}

	entries, err := h.roll.List(r.Context(), electionID)
	if err != nil {
		writeError(w, err, "list voters")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, entries)
}

// UpsertVoter handles POST /elections/{id}/voters
// The voter is named by user_id or, failing that, by email.
func (h *VoterHandler) UpsertVoter(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertVoterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	userID := req.UserID
	if userID == "" {
		if req.Email == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "user_id or email is required")
			return
		}
		id, err := userIDByEmail(r.Context(), h.db, req.Email)
		if errors.Is(err, errUserNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			slog.Error("failed to query user", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		userID = id
	} else if _, err := lookupUser(r.Context(), h.db, userID); err != nil {
		if errors.Is(err, errUserNotFound) {
			middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
			return
		}
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	electionID := r.PathValue("id")
	entry, err := h.roll.UpsertAllowed(r.Context(), electionID, userID, roll.Grant{
		Allowed:    req.Allowed,
		Provenance: roll.ProvenanceAdmin,
		Voted:      req.Voted,
		Guard:      elections.EditGuard(h.db, electionID, middleware.UserID(r.Context())),
	})
	if err != nil {
		writeError(w, err, "update voter roll")
		return
	}

	slog.Info("voter roll updated", "election_id", electionID, "user_id", userID, "allowed", entry.Allowed)
	middleware.JSONResponse(w, http.StatusOK, entry)
}

// DeleteVoter handles DELETE /elections/{id}/voters/{vid}
func (h *VoterHandler) DeleteVoter(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	guard := elections.EditGuard(h.db, electionID, middleware.UserID(r.Context()))
	if err := h.roll.Delete(r.Context(), electionID, r.PathValue("vid"), guard); err != nil {
		writeError(w, err, "delete voter")
		return
	}

	slog.Info("voter removed", "election_id", electionID, "entry_id", r.PathValue("vid"))
	w.WriteHeader(http.StatusNoContent)
}
