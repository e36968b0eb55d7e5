// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
)

// ValidatorHandler simulates an external eligibility registry. Elections
// can point their ext_validation_url at /external-validator/check.
type ValidatorHandler struct {
	db *db.DB
}

func NewValidatorHandler(d *db.DB) *ValidatorHandler {
	return &ValidatorHandler{db: d}
}

// Check handles POST /external-validator/check
func (h *ValidatorHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req models.ExternalCheckRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	var role string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT role FROM ext_user WHERE email = $1
	`, auth.NormalizeEmail(req.Email)).Scan(&role)
	if err == sql.ErrNoRows {
		middleware.JSONResponse(w, http.StatusOK, models.ExternalCheckResponse{
			Reason: "email not registered",
		})
		return
	}
	if err != nil {
		slog.Error("failed to query external user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ExternalCheckResponse{
		Eligible:   true,
		IsEligible: true,
		Reason:     "registered as " + role,
	})
}

// AddUser handles POST /external-validator/users
func (h *ValidatorHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req models.ExternalUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	email := auth.NormalizeEmail(req.Email)
	if email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Role == "" {
		req.Role = "student"
	}

	_, err := h.db.ExecContext(r.Context(), `
		INSERT INTO ext_user (email, full_name, role, created_at)
		VALUES ($1, $2, $3, $4)
	`, email, req.FullName, req.Role, time.Now())
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		slog.Error("failed to insert external user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	slog.Info("external user registered", "role", req.Role)
	req.Email = email
	middleware.JSONResponse(w, http.StatusCreated, req)
}
