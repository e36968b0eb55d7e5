// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/cliparse"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
)

const minPasswordLength = 8

var errUserNotFound = errors.New("user not found")

type UserHandler struct {
	db  *db.DB
	cfg cliparse.Config
}

func NewUserHandler(d *db.DB, cfg cliparse.Config) *UserHandler {
	return &UserHandler{db: d, cfg: cfg}
}

// lookupUser loads a user by ID
func lookupUser(ctx context.Context, q db.Querier, id string) (models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT id, email, name, is_staff, created_at FROM app_user WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.IsStaff, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, errUserNotFound
	}
	return u, err
}

// userIDByEmail resolves an email to a user ID
func userIDByEmail(ctx context.Context, q db.Querier, email string) (string, error) {
	var id string
	err := q.QueryRowContext(ctx, `SELECT id FROM app_user WHERE email = $1`, auth.NormalizeEmail(email)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", errUserNotFound
	}
	return id, err
}

func (h *UserHandler) issue(w http.ResponseWriter, status int, u models.User) {
	token, err := auth.IssueToken(u.ID, h.cfg.JWTSecret, h.cfg.TokenTTL, time.Now())
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	middleware.JSONResponse(w, status, models.AuthResponse{User: u, AccessToken: token})
}

// Register handles POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate user ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	u := models.User{ID: userID, Email: email, Name: req.Name, CreatedAt: time.Now()}
	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO app_user (id, email, name, password_hash, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, hash, false, u.CreatedAt)
	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	slog.Info("user registered", "user_id", u.ID)
	h.issue(w, http.StatusCreated, u)
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var u models.User
	var hash string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, email, name, is_staff, created_at, password_hash
		FROM app_user WHERE email = $1
	`, auth.NormalizeEmail(req.Email)).Scan(&u.ID, &u.Email, &u.Name, &u.IsStaff, &u.CreatedAt, &hash)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	h.issue(w, http.StatusOK, u)
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := lookupUser(r.Context(), h.db, middleware.UserID(r.Context()))
	if errors.Is(err, errUserNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, u)
}
