// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Every request gets an ID (the caller's X-Request-ID, or a fresh UUID) that is
echoed in the response and available through RequestID. Start and completion
are logged with method, path, client IP, status and duration_ms.

# Authentication

RequireUser validates an "Authorization: Bearer <token>" header and puts the
user ID into the request context:

	mux.HandleFunc("POST /votes/register-tx",
		middleware.WithLogging(middleware.RequireUser(secret, h.RegisterTx)))

	userID := middleware.UserID(r.Context())

# CORS

	server := http.Server{
		Handler: middleware.CORS(cfg.AllowedOrigins)(mux),
	}

An empty origin list reflects any origin. Preflight requests answer 204.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

ParseJSONBody reads at most MaxBodyBytes.
*/
package middleware
