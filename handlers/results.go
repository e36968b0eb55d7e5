// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/tally"
)

type ResultsHandler struct {
	engine *tally.Engine
}

func NewResultsHandler(engine *tally.Engine) *ResultsHandler {
	return &ResultsHandler{engine: engine}
}

// GetResults handles GET /results/{id}
// Results are sealed until the election closes: an open election answers
// 403 with available=false and no counts.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.Compute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "compute results")
		return
	}

	if !result.Available {
		middleware.JSONResponse(w, http.StatusForbidden, result)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, result)
}
