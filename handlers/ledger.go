// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/models"
)

type LedgerHandler struct {
	ledger *ledger.Store
}

func NewLedgerHandler(l *ledger.Store) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// Publish handles POST /ledger/publish
func (h *LedgerHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req models.PublishTxRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Payload) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "payload is required")
		return
	}

	entry, err := h.ledger.Publish(r.Context(), req.Payload, req.PayloadHash)
	if err != nil {
		writeError(w, err, "publish transaction")
		return
	}

	slog.Info("ledger transaction published", "tx_id", entry.TxID, "block", entry.BlockNumber)
	middleware.JSONResponse(w, http.StatusCreated, models.PublishTxResponse{
		TxID:        entry.TxID,
		BlockNumber: entry.BlockNumber,
		PayloadHash: entry.PayloadHash,
	})
}

// GetTx handles GET /ledger/tx/{txid}
func (h *LedgerHandler) GetTx(w http.ResponseWriter, r *http.Request) {
	entry, err := h.ledger.Get(r.Context(), r.PathValue("txid"))
	if err != nil {
		writeError(w, err, "get transaction")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, entry)
}
