// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/osmelmr/validvote-server/models"
	"github.com/osmelmr/validvote-server/testutil"
)

func TestPublishAndGetTx(t *testing.T) {
	env := newTestEnv(t)

	publish := func(body any) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		env.ledgerH.Publish(w, testutil.MakeRequest("POST", "/ledger/publish", body, nil))
		return w
	}

	w := publish(map[string]any{"payload": map[string]any{"selections": []string{"a"}}})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var first models.PublishTxResponse
	testutil.AssertJSON(t, w, &first)
	if first.TxID == "" || first.PayloadHash == "" || first.BlockNumber != 1 {
		t.Fatalf("Unexpected publish response: %+v", first)
	}

	testutil.AssertStatus(t, publish(map[string]any{"payload": map[string]any{"selections": []string{"a"}}}), http.StatusConflict)
	testutil.AssertStatus(t, publish(map[string]any{"payload": []string{"a"}}), http.StatusBadRequest)
	testutil.AssertStatus(t, publish(map[string]any{}), http.StatusBadRequest)

	w = publish(map[string]any{"payload": map[string]any{"selections": []string{"b"}}, "payload_hash": "client-hash"})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var second models.PublishTxResponse
	testutil.AssertJSON(t, w, &second)
	if second.BlockNumber != 2 || second.PayloadHash != "client-hash" {
		t.Errorf("Unexpected publish response: %+v", second)
	}

	w = httptest.NewRecorder()
	env.ledgerH.GetTx(w, withPath(testutil.MakeRequest("GET", "/ledger/tx/"+first.TxID, nil, nil), "txid", first.TxID))
	testutil.AssertStatus(t, w, http.StatusOK)
	var tx models.LedgerTx
	testutil.AssertJSON(t, w, &tx)
	if tx.PayloadHash != first.PayloadHash || tx.BlockNumber != 1 {
		t.Errorf("Unexpected transaction: %+v", tx)
	}

	w = httptest.NewRecorder()
	env.ledgerH.GetTx(w, withPath(testutil.MakeRequest("GET", "/ledger/tx/missing", nil, nil), "txid", "missing"))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestExternalValidator(t *testing.T) {
	env := newTestEnv(t)

	w := httptest.NewRecorder()
	env.validator.AddUser(w, testutil.MakeRequest("POST", "/external-validator/users", models.ExternalUserRequest{
		Email: "Student@Example.com", FullName: "Student", Role: "student",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	env.validator.AddUser(w, testutil.MakeRequest("POST", "/external-validator/users", models.ExternalUserRequest{
		Email: "student@example.com",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)

	tests := []struct {
		email    string
		eligible bool
	}{
		{"student@example.com", true},
		{"STUDENT@example.com", true},
		{"stranger@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.validator.Check(w, testutil.MakeRequest("POST", "/external-validator/check", models.ExternalCheckRequest{Email: tt.email}, nil))
			testutil.AssertStatus(t, w, http.StatusOK)
			var resp models.ExternalCheckResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Eligible != tt.eligible || resp.IsEligible != tt.eligible {
				t.Errorf("Expected eligible=%v, got %+v", tt.eligible, resp)
			}
		})
	}

	w = httptest.NewRecorder()
	env.validator.Check(w, testutil.MakeRequest("POST", "/external-validator/check", models.ExternalCheckRequest{}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
