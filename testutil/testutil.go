// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/osmelmr/validvote-server/auth"
	"github.com/osmelmr/validvote-server/cliparse"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/models"
)

// TestSecret signs access tokens in tests
const TestSecret = "test-secret-0123456789abcdef012345"

// SetupTestDB creates a fresh SQLite database file with the full schema.
// db.Open adds immediate locking, foreign keys and a busy timeout.
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)"

	d, err := db.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := db.CreateSchema(context.Background(), d); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return d
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:             3318,
		DatabaseURL:      "file::memory:",
		DatabaseType:     "sqlite",
		JWTSecret:        TestSecret,
		TokenTTL:         time.Hour,
		ValidatorTimeout: 2 * time.Second,
		LedgerCacheSize:  64,
	}
}

// CreateTestUser inserts a user and returns it with a valid access token
func CreateTestUser(t *testing.T, d *db.DB, email string) (models.User, string) {
	t.Helper()

	id, _ := auth.GenerateID(16)
	u := models.User{ID: id, Email: auth.NormalizeEmail(email), Name: "Test User", CreatedAt: time.Now()}
	_, err := d.Exec(`
		INSERT INTO app_user (id, email, name, password_hash, is_staff, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.Name, "not-a-hash", false, u.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	token, err := auth.IssueToken(u.ID, TestSecret, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return u, token
}

// CreateTestElection inserts an election owned by ownerID
// status should be "draft", "open", "closed" or "archived"
func CreateTestElection(t *testing.T, d *db.DB, ownerID, status string, maxSelections int, extURL *string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	now := time.Now()
	_, err := d.Exec(`
		INSERT INTO election (id, owner_id, title, description, start_at, end_at, kind,
		                      max_selections, status, ext_validation_url, created_at, updated_at)
		VALUES ($1, $2, 'Test Election', 'A test election', $3, $4, 'private', $5, $6, $7, $8, $9)
	`, id, ownerID, now.Add(-time.Hour), now.Add(time.Hour), maxSelections, status, extURL, now, now)
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}
	return id
}

// SetElectionStatus forces an election's status, bypassing the lifecycle
func SetElectionStatus(t *testing.T, d *db.DB, electionID, status string) {
	t.Helper()

	if _, err := d.Exec(`UPDATE election SET status = $1 WHERE id = $2`, status, electionID); err != nil {
		t.Fatalf("Failed to set election status: %v", err)
	}
}

// AddTestCandidate adds a candidate with a fixed ID so that ordering is predictable
func AddTestCandidate(t *testing.T, d *db.DB, electionID, candidateID, name string) string {
	t.Helper()

	_, err := d.Exec(`
		INSERT INTO candidate (id, election_id, name, bio, created_at)
		VALUES ($1, $2, $3, '', $4)
	`, candidateID, electionID, name, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}
	return candidateID
}

// AddTestVoter puts a user on an election's roll
func AddTestVoter(t *testing.T, d *db.DB, electionID, userID string, allowed, voted bool) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	now := time.Now()
	_, err := d.Exec(`
		INSERT INTO voter_roll (id, election_id, user_id, allowed, voted, ext_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id, electionID, userID, allowed, voted, false, now, now)
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}
	return id
}

// PublishTestBallot publishes {"election_id": ..., "selections": [...]} to the ledger
func PublishTestBallot(t *testing.T, l *ledger.Store, electionID string, selections ...string) models.LedgerTx {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"election_id": electionID,
		"selections":  selections,
		"nonce":       time.Now().UnixNano(),
	})
	if err != nil {
		t.Fatalf("Failed to encode test ballot: %v", err)
	}

	entry, err := l.Publish(context.Background(), payload, "")
	if err != nil {
		t.Fatalf("Failed to publish test ballot: %v", err)
	}
	return entry
}

// NewTestLedger creates a ledger store over d
func NewTestLedger(t *testing.T, d *db.DB) *ledger.Store {
	t.Helper()

	l, err := ledger.NewStore(d, 64)
	if err != nil {
		t.Fatalf("Failed to create ledger store: %v", err)
	}
	return l
}

// BearerHeader returns the Authorization header for token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
