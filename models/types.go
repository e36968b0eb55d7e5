package models

import (
	"encoding/json"
	"time"
)

// Election status constants
const (
	StatusDraft    = "draft"
	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusArchived = "archived"
)

// Election kind constants
const (
	KindPublic   = "public"
	KindPrivate  = "private"
	KindInternal = "internal"
)

// Eligibility sources
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// Request types

type RegisterUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateElectionRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	Kind             string    `json:"kind"`
	MaxSelections    int       `json:"max_selections"`
	ExtValidationURL *string   `json:"ext_validation_url"`
}

type AddCandidateRequest struct {
	Name     string  `json:"name"`
	Bio      string  `json:"bio"`
	ImageURL *string `json:"image_url"`
	UserID   *string `json:"user_id"`
}

// Voted is accepted only so that attempts to set it can be rejected.
type UpsertVoterRequest struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Allowed bool   `json:"allowed"`
	Voted   *bool  `json:"voted,omitempty"`
}

type PublishTxRequest struct {
	Payload     json.RawMessage `json:"payload"`
	PayloadHash string          `json:"payload_hash"`
}

type RegisterVoteRequest struct {
	ElectionID string `json:"election_id"`
	TxID       string `json:"tx_id"`
	VoteHash   string `json:"vote_hash"`
}

type ExternalCheckRequest struct {
	Email string `json:"email"`
}

type ExternalUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Response types

type AuthResponse struct {
	User        User   `json:"user"`
	AccessToken string `json:"access"`
}

type PublishTxResponse struct {
	TxID        string `json:"tx_id"`
	BlockNumber int64  `json:"block_number"`
	PayloadHash string `json:"payload_hash"`
}

type RegisterVoteResponse struct {
	Status string `json:"status"`
	TxID   string `json:"tx_id"`
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Source   string `json:"source,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type VerificationResponse struct {
	Status        string          `json:"status"`
	ElectionID    string          `json:"election_id"`
	TransactionID string          `json:"transaction_id"`
	VoteHash      string          `json:"vote_hash"`
	BlockNumber   int64           `json:"block_number"`
	PublishedAt   time.Time       `json:"published_at"`
	PublishedAgo  string          `json:"published_ago"`
	Payload       json.RawMessage `json:"payload"`
}

type ExternalCheckResponse struct {
	Eligible   bool   `json:"eligible"`
	IsEligible bool   `json:"is_eligible"`
	Reason     string `json:"reason"`
}

// Domain types

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
}

type Election struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartAt          time.Time `json:"start_at"`
	EndAt            time.Time `json:"end_at"`
	Kind             string    `json:"kind"`
	MaxSelections    int       `json:"max_selections"`
	Status           string    `json:"status"`
	ExtValidationURL *string   `json:"ext_validation_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Candidate struct {
	ID         string    `json:"id"`
	ElectionID string    `json:"election_id"`
	UserID     *string   `json:"user_id,omitempty"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	ImageURL   *string   `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserID is nil once the account behind the entry has been deleted.
type VoterRollEntry struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	UserID      *string   `json:"user_id"`
	Allowed     bool      `json:"allowed"`
	Voted       bool      `json:"voted"`
	ExtVerified bool      `json:"ext_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type LedgerTx struct {
	TxID        string          `json:"tx_id"`
	PayloadHash string          `json:"payload_hash"`
	Payload     json.RawMessage `json:"payload"`
	BlockNumber int64           `json:"block_number"`
	CreatedAt   time.Time       `json:"created_at"`
}

type VoteRecord struct {
	ID          string    `json:"id"`
	ElectionID  string    `json:"election_id"`
	UserID      *string   `json:"user_id"`
	TxID        string    `json:"tx_id"`
	VoteHash    string    `json:"vote_hash"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tally types

type CandidateCount struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	VoteCount     int    `json:"vote_count"`
}

type TallyResult struct {
	ElectionID          string           `json:"election_id"`
	Title               string           `json:"title"`
	Status              string           `json:"status"`
	Available           bool             `json:"available"`
	Message             string           `json:"message,omitempty"`
	TotalEligibleVoters int              `json:"total_eligible_voters"`
	TotalVotersCast     int              `json:"total_voters_cast"`
	SpoiledBallots      int              `json:"spoiled_ballots"`
	UnverifiedRecords   int              `json:"unverified_records"`
	Results             []CandidateCount `json:"results"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
