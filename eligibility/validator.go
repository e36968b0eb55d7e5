// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package eligibility

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrValidatorUnavailable means the check itself failed. It is never a
// negative eligibility answer.
var ErrValidatorUnavailable = errors.New("external eligibility validator unavailable")

// Answer is the external validator's decision
type Answer struct {
	Eligible bool
	Reason   string
}

// Validator asks an external service whether email may vote
type Validator interface {
	Check(ctx context.Context, endpoint, email string) (Answer, error)
}

// HTTPValidator posts {"email": ...} to the election's endpoint
type HTTPValidator struct {
	client *http.Client
}

func NewHTTPValidator(timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{client: &http.Client{Timeout: timeout}}
}

type validatorReply struct {
	Eligible   *bool  `json:"eligible"`
	IsEligible *bool  `json:"is_eligible"`
	Reason     string `json:"reason"`
}

func (v *HTTPValidator) Check(ctx context.Context, endpoint, email string) (Answer, error) {
	body, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return Answer{}, fmt.Errorf("failed to encode validator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return Answer{}, fmt.Errorf("%w: status %d", ErrValidatorUnavailable, resp.StatusCode)
	}

	var reply validatorReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&reply); err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrValidatorUnavailable, err)
	}

	switch {
	case reply.Eligible != nil:
		return Answer{Eligible: *reply.Eligible, Reason: reply.Reason}, nil
	case reply.IsEligible != nil:
		return Answer{Eligible: *reply.IsEligible, Reason: reply.Reason}, nil
	}
	return Answer{}, fmt.Errorf("%w: reply has no eligibility field", ErrValidatorUnavailable)
}
