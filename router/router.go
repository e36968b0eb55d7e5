// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"fmt"
	"net/http"

	"github.com/osmelmr/validvote-server/cliparse"
	"github.com/osmelmr/validvote-server/db"
	"github.com/osmelmr/validvote-server/eligibility"
	"github.com/osmelmr/validvote-server/handlers"
	"github.com/osmelmr/validvote-server/ledger"
	"github.com/osmelmr/validvote-server/middleware"
	"github.com/osmelmr/validvote-server/roll"
	"github.com/osmelmr/validvote-server/tally"
	"github.com/osmelmr/validvote-server/votes"
)

func NewRouter(d *db.DB, cfg cliparse.Config) (*http.ServeMux, error) {
	return NewRouterWithValidator(d, cfg, eligibility.NewHTTPValidator(cfg.ValidatorTimeout))
}

// NewRouterWithValidator is NewRouter with a custom external validator
func NewRouterWithValidator(d *db.DB, cfg cliparse.Config, v eligibility.Validator) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	// Domain services
	ledgerStore, err := ledger.NewStore(d, cfg.LedgerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger store: %w", err)
	}
	voterRoll := roll.New(d)
	checker := eligibility.NewChecker(d, voterRoll, v)
	voteService := votes.NewService(d, ledgerStore, voterRoll)
	engine := tally.NewEngine(d, ledgerStore, voterRoll)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d, cfg)
	electionHandler := handlers.NewElectionHandler(d, checker)
	candidateHandler := handlers.NewCandidateHandler(d)
	voterHandler := handlers.NewVoterHandler(d, voterRoll)
	ledgerHandler := handlers.NewLedgerHandler(ledgerStore)
	voteHandler := handlers.NewVoteHandler(voteService)
	resultsHandler := handlers.NewResultsHandler(engine)
	validatorHandler := handlers.NewValidatorHandler(d)

	public := middleware.WithLogging
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireUser(cfg.JWTSecret, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Users
	mux.HandleFunc("POST /users/register", public(userHandler.Register))
	mux.HandleFunc("POST /users/login", public(userHandler.Login))
	mux.HandleFunc("GET /users/me", authed(userHandler.GetMe))

	// Elections
	mux.HandleFunc("GET /elections", public(electionHandler.ListElections))
	mux.HandleFunc("POST /elections", authed(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", public(electionHandler.GetElection))
	mux.HandleFunc("PUT /elections/{id}", authed(electionHandler.UpdateElection))
	mux.HandleFunc("DELETE /elections/{id}", authed(electionHandler.DeleteElection))
	mux.HandleFunc("POST /elections/{id}/open", authed(electionHandler.OpenElection))
	mux.HandleFunc("POST /elections/{id}/close", authed(electionHandler.CloseElection))
	mux.HandleFunc("POST /elections/{id}/archive", authed(electionHandler.ArchiveElection))
	mux.HandleFunc("GET /elections/{id}/verify-eligibility", authed(electionHandler.VerifyEligibility))

	// Candidates and voter roll (owner, draft only)
	mux.HandleFunc("GET /elections/{id}/candidates", public(candidateHandler.ListCandidates))
	mux.HandleFunc("POST /elections/{id}/candidates", authed(candidateHandler.AddCandidate))
	mux.HandleFunc("DELETE /elections/{id}/candidates/{cid}", authed(candidateHandler.DeleteCandidate))
	mux.HandleFunc("GET /elections/{id}/voters", authed(voterHandler.ListVoters))
	mux.HandleFunc("POST /elections/{id}/voters", authed(voterHandler.UpsertVoter))
	mux.HandleFunc("DELETE /elections/{id}/voters/{vid}", authed(voterHandler.DeleteVoter))

	// Ledger (public, append-only)
	mux.HandleFunc("POST /ledger/publish", public(ledgerHandler.Publish))
	mux.HandleFunc("GET /ledger/tx/{txid}", public(ledgerHandler.GetTx))

	// Votes
	mux.HandleFunc("POST /votes/register-tx", authed(voteHandler.RegisterTx))
	mux.HandleFunc("GET /votes/verify/{id}", authed(voteHandler.Verify))

	// Results (public, sealed until closed)
	mux.HandleFunc("GET /results/{id}", public(resultsHandler.GetResults))

	// Simulated external validator
	mux.HandleFunc("POST /external-validator/check", public(validatorHandler.Check))
	mux.HandleFunc("POST /external-validator/users", public(validatorHandler.AddUser))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("validvote API v1"))
	})

	return mux, nil
}
