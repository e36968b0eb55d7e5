// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the ValidVote API.

# Route Registration

NewRouter builds the domain services (ledger store, voter roll, eligibility
checker, vote service, tally engine) and returns a configured http.ServeMux:

	mux, err := router.NewRouter(db, cfg)

NewRouterWithValidator does the same with a custom external eligibility
validator, which tests use to stub the outbound call.

# Endpoints

Public:

	GET  /health
	POST /users/register
	POST /users/login
	GET  /elections
	GET  /elections/{id}
	GET  /elections/{id}/candidates
	POST /ledger/publish
	GET  /ledger/tx/{txid}
	GET  /results/{id}
	POST /external-validator/check
	POST /external-validator/users

Authenticated (Authorization: Bearer <token>):

	GET    /users/me
	POST   /elections
	PUT    /elections/{id}
	DELETE /elections/{id}
	POST   /elections/{id}/open|close|archive
	GET    /elections/{id}/verify-eligibility
	POST   /elections/{id}/candidates
	DELETE /elections/{id}/candidates/{cid}
	GET    /elections/{id}/voters
	POST   /elections/{id}/voters
	DELETE /elections/{id}/voters/{vid}
	POST   /votes/register-tx
	GET    /votes/verify/{id}
*/
package router
