// Copyright (c) 2025 The ValidVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifiers, password hashing, and access tokens.

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err := auth.CheckPassword(hash, password) // ErrInvalidCredentials on mismatch

# Access Tokens

Access tokens are HS256 JWTs whose subject is the user ID:

	token, err := auth.IssueToken(userID, secret, 24*time.Hour, time.Now())
	userID, err := auth.ParseToken(token, secret)

The secret must be at least MinSecretLength bytes. Expired, unsigned, or
differently signed tokens fail with ErrInvalidToken.

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
