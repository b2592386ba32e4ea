// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity is the boundary to the identity provider: it issues
// and verifies the bearer tokens that carry the {user id, username,
// role} tuple the rest of the system trusts verbatim.
package identity

import (
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated tuple carried by a verified token.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type meshClaims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer creates an issuer with the given signing secret and token
// lifetime.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required: %w", ledger.ErrInvalidInput)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %w", ledger.ErrInvalidInput)
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign issues a bearer token for the identity.
func (i *Issuer) Sign(id Identity) (string, error) {
	now := time.Now()
	claims := meshClaims{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify validates a bearer token and returns the identity it carries.
// Missing, malformed, expired or wrongly-signed tokens all map to
// ErrUnauthorized.
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, fmt.Errorf("no token provided: %w", ledger.ErrUnauthorized)
	}

	var claims meshClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", ledger.ErrUnauthorized)
	}

	return Identity{UserID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}
