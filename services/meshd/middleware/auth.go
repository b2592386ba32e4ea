// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the meshd service.
//
// The auth middleware extracts a bearer token from the Authorization
// header, verifies it with the identity issuer, and stores the
// resulting Identity in the Gin context for downstream handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► issuer.Verify(token)
//	   │
//	   └─► Store Identity in context
//	           │
//	           ▼
//	       Handler (retrieves via GetIdentity)
package middleware

import (
	"net/http"
	"strings"

	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/gin-gonic/gin"
)

// identityKey is the context key for storing the verified Identity.
// Using a dedicated key prevents collisions with other context values.
const identityKey = "mesh_identity"

// SetIdentity stores the authenticated identity in the Gin context.
// Called by AuthMiddleware after successful verification; exported for
// handler tests.
func SetIdentity(c *gin.Context, id identity.Identity) {
	c.Set(identityKey, id)
}

// GetIdentity retrieves the authenticated identity from the Gin
// context. The boolean is false when the request did not pass the auth
// middleware.
func GetIdentity(c *gin.Context) (identity.Identity, bool) {
	if value, exists := c.Get(identityKey); exists {
		if id, ok := value.(identity.Identity); ok {
			return id, true
		}
	}
	return identity.Identity{}, false
}

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// A missing or invalid token aborts the request with 401; otherwise
// the verified identity is stored in the context and the chain
// continues.
func AuthMiddleware(issuer *identity.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		id, err := issuer.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		SetIdentity(c, id)
		c.Next()
	}
}

// extractBearerToken extracts the token from the Authorization header.
//
// Expects "Bearer <token>"; the prefix is case-insensitive per RFC
// 7235. Returns empty string when the header is missing or malformed.
func extractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
