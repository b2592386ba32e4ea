// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/AleutianMesh/pkg/validation"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account and returns a signed bearer token for
// it. Duplicate usernames report a conflict.
func Register(store *ledger.Store, issuer *identity.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "username and password required"})
			return
		}
		if err := validation.ValidateUsername(req.Username); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": err.Error()})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(c, fmt.Errorf("hash password: %w", err))
			return
		}

		user, err := store.CreateUser(c.Request.Context(), req.Username, string(hash), "user")
		if err != nil {
			respondError(c, err)
			return
		}

		token, err := issuer.Sign(identity.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
		if err != nil {
			respondError(c, err)
			return
		}

		auditAction(c.Request.Context(), store, user.ID, "register",
			fmt.Sprintf("User %s registered", user.Username), c.ClientIP())
		slog.Info("user registered", "user_id", user.ID, "username", user.Username)

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
		})
	}
}

// Login verifies credentials and returns a fresh bearer token. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func Login(store *ledger.Store, issuer *identity.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "username and password required"})
			return
		}

		user, err := store.GetUserByUsername(c.Request.Context(), req.Username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}

		if err := store.TouchUserLogin(c.Request.Context(), user.ID); err != nil {
			respondError(c, err)
			return
		}

		token, err := issuer.Sign(identity.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
		if err != nil {
			respondError(c, err)
			return
		}

		auditAction(c.Request.Context(), store, user.ID, "login",
			fmt.Sprintf("User %s logged in", user.Username), c.ClientIP())

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  gin.H{"id": user.ID, "username": user.Username, "role": user.Role},
		})
	}
}
