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
	"net/http"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/gin-gonic/gin"
)

type addFamilyMemberRequest struct {
	MemberName    string  `json:"member_name" binding:"required"`
	Relation      string  `json:"relation" binding:"required"`
	CustodyStatus string  `json:"custody_status"`
	SupportAmount float64 `json:"support_amount"`
	Notes         string  `json:"notes"`
}

// AddFamilyMember stores a family record owned by the caller.
func AddFamilyMember(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req addFamilyMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "member_name and relation required"})
			return
		}

		memberID, err := store.InsertFamilyMember(c.Request.Context(), ledger.FamilyMember{
			MemberName:    req.MemberName,
			Relation:      req.Relation,
			OwnerID:       id.UserID,
			CustodyStatus: req.CustodyStatus,
			SupportAmount: req.SupportAmount,
			Notes:         req.Notes,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		auditAction(c.Request.Context(), store, id.UserID, "family_add",
			fmt.Sprintf("Added %s (%s)", req.MemberName, req.Relation), c.ClientIP())

		c.JSON(http.StatusOK, gin.H{"success": true, "id": memberID})
	}
}

// ListFamilyMembers returns the caller's family records.
func ListFamilyMembers(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		members, err := store.ListFamilyMembers(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"family_members": members})
	}
}

type createVaultRequest struct {
	VaultName     string `json:"vault_name" binding:"required"`
	VaultType     string `json:"vault_type"`
	SecurityLevel int    `json:"security_level"`
}

// CreateVault stores a vault record owned by the caller.
func CreateVault(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createVaultRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "vault_name required"})
			return
		}

		vaultType := req.VaultType
		if vaultType == "" {
			vaultType = "standard"
		}
		level := req.SecurityLevel
		if level <= 0 {
			level = 1
		}

		vaultID, err := store.InsertVault(c.Request.Context(), ledger.Vault{
			VaultName:     req.VaultName,
			VaultType:     vaultType,
			OwnerID:       id.UserID,
			SecurityLevel: level,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "id": vaultID})
	}
}

// ListVaults returns the caller's vault records.
func ListVaults(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		vaults, err := store.ListVaults(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vaults": vaults})
	}
}
