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
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/gin-gonic/gin"
)

// recentDistributionsLimit caps the per-user distribution history.
const recentDistributionsLimit = 50

type distributeRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// GetPool returns the pool snapshot plus the caller's recent
// distributions.
func GetPool(engine *ledger.AccrualEngine, store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		state, err := engine.State(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		dists, err := store.ListDistributions(c.Request.Context(), id.UserID, recentDistributionsLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"pool": state, "distributions": dists})
	}
}

// Distribute debits the pool in the caller's favor. Insufficient
// balance reports a conflict with nothing mutated.
func Distribute(engine *ledger.AccrualEngine, store *ledger.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req distributeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "positive amount required"})
			return
		}

		dist, err := engine.Debit(c.Request.Context(), id.UserID, req.Amount, "shared_pool")
		if err != nil {
			respondError(c, err)
			return
		}

		metrics.PoolDebitsTotal.Add(dist.Amount)
		auditAction(c.Request.Context(), store, id.UserID, "pool_distribute",
			fmt.Sprintf("Distributed $%.2f", dist.Amount), c.ClientIP())

		c.JSON(http.StatusOK, gin.H{"success": true, "id": dist.ID, "amount": dist.Amount})
	}
}
