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
	"net/http"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/gin-gonic/gin"
)

// recentAuditLimit caps the audit trail query.
const recentAuditLimit = 100

// ListAudit returns the caller's recent action trail, newest first.
func ListAudit(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		entries, err := store.ListAudit(c.Request.Context(), id.UserID, recentAuditLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audit": entries})
	}
}
