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

	"github.com/AleutianAI/AleutianMesh/pkg/validation"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/gin-gonic/gin"
)

type registerNodeRequest struct {
	NodeID     string `json:"node_id" binding:"required"`
	IPAddress  string `json:"ip_address" binding:"required"`
	DeviceType string `json:"device_type"`
}

// RegisterNode registers a device or refreshes an existing
// registration.
func RegisterNode(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req registerNodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "node_id and ip_address required"})
			return
		}
		if err := validation.ValidateNodeID(req.NodeID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": err.Error()})
			return
		}

		deviceType := req.DeviceType
		if deviceType == "" {
			deviceType = "unknown"
		}
		if err := store.UpsertNode(c.Request.Context(), req.NodeID, req.IPAddress, deviceType, id.UserID); err != nil {
			respondError(c, err)
			return
		}

		auditAction(c.Request.Context(), store, id.UserID, "node_register",
			fmt.Sprintf("Node %s at %s", req.NodeID, req.IPAddress), c.ClientIP())

		c.JSON(http.StatusOK, gin.H{"success": true, "node_id": req.NodeID})
	}
}

// ListNodes returns the caller's registered nodes.
func ListNodes(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		nodes, err := store.ListNodes(c.Request.Context(), id.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"nodes": nodes})
	}
}
