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
	"time"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/mesh"
	"github.com/gin-gonic/gin"
)

// SystemStatus returns the unauthenticated aggregate dashboard: scan
// totals, pool snapshot, active node count, live session count and
// process uptime.
func SystemStatus(store *ledger.Store, engine *ledger.AccrualEngine, hub *mesh.Hub, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, value, err := store.ScanStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		state, err := engine.State(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		activeNodes, err := store.CountActiveNodes(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"threats": gin.H{
				"count": count,
				"value": value,
			},
			"pool": gin.H{
				"total_pool":  state.TotalPool,
				"distributed": state.Distributed,
				"available":   state.Available(),
			},
			"active_nodes":    activeNodes,
			"active_sessions": hub.Count(),
			"uptime_seconds":  int64(time.Since(startedAt).Seconds()),
		})
	}
}
