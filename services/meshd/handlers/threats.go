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
	"strconv"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/middleware"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
	"github.com/gin-gonic/gin"
)

// recentThreatsLimit caps the threat log query.
const recentThreatsLimit = 200

type scanRequest struct {
	Text string `json:"text" binding:"required"`
}

// ScanText runs an explicit scan over arbitrary text. Matches persist
// scan records and credit the pool exactly like gated message traffic.
func ScanText(sc *scanner.Scanner, store *ledger.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := middleware.GetIdentity(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req scanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "text required"})
			return
		}

		result, err := sc.Scan(c.Request.Context(), req.Text, c.ClientIP())
		if err != nil {
			respondError(c, err)
			return
		}

		sevs := make([]string, len(result.Matches))
		for i, m := range result.Matches {
			sevs[i] = string(m.Severity)
		}
		metrics.ObserveScan("request", sevs)
		observeCaptures(metrics, result.Matches)

		auditAction(c.Request.Context(), store, id.UserID, "threat_scan",
			fmt.Sprintf("Scanned %d chars, %d found", len(req.Text), len(result.Matches)), c.ClientIP())

		c.JSON(http.StatusOK, gin.H{
			"detected":   result.Matches,
			"elapsed_ns": strconv.FormatInt(result.Elapsed.Nanoseconds(), 10),
		})
	}
}

// ListThreats returns the recent scan audit trail with running totals.
func ListThreats(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := store.ListScanRecords(c.Request.Context(), recentThreatsLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		count, value, err := store.ScanStats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"threats": records,
			"stats":   gin.H{"count": count, "value": value},
		})
	}
}

// ThreatCatalog exposes the static signature catalog.
func ThreatCatalog(sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"threat_signatures": sc.Catalog()})
	}
}

// observeCaptures accumulates the pool credits a scan produced.
func observeCaptures(metrics *observability.Metrics, matches []scanner.Match) {
	for _, m := range matches {
		metrics.PoolCreditsTotal.WithLabelValues("threat_capture").
			Add(m.MonetaryValue * scanner.CaptureFraction)
	}
}
