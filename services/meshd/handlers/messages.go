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

	"github.com/AleutianAI/AleutianMesh/services/gate"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/gin-gonic/gin"
)

// recentMessagesLimit caps the message history query.
const recentMessagesLimit = 100

type sendMessageRequest struct {
	FromNode  string `json:"from_node" binding:"required"`
	ToNode    string `json:"to_node"`
	Content   string `json:"content" binding:"required"`
	Encrypted bool   `json:"encrypted"`
}

// SendMessage submits content through the gate. Blocked content
// reports 403 with the matched signature names to the sender only;
// accepted content has already been persisted and broadcast.
func SendMessage(g *gate.Gate, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "detail": "from_node and content required"})
			return
		}

		outcome, err := g.Submit(c.Request.Context(), gate.Request{
			FromNode:  req.FromNode,
			ToNode:    req.ToNode,
			Content:   req.Content,
			Encrypted: req.Encrypted,
			SourceID:  c.ClientIP(),
			Origin:    gate.OriginRequest,
		})
		if err != nil {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			respondError(c, err)
			return
		}

		metrics.ObserveScan("request", severities(outcome))
		observeCaptures(metrics, outcome.Scan.Matches)

		if outcome.Blocked {
			metrics.MessagesTotal.WithLabelValues("blocked").Inc()
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "message_blocked",
				"detail":  "critical threat detected",
				"threats": outcome.ThreatNames,
			})
			return
		}

		metrics.MessagesTotal.WithLabelValues("accepted").Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "id": outcome.Message.ID})
	}
}

// ListMessages returns the most recent accepted messages.
func ListMessages(store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		messages, err := store.ListMessages(c.Request.Context(), recentMessagesLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

func severities(outcome gate.Outcome) []string {
	sevs := make([]string, len(outcome.Scan.Matches))
	for i, m := range outcome.Scan.Matches {
		sevs[i] = string(m.Severity)
	}
	return sevs
}
