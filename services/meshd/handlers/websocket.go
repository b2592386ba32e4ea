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
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/gate"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/mesh"
	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from local dashboards.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is one client-to-server event. Data stays raw until the
// event name selects a payload shape.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type heartbeatPayload struct {
	NodeID string `json:"node_id"`
}

type sessionMessagePayload struct {
	FromNode  string `json:"from_node"`
	ToNode    string `json:"to_node"`
	Content   string `json:"content"`
	Encrypted bool   `json:"encrypted"`
}

type threatReportPayload struct {
	Text string `json:"text"`
}

// MeshSocket is the live-session entry point. The handshake verifies a
// token taken from the "token" query parameter or the Authorization
// header; a failed handshake gets a single auth envelope and the
// connection is closed without ever reaching the hub.
func MeshSocket(issuer *identity.Issuer, hub *mesh.Hub, g *gate.Gate, sc *scanner.Scanner, store *ledger.Store, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		id, err := issuer.Verify(socketToken(c))
		if err != nil {
			_ = conn.WriteJSON(mesh.Envelope{Event: "auth:failure", Data: gin.H{"error": "unauthorized"}})
			_ = conn.Close()
			return
		}

		session := hub.Register(conn, mesh.Identity{
			UserID:   id.UserID,
			Username: id.Username,
			Role:     id.Role,
		})
		metrics.ActiveSessions.Inc()
		defer func() {
			hub.Unregister(session)
			metrics.ActiveSessions.Dec()
		}()

		session.Send("session:created", gin.H{
			"session_id": session.ID,
			"username":   id.Username,
		})

		ctx := c.Request.Context()
		for {
			var frame inboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Info("websocket read failed", "session_id", session.ID, "error", err.Error())
				}
				return
			}
			dispatchFrame(ctx, frame, session, hub, g, sc, store, metrics)
		}
	}
}

// dispatchFrame routes one client event. Unknown events are dropped
// silently; a malformed payload earns the sender an error envelope.
func dispatchFrame(ctx context.Context, frame inboundFrame, session *mesh.Session, hub *mesh.Hub, g *gate.Gate, sc *scanner.Scanner, store *ledger.Store, metrics *observability.Metrics) {
	switch frame.Event {
	case "node:heartbeat":
		var payload heartbeatPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.NodeID == "" {
			session.Send("error", gin.H{"detail": "node_id required"})
			return
		}
		// Unknown node ids are acknowledged anyway; liveness metadata
		// belongs to the registry, not the session.
		if err := store.TouchNode(ctx, payload.NodeID); err != nil {
			slog.Warn("heartbeat touch failed", "node_id", payload.NodeID, "error", err)
		}
		session.Send("node:heartbeat:ack", gin.H{
			"node_id":   payload.NodeID,
			"timestamp": time.Now().UTC(),
		})

	case "message:send":
		var payload sessionMessagePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			session.Send("error", gin.H{"detail": "malformed message payload"})
			return
		}
		outcome, err := g.Submit(ctx, gate.Request{
			FromNode:  payload.FromNode,
			ToNode:    payload.ToNode,
			Content:   payload.Content,
			Encrypted: payload.Encrypted,
			SourceID:  "session:" + session.ID,
			Origin:    gate.OriginSession,
		})
		if err != nil {
			metrics.MessagesTotal.WithLabelValues("rejected").Inc()
			if errors.Is(err, ledger.ErrInvalidInput) {
				session.Send("error", gin.H{"detail": "from_node and content required"})
				return
			}
			slog.Error("session message submit failed", "session_id", session.ID, "error", err)
			session.Send("error", gin.H{"detail": "server fault"})
			return
		}
		metrics.ObserveScan("session", severities(outcome))
		observeCaptures(metrics, outcome.Scan.Matches)
		if outcome.Blocked {
			metrics.MessagesTotal.WithLabelValues("blocked").Inc()
			session.Send("message:blocked", gin.H{"threats": outcome.ThreatNames})
			return
		}
		metrics.MessagesTotal.WithLabelValues("accepted").Inc()

	case "threat:report":
		var payload threatReportPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.Text == "" {
			session.Send("error", gin.H{"detail": "text required"})
			return
		}
		result, err := sc.Scan(ctx, payload.Text, "session:"+session.ID)
		if err != nil {
			slog.Error("session scan failed", "session_id", session.ID, "error", err)
			session.Send("error", gin.H{"detail": "scan failed"})
			return
		}
		sevs := make([]string, len(result.Matches))
		for i, m := range result.Matches {
			sevs[i] = string(m.Severity)
		}
		metrics.ObserveScan("session", sevs)
		observeCaptures(metrics, result.Matches)
		session.Send("threat:analysis", gin.H{
			"detected":   result.Matches,
			"elapsed_ns": result.Elapsed.Nanoseconds(),
		})
		if len(result.Matches) > 0 {
			hub.Broadcast("threat:detected", gin.H{
				"threats":   result.Names(),
				"source_id": "session:" + session.ID,
				"timestamp": time.Now().UTC(),
			})
		}

	default:
		slog.Debug("ignoring unknown session event", "event", frame.Event, "session_id", session.ID)
	}
}

// socketToken pulls the bearer token from the query string first, then
// the Authorization header. Browser WebSocket clients cannot set
// headers, so the query parameter is the primary channel.
func socketToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
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
