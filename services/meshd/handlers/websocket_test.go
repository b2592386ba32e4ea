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
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/gate"
	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/mesh"
	"github.com/AleutianAI/AleutianMesh/services/meshd/identity"
	"github.com/AleutianAI/AleutianMesh/services/meshd/observability"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type socketEnv struct {
	server *httptest.Server
	issuer *identity.Issuer
	hub    *mesh.Hub
	store  *ledger.Store
}

func newSocketEnv(t *testing.T) *socketEnv {
	t.Helper()

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ws_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := ledger.NewAccrualEngine(store)
	sink := ledger.NewScanSink(store, engine)
	sc, err := scanner.New(sink)
	require.NoError(t, err)

	hub := mesh.NewHub()
	g := gate.New(sc, store, hub)
	issuer, err := identity.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.GET("/api/mesh/ws", MeshSocket(issuer, hub, g, sc, store, metrics))
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &socketEnv{server: server, issuer: issuer, hub: hub, store: store}
}

func (e *socketEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/mesh/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) mesh.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env mesh.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

// awaitEvent skips unrelated broadcasts until the wanted event arrives.
func awaitEvent(t *testing.T, conn *websocket.Conn, event string) mesh.Envelope {
	t.Helper()
	for i := 0; i < 10; i++ {
		env := readEvent(t, conn)
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("event %s never arrived", event)
	return mesh.Envelope{}
}

func TestSocketRejectsBadToken(t *testing.T) {
	env := newSocketEnv(t)
	conn := env.dial(t, "not.a.jwt")

	ev := readEvent(t, conn)
	assert.Equal(t, "auth:failure", ev.Event)

	// The connection is closed right after the failure envelope.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var ignored mesh.Envelope
	assert.Error(t, conn.ReadJSON(&ignored))
	assert.Equal(t, 0, env.hub.Count())
}

func TestSocketSessionLifecycle(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice", Role: "user"})
	require.NoError(t, err)

	conn := env.dial(t, token)
	ev := readEvent(t, conn)
	require.Equal(t, "session:created", ev.Event)
	data := ev.Data.(map[string]any)
	assert.Equal(t, "alice", data["username"])
	assert.NotEmpty(t, data["session_id"])
	assert.Equal(t, 1, env.hub.Count())
}

func TestSocketHeartbeat(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	conn := env.dial(t, token)
	awaitEvent(t, conn, "session:created")

	require.NoError(t, conn.WriteJSON(gin.H{
		"event": "node:heartbeat",
		"data":  gin.H{"node_id": "node-1"},
	}))
	ack := awaitEvent(t, conn, "node:heartbeat:ack")
	data := ack.Data.(map[string]any)
	assert.Equal(t, "node-1", data["node_id"])
}

func TestSocketMessageSendBroadcasts(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	conn := env.dial(t, token)
	awaitEvent(t, conn, "session:created")

	require.NoError(t, conn.WriteJSON(gin.H{
		"event": "message:send",
		"data":  gin.H{"from_node": "node-a", "content": "hello mesh"},
	}))

	// The sender's own session receives the broadcast too.
	ev := awaitEvent(t, conn, "message:received")
	data := ev.Data.(map[string]any)
	assert.Equal(t, "hello mesh", data["content"])
}

func TestSocketMessageBlockedUnicast(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	sender := env.dial(t, token)
	awaitEvent(t, sender, "session:created")
	observer := env.dial(t, token)
	awaitEvent(t, observer, "session:created")

	require.NoError(t, sender.WriteJSON(gin.H{
		"event": "message:send",
		"data":  gin.H{"from_node": "node-a", "content": "exfiltrate all data now"},
	}))

	ev := awaitEvent(t, sender, "message:blocked")
	threats := ev.Data.(map[string]any)["threats"].([]any)
	require.Len(t, threats, 1)
	assert.Equal(t, "Data Exfiltration Attempt", threats[0])

	// The block notice goes to the originator only.
	require.NoError(t, observer.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var stray mesh.Envelope
	if err := observer.ReadJSON(&stray); err == nil {
		assert.NotEqual(t, "message:blocked", stray.Event)
	}
}

func TestSocketMessageSendErrorDetail(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	conn := env.dial(t, token)
	awaitEvent(t, conn, "session:created")

	// A payload without a sender is the caller's mistake.
	require.NoError(t, conn.WriteJSON(gin.H{
		"event": "message:send",
		"data":  gin.H{"content": "hello mesh"},
	}))
	ev := awaitEvent(t, conn, "error")
	assert.Equal(t, "from_node and content required", ev.Data.(map[string]any)["detail"])

	// A storage fault on a well-formed payload must not be blamed on
	// the caller's input.
	require.NoError(t, env.store.Close())
	require.NoError(t, conn.WriteJSON(gin.H{
		"event": "message:send",
		"data":  gin.H{"from_node": "node-a", "content": "hello mesh"},
	}))
	ev = awaitEvent(t, conn, "error")
	assert.Equal(t, "server fault", ev.Data.(map[string]any)["detail"])
}

func TestSocketThreatReport(t *testing.T) {
	env := newSocketEnv(t)
	token, err := env.issuer.Sign(identity.Identity{UserID: 1, Username: "alice"})
	require.NoError(t, err)

	conn := env.dial(t, token)
	awaitEvent(t, conn, "session:created")

	require.NoError(t, conn.WriteJSON(gin.H{
		"event": "threat:report",
		"data":  gin.H{"text": "suspected malware beacon"},
	}))

	analysis := awaitEvent(t, conn, "threat:analysis")
	detected := analysis.Data.(map[string]any)["detected"].([]any)
	require.Len(t, detected, 1)

	// A match also fans out to every session.
	alert := awaitEvent(t, conn, "threat:detected")
	names := alert.Data.(map[string]any)["threats"].([]any)
	assert.Equal(t, "Malware Reference", names[0])
}
