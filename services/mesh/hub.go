// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mesh maintains the set of authenticated live sessions and
// routes events to them: unicast acknowledgments back to one session,
// or best-effort broadcast to every active session. The hub owns the
// session set exclusively; nothing durable is touched on connect or
// disconnect.
package mesh

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is the process-wide registry of live sessions.
//
// Delivery contract: at-most-once per connected session, no retry, no
// buffering for sessions that are not currently connected. Events from
// a single origin reach each session in the order they were published;
// concurrent origins may interleave arbitrarily.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty session registry.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Register creates an Authenticated session for the connection, starts
// its writer, and adds it to the active set. The caller must have
// validated the identity first: a connection that fails the handshake
// never reaches the hub.
func (h *Hub) Register(conn *websocket.Conn, identity Identity) *Session {
	session := newSession(conn, identity)

	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()

	go session.writeLoop()
	slog.Info("mesh session connected", "session_id", session.ID, "username", identity.Username)
	return session
}

// Unregister removes the session from the active set and closes it. No
// further delivery is attempted; in-flight pool mutations the session
// triggered are unaffected.
func (h *Hub) Unregister(session *Session) {
	h.mu.Lock()
	delete(h.sessions, session.ID)
	h.mu.Unlock()

	session.close()
	slog.Info("mesh session disconnected", "session_id", session.ID, "username", session.Identity.Username)
}

// Broadcast publishes an event to every active session, including the
// originator's own session where one exists.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.Send(event, payload)
	}
}

// Count reports the number of active sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
