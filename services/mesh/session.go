// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package mesh

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendBufferSize bounds the per-session outbound queue. Delivery is
// best effort: a session that cannot drain its queue has further events
// dropped rather than blocking the sender.
const sendBufferSize = 32

// Identity is the authenticated tuple attached to a session. It comes
// from the identity provider and is trusted verbatim once validated.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Envelope is the JSON wire frame for every live-session event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Session is one authenticated live connection. In-memory only: it is
// created on successful handshake and destroyed on disconnect, and is
// recoverable from the identity token at reconnect.
type Session struct {
	ID          string
	Identity    Identity
	ConnectedAt time.Time

	conn      *websocket.Conn
	send      chan Envelope
	closed    chan struct{}
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, identity Identity) *Session {
	return &Session{
		ID:          uuid.New().String(),
		Identity:    identity,
		ConnectedAt: time.Now().UTC(),
		conn:        conn,
		send:        make(chan Envelope, sendBufferSize),
		closed:      make(chan struct{}),
	}
}

// Send enqueues a unicast event for this session. Events from one
// producer are delivered in enqueue order; when the buffer is full or
// the session is closed the event is dropped.
func (s *Session) Send(event string, payload any) {
	env := Envelope{Event: event, Data: payload}
	select {
	case <-s.closed:
	case s.send <- env:
	default:
		slog.Warn("dropping event for slow session", "event", event, "session_id", s.ID)
	}
}

// writeLoop drains the send queue onto the connection. It owns all
// writes; a write failure closes the session.
func (s *Session) writeLoop() {
	for {
		select {
		case <-s.closed:
			return
		case env := <-s.send:
			if err := s.conn.WriteJSON(env); err != nil {
				slog.Info("websocket write failed, closing session",
					"session_id", s.ID, "error", err.Error())
				s.close()
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}
