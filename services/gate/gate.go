// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gate is the per-message pipeline tying the scanner, the
// ledger and the mesh broadcaster together: scan the content, decide
// accept or block, and fan accepted messages out to the mesh.
package gate

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianMesh/services/ledger"
	"github.com/AleutianAI/AleutianMesh/services/scanner"
)

// Origin identifies the entry point a content item arrived through.
// It decides the broadcast event vocabulary, nothing else.
type Origin int

const (
	// OriginRequest is the JSON request-driven entry point.
	OriginRequest Origin = iota
	// OriginSession is the live-session entry point.
	OriginSession
)

func (o Origin) broadcastEvent() string {
	if o == OriginSession {
		return "message:received"
	}
	return "message"
}

// Publisher is the slice of the mesh hub the gate needs.
type Publisher interface {
	Broadcast(event string, payload any)
}

// Request is one inbound content item.
type Request struct {
	FromNode  string
	ToNode    string
	Content   string
	Encrypted bool
	SourceID  string
	Origin    Origin
}

// Outcome is the gate's decision for one request.
//
// Blocked is a defined outcome, not an error: the content matched at
// least one critical signature, no message record was persisted and
// nothing was broadcast. The pool may still have been credited by the
// scan regardless of the decision.
type Outcome struct {
	Blocked     bool
	ThreatNames []string
	Scan        scanner.ScanResult
	Message     ledger.MessageRecord
}

// Gate screens content before persistence and broadcast.
type Gate struct {
	scanner *scanner.Scanner
	store   *ledger.Store
	hub     Publisher
}

// New builds the pipeline from its three collaborators.
func New(sc *scanner.Scanner, store *ledger.Store, hub Publisher) *Gate {
	return &Gate{scanner: sc, store: store, hub: hub}
}

// Submit runs one content item through the pipeline.
//
// Missing fromNode or content rejects the request before any side
// effect. Otherwise the content is scanned (which may credit the pool
// even when the item is later blocked), then either blocked (critical
// match; reported to the originator only by the caller) or persisted
// and broadcast to all active sessions.
func (g *Gate) Submit(ctx context.Context, req Request) (Outcome, error) {
	if req.FromNode == "" || req.Content == "" {
		return Outcome{}, fmt.Errorf("fromNode and content are required: %w", ledger.ErrInvalidInput)
	}

	result, err := g.scanner.Scan(ctx, req.Content, req.SourceID)
	if err != nil {
		return Outcome{}, fmt.Errorf("scan content: %w", err)
	}

	if result.Blocking() {
		return Outcome{
			Blocked:     true,
			ThreatNames: result.Names(),
			Scan:        result,
		}, nil
	}

	msg, err := g.store.InsertMessage(ctx, req.FromNode, req.ToNode, req.Content, req.Encrypted)
	if err != nil {
		return Outcome{}, fmt.Errorf("persist message: %w", err)
	}

	g.hub.Broadcast(req.Origin.broadcastEvent(), map[string]any{
		"id":        msg.ID,
		"from_node": msg.FromNode,
		"to_node":   msg.ToNode,
		"content":   msg.Content,
		"timestamp": msg.Timestamp,
	})

	return Outcome{
		Scan:    result,
		Message: msg,
	}, nil
}
