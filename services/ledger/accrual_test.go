// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingBroadcaster captures broadcast events on a channel.
type recordingBroadcaster struct {
	events chan broadcastEvent
}

type broadcastEvent struct {
	event   string
	payload any
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: make(chan broadcastEvent, 64)}
}

func (r *recordingBroadcaster) Broadcast(event string, payload any) {
	r.events <- broadcastEvent{event: event, payload: payload}
}

func TestSchedulerRejectsBadConfig(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)

	tests := []struct {
		name   string
		config AccrualConfig
	}{
		{"zero interval", AccrualConfig{Interval: 0, MinIncrement: 1, MaxIncrement: 2}},
		{"zero min", AccrualConfig{Interval: time.Second, MinIncrement: 0, MaxIncrement: 2}},
		{"inverted range", AccrualConfig{Interval: time.Second, MinIncrement: 5, MaxIncrement: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewAccrualScheduler(engine, nil, tc.config)
			if err := s.Start(context.Background()); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
				s.Stop()
			}
		})
	}
}

func TestSchedulerDoubleStartConflicts(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	s := NewAccrualScheduler(engine, nil, DefaultAccrualConfig())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict on second start, got %v", err)
	}
}

func TestSchedulerTicksAndBroadcasts(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	hub := newRecordingBroadcaster()

	s := NewAccrualScheduler(engine, hub, AccrualConfig{
		Interval:     10 * time.Millisecond,
		MinIncrement: 1,
		MaxIncrement: 11,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	select {
	case ev := <-hub.events:
		if ev.event != "pool:update" {
			t.Fatalf("expected pool:update event, got %s", ev.event)
		}
		payload, ok := ev.payload.(map[string]any)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.payload)
		}
		increment, ok := payload["increment"].(float64)
		if !ok || increment < 1 || increment >= 11 {
			t.Errorf("increment %v outside [1, 11)", payload["increment"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pool:update broadcast within 2s")
	}

	state, err := engine.State(context.Background())
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}
	if state.TotalPool <= initialPoolSeed {
		t.Errorf("expected the pool to have grown past %v, got %v", float64(initialPoolSeed), state.TotalPool)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	s := NewAccrualScheduler(engine, nil, DefaultAccrualConfig())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Stop()
	s.Stop()

	// A stopped scheduler can start again.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	s.Stop()
}
