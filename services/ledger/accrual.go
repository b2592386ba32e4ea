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
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Broadcaster is the slice of the mesh hub the scheduler needs: fire an
// event at every active session, best effort.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// AccrualConfig holds configuration for the periodic accrual scheduler.
//
// Every Interval the scheduler credits the pool with an amount drawn
// uniformly from [MinIncrement, MaxIncrement) and broadcasts the new
// pool state. The credit goes through the same AccrualEngine path as
// every other credit; the timer holds no privileged access.
type AccrualConfig struct {
	Interval     time.Duration
	MinIncrement float64
	MaxIncrement float64
}

// DefaultAccrualConfig returns the production cadence: a credit of
// [1, 11) every five seconds.
func DefaultAccrualConfig() AccrualConfig {
	return AccrualConfig{
		Interval:     5 * time.Second,
		MinIncrement: 1,
		MaxIncrement: 11,
	}
}

// AccrualScheduler drives the background pool accrual. It uses the
// ticker + done channel pattern for graceful shutdown; a failed tick is
// logged and the next tick proceeds independently.
type AccrualScheduler struct {
	engine *AccrualEngine
	hub    Broadcaster
	config AccrualConfig

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewAccrualScheduler creates a scheduler that is ready to Start. Only
// one scheduler should run per process.
func NewAccrualScheduler(engine *AccrualEngine, hub Broadcaster, config AccrualConfig) *AccrualScheduler {
	return &AccrualScheduler{
		engine: engine,
		hub:    hub,
		config: config,
	}
}

// Start launches the background accrual loop. Returns an error if the
// scheduler is already running or misconfigured.
func (s *AccrualScheduler) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		return fmt.Errorf("accrual interval must be positive: %w", ErrInvalidInput)
	}
	if s.config.MinIncrement <= 0 || s.config.MaxIncrement <= s.config.MinIncrement {
		return fmt.Errorf("accrual increment range [%v, %v) is invalid: %w",
			s.config.MinIncrement, s.config.MaxIncrement, ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("accrual scheduler already running: %w", ErrConflict)
	}
	s.running = true
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	slog.Info("accrual scheduler started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop to exit. Safe to call when not running.
func (s *AccrualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.done)
	s.running = false
	slog.Info("accrual scheduler stopped")
}

func (s *AccrualScheduler) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick applies one periodic credit and announces the new pool state.
// Failures never crash the process; the next tick runs regardless.
func (s *AccrualScheduler) tick(ctx context.Context) {
	increment := s.config.MinIncrement + rand.Float64()*(s.config.MaxIncrement-s.config.MinIncrement)

	state, err := s.engine.Credit(ctx, increment, "periodic_accrual")
	if err != nil {
		slog.Error("periodic accrual credit failed", "error", err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast("pool:update", map[string]any{
			"increment":  increment,
			"total_pool": state.TotalPool,
			"timestamp":  state.LastUpdated.UnixMilli(),
		})
	}
}
