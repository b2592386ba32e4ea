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
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// PoolState is a snapshot of the singleton pool row.
//
// Invariant: Distributed <= TotalPool at all observable times.
type PoolState struct {
	TotalPool   float64   `json:"total_pool"`
	Distributed float64   `json:"distributed"`
	LastUpdated time.Time `json:"last_updated"`
}

// Available is the balance still open for distribution.
func (p PoolState) Available() float64 {
	return p.TotalPool - p.Distributed
}

// AccrualEngine is the sole mutator of the pool row. Every credit and
// debit funnels through it; no other component writes total_pool or
// distributed. Mutations take the engine mutex and run inside a single
// SQLite transaction, so a debit's check-then-mutate is atomic with
// respect to concurrent credits and other debits.
type AccrualEngine struct {
	sqlDB *sql.DB
	mu    sync.Mutex
}

// NewAccrualEngine wraps the store's pool row behind the exclusive
// credit/debit interface.
func NewAccrualEngine(store *Store) *AccrualEngine {
	return &AccrualEngine{sqlDB: store.DB()}
}

// State reads the current pool snapshot without mutating anything.
func (e *AccrualEngine) State(ctx context.Context) (PoolState, error) {
	return readPool(ctx, e.sqlDB)
}

// Credit atomically adds amount to the pool total.
//
// Amounts that are not strictly positive (or not finite) are rejected
// with ErrInvalidInput and nothing is mutated. A storage failure rolls
// the whole transaction back, leaving the pool row untouched.
func (e *AccrualEngine) Credit(ctx context.Context, amount float64, reason string) (PoolState, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return PoolState{}, fmt.Errorf("credit amount must be positive, got %v: %w", amount, ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return PoolState{}, fmt.Errorf("begin credit tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE pool SET total_pool = total_pool + ?, last_updated = ? WHERE id = 1`,
		amount, toMillis(time.Now())); err != nil {
		return PoolState{}, fmt.Errorf("apply credit: %w", err)
	}
	state, err := readPoolTx(ctx, tx)
	if err != nil {
		return PoolState{}, err
	}
	if err := tx.Commit(); err != nil {
		return PoolState{}, fmt.Errorf("commit credit: %w", err)
	}

	slog.Debug("pool credited", "amount", amount, "reason", reason, "total_pool", state.TotalPool)
	return state, nil
}

// Debit atomically checks the available balance and, when sufficient,
// raises distributed and records a Distribution row in the same
// transaction. When the balance is insufficient nothing is mutated and
// ErrInsufficientFunds is returned.
func (e *AccrualEngine) Debit(ctx context.Context, recipientID int64, amount float64, source string) (Distribution, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Distribution{}, fmt.Errorf("debit amount must be positive, got %v: %w", amount, ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Distribution{}, fmt.Errorf("begin debit tx: %w", err)
	}
	defer tx.Rollback()

	state, err := readPoolTx(ctx, tx)
	if err != nil {
		return Distribution{}, err
	}
	if state.Available() < amount {
		return Distribution{}, fmt.Errorf("requested %v with %v available: %w",
			amount, state.Available(), ErrInsufficientFunds)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE pool SET distributed = distributed + ?, last_updated = ? WHERE id = 1`,
		amount, toMillis(now)); err != nil {
		return Distribution{}, fmt.Errorf("apply debit: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO distributions (recipient_id, amount, source, distributed_at) VALUES (?, ?, ?, ?)`,
		recipientID, amount, source, toMillis(now))
	if err != nil {
		return Distribution{}, fmt.Errorf("insert distribution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Distribution{}, fmt.Errorf("distribution insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Distribution{}, fmt.Errorf("commit debit: %w", err)
	}

	slog.Debug("pool debited", "amount", amount, "recipient_id", recipientID, "source", source)
	return Distribution{
		ID:            id,
		RecipientID:   recipientID,
		Amount:        amount,
		Source:        source,
		DistributedAt: now.UTC(),
	}, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readPool(ctx context.Context, q rowQuerier) (PoolState, error) {
	var (
		state       PoolState
		lastUpdated int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT total_pool, distributed, last_updated FROM pool WHERE id = 1`).
		Scan(&state.TotalPool, &state.Distributed, &lastUpdated)
	if err != nil {
		return PoolState{}, fmt.Errorf("read pool row: %w", err)
	}
	state.LastUpdated = fromMillis(lastUpdated)
	return state, nil
}

func readPoolTx(ctx context.Context, tx *sql.Tx) (PoolState, error) {
	return readPool(ctx, tx)
}
