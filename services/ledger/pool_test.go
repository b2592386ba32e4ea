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
	"math"
	"path/filepath"
	"sync"
	"testing"
)

// openTestStore opens a fresh store on a per-test temp file. A file
// path (not :memory:) matters here: database/sql pools connections and
// each in-memory connection would get its own empty database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger_test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPoolSeedsOnce(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)

	state, err := engine.State(context.Background())
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}
	if state.TotalPool != initialPoolSeed {
		t.Errorf("expected seeded total %v, got %v", float64(initialPoolSeed), state.TotalPool)
	}
	if state.Distributed != 0 {
		t.Errorf("expected zero distributed, got %v", state.Distributed)
	}
	if state.Available() != initialPoolSeed {
		t.Errorf("expected full availability, got %v", state.Available())
	}
}

func TestCreditAndDebit(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	ctx := context.Background()

	state, err := engine.Credit(ctx, 500, "threat_capture")
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if state.TotalPool != initialPoolSeed+500 {
		t.Errorf("expected total %v, got %v", float64(initialPoolSeed+500), state.TotalPool)
	}

	dist, err := engine.Debit(ctx, 42, 200, "shared_pool")
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if dist.Amount != 200 || dist.RecipientID != 42 || dist.ID == 0 {
		t.Errorf("unexpected distribution: %+v", dist)
	}

	state, err = engine.State(ctx)
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}
	if state.Distributed != 200 {
		t.Errorf("expected distributed 200, got %v", state.Distributed)
	}
	if state.Available() != initialPoolSeed+300 {
		t.Errorf("expected available %v, got %v", float64(initialPoolSeed+300), state.Available())
	}

	dists, err := store.ListDistributions(ctx, 42, 10)
	if err != nil {
		t.Fatalf("failed to list distributions: %v", err)
	}
	if len(dists) != 1 || dists[0].ID != dist.ID {
		t.Errorf("expected the debit's distribution row, got %+v", dists)
	}
}

func TestDebitInsufficientFundsMutatesNothing(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	ctx := context.Background()

	before, err := engine.State(ctx)
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}

	_, err = engine.Debit(ctx, 1, before.Available()+1, "shared_pool")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Error("insufficient funds should classify as a conflict")
	}

	after, err := engine.State(ctx)
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}
	if after.TotalPool != before.TotalPool || after.Distributed != before.Distributed {
		t.Errorf("failed debit mutated the pool: before=%+v after=%+v", before, after)
	}

	dists, err := store.ListDistributions(ctx, 1, 10)
	if err != nil {
		t.Fatalf("failed to list distributions: %v", err)
	}
	if len(dists) != 0 {
		t.Errorf("failed debit left %d distribution rows", len(dists))
	}
}

func TestInvalidAmountsRejected(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	ctx := context.Background()

	for _, amount := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		if _, err := engine.Credit(ctx, amount, "test"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Credit(%v): expected ErrInvalidInput, got %v", amount, err)
		}
		if _, err := engine.Debit(ctx, 1, amount, "test"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Debit(%v): expected ErrInvalidInput, got %v", amount, err)
		}
	}
}

func TestConcurrentMutationsKeepInvariant(t *testing.T) {
	store := openTestStore(t)
	engine := NewAccrualEngine(store)
	ctx := context.Background()

	const workers = 8
	const opsPerWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(recipient int64) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				if _, err := engine.Credit(ctx, 10, "threat_capture"); err != nil {
					t.Errorf("concurrent credit failed: %v", err)
					return
				}
				if _, err := engine.Debit(ctx, recipient, 5, "shared_pool"); err != nil {
					t.Errorf("concurrent debit failed: %v", err)
					return
				}
			}
		}(int64(w + 1))
	}
	wg.Wait()

	state, err := engine.State(ctx)
	if err != nil {
		t.Fatalf("failed to read pool state: %v", err)
	}
	wantTotal := float64(initialPoolSeed + workers*opsPerWorker*10)
	wantDistributed := float64(workers * opsPerWorker * 5)
	if state.TotalPool != wantTotal {
		t.Errorf("expected total %v, got %v", wantTotal, state.TotalPool)
	}
	if state.Distributed != wantDistributed {
		t.Errorf("expected distributed %v, got %v", wantDistributed, state.Distributed)
	}
	if state.Distributed > state.TotalPool {
		t.Error("pool invariant violated: distributed exceeds total")
	}
}
