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
	"sync"
	"testing"
	"time"
)

func TestUserLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "alice", "hash1", "user")
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	if user.ID == 0 || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}

	if _, err := store.CreateUser(ctx, "alice", "hash2", "user"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate username, got %v", err)
	}

	fetched, err := store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if fetched.ID != user.ID || fetched.PasswordHash != "hash1" {
		t.Errorf("fetched user mismatch: %+v", fetched)
	}
	if !fetched.LastLogin.IsZero() {
		t.Error("expected zero last_login before first login")
	}

	if _, err := store.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.TouchUserLogin(ctx, user.ID); err != nil {
		t.Fatalf("touch login failed: %v", err)
	}
	fetched, err = store.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get user failed: %v", err)
	}
	if fetched.LastLogin.IsZero() {
		t.Error("expected last_login to be set after touch")
	}
}

func TestNodeUpsertKeepsOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertNode(ctx, "node-1", "10.0.0.1", "sensor", 7); err != nil {
		t.Fatalf("insert node failed: %v", err)
	}
	// Re-registration by another user refreshes the address only.
	if err := store.UpsertNode(ctx, "node-1", "10.0.0.2", "gateway", 99); err != nil {
		t.Fatalf("upsert node failed: %v", err)
	}

	nodes, err := store.ListNodes(ctx, 7)
	if err != nil {
		t.Fatalf("list nodes failed: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node for original owner, got %d", len(nodes))
	}
	if nodes[0].IPAddress != "10.0.0.2" {
		t.Errorf("expected refreshed address, got %s", nodes[0].IPAddress)
	}
	if nodes[0].DeviceType != "sensor" {
		t.Errorf("device type should not change on re-registration, got %s", nodes[0].DeviceType)
	}

	stolen, err := store.ListNodes(ctx, 99)
	if err != nil {
		t.Fatalf("list nodes failed: %v", err)
	}
	if len(stolen) != 0 {
		t.Error("re-registration must not transfer ownership")
	}
}

func TestNodeUpsertConcurrentFirstRegistration(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// Simultaneous first registrations of the same node id must both
	// succeed, leaving a single row with the winner's ownership intact.
	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.UpsertNode(ctx, "node-race", "10.0.0.1", "sensor", int64(i+1))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("racer %d failed: %v", i, err)
		}
	}

	owned := 0
	for owner := int64(1); owner <= racers; owner++ {
		nodes, err := store.ListNodes(ctx, owner)
		if err != nil {
			t.Fatalf("list nodes failed: %v", err)
		}
		owned += len(nodes)
	}
	if owned != 1 {
		t.Fatalf("expected exactly 1 node row across all owners, got %d", owned)
	}
}

func TestTouchNodeUnknownIsNoOp(t *testing.T) {
	store := openTestStore(t)
	if err := store.TouchNode(context.Background(), "ghost"); err != nil {
		t.Errorf("heartbeat for unknown node should be silent, got %v", err)
	}
}

func TestCountActiveNodes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertNode(ctx, "node-1", "10.0.0.1", "sensor", 1); err != nil {
		t.Fatalf("insert node failed: %v", err)
	}
	if err := store.UpsertNode(ctx, "node-2", "10.0.0.2", "sensor", 1); err != nil {
		t.Fatalf("insert node failed: %v", err)
	}

	count, err := store.CountActiveNodes(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 active nodes, got %d", count)
	}
}

func TestMessageHistoryOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.InsertMessage(ctx, "node-a", "", "hello", false); err != nil {
			t.Fatalf("insert message failed: %v", err)
		}
	}

	messages, err := store.ListMessages(ctx, 3)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(messages))
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].ID > messages[i-1].ID {
			t.Error("messages are not newest first")
		}
	}
}

func TestMarkDelivered(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	msg, err := store.InsertMessage(ctx, "node-a", "node-b", "ping", true)
	if err != nil {
		t.Fatalf("insert message failed: %v", err)
	}
	if err := store.MarkDelivered(ctx, msg.ID); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	messages, err := store.ListMessages(ctx, 1)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if !messages[0].Delivered || !messages[0].Encrypted {
		t.Errorf("expected delivered encrypted message, got %+v", messages[0])
	}
}

func TestScanRecordsAndStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, value := range []float64{100, 500} {
		if _, err := store.InsertScanRecord(ctx, ScanRecord{
			ThreatID:      "SIG-X",
			Type:          "test",
			Name:          "Test Signature",
			Severity:      "high",
			MonetaryValue: value,
		}); err != nil {
			t.Fatalf("insert scan record failed: %v", err)
		}
	}

	count, value, err := store.ScanStats(ctx)
	if err != nil {
		t.Fatalf("scan stats failed: %v", err)
	}
	if count != 2 || value != 600 {
		t.Errorf("expected count=2 value=600, got count=%d value=%v", count, value)
	}

	records, err := store.ListScanRecords(ctx, 10)
	if err != nil {
		t.Fatalf("list scan records failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestEmployeeShiftLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	empID, err := store.InsertEmployee(ctx, Employee{
		UserID: 1, Name: "Bob", Role: "Technician", Industry: "General",
		Country: "US", HourlyRate: 20,
	})
	if err != nil {
		t.Fatalf("insert employee failed: %v", err)
	}

	if _, err := store.OpenTimeRecord(ctx, empID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected no open shift, got %v", err)
	}

	clockIn := time.Now().Add(-2 * time.Hour)
	recID, err := store.InsertTimeRecord(ctx, empID, clockIn)
	if err != nil {
		t.Fatalf("insert time record failed: %v", err)
	}

	open, err := store.OpenTimeRecord(ctx, empID)
	if err != nil {
		t.Fatalf("expected an open shift: %v", err)
	}
	if open.ID != recID {
		t.Errorf("expected open record %d, got %d", recID, open.ID)
	}
	if open.ClockIn.UnixMilli() != clockIn.UnixMilli() {
		t.Errorf("clock-in time mismatch: %v vs %v", open.ClockIn, clockIn)
	}

	if err := store.CloseTimeRecord(ctx, recID, time.Now(), 2, 40, 14, 26); err != nil {
		t.Fatalf("close time record failed: %v", err)
	}
	if _, err := store.OpenTimeRecord(ctx, empID); !errors.Is(err, ErrNotFound) {
		t.Errorf("shift should be closed, got %v", err)
	}
}

func TestEmployeeOwnershipScoping(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	empID, err := store.InsertEmployee(ctx, Employee{
		UserID: 1, Name: "Bob", Country: "US", HourlyRate: 10,
	})
	if err != nil {
		t.Fatalf("insert employee failed: %v", err)
	}

	if _, err := store.GetEmployee(ctx, empID, 2); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign owner should see ErrNotFound, got %v", err)
	}
	if _, err := store.GetEmployee(ctx, empID, 1); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
}

func TestFamilyAndVaultOwnership(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertFamilyMember(ctx, FamilyMember{
		MemberName: "Jamie", Relation: "child", OwnerID: 1, SupportAmount: 250,
	}); err != nil {
		t.Fatalf("insert family member failed: %v", err)
	}
	if _, err := store.InsertVault(ctx, Vault{
		VaultName: "docs", VaultType: "standard", OwnerID: 1, SecurityLevel: 2,
	}); err != nil {
		t.Fatalf("insert vault failed: %v", err)
	}

	members, err := store.ListFamilyMembers(ctx, 1)
	if err != nil || len(members) != 1 {
		t.Fatalf("expected 1 family member, got %d (err=%v)", len(members), err)
	}
	foreign, err := store.ListFamilyMembers(ctx, 2)
	if err != nil || len(foreign) != 0 {
		t.Errorf("foreign owner should see nothing, got %d (err=%v)", len(foreign), err)
	}

	vaults, err := store.ListVaults(ctx, 1)
	if err != nil || len(vaults) != 1 {
		t.Fatalf("expected 1 vault, got %d (err=%v)", len(vaults), err)
	}
	if vaults[0].SecurityLevel != 2 {
		t.Errorf("expected security level 2, got %d", vaults[0].SecurityLevel)
	}
}

func TestAuditTrail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.AppendAudit(ctx, 1, "login", "User alice logged in", "127.0.0.1"); err != nil {
			t.Fatalf("append audit failed: %v", err)
		}
	}
	if err := store.AppendAudit(ctx, 2, "register", "User bob registered", "127.0.0.1"); err != nil {
		t.Fatalf("append audit failed: %v", err)
	}

	entries, err := store.ListAudit(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list audit failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries for user 1, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Action != "login" {
			t.Errorf("unexpected action %s in user 1 trail", e.Action)
		}
	}
}
