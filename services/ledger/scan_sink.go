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

	"github.com/AleutianAI/AleutianMesh/services/scanner"
)

// ScanSink adapts the store and accrual engine to the scanner's Sink
// contract: every match appends a threat_log row and credits the pool
// through the engine's serialized path.
type ScanSink struct {
	store  *Store
	engine *AccrualEngine
}

// NewScanSink wires the scanner's side effects into the ledger.
func NewScanSink(store *Store, engine *AccrualEngine) *ScanSink {
	return &ScanSink{store: store, engine: engine}
}

// RecordThreat appends the detection to the scan audit trail.
func (s *ScanSink) RecordThreat(ctx context.Context, det scanner.Detection) (int64, error) {
	return s.store.InsertScanRecord(ctx, ScanRecord{
		ThreatID:       det.ThreatID,
		Type:           det.Type,
		Name:           det.Name,
		SourceID:       det.SourceID,
		Severity:       string(det.Severity),
		ResponseAction: det.ResponseAction,
		MonetaryValue:  det.MonetaryValue,
	})
}

// CreditPool applies the capture-value credit.
func (s *ScanSink) CreditPool(ctx context.Context, amount float64, reason string) error {
	_, err := s.engine.Credit(ctx, amount, reason)
	return err
}
