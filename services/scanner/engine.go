// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scanner classifies free text against the embedded threat
// signature catalog. Every match is persisted as an append-only scan
// record and credits the shared pool with the capture fraction of the
// signature's monetary value, so a scan is deliberately not a pure
// function.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianMesh/services/scanner/enforcement"
	"gopkg.in/yaml.v3"
)

// CaptureFraction is the share of a matched signature's monetary value
// credited to the pool on detection. Fixed at build time, never
// configurable at runtime.
const CaptureFraction = 0.20

// Detection is the durable side effect of one matched catalog entry.
type Detection struct {
	ThreatID       string
	Type           string
	Name           string
	SourceID       string
	Severity       Severity
	ResponseAction string
	MonetaryValue  float64
}

// Sink receives the durable side effects of a scan: one appended threat
// record per match plus the capture-value pool credit. Implementations
// must not suppress errors; the scanner propagates them to its caller.
type Sink interface {
	RecordThreat(ctx context.Context, det Detection) (int64, error)
	CreditPool(ctx context.Context, amount float64, reason string) error
}

// Match is a catalog entry annotated with the id of the scan record it
// produced.
type Match struct {
	ThreatSignature
	RecordID int64 `json:"log_id"`
}

// ScanResult is the outcome of scanning one piece of text.
//
// Elapsed is observational only: it is reported to callers but never
// feeds back into any decision.
type ScanResult struct {
	Matches []Match       `json:"detected"`
	Elapsed time.Duration `json:"-"`
}

// Blocking reports whether the result set contains at least one
// critical-severity match. Blocking results must never reach
// subscribers.
func (r ScanResult) Blocking() bool {
	for _, m := range r.Matches {
		if m.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Names returns the matched signature names, in catalog order.
func (r ScanResult) Names() []string {
	names := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		names[i] = m.Name
	}
	return names
}

// Scanner evaluates text against an ordered, immutable signature
// catalog. It is safe for concurrent use: the catalog is read-only
// after construction and all mutable state lives behind the Sink.
type Scanner struct {
	catalog []ThreatSignature
	sink    Sink
}

// New builds a Scanner from the catalog embedded in the binary.
func New(sink Sink) (*Scanner, error) {
	var file ThreatCatalogFile
	if err := yaml.Unmarshal(enforcement.ThreatSignatureCatalog, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded threat catalog: %w", err)
	}
	return NewFromCatalog(file.Signatures, sink)
}

// NewFromCatalog builds a Scanner from an explicit catalog. Used by
// tests and by callers that load a catalog from elsewhere; the entries
// keep their declaration order.
func NewFromCatalog(catalog []ThreatSignature, sink Sink) (*Scanner, error) {
	file := ThreatCatalogFile{Signatures: catalog}
	if err := file.Prepare(); err != nil {
		return nil, fmt.Errorf("invalid threat catalog: %w", err)
	}
	return &Scanner{catalog: file.Signatures, sink: sink}, nil
}

// Catalog returns the loaded signature entries in declaration order.
func (s *Scanner) Catalog() []ThreatSignature {
	return s.catalog
}

// Scan tests text against every catalog entry in declaration order.
//
// Matching is case-insensitive substring containment; the first
// signature string that matches short-circuits its entry, so one entry
// contributes at most one match no matter how often its strings appear.
// Empty and non-ASCII input are valid and simply match nothing.
//
// For every match, Scan appends a threat record and credits the pool
// with MonetaryValue * CaptureFraction through the Sink. A Sink failure
// aborts the scan and is returned to the caller unwrapped of any
// partial result.
func (s *Scanner) Scan(ctx context.Context, text, sourceID string) (ScanResult, error) {
	start := time.Now()
	folded := strings.ToLower(text)

	var result ScanResult
	for _, entry := range s.catalog {
		matched := false
		for _, sig := range entry.lowered {
			if strings.Contains(folded, sig) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		recordID, err := s.sink.RecordThreat(ctx, Detection{
			ThreatID:       entry.ID,
			Type:           entry.Type,
			Name:           entry.Name,
			SourceID:       sourceID,
			Severity:       entry.Severity,
			ResponseAction: entry.ResponseAction,
			MonetaryValue:  entry.MonetaryValue,
		})
		if err != nil {
			return ScanResult{}, fmt.Errorf("failed to record threat %s: %w", entry.ID, err)
		}
		if err := s.sink.CreditPool(ctx, entry.MonetaryValue*CaptureFraction, "threat_capture"); err != nil {
			return ScanResult{}, fmt.Errorf("failed to credit capture value for %s: %w", entry.ID, err)
		}
		result.Matches = append(result.Matches, Match{ThreatSignature: entry, RecordID: recordID})
	}

	result.Elapsed = time.Since(start)
	return result, nil
}
