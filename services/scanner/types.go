// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.
package scanner

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity classifies how dangerous a matched signature is.
// Only SeverityCritical forces content to be blocked; every other
// level is informational.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	incoming := Severity(raw)
	switch incoming {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		*s = incoming
		return nil
	default:
		return fmt.Errorf("invalid value for Severity: %q", incoming)
	}
}

// ThreatSignature is one entry of the signature catalog. A message body
// matches the entry when it contains any of the Signatures strings,
// compared case-insensitively.
type ThreatSignature struct {
	ID             string   `yaml:"id" json:"id"`
	Type           string   `yaml:"type" json:"type"`
	Name           string   `yaml:"name" json:"name"`
	Signatures     []string `yaml:"signatures" json:"signatures"`
	Severity       Severity `yaml:"severity" json:"severity"`
	ResponseAction string   `yaml:"responseAction" json:"response_action"`
	MonetaryValue  float64  `yaml:"monetaryValue" json:"monetary_value"`

	// lowered holds the pre-folded signature strings so Scan does not
	// re-lowercase the catalog on every call.
	lowered []string
}

// ThreatCatalogFile is the top-level shape of the embedded catalog YAML.
type ThreatCatalogFile struct {
	Signatures []ThreatSignature `yaml:"threatSignatures"`
}

// Prepare folds the signature strings for case-insensitive matching and
// validates the catalog. Declaration order is preserved: matching walks
// the catalog in the order entries appear in the YAML.
func (f *ThreatCatalogFile) Prepare() error {
	seen := make(map[string]struct{}, len(f.Signatures))
	for i := range f.Signatures {
		entry := &f.Signatures[i]
		if entry.ID == "" {
			return fmt.Errorf("catalog entry %d is missing an id", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("duplicate catalog entry id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if len(entry.Signatures) == 0 {
			return fmt.Errorf("catalog entry %q has no signature strings", entry.ID)
		}
		if entry.MonetaryValue < 0 {
			return fmt.Errorf("catalog entry %q has a negative monetary value", entry.ID)
		}
		entry.lowered = make([]string, len(entry.Signatures))
		for j, sig := range entry.Signatures {
			entry.lowered[j] = strings.ToLower(sig)
		}
	}
	return nil
}
