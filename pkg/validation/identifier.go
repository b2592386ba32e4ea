// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries, log lines, or broadcast payloads. Using these validators
// prevents injection attacks (SQL injection, log forgery, path traversal).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// nodeIDPattern matches valid mesh node identifiers.
// Allows: letters, digits, dots (node.lab-3), hyphens and underscores
// Max length: 64 characters
var nodeIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,63}$`)

// ValidateNodeID validates a mesh node identifier before it reaches the
// node registry or a broadcast payload.
//
// Valid node ids:
//   - 1-64 characters
//   - Letters A-Z, a-z
//   - Digits 0-9
//   - Dots (.), hyphens (-), underscores (_) after the first character
//
// Returns an error if the id is invalid.
//
// Example:
//
//	if err := validation.ValidateNodeID(nodeID); err != nil {
//	    return fmt.Errorf("invalid node id: %w", err)
//	}
//	// Safe to persist and broadcast
func ValidateNodeID(nodeID string) error {
	if nodeID == "" {
		return fmt.Errorf("node id cannot be empty")
	}

	if !nodeIDPattern.MatchString(nodeID) {
		return fmt.Errorf("invalid node id format: %q (must be 1-64 alphanumeric chars, dots, hyphens, or underscores)", nodeID)
	}

	return nil
}

// SanitizeNodeID normalizes and validates a node identifier.
// Returns the trimmed id if valid, or an error if invalid.
func SanitizeNodeID(nodeID string) (string, error) {
	normalized := strings.TrimSpace(nodeID)
	if err := ValidateNodeID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateUsername validates an account name at registration time.
// Same alphabet as node ids but 3-32 characters, matching what the
// identity issuer embeds in token claims.
func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 32 {
		return fmt.Errorf("username must be 3-32 characters, got %d", len(username))
	}
	if !nodeIDPattern.MatchString(username) {
		return fmt.Errorf("invalid username format: %q", username)
	}
	return nil
}
