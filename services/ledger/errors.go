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
	"errors"
	"fmt"
)

// Error taxonomy shared by every component that touches durable state.
// Handlers map these to HTTP status classes with errors.Is; anything
// outside the taxonomy is a storage fault and surfaces as a server
// error.
var (
	// ErrInvalidInput marks a missing or malformed field. No mutation
	// has taken place when it is returned.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a referenced entity that is absent or not owned
	// by the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a violated state precondition, such as a
	// duplicate registration or an already-open time record.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized marks a missing or invalid identity credential.
	ErrUnauthorized = errors.New("unauthorized")
)

// ErrInsufficientFunds is the Conflict raised when a debit would push
// the pool's distributed total past its accrued total. The pool row is
// untouched when it is returned.
var ErrInsufficientFunds = fmt.Errorf("%w: insufficient pool balance", ErrConflict)
