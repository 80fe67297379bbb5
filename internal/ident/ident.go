// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ident generates short unique identifiers for tracking entities
// (snapshots, bulk operations, probe results) in logs and results.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// GenerateID creates a unique identifier for tracked entities.
//
// # Description
//
// Generates a cryptographically random hex string. Not a UUID; shorter for
// readability in logs. Collision probability is low but non-zero for very
// high volumes, which is acceptable for correlation identifiers.
//
// # Outputs
//
//   - string: 16-character hex string (8 random bytes)
func GenerateID() string {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000")))[:16]
	}
	return hex.EncodeToString(b)
}
