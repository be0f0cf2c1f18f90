// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256 computes the SHA256 hash of data
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ComputeHash256 computes SHA256 hash and returns bytes
func ComputeHash256(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:]
}

// HashHex computes SHA256 and returns the hex string
func HashHex(data []byte) string {
	return hex.EncodeToString(ComputeHash256(data))
}
