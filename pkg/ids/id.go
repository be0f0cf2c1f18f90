// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
)

// IDLen is the length of an ID in bytes
const IDLen = 32

// ID is a content hash used as the primary key of a block
type ID [IDLen]byte

// Empty is the zero ID
var Empty = ID{}

// String returns the hex representation of the ID
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the byte representation of the ID
func (id ID) Bytes() []byte {
	return id[:]
}

// IsEmpty returns true if the ID is the zero value
func (id ID) IsEmpty() bool {
	return id == Empty
}

// Compare returns -1, 0 or 1 ordering IDs lexicographically
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as
// hex strings on the wire
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// FromString creates an ID from a hex string
func FromString(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != IDLen {
		return id, fmt.Errorf("invalid ID length: expected %d, got %d", IDLen, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// FromBytes creates an ID from a 32-byte slice
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != IDLen {
		return id, fmt.Errorf("invalid ID length: expected %d, got %d", IDLen, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Sort orders a slice of IDs in place, ascending
func Sort(idList []ID) {
	sort.Slice(idList, func(i, j int) bool {
		return idList[i].Compare(idList[j]) < 0
	})
}
