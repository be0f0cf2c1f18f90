// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/luxfi/cordial/pkg/crypto/hashing"
	"github.com/luxfi/cordial/pkg/ids"
)

// Block is one immutable entry of the blocklace. Blocks are
// content-addressed: ID is the SHA-256 of the canonical serialization
// of every other field.
type Block struct {
	Creator   ids.NodeID
	Timestamp string
	Payload   []json.RawMessage
	Pointers  []ids.ID
	Depth     int
	ID        ids.ID
}

// wireBlock is the JSON wire format shared by all miners.
type wireBlock struct {
	Creator   ids.NodeID        `json:"creator"`
	Timestamp string            `json:"timestamp"`
	Payload   []json.RawMessage `json:"payload"`
	Pointers  []ids.ID          `json:"pointers"`
	Depth     int               `json:"depth"`
	HashCode  ids.ID            `json:"hash_code"`
}

// canonicalBlock fixes the hashed serialization: lexicographic key
// order, no hash_code. Two miners building the same logical block
// must produce identical bytes here.
type canonicalBlock struct {
	Creator   ids.NodeID        `json:"creator"`
	Depth     int               `json:"depth"`
	Payload   []json.RawMessage `json:"payload"`
	Pointers  []ids.ID          `json:"pointers"`
	Timestamp string            `json:"timestamp"`
}

// New assembles a block, sorts its pointers, and seals it with its
// content hash. Payload entries are compacted so the hash does not
// depend on client whitespace.
func New(creator ids.NodeID, depth int, payload []json.RawMessage, pointers []ids.ID) (*Block, error) {
	b := &Block{
		Creator:   creator,
		Timestamp: time.Now().UTC().Format("20060102150405.000000"),
		Payload:   compactPayload(payload),
		Pointers:  append(make([]ids.ID, 0, len(pointers)), pointers...),
		Depth:     depth,
	}
	ids.Sort(b.Pointers)
	id, err := b.computeID()
	if err != nil {
		return nil, err
	}
	b.ID = id
	return b, nil
}

func (b *Block) computeID() (ids.ID, error) {
	data, err := json.Marshal(canonicalBlock{
		Creator:   b.Creator,
		Depth:     b.Depth,
		Payload:   b.Payload,
		Pointers:  b.Pointers,
		Timestamp: b.Timestamp,
	})
	if err != nil {
		return ids.Empty, fmt.Errorf("canonical serialization: %w", err)
	}
	return ids.FromBytes(hashing.ComputeHash256(data))
}

// VerifyID recomputes the content hash and reports whether it matches
// the carried hash_code.
func (b *Block) VerifyID() bool {
	id, err := b.computeID()
	return err == nil && id == b.ID
}

// MarshalJSON implements the wire format.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireBlock{
		Creator:   b.Creator,
		Timestamp: b.Timestamp,
		Payload:   b.Payload,
		Pointers:  b.Pointers,
		Depth:     b.Depth,
		HashCode:  b.ID,
	})
}

// UnmarshalJSON implements the wire format. Payload entries are
// compacted and nil slices normalized so re-hashing a parsed block
// reproduces its id.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w wireBlock
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Creator = w.Creator
	b.Timestamp = w.Timestamp
	b.Payload = compactPayload(w.Payload)
	b.Pointers = w.Pointers
	if b.Pointers == nil {
		b.Pointers = []ids.ID{}
	}
	b.Depth = w.Depth
	b.ID = w.HashCode
	return nil
}

// PointsTo reports whether id is among the block's parents.
func (b *Block) PointsTo(id ids.ID) bool {
	for _, p := range b.Pointers {
		if p == id {
			return true
		}
	}
	return false
}

func compactPayload(payload []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(payload))
	for _, raw := range payload {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			out = append(out, raw)
			continue
		}
		out = append(out, json.RawMessage(buf.Bytes()))
	}
	return out
}
