// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blocklace

import (
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
)

// DefaultWavelength is the number of consecutive depths per wave.
const DefaultWavelength = 3

// Strategy selects the leader / completed-round pair. Both variants
// currently resolve to round-robin leaders at wave boundaries and the
// 0-based completed-round scan; Async is the seam for a future
// shared-coin selection.
type Strategy int

const (
	EventScheduled Strategy = iota
	Async
)

// Strategy returns the configured leader strategy.
func (d *DAG) Strategy() Strategy { return d.strategy }

// Leader returns the leader of a depth. Only depths divisible by the
// wavelength host a leader; selection is deterministic round-robin
// over the sorted participant set.
func (d *DAG) Leader(depth int) (ids.NodeID, bool) {
	if depth < 0 || depth%d.wavelength != 0 {
		return ids.EmptyNodeID, false
	}
	return d.everyone[(depth/d.wavelength)%len(d.everyone)], true
}

// CordialRound reports whether the distinct creators of admitted
// blocks at the depth exceed the super-majority.
func (d *DAG) CordialRound(depth int) bool {
	return len(d.byDepth[depth]) > d.superMajority
}

// CompletedRound returns the greatest depth such that every round
// 0..depth is cordial, or -1 when round 0 is not.
func (d *DAG) CompletedRound() int {
	cycle := 0
	for d.CordialRound(cycle) {
		cycle++
	}
	return cycle - 1
}

// FinalLeader reports whether the leader block is super-ratified by
// the blocks within the one wave immediately above it.
func (d *DAG) FinalLeader(key ids.ID) bool {
	b, ok := d.blocks[key]
	if !ok {
		return false
	}
	heads := d.prefix(b.Depth, b.Depth+d.wavelength)
	return d.SuperRatifies(heads, key)
}

// prefix returns the admitted block ids with minDepth < depth <=
// maxDepth, sorted for a deterministic traversal seed.
func (d *DAG) prefix(minDepth, maxDepth int) []ids.ID {
	var heads []ids.ID
	for depth := minDepth + 1; depth <= maxDepth; depth++ {
		for _, keys := range d.byDepth[depth] {
			heads = append(heads, keys...)
		}
	}
	ids.Sort(heads)
	return heads
}

// LastFinalLeader walks down from two rounds below the completed
// round and returns the deepest admitted leader block that is final.
// Results are memoized by depth.
func (d *DAG) LastFinalLeader() (ids.ID, bool) {
	depth := d.CompletedRound() - 2
	for depth >= 0 {
		if key, ok := d.finalLeaders[depth]; ok {
			return key, true
		}
		if leader, ok := d.Leader(depth); ok {
			for _, key := range d.byDepth[depth][leader] {
				if d.FinalLeader(key) {
					d.log.Debug("leader is final",
						log.Stringer("leader", leader), log.Int("depth", depth))
					d.finalLeaders[depth] = key
					return key, true
				}
			}
		}
		depth--
	}
	return ids.Empty, false
}

// PreviousRatifiedLeader walks the DAG downward from head one depth
// at a time and returns the first leader block at each wave boundary
// that head ratifies. The downward frontier is expanded in sorted id
// order so every correct miner resolves ties identically.
func (d *DAG) PreviousRatifiedLeader(head ids.ID) (ids.ID, bool) {
	hb, ok := d.blocks[head]
	if !ok {
		return ids.Empty, false
	}
	children := make(map[ids.ID]struct{}, len(hb.Pointers))
	for _, ptr := range hb.Pointers {
		children[ptr] = struct{}{}
	}
	for depth := hb.Depth - 1; depth >= 0; depth-- {
		depthKeys := make([]ids.ID, 0, len(children))
		for id := range children {
			if b, ok := d.blocks[id]; ok && b.Depth == depth {
				depthKeys = append(depthKeys, id)
			}
		}
		ids.Sort(depthKeys)

		if leader, ok := d.Leader(depth); ok {
			for _, key := range depthKeys {
				if d.blocks[key].Creator == leader && d.Ratifies(head, key) {
					d.log.Debug("found previous ratified leader",
						log.Stringer("leader", leader), log.Int("depth", depth))
					return key, true
				}
			}
		}

		for _, key := range depthKeys {
			delete(children, key)
			for _, ptr := range d.blocks[key].Pointers {
				children[ptr] = struct{}{}
			}
		}
	}
	return ids.Empty, false
}
