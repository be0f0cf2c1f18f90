// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blocklace

import (
	"github.com/luxfi/cordial/pkg/ids"
)

// Observes reports whether observed is reachable from observer by
// zero or more pointer steps. Reflexive.
func (d *DAG) Observes(observer, observed ids.ID) bool {
	if observer == observed {
		return true
	}
	visited := map[ids.ID]struct{}{observer: {}}
	frontier := []ids.ID{observer}
	for len(frontier) > 0 {
		var next []ids.ID
		for _, id := range frontier {
			b, ok := d.blocks[id]
			if !ok {
				continue
			}
			for _, ptr := range b.Pointers {
				if ptr == observed {
					return true
				}
				if _, seen := visited[ptr]; seen {
					continue
				}
				visited[ptr] = struct{}{}
				next = append(next, ptr)
			}
		}
		frontier = next
	}
	return false
}

// leafOfCreator walks down from head, at each step following the
// unique parent that shares the head's creator, and returns the last
// block reached. Used by Approves to locate the bottom of an
// equivocating fork.
func (d *DAG) leafOfCreator(head ids.ID) ids.ID {
	creator := d.blocks[head].Creator
	leaf := head
	for {
		var next ids.ID
		found := false
		for _, ptr := range d.blocks[leaf].Pointers {
			if parent, ok := d.blocks[ptr]; ok && parent.Creator == creator {
				next = ptr
				found = true
				break
			}
		}
		if !found {
			return leaf
		}
		leaf = next
	}
}

// Approves reports whether head observes key without also observing a
// block that equivocates with key. A block approves itself.
//
// Rather than testing every block in head's closure for equivocation,
// only the leaves of key's creator under the known fork tips need
// checking: a fork tip that observes key is harmless, and one that
// does not condemns head exactly when its leaf lies in head's
// closure.
func (d *DAG) Approves(head, key ids.ID) bool {
	keyBlock, ok := d.blocks[key]
	if !ok {
		return false
	}
	if head == key {
		return true
	}
	var equivocating map[ids.ID]struct{}
	if forks, forked := d.equivocators[keyBlock.Creator]; forked {
		equivocating = make(map[ids.ID]struct{}, len(forks))
		for tip := range forks {
			if !d.Observes(tip, key) {
				equivocating[d.leafOfCreator(tip)] = struct{}{}
			}
		}
	}

	inTree := false
	visited := map[ids.ID]struct{}{head: {}}
	frontier := []ids.ID{head}
	for len(frontier) > 0 {
		var next []ids.ID
		for _, id := range frontier {
			if _, bad := equivocating[id]; bad {
				return false
			}
			if id == key {
				inTree = true
			}
			b, ok := d.blocks[id]
			if !ok {
				continue
			}
			for _, ptr := range b.Pointers {
				if _, seen := visited[ptr]; seen {
					continue
				}
				visited[ptr] = struct{}{}
				next = append(next, ptr)
			}
		}
		frontier = next
	}
	return inTree
}

// Ratifies reports whether the distinct creators of blocks reachable
// from head that each approve key exceed the super-majority. The walk
// is pruned to blocks at depth >= key's depth.
func (d *DAG) Ratifies(head, key ids.ID) bool {
	keyBlock, ok := d.blocks[key]
	if !ok {
		return false
	}
	return d.countRatification([]ids.ID{head}, keyBlock.Depth, func(id ids.ID) bool {
		return d.Approves(id, key)
	}) > d.superMajority
}

// SuperRatifies reports whether the distinct creators of blocks
// reachable from the head set that each ratify key exceed the
// super-majority, with the same depth pruning as Ratifies.
func (d *DAG) SuperRatifies(heads []ids.ID, key ids.ID) bool {
	keyBlock, ok := d.blocks[key]
	if !ok {
		return false
	}
	return d.countRatification(heads, keyBlock.Depth, func(id ids.ID) bool {
		return d.Ratifies(id, key)
	}) > d.superMajority
}

// countRatification walks the closure of heads, pruned to blocks at
// depth >= minDepth, and counts the distinct creators of blocks
// satisfying the vote predicate.
func (d *DAG) countRatification(heads []ids.ID, minDepth int, votes func(ids.ID) bool) int {
	voters := make(map[ids.NodeID]struct{})
	visited := make(map[ids.ID]struct{}, len(heads))
	frontier := make([]ids.ID, 0, len(heads))
	for _, h := range heads {
		if _, seen := visited[h]; seen {
			continue
		}
		visited[h] = struct{}{}
		frontier = append(frontier, h)
	}
	for len(frontier) > 0 {
		var next []ids.ID
		for _, id := range frontier {
			b, ok := d.blocks[id]
			if !ok || b.Depth < minDepth {
				continue
			}
			if votes(id) {
				voters[b.Creator] = struct{}{}
			}
			for _, ptr := range b.Pointers {
				if _, seen := visited[ptr]; seen {
					continue
				}
				if parent, ok := d.blocks[ptr]; !ok || parent.Depth < minDepth {
					continue
				}
				visited[ptr] = struct{}{}
				next = append(next, ptr)
			}
		}
		frontier = next
	}
	return len(voters)
}
