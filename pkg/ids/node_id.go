// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"sort"
	"strconv"
)

// NodeID identifies a participant. Participants are drawn from a
// fixed, sortable set; the wire format carries them as integers.
type NodeID int

// EmptyNodeID is the sentinel for "no participant"
const EmptyNodeID NodeID = -1

// String returns the decimal representation of a NodeID
func (id NodeID) String() string {
	return strconv.Itoa(int(id))
}

// SortNodeIDs orders a slice of NodeIDs in place, ascending
func SortNodeIDs(nodes []NodeID) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
}
