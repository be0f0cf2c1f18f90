// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ids

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDHexRoundTrip(t *testing.T) {
	require := require.New(t)

	var id ID
	for i := range id {
		id[i] = byte(i)
	}

	parsed, err := FromString(id.String())
	require.NoError(err)
	require.Equal(id, parsed)

	_, err = FromString("zz")
	require.Error(err)
	_, err = FromString("abcd")
	require.Error(err)
}

func TestIDSort(t *testing.T) {
	require := require.New(t)

	a := ID{0x01}
	b := ID{0x02}
	c := ID{0xff}

	list := []ID{c, a, b}
	Sort(list)
	require.Equal([]ID{a, b, c}, list)
}

func TestSortNodeIDs(t *testing.T) {
	require := require.New(t)

	nodes := []NodeID{5003, 5000, 5002, 5001}
	SortNodeIDs(nodes)
	require.Equal([]NodeID{5000, 5001, 5002, 5003}, nodes)
}
