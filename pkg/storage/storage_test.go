// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/cordial/pkg/block"
)

func TestBlockArchiveRoundTrip(t *testing.T) {
	require := require.New(t)

	s := NewMemory()
	defer s.Close()

	b, err := block.New(1, 0, nil, nil)
	require.NoError(err)

	has, err := s.HasBlock(b.ID)
	require.NoError(err)
	require.False(has)

	require.NoError(s.PutBlock(b))

	has, err = s.HasBlock(b.ID)
	require.NoError(err)
	require.True(has)

	stored, err := s.GetBlock(b.ID)
	require.NoError(err)
	require.Equal(b.ID, stored.ID)
	require.Equal(b.Creator, stored.Creator)
	require.True(stored.VerifyID())
}

func TestOrderedLogReplay(t *testing.T) {
	require := require.New(t)

	s := NewMemory()
	defer s.Close()

	b1, err := block.New(0, 0, nil, nil)
	require.NoError(err)
	b2, err := block.New(1, 0, nil, nil)
	require.NoError(err)

	require.NoError(s.PutOrdered(1, b1.ID))
	require.NoError(s.PutOrdered(2, b2.ID))

	order, err := s.OrderedIDs()
	require.NoError(err)
	require.Equal(b1.ID, order[0])
	require.Equal(b2.ID, order[1])
}
