// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/cordial/pkg/ids"
)

func testID(t *testing.T, fill byte) ids.ID {
	t.Helper()
	var raw [32]byte
	for i := range raw {
		raw[i] = fill
	}
	id, err := ids.FromBytes(raw[:])
	require.NoError(t, err)
	return id
}

func TestSerializationRoundTrip(t *testing.T) {
	require := require.New(t)

	b, err := New(3, 2,
		[]json.RawMessage{json.RawMessage(`{"k": 1}`), json.RawMessage(`"x"`)},
		[]ids.ID{testID(t, 0xaa), testID(t, 0x01), testID(t, 0x7f)},
	)
	require.NoError(err)
	require.True(b.VerifyID())

	wire, err := json.Marshal(b)
	require.NoError(err)

	var parsed Block
	require.NoError(json.Unmarshal(wire, &parsed))

	require.Equal(b.ID, parsed.ID)
	require.True(parsed.VerifyID())
	require.Equal(b.Creator, parsed.Creator)
	require.Equal(b.Depth, parsed.Depth)
	require.Equal(b.Pointers, parsed.Pointers)
}

func TestPointersSorted(t *testing.T) {
	require := require.New(t)

	hi := testID(t, 0xee)
	lo := testID(t, 0x11)
	mid := testID(t, 0x88)

	b, err := New(0, 1, nil, []ids.ID{hi, lo, mid})
	require.NoError(err)
	require.Equal([]ids.ID{lo, mid, hi}, b.Pointers)

	// pointer order on input never changes the id
	again, err := New(0, 1, nil, []ids.ID{mid, hi, lo})
	require.NoError(err)
	again.Timestamp = b.Timestamp
	recomputed, err := again.computeID()
	require.NoError(err)
	require.Equal(b.ID, recomputed)
}

func TestPayloadWhitespaceDoesNotChangeID(t *testing.T) {
	require := require.New(t)

	a, err := New(1, 0, []json.RawMessage{json.RawMessage(`{"k":1}`)}, nil)
	require.NoError(err)
	b, err := New(1, 0, []json.RawMessage{json.RawMessage(`{ "k" : 1 }`)}, nil)
	require.NoError(err)

	b.Timestamp = a.Timestamp
	recomputed, err := b.computeID()
	require.NoError(err)
	require.Equal(a.ID, recomputed)
}

func TestTamperedBlockFailsVerify(t *testing.T) {
	require := require.New(t)

	b, err := New(2, 0, nil, nil)
	require.NoError(err)
	require.True(b.VerifyID())

	b.Depth = 1
	require.False(b.VerifyID())
}

func TestUnmarshalNormalizesNilSlices(t *testing.T) {
	require := require.New(t)

	var b Block
	require.NoError(json.Unmarshal([]byte(`{"creator":0,"timestamp":"t","payload":null,"pointers":null,"depth":0,"hash_code":"`+testID(t, 0x01).String()+`"}`), &b))
	require.NotNil(b.Payload)
	require.NotNil(b.Pointers)
}

func TestHashCodeIsHexOnWire(t *testing.T) {
	require := require.New(t)

	b, err := New(0, 0, nil, nil)
	require.NoError(err)

	wire, err := json.Marshal(b)
	require.NoError(err)

	var decoded map[string]any
	require.NoError(json.Unmarshal(wire, &decoded))
	require.Equal(b.ID.String(), decoded["hash_code"])
}
