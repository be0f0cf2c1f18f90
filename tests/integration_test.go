// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/miner"
)

// network is a lossless in-process gossip fabric between miners.
// Broadcast serializes each block through the wire format and queues
// it at every peer; deliver drains the queues until quiescence.
type network struct {
	t       *testing.T
	miners  map[ids.NodeID]*miner.Miner
	order   []ids.NodeID
	inboxes map[ids.NodeID][]*block.Block
	emitted map[ids.NodeID][]string
}

type loopback struct {
	net *network
}

func (l *loopback) Broadcast(_ context.Context, peers []ids.NodeID, blocks []*block.Block) {
	for _, b := range blocks {
		wire, err := json.Marshal(b)
		require.NoError(l.net.t, err)
		for _, peer := range peers {
			var copied block.Block
			require.NoError(l.net.t, json.Unmarshal(wire, &copied))
			l.net.inboxes[peer] = append(l.net.inboxes[peer], &copied)
		}
	}
}

func newNetwork(t *testing.T, everyone []ids.NodeID) *network {
	net := &network{
		t:       t,
		miners:  make(map[ids.NodeID]*miner.Miner),
		order:   append([]ids.NodeID(nil), everyone...),
		inboxes: make(map[ids.NodeID][]*block.Block),
		emitted: make(map[ids.NodeID][]string),
	}
	for _, me := range everyone {
		me := me
		net.miners[me] = miner.New(miner.Config{
			Everyone:    everyone,
			Me:          me,
			BufferSlack: -1,
			Broadcaster: &loopback{net: net},
			Emitter: func(_ ids.NodeID, payload json.RawMessage) {
				net.emitted[me] = append(net.emitted[me], string(payload))
			},
			Log: log.NoOp(),
		})
	}
	return net
}

// deliver drains every inbox, including blocks queued by authoring
// that delivery itself triggers, until the network is quiet.
func (n *network) deliver(ctx context.Context) {
	for {
		moved := false
		for _, me := range n.order {
			pending := n.inboxes[me]
			if len(pending) == 0 {
				continue
			}
			n.inboxes[me] = nil
			moved = true
			for _, b := range pending {
				n.miners[me].ReceiveBlock(ctx, b)
			}
		}
		if !moved {
			return
		}
	}
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestFourMinerTotalOrder(t *testing.T) {
	require := require.New(t)
	everyone := []ids.NodeID{0, 1, 2, 3}
	net := newNetwork(t, everyone)
	ctx := context.Background()

	// miner 0 boots the lace with the first client payload
	net.miners[0].Receive(ctx, raw(t, "x"))
	for _, me := range everyone[1:] {
		net.miners[me].Receive(ctx, nil)
	}
	net.deliver(ctx)

	// every miner holds the full genesis round
	for _, me := range everyone {
		status := net.miners[me].Status()
		require.Equal(4, status.Blocks, "miner %d", me)
		require.Empty(status.Equivocators)
	}

	// eight more rounds, one payload per round on a rotating miner
	for round := 1; round <= 8; round++ {
		for _, me := range everyone {
			if me == everyone[round%len(everyone)] {
				net.miners[me].Receive(ctx, raw(t, fmt.Sprintf("msg-%d", round)))
			} else {
				net.miners[me].Receive(ctx, nil)
			}
		}
		net.deliver(ctx)
	}

	// all miners converged on the same lace
	for _, me := range everyone {
		require.Equal(9*len(everyone), net.miners[me].Status().Blocks, "miner %d", me)
	}

	// the ordered payload streams are identical and start with the
	// genesis leader's payload
	reference := net.emitted[0]
	require.NotEmpty(reference)
	require.Equal(`"x"`, reference[0])
	require.Contains(reference, `"msg-1"`)
	require.Contains(reference, `"msg-5"`)
	for _, me := range everyone[1:] {
		require.Equal(reference, net.emitted[me], "miner %d diverged", me)
	}
}

func TestLostPeerCatchesUp(t *testing.T) {
	require := require.New(t)
	everyone := []ids.NodeID{0, 1, 2, 3}
	net := newNetwork(t, everyone)
	ctx := context.Background()

	// miner 3's traffic is withheld: it authors, but nothing moves
	net.miners[0].Receive(ctx, raw(t, "x"))
	net.miners[1].Receive(ctx, nil)
	net.miners[2].Receive(ctx, nil)
	net.miners[3].Receive(ctx, nil)
	// drop miner 3's genesis from every inbox for now
	var stash []*block.Block
	for _, me := range everyone {
		var keep []*block.Block
		for _, b := range net.inboxes[me] {
			if b.Creator == 3 {
				if me == 0 {
					stash = append(stash, b)
				}
				continue
			}
			keep = append(keep, b)
		}
		net.inboxes[me] = keep
	}
	net.deliver(ctx)

	// three of four creators clear the super-majority; progress
	// continues without miner 3
	for round := 1; round <= 3; round++ {
		for _, me := range everyone[:3] {
			net.miners[me].Receive(ctx, nil)
		}
		net.deliver(ctx)
	}
	require.GreaterOrEqual(net.miners[0].Status().Blocks, 12)

	// the withheld genesis block is admitted retroactively
	before := net.miners[0].Status().Blocks
	for _, b := range stash {
		net.miners[0].ReceiveBlock(ctx, b)
	}
	net.deliver(ctx)
	require.Equal(before+1, net.miners[0].Status().Blocks)
}
