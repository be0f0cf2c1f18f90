// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"container/heap"
	"context"
	"encoding/json"
	"time"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/log"
)

const (
	// DefaultIdlePolls is how many empty poll cycles pass before the
	// driver considers injecting a filler block.
	DefaultIdlePolls = 10
	// DefaultPollInterval is the idle sleep between poll cycles.
	DefaultPollInterval = 100 * time.Millisecond

	ingressBacklog = 1024
)

// Driver is the single consumer between the multi-producer façade and
// the miner core. Handlers push onto the payload and block channels;
// the driver dequeues and invokes the core, so every mutation of
// blocklace state happens on one goroutine.
//
// Blocks at depths the miner has already reached are prioritized over
// payloads; blocks from rounds the miner has not reached yet wait in
// a min-depth heap so the miner never races ahead of its peers.
type Driver struct {
	miner    *Miner
	payloads chan json.RawMessage
	blocks   chan *block.Block

	pending blockHeap

	idlePolls    int
	pollInterval time.Duration

	log log.Logger
}

// NewDriver wires a driver to a miner.
func NewDriver(m *Miner, logger log.Logger) *Driver {
	if logger == nil {
		logger = log.NoOp()
	}
	return &Driver{
		miner:        m,
		payloads:     make(chan json.RawMessage, ingressBacklog),
		blocks:       make(chan *block.Block, ingressBacklog),
		idlePolls:    DefaultIdlePolls,
		pollInterval: DefaultPollInterval,
		log:          logger,
	}
}

// SubmitPayload enqueues one client payload. A nil payload asks the
// miner to author a filler block.
func (d *Driver) SubmitPayload(payload json.RawMessage) {
	d.payloads <- payload
}

// SubmitBlock enqueues one received block.
func (d *Driver) SubmitBlock(b *block.Block) {
	d.blocks <- b
}

// Run consumes the ingress queues until the context is canceled.
func (d *Driver) Run(ctx context.Context) {
	var (
		heldMsg json.RawMessage
		haveMsg bool
		counter int
	)
	for {
		if ctx.Err() != nil {
			return
		}
		d.drainBlocks()

		var ordered *block.Block
		if d.pending.Len() > 0 {
			ordered = heap.Pop(&d.pending).(*block.Block)
		}
		if !haveMsg {
			select {
			case heldMsg = <-d.payloads:
				haveMsg = true
			default:
			}
		}

		msgExists := haveMsg
		prioritiseBlock := ordered != nil && ordered.Depth <= d.miner.Round()

		if msgExists && !prioritiseBlock {
			d.miner.Receive(ctx, heldMsg)
			heldMsg = nil
			haveMsg = false
		}
		if ordered != nil {
			if prioritiseBlock || !msgExists {
				d.miner.ReceiveBlock(ctx, ordered)
			} else {
				heap.Push(&d.pending, ordered)
			}
		}

		if msgExists || ordered != nil {
			counter = 0
			continue
		}
		if counter == d.idlePolls {
			if waiting := d.miner.DAG().UnemittedPayloadBlocks(); waiting > 0 {
				d.log.Info("blocks waiting for order", log.Int("count", waiting))
				counter = 0
				d.miner.Receive(ctx, nil)
				continue
			}
			counter++
			continue
		}
		counter++
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.pollInterval):
		}
	}
}

func (d *Driver) drainBlocks() {
	for {
		select {
		case b := <-d.blocks:
			heap.Push(&d.pending, b)
		default:
			return
		}
	}
}

// blockHeap orders pending blocks by depth, shallowest first, ties by
// id so draining order is deterministic.
type blockHeap []*block.Block

func (h blockHeap) Len() int { return len(h) }

func (h blockHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].ID.Compare(h[j].ID) < 0
}

func (h blockHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *blockHeap) Push(x any) { *h = append(*h, x.(*block.Block)) }

func (h *blockHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
