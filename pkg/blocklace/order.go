// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blocklace

import (
	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
)

// Tau finds the last final leader and emits every not-yet-emitted
// block below it, leader chain first. The recursion of the paper's
// τ′ over previous ratified leaders is unrolled into an explicit
// chain so the depth of the lace never threatens the stack.
func (d *DAG) Tau() {
	key, ok := d.LastFinalLeader()
	if !ok {
		return
	}
	var chain []ids.ID
	for {
		if d.Emitted(key) {
			break
		}
		chain = append(chain, key)
		prev, found := d.PreviousRatifiedLeader(key)
		if !found {
			break
		}
		key = prev
	}
	for i := len(chain) - 1; i >= 0; i-- {
		d.xSort(chain[i])
	}
}

// xSort emits head's contribution: a post-order DFS over its
// ancestors, descending only into blocks not yet emitted, pointers in
// sorted id order. Each block is added to the output set as it
// returns, then head itself. The output set makes every emission
// happen at most once across all Tau invocations.
func (d *DAG) xSort(head ids.ID) {
	if d.Emitted(head) {
		return
	}
	type frame struct {
		id   ids.ID
		next int
	}
	stack := []frame{{id: head}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		b := d.blocks[top.id]
		if top.next < len(b.Pointers) {
			kid := b.Pointers[top.next]
			top.next++
			if !d.Emitted(kid) {
				stack = append(stack, frame{id: kid})
			}
			continue
		}
		d.output[top.id] = struct{}{}
		d.deliver(b)
		stack = stack[:len(stack)-1]
	}
}

func (d *DAG) deliver(b *block.Block) {
	d.outputIndex++
	if d.archive != nil {
		if err := d.archive.PutOrdered(d.outputIndex, b.ID); err != nil {
			d.log.Error("emission log write failed", log.Err(err))
		}
	}
	if d.metrics != nil {
		d.metrics.BlocksOrdered.Inc()
		if len(b.Payload) > 0 {
			d.metrics.PayloadsOrdered.Add(float64(len(b.Payload)))
		}
	}
	if d.emit != nil {
		d.emit(b)
	}
}

// UnemittedPayloadBlocks counts admitted blocks that carry payloads
// not yet ordered. The driver's idle filler hook keys off this.
func (d *DAG) UnemittedPayloadBlocks() int {
	count := 0
	for id, b := range d.blocks {
		if _, done := d.output[id]; !done && len(b.Payload) > 0 {
			count++
		}
	}
	return count
}
