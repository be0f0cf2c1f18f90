// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blocklace

import (
	"sort"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/metric"
)

// Archive receives admitted blocks and the emission log. Implemented
// by pkg/storage; nil disables archiving.
type Archive interface {
	PutBlock(b *block.Block) error
	PutOrdered(index uint64, id ids.ID) error
}

// Params configures a DAG.
type Params struct {
	// Everyone is the fixed participant set. Sorted on construction.
	Everyone []ids.NodeID
	// Wavelength is the number of depths per wave. Default 3.
	Wavelength int
	// BufferSlack is how many depths below the completed round a
	// buffered block may trail before it is evicted. <0 disables
	// eviction.
	BufferSlack int
	// Strategy selects the leader / completed-round pair.
	Strategy Strategy
}

// DAG holds one miner's view of the blocklace: every admitted block
// keyed by content hash, the per-creator tips, the proven
// equivocators, the admission buffer, and the ordering output set.
//
// The DAG is owned by the driver goroutine; all mutation and every
// predicate run there. Concurrent readers must go through snapshots
// taken by the owner.
type DAG struct {
	everyone      []ids.NodeID
	isParticipant map[ids.NodeID]bool
	superMajority int
	wavelength    int
	bufferSlack   int
	strategy      Strategy

	blocks       map[ids.ID]*block.Block
	tips         map[ids.NodeID]ids.ID
	equivocators map[ids.NodeID]map[ids.ID]struct{}
	buffer       map[ids.ID]*block.Block
	output       map[ids.ID]struct{}
	outputIndex  uint64

	// byDepth indexes admitted block ids by depth and creator; it
	// backs cordial_round and the leader walkback.
	byDepth map[int]map[ids.NodeID][]ids.ID

	// finalLeaders memoizes last_final_leader results by depth.
	finalLeaders map[int]ids.ID

	emit    func(*block.Block)
	archive Archive
	metrics *metric.Metrics
	log     log.Logger
}

// New creates an empty DAG for the given participant set.
func New(params Params, logger log.Logger) *DAG {
	everyone := append([]ids.NodeID(nil), params.Everyone...)
	ids.SortNodeIDs(everyone)
	n := len(everyone)
	f := (n - 1) / 3
	wavelength := params.Wavelength
	if wavelength <= 0 {
		wavelength = DefaultWavelength
	}
	isParticipant := make(map[ids.NodeID]bool, n)
	for _, p := range everyone {
		isParticipant[p] = true
	}
	if logger == nil {
		logger = log.NoOp()
	}
	return &DAG{
		everyone:      everyone,
		isParticipant: isParticipant,
		superMajority: (n + f) / 2,
		wavelength:    wavelength,
		bufferSlack:   params.BufferSlack,
		strategy:      params.Strategy,
		blocks:        make(map[ids.ID]*block.Block),
		tips:          make(map[ids.NodeID]ids.ID),
		equivocators:  make(map[ids.NodeID]map[ids.ID]struct{}),
		buffer:        make(map[ids.ID]*block.Block),
		output:        make(map[ids.ID]struct{}),
		byDepth:       make(map[int]map[ids.NodeID][]ids.ID),
		finalLeaders:  make(map[int]ids.ID),
		log:           logger,
	}
}

// SetEmitter installs the ordering egress callback. Each ordered
// block is passed exactly once, payloads in stored order.
func (d *DAG) SetEmitter(emit func(*block.Block)) { d.emit = emit }

// SetArchive installs the write-through block archive.
func (d *DAG) SetArchive(a Archive) { d.archive = a }

// SetMetrics installs the instrument set.
func (d *DAG) SetMetrics(m *metric.Metrics) { d.metrics = m }

// Everyone returns the sorted participant set.
func (d *DAG) Everyone() []ids.NodeID { return d.everyone }

// SuperMajority returns the quorum threshold; quorums must strictly
// exceed it.
func (d *DAG) SuperMajority() int { return d.superMajority }

// Wavelength returns the number of depths per wave.
func (d *DAG) Wavelength() int { return d.wavelength }

// Len returns the number of admitted blocks.
func (d *DAG) Len() int { return len(d.blocks) }

// BufferLen returns the number of blocks waiting for dependencies.
func (d *DAG) BufferLen() int { return len(d.buffer) }

// OutputLen returns the number of blocks already emitted.
func (d *DAG) OutputLen() int { return len(d.output) }

// Contains reports whether the block id has been admitted.
func (d *DAG) Contains(id ids.ID) bool {
	_, ok := d.blocks[id]
	return ok
}

// Get returns an admitted block.
func (d *DAG) Get(id ids.ID) (*block.Block, bool) {
	b, ok := d.blocks[id]
	return b, ok
}

// Emitted reports whether the block's payloads have been ordered.
func (d *DAG) Emitted(id ids.ID) bool {
	_, ok := d.output[id]
	return ok
}

// Tips returns a copy of the creator → tip mapping.
func (d *DAG) Tips() map[ids.NodeID]ids.ID {
	tips := make(map[ids.NodeID]ids.ID, len(d.tips))
	for creator, tip := range d.tips {
		tips[creator] = tip
	}
	return tips
}

// Equivocators returns the proven equivocators and their maximal
// observed fork tips, sorted for stable output.
func (d *DAG) Equivocators() map[ids.NodeID][]ids.ID {
	out := make(map[ids.NodeID][]ids.ID, len(d.equivocators))
	for creator, forks := range d.equivocators {
		tips := make([]ids.ID, 0, len(forks))
		for id := range forks {
			tips = append(tips, id)
		}
		ids.Sort(tips)
		out[creator] = tips
	}
	return out
}

// IsEquivocator reports whether the creator has been proven to fork.
func (d *DAG) IsEquivocator(creator ids.NodeID) bool {
	_, ok := d.equivocators[creator]
	return ok
}

// Correct is the syntactic admission gate: known creator, and either
// a pointerless genesis block or a positive-depth block carrying more
// than a super-majority of pointers. The content hash must check out.
func (d *DAG) Correct(b *block.Block) bool {
	if b == nil || b.ID.IsEmpty() || !d.isParticipant[b.Creator] || b.Depth < 0 {
		return false
	}
	genesis := b.Depth == 0 && len(b.Pointers) == 0
	quorum := b.Depth > 0 && len(b.Pointers) > d.superMajority
	return (genesis || quorum) && b.VerifyID()
}

// Cordial is the structural admission gate: all parents admitted
// under distinct creators, more than a super-majority of them exactly
// one depth below, and none at or above the block's own depth.
// Genesis blocks are always cordial.
func (d *DAG) Cordial(b *block.Block) bool {
	if b.Depth == 0 {
		return true
	}
	creators := make(map[ids.NodeID]struct{}, len(b.Pointers))
	previousRound := 0
	for _, ptr := range b.Pointers {
		parent, ok := d.blocks[ptr]
		if !ok {
			return false
		}
		creators[parent.Creator] = struct{}{}
		switch {
		case parent.Depth+1 == b.Depth:
			previousRound++
		case parent.Depth >= b.Depth:
			return false
		}
	}
	return len(creators) == len(b.Pointers) && previousRound > d.superMajority
}

// Enqueue places a syntactically correct block into the admission
// buffer. Incorrect blocks are silently dropped.
func (d *DAG) Enqueue(b *block.Block) bool {
	if !d.Correct(b) {
		if d.metrics != nil {
			d.metrics.BlocksDropped.Inc()
		}
		return false
	}
	if d.Contains(b.ID) {
		return false
	}
	d.buffer[b.ID] = b
	if d.metrics != nil {
		d.metrics.BufferSize.Set(float64(len(d.buffer)))
	}
	return true
}

// Drain runs admission passes until a pass makes no progress: every
// buffered block whose parents are all admitted and that passes the
// cordial gate is accepted, and the orderer runs after each accept.
// Blocks still missing dependencies stay buffered; entries trailing
// too far below the completed round are evicted.
func (d *DAG) Drain() {
	for {
		ready := d.bufferedInOrder()
		progress := false
		for _, b := range ready {
			if _, pending := d.buffer[b.ID]; !pending {
				continue
			}
			if !d.parentsPresent(b) || !d.Cordial(b) {
				continue
			}
			delete(d.buffer, b.ID)
			if d.accept(b) {
				progress = true
				d.Tau()
			}
		}
		if !progress {
			break
		}
	}
	d.evictStale()
	if d.metrics != nil {
		d.metrics.BufferSize.Set(float64(len(d.buffer)))
	}
}

func (d *DAG) parentsPresent(b *block.Block) bool {
	for _, ptr := range b.Pointers {
		if !d.Contains(ptr) {
			return false
		}
	}
	return true
}

// bufferedInOrder snapshots the buffer sorted by depth then id, so
// admission order never depends on map iteration.
func (d *DAG) bufferedInOrder() []*block.Block {
	ready := make([]*block.Block, 0, len(d.buffer))
	for _, b := range d.buffer {
		ready = append(ready, b)
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Depth != ready[j].Depth {
			return ready[i].Depth < ready[j].Depth
		}
		return ready[i].ID.Compare(ready[j].ID) < 0
	})
	return ready
}

func (d *DAG) evictStale() {
	if d.bufferSlack < 0 || len(d.buffer) == 0 {
		return
	}
	horizon := d.CompletedRound() - d.bufferSlack
	for id, b := range d.buffer {
		if b.Depth < horizon {
			delete(d.buffer, id)
			d.log.Debug("evicted stale buffered block",
				log.Stringer("id", id), log.Int("depth", b.Depth))
		}
	}
}

// accept installs an admitted block and maintains the tips and
// equivocators mappings for its creator.
func (d *DAG) accept(b *block.Block) bool {
	if d.Contains(b.ID) {
		return false
	}
	d.blocks[b.ID] = b
	d.indexByDepth(b)

	creator := b.Creator
	if tip, ok := d.tips[creator]; ok {
		if b.PointsTo(tip) {
			d.tips[creator] = b.ID
		} else {
			// Two blocks by one creator, neither extending the
			// other: the creator forked.
			d.equivocators[creator] = map[ids.ID]struct{}{
				tip:  {},
				b.ID: {},
			}
			delete(d.tips, creator)
			d.log.Warn("equivocation detected",
				log.Stringer("creator", creator), log.Stringer("id", b.ID))
			if d.metrics != nil {
				d.metrics.EquivocationsDetected.Inc()
			}
		}
	} else if forks, ok := d.equivocators[creator]; ok {
		for tip := range forks {
			if b.PointsTo(tip) {
				delete(forks, tip)
			}
		}
		forks[b.ID] = struct{}{}
	} else {
		d.tips[creator] = b.ID
	}

	if d.archive != nil {
		if err := d.archive.PutBlock(b); err != nil {
			d.log.Error("archive write failed", log.Err(err))
		}
	}
	if d.metrics != nil {
		d.metrics.BlocksAdmitted.Inc()
	}
	return true
}

func (d *DAG) indexByDepth(b *block.Block) {
	depthIndex, ok := d.byDepth[b.Depth]
	if !ok {
		depthIndex = make(map[ids.NodeID][]ids.ID)
		d.byDepth[b.Depth] = depthIndex
	}
	depthIndex[b.Creator] = append(depthIndex[b.Creator], b.ID)
	ids.Sort(depthIndex[b.Creator])
}
