// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/blocklace"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/metric"
)

// Broadcaster ships freshly authored blocks to the other miners.
// Implementations may fan out in parallel but must return before the
// core mutates further state.
type Broadcaster interface {
	Broadcast(ctx context.Context, peers []ids.NodeID, blocks []*block.Block)
}

// Emitter receives each ordered payload exactly once, in the total
// order the blocklace dictates.
type Emitter func(creator ids.NodeID, payload json.RawMessage)

// Config assembles a miner.
type Config struct {
	Everyone    []ids.NodeID
	Me          ids.NodeID
	Wavelength  int
	BufferSlack int
	Strategy    blocklace.Strategy
	Broadcaster Broadcaster
	Emitter     Emitter
	Archive     blocklace.Archive
	Metrics     *metric.Metrics
	Log         log.Logger
}

// Status is the diagnostic snapshot served by the façade.
type Status struct {
	Miner        ids.NodeID              `json:"miner"`
	Round        int                     `json:"round"`
	Blocks       int                     `json:"blocks"`
	Output       int                     `json:"output"`
	Equivocators map[ids.NodeID][]ids.ID `json:"equivocators"`
}

// Miner is one participant's state machine: it owns the blocklace,
// aggregates pending payloads, decides when to author, and
// self-admits what it authors. All methods except Status must be
// called from a single goroutine (the Driver).
type Miner struct {
	me     ids.NodeID
	others []ids.NodeID
	dag    *blocklace.DAG

	round    int
	messages []json.RawMessage

	broadcaster Broadcaster
	metrics     *metric.Metrics
	log         log.Logger

	statusMu sync.RWMutex
	status   Status
}

// New creates a miner and its empty blocklace.
func New(cfg Config) *Miner {
	logger := cfg.Log
	if logger == nil {
		logger = log.NoOp()
	}
	dag := blocklace.New(blocklace.Params{
		Everyone:    cfg.Everyone,
		Wavelength:  cfg.Wavelength,
		BufferSlack: cfg.BufferSlack,
		Strategy:    cfg.Strategy,
	}, logger)
	dag.SetMetrics(cfg.Metrics)
	dag.SetArchive(cfg.Archive)

	m := &Miner{
		me:          cfg.Me,
		dag:         dag,
		round:       -1,
		broadcaster: cfg.Broadcaster,
		metrics:     cfg.Metrics,
		log:         logger,
	}
	for _, p := range dag.Everyone() {
		if p != cfg.Me {
			m.others = append(m.others, p)
		}
	}
	emitter := cfg.Emitter
	dag.SetEmitter(func(b *block.Block) {
		if emitter == nil {
			return
		}
		for _, payload := range b.Payload {
			emitter(b.Creator, payload)
		}
	})
	m.updateStatus()
	return m
}

// ID returns the local participant id.
func (m *Miner) ID() ids.NodeID { return m.me }

// DAG exposes the underlying blocklace. Driver goroutine only.
func (m *Miner) DAG() *blocklace.DAG { return m.dag }

// Round returns the current authoring depth. Driver goroutine only.
func (m *Miner) Round() int { return m.round }

// Status returns the latest diagnostic snapshot. Safe for concurrent
// readers.
func (m *Miner) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// Receive takes one client payload (nil requests a filler block) and
// authors the next block when the completed round has caught up with
// the local round.
func (m *Miner) Receive(ctx context.Context, payload json.RawMessage) {
	if payload != nil {
		m.messages = append(m.messages, payload)
	}
	if m.metrics != nil {
		m.metrics.PayloadsPending.Set(float64(len(m.messages)))
	}
	completed := m.dag.CompletedRound()
	if completed >= m.round {
		if m.round < completed {
			m.round = completed
		} else {
			m.round = completed + 1
		}
		m.author(ctx)
	}
	m.updateStatus()
}

// ReceiveBlock admits one peer block through the buffer, then, if
// payloads are still pending, runs Receive's authoring check: a block
// is authored only once the completed round has caught up with the
// local round.
func (m *Miner) ReceiveBlock(ctx context.Context, b *block.Block) {
	m.dag.Enqueue(b)
	m.dag.Drain()
	if len(m.messages) > 0 {
		m.Receive(ctx, nil)
		return
	}
	m.updateStatus()
}

// author creates a block at the current round from the pending
// payloads, broadcasts it, and self-admits it through the buffer.
func (m *Miner) author(ctx context.Context) {
	b, err := m.createBlock()
	if err != nil {
		m.log.Error("block creation failed", log.Err(err))
		return
	}
	m.messages = nil
	m.log.Debug("created block",
		log.Stringer("id", b.ID),
		log.Int("depth", b.Depth),
		log.Int("payloads", len(b.Payload)))
	if m.metrics != nil {
		m.metrics.BlocksCreated.Inc()
		m.metrics.PayloadsPending.Set(0)
	}
	if m.broadcaster != nil {
		m.broadcaster.Broadcast(ctx, m.others, []*block.Block{b})
	}
	m.dag.Enqueue(b)
	m.dag.Drain()
}

// createBlock points the new block at the tip of every
// non-equivocating creator, each reduced along its own chain to its
// deepest block below the new depth.
func (m *Miner) createBlock() (*block.Block, error) {
	tips := m.dag.Tips()
	creators := make([]ids.NodeID, 0, len(tips))
	for creator := range tips {
		creators = append(creators, creator)
	}
	sort.Slice(creators, func(i, j int) bool { return creators[i] < creators[j] })

	pointers := make([]ids.ID, 0, len(creators))
	for _, creator := range creators {
		if reduced, ok := m.reduceTip(tips[creator]); ok {
			pointers = append(pointers, reduced)
		}
	}
	return block.New(m.me, m.round, m.messages, pointers)
}

// reduceTip walks the creator's own chain down from tip until the
// depth falls below the authoring round.
func (m *Miner) reduceTip(tip ids.ID) (ids.ID, bool) {
	current := tip
	for {
		b, ok := m.dag.Get(current)
		if !ok {
			return ids.Empty, false
		}
		if b.Depth < m.round {
			return current, true
		}
		next, ok := m.sameCreatorParent(b)
		if !ok {
			return ids.Empty, false
		}
		current = next
	}
}

func (m *Miner) sameCreatorParent(b *block.Block) (ids.ID, bool) {
	for _, ptr := range b.Pointers {
		if parent, ok := m.dag.Get(ptr); ok && parent.Creator == b.Creator {
			return ptr, true
		}
	}
	return ids.Empty, false
}

func (m *Miner) updateStatus() {
	completed := m.dag.CompletedRound()
	if m.metrics != nil {
		m.metrics.CurrentRound.Set(float64(m.round))
		m.metrics.CompletedRound.Set(float64(completed))
	}
	m.statusMu.Lock()
	m.status = Status{
		Miner:        m.me,
		Round:        m.round,
		Blocks:       m.dag.Len(),
		Output:       m.dag.OutputLen(),
		Equivocators: m.dag.Equivocators(),
	}
	m.statusMu.Unlock()
}
