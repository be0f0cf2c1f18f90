// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/metric"
)

// DefaultTimeout bounds one peer POST. A failed delivery is logged
// and forgotten; gossip heals it in later rounds.
const DefaultTimeout = 10 * time.Second

// HTTP posts authored blocks to every peer's /blocks endpoint. Each
// participant id doubles as its port on the shared host.
type HTTP struct {
	host    string
	client  *http.Client
	metrics *metric.Metrics
	log     log.Logger
}

// NewHTTP creates a peer broadcaster.
func NewHTTP(host string, timeout time.Duration, m *metric.Metrics, logger log.Logger) *HTTP {
	if host == "" {
		host = "localhost"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.NoOp()
	}
	return &HTTP{
		host:    host,
		client:  &http.Client{Timeout: timeout},
		metrics: m,
		log:     logger,
	}
}

// Broadcast fans the blocks out to all peers in parallel and returns
// once every delivery has finished or failed.
func (t *HTTP) Broadcast(ctx context.Context, peers []ids.NodeID, blocks []*block.Block) {
	payload, err := json.Marshal(blocks)
	if err != nil {
		t.log.Error("block serialization failed", log.Err(err))
		return
	}
	start := time.Now()
	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer ids.NodeID) {
			defer wg.Done()
			if err := t.post(ctx, peer, payload); err != nil {
				t.log.Warn("broadcast failed",
					log.Stringer("peer", peer), log.Err(err))
				if t.metrics != nil {
					t.metrics.BroadcastFailures.Inc()
				}
			}
		}(peer)
	}
	wg.Wait()
	if t.metrics != nil {
		t.metrics.BroadcastLatency.Observe(time.Since(start).Seconds())
	}
}

func (t *HTTP) post(ctx context.Context, peer ids.NodeID, payload []byte) error {
	url := fmt.Sprintf("http://%s:%d/blocks", t.host, peer)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %d: %s", peer, resp.Status)
	}
	return nil
}
