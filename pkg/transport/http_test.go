// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
)

func TestBroadcastPostsToPeerPort(t *testing.T) {
	require := require.New(t)

	var mu sync.Mutex
	var received []*block.Block
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal("/blocks", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(err)
		var batch []*block.Block
		require.NoError(json.Unmarshal(body, &batch))
		mu.Lock()
		received = append(received, batch...)
		mu.Unlock()
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(err)
	port, err := strconv.Atoi(portStr)
	require.NoError(err)

	b, err := block.New(0, 0, nil, nil)
	require.NoError(err)

	tr := NewHTTP(host, time.Second, nil, log.NoOp())
	tr.Broadcast(context.Background(), []ids.NodeID{ids.NodeID(port)}, []*block.Block{b})

	mu.Lock()
	defer mu.Unlock()
	require.Len(received, 1)
	require.Equal(b.ID, received[0].ID)
	require.True(received[0].VerifyID())
}

func TestBroadcastSurvivesDeadPeer(t *testing.T) {
	// nobody listens on the peer port; Broadcast must return anyway
	b, err := block.New(0, 0, nil, nil)
	require.NoError(t, err)

	tr := NewHTTP("127.0.0.1", 200*time.Millisecond, nil, log.NoOp())
	done := make(chan struct{})
	go func() {
		tr.Broadcast(context.Background(), []ids.NodeID{1}, []*block.Block{b})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast hung on dead peer")
	}
}
