// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luxfi/cordial/pkg/api"
	"github.com/luxfi/cordial/pkg/blocklace"
	"github.com/luxfi/cordial/pkg/ids"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/metric"
	"github.com/luxfi/cordial/pkg/miner"
	"github.com/luxfi/cordial/pkg/storage"
	"github.com/luxfi/cordial/pkg/transport"
)

var (
	basePort    = flag.Int("base-port", 5000, "First port of the participant range")
	clusterSize = flag.Int("cluster-size", 10, "Number of participants in the range")
	peerHost    = flag.String("peer-host", "localhost", "Host peers are reached on")
	wavelength  = flag.Int("wavelength", blocklace.DefaultWavelength, "Depths per wave")
	bufferSlack = flag.Int("buffer-slack", 3*blocklace.DefaultWavelength, "Depths below the completed round before buffered blocks are evicted (-1 disables)")
	strategy    = flag.String("strategy", "es", "Leader strategy: es (event-scheduled) or async")
	logLevel    = flag.String("log-level", "info", "Log level")
	dbType      = flag.String("db", "memory", "Block archive backend: memory or badger")
	dbPath      = flag.String("db-path", "/tmp/cordiald", "Block archive path for the badger backend")
	adminOffset = flag.Int("admin-offset", 1000, "Admin server listens on port+offset")

	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cordiald [flags] <port>")
		os.Exit(1)
	}
	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid port %q: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}
	if port < *basePort || port >= *basePort+*clusterSize {
		fmt.Fprintf(os.Stderr, "port %d outside participant range [%d, %d)\n",
			port, *basePort, *basePort+*clusterSize)
		os.Exit(1)
	}

	fmt.Printf("cordiald %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)

	logger := log.NewWithLevel(*logLevel)
	defer logger.Sync()

	metrics, err := metric.NewMetrics()
	if err != nil {
		logger.Fatal("metrics init failed", log.Err(err))
	}

	archive, err := storage.New(*dbType, *dbPath)
	if err != nil {
		logger.Fatal("archive init failed", log.Err(err))
	}
	defer archive.Close()

	everyone := make([]ids.NodeID, 0, *clusterSize)
	for p := *basePort; p < *basePort+*clusterSize; p++ {
		everyone = append(everyone, ids.NodeID(p))
	}

	strat := blocklace.EventScheduled
	if *strategy == "async" {
		strat = blocklace.Async
	}

	m := miner.New(miner.Config{
		Everyone:    everyone,
		Me:          ids.NodeID(port),
		Wavelength:  *wavelength,
		BufferSlack: *bufferSlack,
		Strategy:    strat,
		Broadcaster: transport.NewHTTP(*peerHost, transport.DefaultTimeout, metrics, logger),
		Emitter: func(creator ids.NodeID, payload json.RawMessage) {
			logger.Info("ordered payload",
				log.Stringer("creator", creator),
				log.String("payload", string(payload)))
		},
		Archive: archive,
		Metrics: metrics,
		Log:     logger,
	})
	driver := miner.NewDriver(m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go driver.Run(ctx)

	facade := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: api.New(driver, m, metrics, logger).Handler(),
	}
	admin := &http.Server{
		Addr:    fmt.Sprintf(":%d", port+*adminOffset),
		Handler: adminRouter(m, metrics),
	}

	go func() {
		logger.Info("facade listening", log.Int("port", port))
		if err := facade.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("facade server failed", log.Err(err))
		}
	}()
	go func() {
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server failed", log.Err(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := facade.Shutdown(shutdownCtx); err != nil {
		logger.Error("facade shutdown failed", log.Err(err))
	}
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin shutdown failed", log.Err(err))
	}
}

func adminRouter(m *miner.Miner, metrics *metric.Metrics) http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetGatherer(), promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m.Status())
	}).Methods(http.MethodGet)
	return r
}
