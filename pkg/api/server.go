// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/log"
	"github.com/luxfi/cordial/pkg/metric"
	"github.com/luxfi/cordial/pkg/miner"
)

// Server is the ingress façade: it translates client payloads and
// peer block batches into driver submissions and never touches core
// state directly.
type Server struct {
	engine  *gin.Engine
	driver  *miner.Driver
	miner   *miner.Miner
	metrics *metric.Metrics
	log     log.Logger
}

// New builds the façade router.
func New(d *miner.Driver, m *miner.Miner, mt *metric.Metrics, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NoOp()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{
		engine:  engine,
		driver:  d,
		miner:   m,
		metrics: mt,
		log:     logger,
	}
	engine.POST("/message", s.handleMessage)
	engine.POST("/blocks", s.handleBlocks)
	engine.GET("/status", s.handleStatus)
	return s
}

// Handler returns the façade as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// handleMessage accepts one arbitrary JSON value as a client payload.
// A body that is not valid JSON enqueues the nil sentinel, which asks
// the miner for a filler block.
func (s *Server) handleMessage(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.count("message", http.StatusInternalServerError)
		c.Status(http.StatusInternalServerError)
		return
	}
	var payload json.RawMessage
	if len(body) > 0 && json.Valid(body) {
		payload = json.RawMessage(body)
	}
	s.driver.SubmitPayload(payload)

	submission := uuid.NewString()
	s.log.Debug("payload submitted", log.String("submission", submission))

	status := s.miner.Status()
	s.count("message", http.StatusOK)
	c.JSON(http.StatusOK, gin.H{
		"submission":   submission,
		"miner":        status.Miner,
		"round":        status.Round,
		"blocks":       status.Blocks,
		"output":       status.Output,
		"equivocators": status.Equivocators,
	})
}

// handleBlocks accepts a JSON array of blocks. Entries that do not
// parse as blocks are dropped; the rest are enqueued.
func (s *Server) handleBlocks(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.count("blocks", http.StatusInternalServerError)
		c.Status(http.StatusInternalServerError)
		return
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		s.count("blocks", http.StatusInternalServerError)
		c.Status(http.StatusInternalServerError)
		return
	}
	accepted := 0
	for _, entry := range raw {
		var b block.Block
		if err := json.Unmarshal(entry, &b); err != nil {
			continue
		}
		s.driver.SubmitBlock(&b)
		accepted++
	}
	s.count("blocks", http.StatusOK)
	c.String(http.StatusOK, "accepted %d blocks", accepted)
}

func (s *Server) handleStatus(c *gin.Context) {
	s.count("status", http.StatusOK)
	c.JSON(http.StatusOK, s.miner.Status())
}

func (s *Server) count(method string, status int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RequestsProcessed.WithLabelValues(method, strconv.Itoa(status)).Inc()
}
