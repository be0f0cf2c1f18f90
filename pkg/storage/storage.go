// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"encoding/binary"
	"encoding/json"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"

	"github.com/luxfi/cordial/pkg/block"
	"github.com/luxfi/cordial/pkg/ids"
)

var (
	blockPrefix   = []byte("block/")
	orderedPrefix = []byte("ordered/")
)

// Storage is the write-through block archive over luxfi/database.
// Admitted blocks are stored in wire format under their id, and the
// total order is kept as an append-only index → id log. Nothing is
// read back on startup; the archive exists for operators, not for
// recovery.
type Storage struct {
	db database.Database
}

// New creates a new storage instance using luxfi/database
func New(dbType string, path string) (*Storage, error) {
	var db database.Database
	var err error

	switch dbType {
	case "memory":
		db = memdb.New()
	case "badger":
		db, err = badgerdb.New(path, nil, "", nil)
		if err != nil {
			return nil, err
		}
	default:
		db = memdb.New()
	}

	return &Storage{db: db}, nil
}

// NewMemory returns a memory-backed archive.
func NewMemory() *Storage {
	return &Storage{db: memdb.New()}
}

// PutBlock stores an admitted block in wire format under its id.
func (s *Storage) PutBlock(b *block.Block) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.db.Put(blockKey(b.ID), data)
}

// GetBlock retrieves a stored block by id.
func (s *Storage) GetBlock(id ids.ID) (*block.Block, error) {
	data, err := s.db.Get(blockKey(id))
	if err != nil {
		return nil, err
	}
	var b block.Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// HasBlock checks whether a block id has been archived.
func (s *Storage) HasBlock(id ids.ID) (bool, error) {
	return s.db.Has(blockKey(id))
}

// PutOrdered appends one emission to the total-order log.
func (s *Storage) PutOrdered(index uint64, id ids.ID) error {
	return s.db.Put(orderedKey(index), id.Bytes())
}

// OrderedIDs replays the archived total order from the log.
func (s *Storage) OrderedIDs() ([]ids.ID, error) {
	iter := s.db.NewIteratorWithPrefix(orderedPrefix)
	defer iter.Release()

	var order []ids.ID
	for iter.Next() {
		id, err := ids.FromBytes(iter.Value())
		if err != nil {
			return nil, err
		}
		order = append(order, id)
	}
	return order, iter.Error()
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

func blockKey(id ids.ID) []byte {
	return append(append([]byte{}, blockPrefix...), id.Bytes()...)
}

func orderedKey(index uint64) []byte {
	key := make([]byte, len(orderedPrefix)+8)
	copy(key, orderedPrefix)
	binary.BigEndian.PutUint64(key[len(orderedPrefix):], index)
	return key
}
