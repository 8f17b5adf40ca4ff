/*
 * Copyright 2022 The AgentChain Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage wraps the bolt database holding one agent's source chain:
// content-addressed element buckets, the sequence index, and the chain meta
// record. Readers are freely concurrent; the single write handle must be
// checked out by exactly one owner.
package storage

import (
	"encoding/binary"

	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/hash"
)

// Bucket layout.
var (
	HeadersBucket  = []byte("agentchain-headers")
	EntriesBucket  = []byte("agentchain-entries")
	SequenceBucket = []byte("agentchain-sequence")
	MetaBucket     = []byte("agentchain-meta")

	metaChainHeadKey = []byte("agentchain-chain-head")
)

// Store is the durable keyed storage for one source chain.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) a chain database at path.
func Open(path string) (s *Store, err error) {
	var db *bolt.DB
	if db, err = bolt.Open(path, 0600, nil); err != nil {
		err = errors.Wrapf(err, "open chain database %s", path)
		return
	}
	if err = db.Update(func(tx *bolt.Tx) (err error) {
		for _, name := range [][]byte{
			HeadersBucket, EntriesBucket, SequenceBucket, MetaBucket,
		} {
			if _, err = tx.CreateBucketIfNotExists(name); err != nil {
				return
			}
		}
		return
	}); err != nil {
		db.Close()
		err = errors.Wrap(err, "initialize chain buckets")
		return
	}
	s = &Store{db: db}
	return
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// View runs fn in a read-only transaction. Any number of Views may run
// concurrently with each other and with the writer.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// WriteHandle returns the exclusive write side of the store.
//
// It is a bug to check out more than one write handle per chain; the chain
// root gatekeeper is the sole intended owner.
func (s *Store) WriteHandle() *WriteHandle {
	return &WriteHandle{db: s.db}
}

// WriteHandle is the exclusive write side of a Store.
type WriteHandle struct {
	db *bolt.DB
}

// Update runs fn in the single read-write transaction.
func (w *WriteHandle) Update(fn func(tx *bolt.Tx) error) error {
	return w.db.Update(fn)
}

// SeqKey encodes a sequence number as a big-endian sortable key.
func SeqKey(i uint32) []byte {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], i)
	return key[:]
}

// ParseSeqKey decodes a sequence key.
func ParseSeqKey(key []byte) uint32 {
	return binary.BigEndian.Uint32(key)
}

// ChainHead reads the authoritative chain root address within tx. Returns
// nil for an empty chain.
func ChainHead(tx *bolt.Tx) (head *hash.Hash, err error) {
	raw := tx.Bucket(MetaBucket).Get(metaChainHeadKey)
	if raw == nil {
		return
	}
	return hash.NewHash(raw)
}

// PutChainHead writes the authoritative chain root address within tx.
func PutChainHead(tx *bolt.Tx, head hash.Hash) error {
	return tx.Bucket(MetaBucket).Put(metaChainHeadKey, head.CloneBytes())
}

// ChainLen returns the persisted chain length within tx, derived from the
// last key of the sequence index.
func ChainLen(tx *bolt.Tx) uint32 {
	cursor := tx.Bucket(SequenceBucket).Cursor()
	key, _ := cursor.Last()
	if key == nil {
		return 0
	}
	return ParseSeqKey(key) + 1
}
