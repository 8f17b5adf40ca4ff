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

package chain

import (
	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/storage"
)

// ChainSequence is the staged view of the ordered sequence-number index:
// persisted records below persistedLen, appended records in scratch above it.
// Appends always assign the next contiguous sequence number.
type ChainSequence struct {
	store *storage.Store

	persistedLen  uint32
	persistedHead *hash.Hash

	scratch []seqRecord
	// staged completion marks for persisted records, by sequence number
	completed map[uint32]*seqRecord
}

// NewChainSequence loads the persisted index state, verifying sequence
// contiguity. An out-of-order or duplicate sequence number fails with
// ErrIndexCorrupt.
func NewChainSequence(store *storage.Store) (s *ChainSequence, err error) {
	s = &ChainSequence{
		store:     store,
		completed: make(map[uint32]*seqRecord),
	}
	if err = store.View(func(tx *bolt.Tx) (err error) {
		var (
			cursor = tx.Bucket(storage.SequenceBucket).Cursor()
			next   uint32
			last   *seqRecord
		)
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			if storage.ParseSeqKey(key) != next {
				return errors.Wrapf(ErrIndexCorrupt,
					"expecting sequence number %d, got %d", next, storage.ParseSeqKey(key))
			}
			if last, err = decodeSeqRecord(value); err != nil {
				return
			}
			next++
		}
		s.persistedLen = next
		if last != nil {
			var head = last.HeaderAddress
			s.persistedHead = &head
		}
		// the meta root must agree with the last index record
		var root *hash.Hash
		if root, err = storage.ChainHead(tx); err != nil {
			return
		}
		if !root.IsEqual(s.persistedHead) {
			return errors.Wrapf(ErrIndexCorrupt,
				"chain root %v does not match last index record %v", root, s.persistedHead)
		}
		return
	}); err != nil {
		s = nil
	}
	return
}

// Append assigns the next contiguous sequence number to a header address and
// returns it.
func (s *ChainSequence) Append(addr hash.Hash) (seq uint32) {
	seq = s.Len()
	s.scratch = append(s.scratch, seqRecord{HeaderAddress: addr})
	return
}

// Get returns the header address at a sequence number, or nil when the index
// has no such number.
func (s *ChainSequence) Get(i uint32) (addr *hash.Hash, err error) {
	if i >= s.persistedLen {
		if idx := i - s.persistedLen; idx < uint32(len(s.scratch)) {
			var a = s.scratch[idx].HeaderAddress
			addr = &a
		}
		return
	}
	err = s.store.View(func(tx *bolt.Tx) (err error) {
		value := tx.Bucket(storage.SequenceBucket).Get(storage.SeqKey(i))
		if value == nil {
			return
		}
		var rec *seqRecord
		if rec, err = decodeSeqRecord(value); err != nil {
			return
		}
		var a = rec.HeaderAddress
		addr = &a
		return
	})
	return
}

// ChainHead returns the address of the most recently appended header,
// staged or persisted, or nil for an empty chain.
func (s *ChainSequence) ChainHead() *hash.Hash {
	if n := len(s.scratch); n > 0 {
		var head = s.scratch[n-1].HeaderAddress
		return &head
	}
	return s.persistedHead
}

// PersistedRoot returns the chain root as persisted when this sequence view
// was constructed, ignoring staged appends.
func (s *ChainSequence) PersistedRoot() *hash.Hash {
	return s.persistedHead
}

// PersistedLen returns the persisted chain length, ignoring staged appends.
func (s *ChainSequence) PersistedLen() uint32 {
	return s.persistedLen
}

// Len returns the chain length including staged appends.
func (s *ChainSequence) Len() uint32 {
	return s.persistedLen + uint32(len(s.scratch))
}

// CompleteDHTOp stages the completion mark for a sequence number whose
// derived DHT operations have all been handled.
func (s *ChainSequence) CompleteDHTOp(i uint32) (err error) {
	if i >= s.persistedLen {
		idx := i - s.persistedLen
		if idx >= uint32(len(s.scratch)) {
			return errors.Wrapf(ErrIndexCorrupt, "no sequence record %d to complete", i)
		}
		s.scratch[idx].OpsComplete = true
		return
	}
	if _, ok := s.completed[i]; ok {
		return
	}
	err = s.store.View(func(tx *bolt.Tx) (err error) {
		value := tx.Bucket(storage.SequenceBucket).Get(storage.SeqKey(i))
		if value == nil {
			return errors.Wrapf(ErrIndexCorrupt, "no sequence record %d to complete", i)
		}
		var rec *seqRecord
		if rec, err = decodeSeqRecord(value); err != nil {
			return
		}
		rec.OpsComplete = true
		s.completed[i] = rec
		return
	})
	return
}

// IterIncomplete returns every (sequence number, header address) pair whose
// derived DHT operations are not yet marked complete, in ascending order.
func (s *ChainSequence) IterIncomplete() (items []SeqItem, err error) {
	err = s.store.View(func(tx *bolt.Tx) (err error) {
		cursor := tx.Bucket(storage.SequenceBucket).Cursor()
		for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
			var (
				seq = storage.ParseSeqKey(key)
				rec *seqRecord
			)
			if _, staged := s.completed[seq]; staged {
				continue
			}
			if rec, err = decodeSeqRecord(value); err != nil {
				return
			}
			if rec.OpsComplete {
				continue
			}
			items = append(items, SeqItem{Seq: seq, HeaderAddress: rec.HeaderAddress})
		}
		return
	})
	if err != nil {
		items = nil
		return
	}
	for idx, rec := range s.scratch {
		if rec.OpsComplete {
			continue
		}
		items = append(items, SeqItem{
			Seq:           s.persistedLen + uint32(idx),
			HeaderAddress: rec.HeaderAddress,
		})
	}
	return
}

// SeqItem is one sequence index item.
type SeqItem struct {
	Seq           uint32
	HeaderAddress hash.Hash
}

// flushCompleted stages the persisted-record completion marks into a batch.
func (s *ChainSequence) flushCompleted(batch *storage.Batch) (err error) {
	for seq, rec := range s.completed {
		var enc []byte
		if enc, err = encodeSeqRecord(rec); err != nil {
			return
		}
		batch.Put(storage.SequenceBucket, storage.SeqKey(seq), enc)
	}
	return
}
