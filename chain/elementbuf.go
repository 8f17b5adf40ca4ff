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
	"github.com/agentchain/agentchain/types"
)

// ElementBuf is the staged view of the content-addressed element store:
// uncommitted headers and entries in scratch maps over the persisted buckets.
type ElementBuf struct {
	store *storage.Store
	// publicOnly views withhold private entries
	publicOnly bool

	headers map[hash.Hash]*types.SignedHeader
	entries map[hash.Hash]*types.Entry
}

// NewElementBuf returns a staged element store view.
func NewElementBuf(store *storage.Store, publicOnly bool) *ElementBuf {
	return &ElementBuf{
		store:      store,
		publicOnly: publicOnly,
		headers:    make(map[hash.Hash]*types.SignedHeader),
		entries:    make(map[hash.Hash]*types.Entry),
	}
}

// Put stages a signed header and its optional entry.
func (e *ElementBuf) Put(sh *types.SignedHeader, entry *types.Entry) (err error) {
	e.headers[sh.HeaderAddress()] = sh
	if entry != nil {
		var entryHash hash.Hash
		if entryHash, err = entry.ComputeHash(); err != nil {
			return
		}
		e.entries[entryHash] = entry
	}
	return
}

// GetHeader returns the signed header at an address, staged or persisted, or
// nil when absent.
func (e *ElementBuf) GetHeader(addr hash.Hash) (sh *types.SignedHeader, err error) {
	if sh = e.headers[addr]; sh != nil {
		return
	}
	err = e.store.View(func(tx *bolt.Tx) (err error) {
		value := tx.Bucket(storage.HeadersBucket).Get(addr.AsBytes())
		if value == nil {
			return
		}
		sh, err = decodeSignedHeader(value)
		return
	})
	return
}

// GetEntry returns the entry at a content address, staged or persisted, or
// nil when absent. Public-only views fail with ErrPrivateEntry for private
// entries.
func (e *ElementBuf) GetEntry(entryHash hash.Hash) (entry *types.Entry, err error) {
	if entry = e.entries[entryHash]; entry == nil {
		if err = e.store.View(func(tx *bolt.Tx) (err error) {
			value := tx.Bucket(storage.EntriesBucket).Get(entryHash.AsBytes())
			if value == nil {
				return
			}
			entry, err = decodeEntry(value)
			return
		}); err != nil {
			return
		}
	}
	if entry != nil && e.publicOnly && entry.Visibility == types.EntryVisibilityPrivate {
		entry = nil
		err = errors.Wrapf(ErrPrivateEntry, "entry %s", entryHash.Short(4))
	}
	return
}

// GetElement returns the full element at a header address, or nil when the
// header is absent.
func (e *ElementBuf) GetElement(addr hash.Hash) (element *types.Element, err error) {
	var sh *types.SignedHeader
	if sh, err = e.GetHeader(addr); err != nil || sh == nil {
		return
	}
	element = &types.Element{SignedHeader: sh}
	if sh.Type.HasEntry() && sh.EntryHash != nil {
		if element.Entry, err = e.GetEntry(*sh.EntryHash); err != nil {
			element = nil
		}
	}
	return
}
