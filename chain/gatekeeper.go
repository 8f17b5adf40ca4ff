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
	"context"
	"fmt"
	"sync"

	bolt "github.com/coreos/bbolt"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/storage"
	"github.com/agentchain/agentchain/types"
	"github.com/agentchain/agentchain/utils/log"
)

// PreparedWrite is one staged chain transaction: the new elements in
// ascending sequence order plus any extra keyed puts flushed alongside them.
type PreparedWrite struct {
	Elements []*types.Element
	FirstSeq uint32
	NewHead  *hash.Hash
	Extra    storage.Batch

	// staged sequence records parallel to Elements; carries completion
	// marks placed on not-yet-persisted sequence numbers
	seq []seqRecord
}

// Strategy selects how gatekeeper calls are serialized.
type Strategy int

// Gatekeeper strategies. Both produce identical externally observable
// semantics; the actor form additionally guarantees strict arrival-order
// fairness across competing writers.
const (
	StrategyMutex Strategy = iota
	StrategyActor
)

// ChainRootHandle serializes all durable appends to one source chain's root
// pointer while allowing any number of concurrent readers and speculative
// writers who computed their changes against a possibly stale root.
type ChainRootHandle interface {
	// TryAppendChain commits a prepared write computed against observedRoot.
	// If the authoritative root moved and rebasable is false it fails with
	// ErrHeadMoved, leaving durable state untouched; if rebasable is true
	// the write is rewritten to chain onto the current head first.
	TryAppendChain(ctx context.Context, pw *PreparedWrite,
		observedRoot *hash.Hash, rebasable bool) error
	// Close releases the handle. Appends after Close fail with
	// ErrGatekeeperClosed.
	Close()
}

// NewChainRootHandle creates the handle owning the chain's exclusive write
// side.
//
// It is a bug to create more than one live handle per chain store.
func NewChainRootHandle(store *storage.Store, ks kms.Keystore, strategy Strategy) ChainRootHandle {
	gk := &gatekeeper{
		store:    store,
		write:    store.WriteHandle(),
		keystore: ks,
	}
	if strategy == StrategyActor {
		handle := &actorHandle{
			gk:       gk,
			requests: make(chan *appendRequest),
			quit:     make(chan struct{}),
			stopped:  make(chan struct{}),
		}
		go handle.serve()
		return handle
	}
	return &mutexHandle{gk: gk}
}

// gatekeeper holds the single write handle and runs the check/rebase/apply
// protocol. Callers must serialize gatekeep invocations.
type gatekeeper struct {
	store    *storage.Store
	write    *storage.WriteHandle
	keystore kms.Keystore
}

func (g *gatekeeper) gatekeep(pw *PreparedWrite, asAt *hash.Hash, rebasable bool) (err error) {
	var root *hash.Hash
	if err = g.store.View(func(tx *bolt.Tx) (err error) {
		root, err = storage.ChainHead(tx)
		return
	}); err != nil {
		return
	}

	// check if the transaction has been invalidated
	if !root.IsEqual(asAt) {
		if !rebasable {
			// we can't recover, abort the transaction unmodified
			return errors.WithStack(ErrHeadMoved)
		}
		if pw, err = g.rebase(pw, root); err != nil {
			return
		}
	}

	return g.write.Update(func(tx *bolt.Tx) (err error) {
		// provided that
		// 1. no other instance of gatekeep is running and
		// 2. no other code path mutates the chain root,
		// which both hold unless there is a bug, the root hasn't changed
		// since the check above
		var current *hash.Hash
		if current, err = storage.ChainHead(tx); err != nil {
			return
		}
		if !current.IsEqual(root) {
			panic(fmt.Sprintf(
				"chain root mutated outside the gatekeeper: checked %v, now %v",
				root, current))
		}

		for i, element := range pw.Elements {
			var (
				sh   = element.SignedHeader
				addr = sh.HeaderAddress()
				enc  []byte
			)
			if enc, err = encodeSignedHeader(sh); err != nil {
				return
			}
			if err = tx.Bucket(storage.HeadersBucket).Put(addr.CloneBytes(), enc); err != nil {
				return
			}
			if element.Entry != nil && sh.EntryHash != nil {
				if enc, err = encodeEntry(element.Entry); err != nil {
					return
				}
				if err = tx.Bucket(storage.EntriesBucket).Put(
					sh.EntryHash.CloneBytes(), enc); err != nil {
					return
				}
			}
			rec := seqRecord{HeaderAddress: addr}
			if i < len(pw.seq) {
				rec.OpsComplete = pw.seq[i].OpsComplete
			}
			if enc, err = encodeSeqRecord(&rec); err != nil {
				return
			}
			if err = tx.Bucket(storage.SequenceBucket).Put(
				storage.SeqKey(pw.FirstSeq+uint32(i)), enc); err != nil {
				return
			}
		}
		if err = pw.Extra.Apply(tx); err != nil {
			return
		}
		if pw.NewHead != nil {
			err = storage.PutChainHead(tx, *pw.NewHead)
		}
		return
	})
}

// rebase rewrites a prepared write so that its elements chain onto the
// current authoritative head instead of the stale one. Re-pointing the links
// changes the header bytes, so header addresses and signatures are
// recomputed through the keystore. The input write is never mutated.
func (g *gatekeeper) rebase(pw *PreparedWrite, newRoot *hash.Hash) (
	rebased *PreparedWrite, err error,
) {
	var newLen uint32
	if err = g.store.View(func(tx *bolt.Tx) error {
		newLen = storage.ChainLen(tx)
		return nil
	}); err != nil {
		return
	}

	rebased = &PreparedWrite{
		FirstSeq: newLen,
		NewHead:  newRoot,
		Extra:    pw.Extra,
		seq:      pw.seq,
	}
	prev := newRoot
	for i, element := range pw.Elements {
		header := deepcopy.Copy(element.Header()).(*types.Header)
		header.Seq = newLen + uint32(i)
		header.PrevHeader = prev

		sh := &types.SignedHeader{Header: *header}
		if err = sh.SignWith(g.keystore); err != nil {
			err = errors.Wrapf(err, "re-sign header %d during rebase", header.Seq)
			rebased = nil
			return
		}
		addr := sh.HeaderAddress()
		rebased.Elements = append(rebased.Elements, &types.Element{
			SignedHeader: sh,
			Entry:        element.Entry,
		})
		prev = &addr
	}
	rebased.NewHead = prev

	log.WithFields(log.Fields{
		"elements": len(pw.Elements),
		"old_seq":  pw.FirstSeq,
		"new_seq":  newLen,
	}).Debug("rebased prepared write onto moved chain head")
	return
}

// mutexHandle serializes gatekeep calls behind a mutual exclusion lock.
type mutexHandle struct {
	mu sync.Mutex
	gk *gatekeeper
}

// TryAppendChain implements ChainRootHandle.TryAppendChain.
func (h *mutexHandle) TryAppendChain(ctx context.Context, pw *PreparedWrite,
	observedRoot *hash.Hash, rebasable bool,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gk.gatekeep(pw, observedRoot, rebasable)
}

// Close implements ChainRootHandle.Close.
func (h *mutexHandle) Close() {}

// actorHandle hands requests to a dedicated task owning the write handle,
// processing them strictly one at a time in arrival order.
type actorHandle struct {
	gk        *gatekeeper
	requests  chan *appendRequest
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type appendRequest struct {
	pw        *PreparedWrite
	asAt      *hash.Hash
	rebasable bool
	resp      chan error
}

func (h *actorHandle) serve() {
	defer close(h.stopped)
	for {
		select {
		case <-h.quit:
			return
		case req := <-h.requests:
			req.resp <- h.gk.gatekeep(req.pw, req.asAt, req.rebasable)
		}
	}
}

// TryAppendChain implements ChainRootHandle.TryAppendChain.
func (h *actorHandle) TryAppendChain(ctx context.Context, pw *PreparedWrite,
	observedRoot *hash.Hash, rebasable bool,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := &appendRequest{
		pw:        pw,
		asAt:      observedRoot,
		rebasable: rebasable,
		resp:      make(chan error, 1),
	}
	select {
	case h.requests <- req:
	case <-h.quit:
		return errors.WithStack(ErrGatekeeperClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
	// once enqueued the request runs to completion; the apply step is not
	// cancellable
	return <-req.resp
}

// Close implements ChainRootHandle.Close.
func (h *actorHandle) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
	<-h.stopped
}
