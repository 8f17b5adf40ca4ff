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
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/asymmetric"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/proto"
	"github.com/agentchain/agentchain/storage"
	"github.com/agentchain/agentchain/types"
	"github.com/agentchain/agentchain/utils/log"
)

// SourceChainBuf is the write-side staging area of one agent's source chain,
// composing the staged element store and sequence index. All appends stay in
// memory until the buffer is flushed into a prepared write and committed
// through the chain root gatekeeper.
type SourceChainBuf struct {
	elements *ElementBuf
	sequence *ChainSequence
	keystore kms.Keystore
}

// NewSourceChainBuf returns a staged view over a chain store, including
// private entries.
func NewSourceChainBuf(store *storage.Store, ks kms.Keystore) (buf *SourceChainBuf, err error) {
	return newSourceChainBuf(store, ks, false)
}

// PublicOnly returns a staged view over a chain store which withholds
// private entries.
func PublicOnly(store *storage.Store, ks kms.Keystore) (buf *SourceChainBuf, err error) {
	return newSourceChainBuf(store, ks, true)
}

func newSourceChainBuf(store *storage.Store, ks kms.Keystore, publicOnly bool) (
	buf *SourceChainBuf, err error,
) {
	var sequence *ChainSequence
	if sequence, err = NewChainSequence(store); err != nil {
		return
	}
	buf = &SourceChainBuf{
		elements: NewElementBuf(store, publicOnly),
		sequence: sequence,
		keystore: ks,
	}
	return
}

// ChainHead returns the address of the most recently appended header, staged
// or persisted, or nil for an empty chain.
func (buf *SourceChainBuf) ChainHead() *hash.Hash {
	return buf.sequence.ChainHead()
}

// PersistedRoot returns the chain root as persisted when this buffer was
// constructed; it is the root the buffer's staged writes were computed
// against.
func (buf *SourceChainBuf) PersistedRoot() *hash.Hash {
	return buf.sequence.PersistedRoot()
}

// Len returns the chain length including staged appends.
func (buf *SourceChainBuf) Len() uint32 {
	return buf.sequence.Len()
}

// IsEmpty returns true if the chain has no elements.
func (buf *SourceChainBuf) IsEmpty() bool {
	return buf.Len() == 0
}

// HasGenesis returns whether the chain carries its genesis elements.
//
// This is a fast length-only approximation: it does not verify the
// structural shape of the first three elements.
func (buf *SourceChainBuf) HasGenesis() bool {
	return buf.Len() >= 3
}

// HasInitialized returns whether the chain has any element beyond genesis.
//
// Like HasGenesis this is a fast length-only approximation.
func (buf *SourceChainBuf) HasInitialized() bool {
	return buf.Len() > 3
}

// GetAtIndex returns the element at a sequence number, or nil when the index
// has no such number.
func (buf *SourceChainBuf) GetAtIndex(i uint32) (element *types.Element, err error) {
	var addr *hash.Hash
	if addr, err = buf.sequence.Get(i); err != nil || addr == nil {
		return
	}
	return buf.GetElement(*addr)
}

// GetElement returns the full element at a header address, or nil when
// absent.
func (buf *SourceChainBuf) GetElement(addr hash.Hash) (*types.Element, error) {
	return buf.elements.GetElement(addr)
}

// GetHeader returns the signed header at an address, or nil when absent.
func (buf *SourceChainBuf) GetHeader(addr hash.Hash) (*types.SignedHeader, error) {
	return buf.elements.GetHeader(addr)
}

// GetEntry returns the entry at a content address, or nil when absent.
func (buf *SourceChainBuf) GetEntry(entryHash hash.Hash) (*types.Entry, error) {
	return buf.elements.GetEntry(entryHash)
}

// AgentKey returns the public key committed in the agent-identity genesis
// element. Returns nil if the chain is not initialized.
func (buf *SourceChainBuf) AgentKey() (pub *asymmetric.PublicKey, err error) {
	var element *types.Element
	if element, err = buf.GetAtIndex(2); err != nil || element == nil {
		return
	}
	if element.Entry == nil {
		err = errors.Wrap(types.ErrGenesisDataMissing, "agent element has no entry")
		return
	}
	return element.Entry.AgentKey()
}

// PutRaw stages an element from a fully formed header and optional entry:
// computes content hashes, signs the header through the keystore, appends to
// the sequence index and writes the element. Returns the header address.
func (buf *SourceChainBuf) PutRaw(header types.Header, entry *types.Entry) (
	addr hash.Hash, err error,
) {
	if entry != nil && header.EntryHash == nil {
		var entryHash hash.Hash
		if entryHash, err = entry.ComputeHash(); err != nil {
			return
		}
		header.EntryHash = &entryHash
	}
	if err = header.CheckEntry(entry); err != nil {
		return
	}
	sh := &types.SignedHeader{Header: header}
	if err = sh.SignWith(buf.keystore); err != nil {
		return
	}
	addr = sh.HeaderAddress()
	seq := buf.sequence.Append(addr)
	if seq != header.Seq {
		log.WithFields(log.Fields{
			"assigned": seq,
			"declared": header.Seq,
		}).Debug("header sequence number differs from assigned index")
	}
	err = buf.elements.Put(sh, entry)
	return
}

// Genesis commits the three genesis elements to an empty chain, making it
// ready to use: the space-origin header, the agent validation package with
// an optional membrane proof, and the agent-identity entry carrying the
// author's public key.
func (buf *SourceChainBuf) Genesis(
	spaceHash hash.Hash, author proto.AgentID, membraneProof []byte,
) (err error) {
	if !buf.IsEmpty() {
		return errors.Wrapf(ErrChainNotEmpty, "chain has %d elements", buf.Len())
	}

	var pub *asymmetric.PublicKey
	if pub, err = buf.keystore.PublicKey(author); err != nil {
		return
	}

	ts := genesisTimestamps(time.Now().UTC())

	var space = spaceHash
	dnaAddr, err := buf.PutRaw(types.Header{
		Type:      types.HeaderTypeDna,
		Author:    author,
		Timestamp: ts[0],
		Seq:       0,
		SpaceHash: &space,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "append space origin header")
	}

	pkgAddr, err := buf.PutRaw(types.Header{
		Type:          types.HeaderTypeAgentValidationPkg,
		Author:        author,
		Timestamp:     ts[1],
		Seq:           1,
		PrevHeader:    &dnaAddr,
		MembraneProof: membraneProof,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "append agent validation package")
	}

	agentEntry := types.NewAgentEntry(pub)
	if _, err = buf.PutRaw(types.Header{
		Type:       types.HeaderTypeCreate,
		Author:     author,
		Timestamp:  ts[2],
		Seq:        2,
		PrevHeader: &pkgAddr,
		EntryType:  types.EntryTypeAgent,
	}, agentEntry); err != nil {
		return errors.Wrap(err, "append agent identity")
	}
	return
}

// genesisTimestamps yields three strictly increasing timestamps from a base.
func genesisTimestamps(base time.Time) [3]time.Time {
	return [3]time.Time{
		base,
		base.Add(time.Microsecond),
		base.Add(2 * time.Microsecond),
	}
}

// SeqOps pairs a sequence number with the DHT operations derived from its
// element.
type SeqOps struct {
	Seq uint32
	Ops []types.DHTOp
}

// GetIncompleteDHTOps expands every element whose derived DHT operations are
// not yet marked complete, keyed by sequence number for later completion
// marking.
func (buf *SourceChainBuf) GetIncompleteDHTOps() (ops []SeqOps, err error) {
	var items []SeqItem
	if items, err = buf.sequence.IterIncomplete(); err != nil {
		return
	}
	for _, item := range items {
		var element *types.Element
		if element, err = buf.GetElement(item.HeaderAddress); err != nil {
			return
		}
		if element == nil {
			err = errors.Wrapf(ErrElementMissing,
				"sequence %d references %s", item.Seq, item.HeaderAddress.Short(4))
			return
		}
		var produced []types.DHTOp
		if produced, err = types.ProduceOps(element); err != nil {
			return
		}
		ops = append(ops, SeqOps{Seq: item.Seq, Ops: produced})
	}
	return
}

// CompleteDHTOp stages the completion mark for a sequence number.
func (buf *SourceChainBuf) CompleteDHTOp(i uint32) error {
	return buf.sequence.CompleteDHTOp(i)
}

// IterBack returns a backward iterator from the chain head to the origin
// header. The iterator is not restartable; construct a fresh one to iterate
// again.
func (buf *SourceChainBuf) IterBack() *BackwardIterator {
	return NewBackwardIterator(buf)
}

// DumpAsJSON renders the full chain, newest first, as a pretty-printed JSON
// array for diagnostics. A missing element renders as null, signaling
// storage inconsistency without failing the dump.
func (buf *SourceChainBuf) DumpAsJSON() (s string, err error) {
	type jsonElement struct {
		HeaderAddress hash.Hash     `json:"header_address"`
		Header        *types.Header `json:"header"`
		Entry         *types.Entry  `json:"entry"`
		Signature     []byte        `json:"signature"`
	}

	var (
		iter = buf.IterBack()
		out  = []*jsonElement{}
		sh   *types.SignedHeader
	)
	for {
		if sh, err = iter.Next(); err != nil {
			return
		}
		if sh == nil {
			break
		}
		var element *types.Element
		if element, err = buf.GetElement(sh.HeaderAddress()); err != nil {
			if errors.Cause(err) != ErrPrivateEntry {
				return
			}
			// withheld entries render as headers with a null entry
			err = nil
			element = &types.Element{SignedHeader: sh}
		}
		if element == nil {
			out = append(out, nil)
			continue
		}
		item := &jsonElement{
			HeaderAddress: element.HeaderAddress(),
			Header:        element.Header(),
			Entry:         element.Entry,
		}
		if element.SignedHeader.HSV.Signature != nil {
			item.Signature = element.SignedHeader.HSV.Signature.Serialize()
		}
		out = append(out, item)
	}

	var enc []byte
	if enc, err = json.MarshalIndent(out, "", "  "); err != nil {
		err = errors.Wrap(err, "render chain dump")
		return
	}
	s = string(enc)
	return
}

// Flush collects the staged state into a prepared write for the gatekeeper.
// The buffer keeps its scratch; discard the whole buffer to abort instead.
func (buf *SourceChainBuf) Flush() (pw *PreparedWrite, err error) {
	pw = &PreparedWrite{
		FirstSeq: buf.sequence.PersistedLen(),
		NewHead:  buf.sequence.ChainHead(),
		seq:      append([]seqRecord(nil), buf.sequence.scratch...),
	}
	for _, rec := range buf.sequence.scratch {
		var sh = buf.elements.headers[rec.HeaderAddress]
		if sh == nil {
			err = errors.Wrapf(ErrElementMissing,
				"staged sequence record %s has no staged header", rec.HeaderAddress.Short(4))
			pw = nil
			return
		}
		element := &types.Element{SignedHeader: sh}
		if sh.Type.HasEntry() && sh.EntryHash != nil {
			element.Entry = buf.elements.entries[*sh.EntryHash]
		}
		pw.Elements = append(pw.Elements, element)
	}
	if err = buf.sequence.flushCompleted(&pw.Extra); err != nil {
		pw = nil
	}
	return
}
