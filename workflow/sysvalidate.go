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

package workflow

import (
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/types"
)

var (
	// ErrPrevHeaderMissing indicates a header whose declared predecessor is
	// not on the chain.
	ErrPrevHeaderMissing = errors.New("previous header not found on chain")
	// ErrBadChainStructure indicates a header violating the chain structure
	// rules: sequence, predecessor linkage, or timestamp ordering.
	ErrBadChainStructure = errors.New("bad chain structure")
	// ErrBadHeaderPayload indicates a header missing the payload fields its
	// kind requires.
	ErrBadHeaderPayload = errors.New("bad header payload")
)

// SysValidateElement runs the deterministic structural checks every element
// must pass before application validation: content address and signature,
// header/entry agreement, payload shape, and linkage to its predecessor on
// the given chain.
func SysValidateElement(buf *chain.SourceChainBuf, element *types.Element) (err error) {
	if err = element.SignedHeader.Verify(); err != nil {
		return
	}
	if err = element.SignedHeader.Header.CheckEntry(element.Entry); err != nil {
		return
	}
	if err = sysValidatePayload(&element.SignedHeader.Header); err != nil {
		return
	}
	return sysValidatePrev(buf, &element.SignedHeader.Header)
}

// sysValidatePayload checks that the kind-specific fields required by the
// header type are present.
func sysValidatePayload(h *types.Header) error {
	switch h.Type {
	case types.HeaderTypeDna:
		if h.SpaceHash == nil {
			return errors.Wrap(ErrBadHeaderPayload, "Dna header missing space hash")
		}
	case types.HeaderTypeCreate, types.HeaderTypeUpdate:
		if h.EntryHash == nil {
			return errors.Wrapf(ErrBadHeaderPayload, "%s header missing entry hash", h.Type)
		}
		if h.Type == types.HeaderTypeUpdate && h.OriginalHeader == nil {
			return errors.Wrap(ErrBadHeaderPayload, "Update header missing original header address")
		}
	case types.HeaderTypeDelete:
		if h.OriginalHeader == nil {
			return errors.Wrap(ErrBadHeaderPayload, "Delete header missing original header address")
		}
	case types.HeaderTypeCreateLink:
		if h.BaseAddress == nil || h.TargetAddress == nil {
			return errors.Wrap(ErrBadHeaderPayload, "CreateLink header missing base or target address")
		}
	case types.HeaderTypeDeleteLink:
		if h.LinkAddAddress == nil {
			return errors.Wrap(ErrBadHeaderPayload, "DeleteLink header missing link-add address")
		}
	}
	return nil
}

// sysValidatePrev checks the linkage of h to its predecessor: the origin
// header is the Dna header with no predecessor, every later header names an
// on-chain predecessor one sequence number back with an earlier timestamp
// and the same author.
func sysValidatePrev(buf *chain.SourceChainBuf, h *types.Header) (err error) {
	if h.Seq == 0 {
		if h.Type != types.HeaderTypeDna {
			return errors.Wrapf(ErrBadChainStructure,
				"chain starts with %s, not Dna", h.Type)
		}
		if h.PrevHeader != nil {
			return errors.Wrap(ErrBadChainStructure, "Dna header has a predecessor")
		}
		return
	}
	if h.Type == types.HeaderTypeDna {
		return errors.Wrapf(ErrBadChainStructure, "Dna header at seq %d", h.Seq)
	}
	if h.PrevHeader == nil {
		return errors.Wrapf(ErrBadChainStructure, "header at seq %d has no predecessor", h.Seq)
	}
	prev, err := buf.GetHeader(*h.PrevHeader)
	if err != nil {
		return
	}
	if prev == nil {
		return errors.Wrapf(ErrPrevHeaderMissing, "predecessor %s", h.PrevHeader.Short(4))
	}
	if prev.Seq != h.Seq-1 {
		return errors.Wrapf(ErrBadChainStructure,
			"header at seq %d follows predecessor at seq %d", h.Seq, prev.Seq)
	}
	if !h.Timestamp.After(prev.Timestamp) {
		return errors.Wrapf(ErrBadChainStructure,
			"timestamp %s does not advance past predecessor %s",
			h.Timestamp, prev.Timestamp)
	}
	if prev.Author != h.Author {
		return errors.Wrapf(ErrBadChainStructure,
			"author changed mid-chain at seq %d", h.Seq)
	}
	return
}
