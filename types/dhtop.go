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

package types

import (
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/hash"
)

// DHTOpType identifies the kind of a derived DHT operation.
type DHTOpType int32

// DHT operation kinds.
const (
	DHTOpStoreElement DHTOpType = iota
	DHTOpStoreEntry
	DHTOpRegisterAgentActivity
	DHTOpRegisterUpdatedBy
	DHTOpRegisterDeletedBy
	DHTOpRegisterAddLink
	DHTOpRegisterRemoveLink
)

// String implements fmt.Stringer.
func (t DHTOpType) String() string {
	switch t {
	case DHTOpStoreElement:
		return "StoreElement"
	case DHTOpStoreEntry:
		return "StoreEntry"
	case DHTOpRegisterAgentActivity:
		return "RegisterAgentActivity"
	case DHTOpRegisterUpdatedBy:
		return "RegisterUpdatedBy"
	case DHTOpRegisterDeletedBy:
		return "RegisterDeletedBy"
	case DHTOpRegisterAddLink:
		return "RegisterAddLink"
	case DHTOpRegisterRemoveLink:
		return "RegisterRemoveLink"
	default:
		return "Unknown"
	}
}

// DHTOp is a derived record produced from an element for downstream network
// propagation. Basis is the neighborhood address the operation gossips
// toward.
type DHTOp struct {
	Type          DHTOpType
	HeaderAddress hash.Hash
	EntryHash     *hash.Hash
	Basis         hash.Hash
}

// ProduceOps expands an element into the DHT operations it implies. Private
// entries never produce a StoreEntry op.
func ProduceOps(e *Element) (ops []DHTOp, err error) {
	var (
		header = e.Header()
		addr   = e.HeaderAddress()
	)
	ops = append(ops, DHTOp{
		Type:          DHTOpStoreElement,
		HeaderAddress: addr,
		Basis:         addr,
	})
	ops = append(ops, DHTOp{
		Type:          DHTOpRegisterAgentActivity,
		HeaderAddress: addr,
		Basis:         hash.THashH([]byte(header.Author)),
	})
	switch header.Type {
	case HeaderTypeCreate, HeaderTypeUpdate:
		if header.EntryHash == nil {
			err = errors.Wrapf(ErrHeaderEntryMismatch,
				"%s header at %s has no entry hash", header.Type, addr.Short(4))
			return
		}
		if e.Entry == nil || e.Entry.Visibility == EntryVisibilityPublic {
			ops = append(ops, DHTOp{
				Type:          DHTOpStoreEntry,
				HeaderAddress: addr,
				EntryHash:     header.EntryHash,
				Basis:         *header.EntryHash,
			})
		}
		if header.Type == HeaderTypeUpdate {
			if header.OriginalHeader == nil {
				err = errors.Wrapf(ErrHeaderEntryMismatch,
					"Update header at %s has no original header", addr.Short(4))
				return
			}
			ops = append(ops, DHTOp{
				Type:          DHTOpRegisterUpdatedBy,
				HeaderAddress: addr,
				Basis:         *header.OriginalHeader,
			})
		}
	case HeaderTypeDelete:
		if header.OriginalHeader == nil {
			err = errors.Wrapf(ErrHeaderEntryMismatch,
				"Delete header at %s has no original header", addr.Short(4))
			return
		}
		ops = append(ops, DHTOp{
			Type:          DHTOpRegisterDeletedBy,
			HeaderAddress: addr,
			Basis:         *header.OriginalHeader,
		})
	case HeaderTypeCreateLink:
		if header.BaseAddress == nil {
			err = errors.Wrapf(ErrHeaderEntryMismatch,
				"CreateLink header at %s has no base address", addr.Short(4))
			return
		}
		ops = append(ops, DHTOp{
			Type:          DHTOpRegisterAddLink,
			HeaderAddress: addr,
			Basis:         *header.BaseAddress,
		})
	case HeaderTypeDeleteLink:
		if header.LinkAddAddress == nil {
			err = errors.Wrapf(ErrHeaderEntryMismatch,
				"DeleteLink header at %s has no link-add address", addr.Short(4))
			return
		}
		ops = append(ops, DHTOp{
			Type:          DHTOpRegisterRemoveLink,
			HeaderAddress: addr,
			Basis:         *header.LinkAddAddress,
		})
	}
	return
}
