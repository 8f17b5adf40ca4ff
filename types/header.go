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
	"time"

	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/crypto/verifier"
	"github.com/agentchain/agentchain/proto"
	"github.com/agentchain/agentchain/utils"
)

// HeaderType is the discriminant identifying the kind of a chain header.
type HeaderType int32

// Header kinds.
const (
	HeaderTypeDna HeaderType = iota
	HeaderTypeAgentValidationPkg
	HeaderTypeInitZomesComplete
	HeaderTypeCreate
	HeaderTypeUpdate
	HeaderTypeDelete
	HeaderTypeCreateLink
	HeaderTypeDeleteLink
	HeaderTypeOpenChain
	HeaderTypeCloseChain
)

// String implements fmt.Stringer.
func (t HeaderType) String() string {
	switch t {
	case HeaderTypeDna:
		return "Dna"
	case HeaderTypeAgentValidationPkg:
		return "AgentValidationPkg"
	case HeaderTypeInitZomesComplete:
		return "InitZomesComplete"
	case HeaderTypeCreate:
		return "Create"
	case HeaderTypeUpdate:
		return "Update"
	case HeaderTypeDelete:
		return "Delete"
	case HeaderTypeCreateLink:
		return "CreateLink"
	case HeaderTypeDeleteLink:
		return "DeleteLink"
	case HeaderTypeOpenChain:
		return "OpenChain"
	case HeaderTypeCloseChain:
		return "CloseChain"
	default:
		return "Unknown"
	}
}

// HasEntry returns whether headers of this kind carry an entry payload.
func (t HeaderType) HasEntry() bool {
	return t == HeaderTypeCreate || t == HeaderTypeUpdate
}

// Header is an immutable chain record header. It is content-addressed: its
// hash is computed from its serialized bytes.
//
// The kind-specific payload fields are only set for the matching Type; a
// single struct with a discriminant takes the place of a tagged union.
type Header struct {
	Type       HeaderType
	Author     proto.AgentID
	Timestamp  time.Time
	Seq        uint32
	PrevHeader *hash.Hash // nil only for the Dna origin header

	// Dna
	SpaceHash *hash.Hash
	// AgentValidationPkg
	MembraneProof []byte
	// Create, Update
	EntryType EntryType
	EntryHash *hash.Hash
	// Update, Delete: header address of the record being replaced/removed
	OriginalHeader *hash.Hash
	// CreateLink
	BaseAddress   *hash.Hash
	TargetAddress *hash.Hash
	Tag           []byte
	// DeleteLink: header address of the CreateLink being removed
	LinkAddAddress *hash.Hash
	// OpenChain, CloseChain: space migrated from/to
	PrevSpace *hash.Hash
	NextSpace *hash.Hash
}

// MarshalHash returns the stable serialized bytes used for content
// addressing.
func (h *Header) MarshalHash() (o []byte, err error) {
	buf, err := utils.EncodeMsgPack(h)
	if err != nil {
		return
	}
	o = buf.Bytes()
	return
}

// CheckEntry verifies that the presence and address of entry match the header
// kind and its declared entry hash.
func (h *Header) CheckEntry(entry *Entry) (err error) {
	if !h.Type.HasEntry() {
		if entry != nil {
			return errors.Wrapf(ErrHeaderEntryMismatch,
				"%s header carries an entry", h.Type)
		}
		return
	}
	if entry == nil || h.EntryHash == nil {
		return errors.Wrapf(ErrHeaderEntryMismatch,
			"%s header missing its entry", h.Type)
	}
	var entryHash hash.Hash
	if entryHash, err = entry.ComputeHash(); err != nil {
		return
	}
	if !entryHash.IsEqual(h.EntryHash) {
		return errors.Wrapf(ErrHeaderEntryMismatch,
			"entry hash %s does not match declared %s",
			entryHash.Short(4), h.EntryHash.Short(4))
	}
	return
}

// SignedHeader is a chain header along with its author signature.
type SignedHeader struct {
	Header
	HSV verifier.DefaultHashSignVerifierImpl
}

// ComputeHash computes the content address of the header.
func (s *SignedHeader) ComputeHash() error {
	return s.HSV.SetHash(&s.Header)
}

// HeaderAddress returns the content address of the header.
func (s *SignedHeader) HeaderAddress() hash.Hash {
	return s.HSV.Hash()
}

// SignWith computes the header address and signs it with the author identity
// held in the keystore.
func (s *SignedHeader) SignWith(ks kms.Keystore) (err error) {
	if err = s.ComputeHash(); err != nil {
		return
	}
	s.HSV.Signature, s.HSV.Signee, err = ks.SignHash(s.Author, s.HSV.DataHash[:])
	return
}

// Verify verifies the hash and signature of the signed header.
func (s *SignedHeader) Verify() error {
	return s.HSV.Verify(&s.Header)
}

// VerifyHash verifies only the hash of the signed header.
func (s *SignedHeader) VerifyHash() error {
	return s.HSV.VerifyHash(&s.Header)
}
