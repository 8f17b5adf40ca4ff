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

	"github.com/agentchain/agentchain/crypto/asymmetric"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/utils"
)

// EntryType identifies the kind of content an entry carries.
type EntryType int32

// Entry kinds.
const (
	EntryTypeAgent EntryType = iota
	EntryTypeApp
	EntryTypeCapClaim
	EntryTypeCapGrant
)

// String implements fmt.Stringer.
func (t EntryType) String() string {
	switch t {
	case EntryTypeAgent:
		return "Agent"
	case EntryTypeApp:
		return "App"
	case EntryTypeCapClaim:
		return "CapClaim"
	case EntryTypeCapGrant:
		return "CapGrant"
	default:
		return "Unknown"
	}
}

// EntryVisibility marks whether an entry may leave the authoring node.
type EntryVisibility int32

// Entry visibilities.
const (
	EntryVisibilityPublic EntryVisibility = iota
	EntryVisibilityPrivate
)

// Entry is the optional content payload paired with Create/Update headers,
// content-addressed by its own hash.
type Entry struct {
	Type       EntryType
	Visibility EntryVisibility
	Body       []byte
}

// NewAgentEntry builds the agent-identity entry carrying the author's public
// key.
func NewAgentEntry(pub *asymmetric.PublicKey) *Entry {
	return &Entry{
		Type: EntryTypeAgent,
		Body: pub.Serialize(),
	}
}

// MarshalHash returns the stable serialized bytes used for content
// addressing.
func (e *Entry) MarshalHash() (o []byte, err error) {
	buf, err := utils.EncodeMsgPack(e)
	if err != nil {
		return
	}
	o = buf.Bytes()
	return
}

// ComputeHash computes the content address of the entry.
func (e *Entry) ComputeHash() (h hash.Hash, err error) {
	var enc []byte
	if enc, err = e.MarshalHash(); err != nil {
		return
	}
	h = hash.THashH(enc)
	return
}

// AgentKey parses the public key held by an agent-identity entry.
func (e *Entry) AgentKey() (pub *asymmetric.PublicKey, err error) {
	if e.Type != EntryTypeAgent {
		err = errors.Wrapf(ErrMalformedGenesis, "%s entry has no agent key", e.Type)
		return
	}
	return asymmetric.ParsePubKey(e.Body)
}
