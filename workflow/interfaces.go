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
	"context"

	uuid "github.com/satori/go.uuid"

	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/proto"
	"github.com/agentchain/agentchain/types"
)

// ZomeInvocation identifies one application call against an agent's chain.
type ZomeInvocation struct {
	ID       uuid.UUID
	Agent    proto.AgentID
	ZomeName string
	FnName   string
	Payload  []byte
}

// NewZomeInvocation builds an invocation with a fresh correlation ID.
func NewZomeInvocation(agent proto.AgentID, zome, fn string, payload []byte) *ZomeInvocation {
	return &ZomeInvocation{
		ID:       uuid.Must(uuid.NewV4()),
		Agent:    agent,
		ZomeName: zome,
		FnName:   fn,
		Payload:  payload,
	}
}

// ZomeCallResult is the response payload of an application call.
type ZomeCallResult struct {
	Payload []byte
}

// HostAccess is the capability handed to the ribosome while it runs
// application code: the workspace it may stage appends into, the signing
// capability, and the network.
type HostAccess struct {
	Workspace *CallZomeWorkspaceLock
	Keystore  kms.Keystore
	Network   Network
}

// Ribosome executes application code and its validation callbacks. It is an
// external collaborator; this core only defines the boundary.
type Ribosome interface {
	// CallZomeFunction runs the invoked application function. It may append
	// zero or more elements to the workspace source chain as a side effect.
	CallZomeFunction(ctx context.Context, host *HostAccess,
		inv *ZomeInvocation) (*ZomeCallResult, error)
	// ValidateEntry runs the general entry-validation callback on a
	// Create/Update/Delete element.
	ValidateEntry(ctx context.Context, element *types.Element) (Outcome, error)
	// ValidateCreateLink runs the link-validation callback with the resolved
	// base and target entries.
	ValidateCreateLink(ctx context.Context, link *types.Header,
		base, target *types.Entry) (Outcome, error)
	// ValidateDeleteLink runs the delete-link-validation callback.
	ValidateDeleteLink(ctx context.Context, link *types.Header) (Outcome, error)
}

// Network is the gossip/DHT boundary used while resolving validation
// dependencies.
type Network interface {
	// RetrieveEntry fetches an entry from the network, returning nil when no
	// peer holds it.
	RetrieveEntry(ctx context.Context, address hash.Hash) (*types.Entry, error)
}

// TopicProduceDHTOps is published on the chain bus after a successful
// commit to wake the DHT-op producer. Fire-and-forget: the commit never
// waits on subscribers.
const TopicProduceDHTOps = "chain/produce-dht-ops"
