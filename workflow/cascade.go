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

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/types"
)

// cascadeCacheSize bounds the entries memoized from network retrievals.
const cascadeCacheSize = 1024

// Cascade resolves entry addresses through increasingly remote tiers:
// the local authored chain first, then a cache of past network hits,
// then the network itself. A nil result with nil error means the entry
// is unknown everywhere.
type Cascade struct {
	authored *chain.SourceChainBuf
	network  Network
	cache    *lru.Cache
}

// NewCascade binds a cascade over the given authored chain and network.
// The network may be nil, in which case resolution stops at local tiers.
func NewCascade(authored *chain.SourceChainBuf, network Network) (c *Cascade, err error) {
	cache, err := lru.New(cascadeCacheSize)
	if err != nil {
		err = errors.Wrap(err, "create cascade cache")
		return
	}
	c = &Cascade{
		authored: authored,
		network:  network,
		cache:    cache,
	}
	return
}

// RetrieveEntry resolves an entry by address, trying authored data, the
// retrieval cache, then the network.
func (c *Cascade) RetrieveEntry(ctx context.Context, address hash.Hash) (entry *types.Entry, err error) {
	if entry, err = c.authored.GetEntry(address); err != nil {
		err = errors.Wrap(err, "read authored entry")
		return
	} else if entry != nil {
		return
	}
	if cached, ok := c.cache.Get(address); ok {
		entry = cached.(*types.Entry)
		return
	}
	if c.network == nil {
		return
	}
	if entry, err = c.network.RetrieveEntry(ctx, address); err != nil {
		err = errors.Wrap(err, "retrieve entry from network")
		return
	}
	if entry != nil {
		c.cache.Add(address, entry)
	}
	return
}
