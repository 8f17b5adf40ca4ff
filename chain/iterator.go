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
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/types"
)

// BackwardIterator is a lazy cursor yielding signed headers from the chain
// head back to the origin header, one storage lookup per step. It terminates
// when a header has no previous link, and cannot be restarted in place.
type BackwardIterator struct {
	buf     *SourceChainBuf
	current *hash.Hash
}

// NewBackwardIterator returns a cursor positioned at the chain head.
func NewBackwardIterator(buf *SourceChainBuf) *BackwardIterator {
	return &BackwardIterator{
		buf:     buf,
		current: buf.ChainHead(),
	}
}

// Next returns the signed header at the cursor and steps backward, or nil
// once the iterator is exhausted.
func (it *BackwardIterator) Next() (sh *types.SignedHeader, err error) {
	if it.current == nil {
		return
	}
	if sh, err = it.buf.GetHeader(*it.current); err != nil {
		return
	}
	if sh == nil {
		it.current = nil
		return
	}
	it.current = sh.PrevHeader
	return
}
