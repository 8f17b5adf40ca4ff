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
	"github.com/agentchain/agentchain/crypto/hash"
)

// Element pairs a signed header with its optional entry. It is the atomic
// unit of a source chain.
type Element struct {
	SignedHeader *SignedHeader
	Entry        *Entry // nil for headers that carry no payload
}

// HeaderAddress returns the content address of the element's header.
func (e *Element) HeaderAddress() hash.Hash {
	return e.SignedHeader.HeaderAddress()
}

// Header returns the element's header.
func (e *Element) Header() *Header {
	return &e.SignedHeader.Header
}
