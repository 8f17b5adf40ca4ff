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

import "errors"

var (
	// ErrHeadMoved indicates that the authoritative chain root moved since
	// the writer observed it and the prepared write could not be rebased.
	// The caller must recompute against fresh state.
	ErrHeadMoved = errors.New("chain head moved")

	// ErrIndexCorrupt indicates an out-of-order or duplicate sequence number
	// in the persisted sequence index. Not recoverable; it means the storage
	// is corrupted.
	ErrIndexCorrupt = errors.New("chain sequence index corrupt")

	// ErrElementMissing indicates that an address present in the sequence
	// index has no element in the element store.
	ErrElementMissing = errors.New("element missing from store")

	// ErrChainNotEmpty indicates a genesis attempt on a chain that already
	// has elements.
	ErrChainNotEmpty = errors.New("chain is not empty")

	// ErrPrivateEntry indicates a private entry was requested through a
	// public-only view.
	ErrPrivateEntry = errors.New("entry is private")

	// ErrGatekeeperClosed indicates an append attempt on a closed chain root
	// handle.
	ErrGatekeeperClosed = errors.New("chain root handle closed")
)
