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

import "errors"

var (
	// ErrHeaderEntryMismatch indicates that the presence or hash of an entry
	// does not match its header kind.
	ErrHeaderEntryMismatch = errors.New("header and entry mismatch")

	// ErrMalformedGenesis indicates structurally invalid genesis data.
	ErrMalformedGenesis = errors.New("malformed genesis data")

	// ErrGenesisDataMissing indicates that a genesis element is absent from
	// an initialized chain.
	ErrGenesisDataMissing = errors.New("genesis data missing")
)
