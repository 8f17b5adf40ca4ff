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

// Package proto contains the identity types shared across packages.
package proto

// AgentID is the address of an agent, derived from the hash of its public
// key. One agent owns exactly one source chain per space.
type AgentID string

// String implements fmt.Stringer.
func (a AgentID) String() string {
	return string(a)
}

// IsEmpty returns whether the agent ID carries no identity.
func (a AgentID) IsEmpty() bool {
	return a == ""
}
