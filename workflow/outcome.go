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
	"github.com/agentchain/agentchain/crypto/hash"
)

// OutcomeKind discriminates validation outcomes.
type OutcomeKind int32

// Validation outcome kinds. Every validation callback, link-kind or
// entry-kind, resolves to one of exactly these three cases.
const (
	OutcomeAccepted OutcomeKind = iota
	OutcomeRejected
	OutcomeAwaitingDeps
)

// Outcome is the tagged result of one validation callback.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string      // Rejected
	Missing []hash.Hash // AwaitingDeps
}

// Accepted returns an accepting outcome.
func Accepted() Outcome {
	return Outcome{Kind: OutcomeAccepted}
}

// Rejected returns a rejecting outcome with a reason.
func Rejected(reason string) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason}
}

// AwaitingDeps returns a deferred outcome carrying the missing dependency
// addresses.
func AwaitingDeps(missing ...hash.Hash) Outcome {
	return Outcome{Kind: OutcomeAwaitingDeps, Missing: missing}
}
