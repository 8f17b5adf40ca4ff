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
	"fmt"
	"strings"

	"github.com/agentchain/agentchain/crypto/hash"
)

// InvalidCommitError aborts a zome call: one of the newly appended elements
// failed validation, so none of them were committed. It carries either the
// rejection reason or the list of unresolved dependencies.
type InvalidCommitError struct {
	Reason  string
	Missing []hash.Hash
}

// Error implements error.
func (e *InvalidCommitError) Error() string {
	if len(e.Missing) > 0 {
		short := make([]string, len(e.Missing))
		for i := range e.Missing {
			short[i] = e.Missing[i].Short(8)
		}
		return fmt.Sprintf("invalid commit: missing dependencies [%s]",
			strings.Join(short, ", "))
	}
	return fmt.Sprintf("invalid commit: %s", e.Reason)
}

// NewInvalidCommit returns an InvalidCommitError with a rejection reason.
func NewInvalidCommit(format string, args ...interface{}) *InvalidCommitError {
	return &InvalidCommitError{Reason: fmt.Sprintf(format, args...)}
}

// NewMissingDeps returns an InvalidCommitError carrying unresolved
// dependency addresses.
func NewMissingDeps(missing ...hash.Hash) *InvalidCommitError {
	return &InvalidCommitError{Missing: missing}
}
