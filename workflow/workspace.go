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
	"sync"

	"github.com/agentchain/agentchain/chain"
)

// CallZomeWorkspace is the scratch state of one zome call: the staged
// source chain plus the cascade used to resolve validation dependencies.
type CallZomeWorkspace struct {
	SourceChain *chain.SourceChainBuf
	cascade     *Cascade
}

// NewCallZomeWorkspace builds a workspace over a freshly loaded source
// chain buffer. The cascade shares the buffer, so entries staged during
// the call resolve locally.
func NewCallZomeWorkspace(buf *chain.SourceChainBuf, network Network) (w *CallZomeWorkspace, err error) {
	cascade, err := NewCascade(buf, network)
	if err != nil {
		return
	}
	w = &CallZomeWorkspace{
		SourceChain: buf,
		cascade:     cascade,
	}
	return
}

// Cascade returns the dependency resolver bound to this workspace.
func (w *CallZomeWorkspace) Cascade() *Cascade { return w.cascade }

// Flush drains the staged chain state into a prepared write for the
// gatekeeper. The staged scratch is consumed.
func (w *CallZomeWorkspace) Flush() (pw *chain.PreparedWrite, err error) {
	return w.SourceChain.Flush()
}

// CallZomeWorkspaceLock guards a workspace shared between the ribosome
// (which stages appends) and the workflow (which reads them back for
// validation and flushes on commit).
type CallZomeWorkspaceLock struct {
	mu sync.RWMutex
	ws *CallZomeWorkspace
}

// NewCallZomeWorkspaceLock wraps a workspace for shared access.
func NewCallZomeWorkspaceLock(ws *CallZomeWorkspace) *CallZomeWorkspaceLock {
	return &CallZomeWorkspaceLock{ws: ws}
}

// Read runs fn holding the read lock.
func (l *CallZomeWorkspaceLock) Read(fn func(ws *CallZomeWorkspace) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fn(l.ws)
}

// Write runs fn holding the write lock.
func (l *CallZomeWorkspaceLock) Write(fn func(ws *CallZomeWorkspace) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.ws)
}
