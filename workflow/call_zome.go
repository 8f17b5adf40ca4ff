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

	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/chainbus"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/types"
	"github.com/agentchain/agentchain/utils/log"
)

// CallZomeConfig carries the long-lived collaborators of the call-zome
// workflow.
type CallZomeConfig struct {
	Ribosome Ribosome
	Keystore kms.Keystore
	Network  Network
	Handle   chain.ChainRootHandle
	Bus      chainbus.Bus
	// Rebasable marks this workflow's writes as safe to rewrite onto a moved
	// chain head instead of failing with chain.ErrHeadMoved.
	Rebasable bool
}

// CallZome runs one application call end to end: it executes the invoked
// function against the workspace, validates every element the call staged,
// commits the staged writes through the chain root gatekeeper and announces
// the new elements on the chain bus.
//
// On a validation failure the returned error wraps *InvalidCommitError and
// nothing is committed.
func CallZome(ctx context.Context, cfg *CallZomeConfig, lock *CallZomeWorkspaceLock,
	inv *ZomeInvocation) (result *ZomeCallResult, err error) {
	le := log.WithFields(log.Fields{
		"invocation": inv.ID,
		"zome":       inv.ZomeName,
		"fn":         inv.FnName,
	})

	if result, err = callZomeInner(ctx, cfg, lock, inv); err != nil {
		le.WithError(err).Debug("zome call failed before commit")
		return
	}

	var committed bool
	if err = lock.Write(func(ws *CallZomeWorkspace) (err error) {
		var pw *chain.PreparedWrite
		if pw, err = ws.Flush(); err != nil {
			return errors.Wrap(err, "flush workspace")
		}
		if len(pw.Elements) == 0 && pw.Extra.Len() == 0 {
			return
		}
		observed := ws.SourceChain.PersistedRoot()
		if err = cfg.Handle.TryAppendChain(ctx, pw, observed, cfg.Rebasable); err != nil {
			return errors.Wrap(err, "commit staged chain writes")
		}
		committed = true
		return
	}); err != nil {
		result = nil
		return
	}

	if committed && cfg.Bus != nil {
		// Fire-and-forget: the caller's response never waits on op
		// production.
		cfg.Bus.Publish(TopicProduceDHTOps, inv.Agent)
	}
	le.Debug("zome call committed")
	return
}

// callZomeInner executes the application function and validates whatever it
// staged, without touching durable state.
func callZomeInner(ctx context.Context, cfg *CallZomeConfig, lock *CallZomeWorkspaceLock,
	inv *ZomeInvocation) (result *ZomeCallResult, err error) {
	var startLen uint32
	if err = lock.Read(func(ws *CallZomeWorkspace) error {
		startLen = ws.SourceChain.Len()
		return nil
	}); err != nil {
		return
	}

	host := &HostAccess{
		Workspace: lock,
		Keystore:  cfg.Keystore,
		Network:   cfg.Network,
	}
	if result, err = cfg.Ribosome.CallZomeFunction(ctx, host, inv); err != nil {
		err = errors.Wrap(err, "run zome function")
		return
	}

	if err = lock.Read(func(ws *CallZomeWorkspace) error {
		return validateStaged(ctx, cfg.Ribosome, ws, startLen)
	}); err != nil {
		result = nil
	}
	return
}

// validateStaged runs the full validation pipeline over every element the
// call appended past startLen, failing fast on the first rejection.
func validateStaged(ctx context.Context, rib Ribosome, ws *CallZomeWorkspace,
	startLen uint32) (err error) {
	for i := startLen; i < ws.SourceChain.Len(); i++ {
		var element *types.Element
		if element, err = ws.SourceChain.GetAtIndex(i); err != nil {
			return
		}
		if element == nil {
			return errors.Wrapf(chain.ErrElementMissing, "staged element at seq %d", i)
		}
		if err = SysValidateElement(ws.SourceChain, element); err != nil {
			return NewInvalidCommit("structural validation failed at seq %d: %v", i, err)
		}
		if err = appValidateElement(ctx, rib, ws, element); err != nil {
			return
		}
	}
	return
}

// appValidateElement dispatches application validation by header kind.
// Host-managed kinds carry no application data and pass without a callback.
func appValidateElement(ctx context.Context, rib Ribosome, ws *CallZomeWorkspace,
	element *types.Element) (err error) {
	var (
		h       = element.Header()
		outcome Outcome
	)
	switch h.Type {
	case types.HeaderTypeDna,
		types.HeaderTypeAgentValidationPkg,
		types.HeaderTypeInitZomesComplete,
		types.HeaderTypeOpenChain,
		types.HeaderTypeCloseChain:
		return
	case types.HeaderTypeCreate, types.HeaderTypeUpdate, types.HeaderTypeDelete:
		if outcome, err = rib.ValidateEntry(ctx, element); err != nil {
			return errors.Wrapf(err, "validate %s at seq %d", h.Type, h.Seq)
		}
	case types.HeaderTypeCreateLink:
		var base, target *types.Entry
		if base, target, err = resolveLinkDeps(ctx, ws, h); err != nil {
			return
		}
		if outcome, err = rib.ValidateCreateLink(ctx, h, base, target); err != nil {
			return errors.Wrapf(err, "validate link at seq %d", h.Seq)
		}
	case types.HeaderTypeDeleteLink:
		if outcome, err = rib.ValidateDeleteLink(ctx, h); err != nil {
			return errors.Wrapf(err, "validate link removal at seq %d", h.Seq)
		}
	default:
		return NewInvalidCommit("unknown header kind %d at seq %d", h.Type, h.Seq)
	}
	return applyOutcome(h, outcome)
}

// resolveLinkDeps fetches the base and target entries a CreateLink names
// through the cascade. Unresolvable dependencies fail the commit: inside a
// zome call there is no retry queue to park the element on.
func resolveLinkDeps(ctx context.Context, ws *CallZomeWorkspace, h *types.Header) (
	base, target *types.Entry, err error,
) {
	var missing []hash.Hash
	if base, err = ws.Cascade().RetrieveEntry(ctx, *h.BaseAddress); err != nil {
		return
	} else if base == nil {
		missing = append(missing, *h.BaseAddress)
	}
	if target, err = ws.Cascade().RetrieveEntry(ctx, *h.TargetAddress); err != nil {
		return
	} else if target == nil {
		missing = append(missing, *h.TargetAddress)
	}
	if len(missing) > 0 {
		err = NewMissingDeps(missing...)
	}
	return
}

// applyOutcome maps a validation outcome onto the commit decision.
func applyOutcome(h *types.Header, outcome Outcome) error {
	switch outcome.Kind {
	case OutcomeAccepted:
		return nil
	case OutcomeRejected:
		return NewInvalidCommit("%s at seq %d rejected: %s", h.Type, h.Seq, outcome.Reason)
	case OutcomeAwaitingDeps:
		return NewMissingDeps(outcome.Missing...)
	default:
		return NewInvalidCommit("%s at seq %d returned unknown outcome %d",
			h.Type, h.Seq, outcome.Kind)
	}
}
