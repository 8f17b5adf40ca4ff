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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/chainbus"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/crypto/kms"
	"github.com/agentchain/agentchain/proto"
	"github.com/agentchain/agentchain/storage"
	"github.com/agentchain/agentchain/types"
)

// fakeRibosome scripts the application side of a zome call.
type fakeRibosome struct {
	run func(ctx context.Context, host *HostAccess,
		inv *ZomeInvocation) (*ZomeCallResult, error)
	entryOutcome   Outcome
	linkOutcome    Outcome
	delLinkOutcome Outcome
	// rejectBody, when set, rejects any entry carrying exactly this body
	rejectBody string

	entryCalls int
	linkCalls  int
}

func (r *fakeRibosome) CallZomeFunction(ctx context.Context, host *HostAccess,
	inv *ZomeInvocation) (*ZomeCallResult, error) {
	if r.run == nil {
		return &ZomeCallResult{}, nil
	}
	return r.run(ctx, host, inv)
}

func (r *fakeRibosome) ValidateEntry(ctx context.Context, element *types.Element) (Outcome, error) {
	r.entryCalls++
	if r.rejectBody != "" && element.Entry != nil && string(element.Entry.Body) == r.rejectBody {
		return Rejected("entry content rejected"), nil
	}
	return r.entryOutcome, nil
}

func (r *fakeRibosome) ValidateCreateLink(ctx context.Context, link *types.Header,
	base, target *types.Entry) (Outcome, error) {
	r.linkCalls++
	if base == nil || target == nil {
		return Rejected("link callback ran without its dependencies"), nil
	}
	return r.linkOutcome, nil
}

func (r *fakeRibosome) ValidateDeleteLink(ctx context.Context, link *types.Header) (Outcome, error) {
	return r.delLinkOutcome, nil
}

// fakeNetwork serves entries from a fixed map, counting lookups.
type fakeNetwork struct {
	entries map[hash.Hash]*types.Entry
	calls   int
}

func (n *fakeNetwork) RetrieveEntry(ctx context.Context, address hash.Hash) (*types.Entry, error) {
	n.calls++
	return n.entries[address], nil
}

type testEnv struct {
	store *storage.Store
	ks    *kms.LocalKeystore
	agent proto.AgentID

	cleanup func()
}

func newTestEnv(t *testing.T) (env *testEnv) {
	t.Helper()
	dir, err := ioutil.TempDir("", "agentchain-workflow-test")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}
	store, err := storage.Open(filepath.Join(dir, "chain.db"))
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("open store: %v", err)
	}
	ks := kms.NewLocalKeystore()
	agent, err := ks.NewAgent()
	if err != nil {
		store.Close()
		os.RemoveAll(dir)
		t.Fatalf("create agent: %v", err)
	}

	// commit genesis so every workspace starts on a usable chain
	buf, err := chain.NewSourceChainBuf(store, ks)
	if err != nil {
		t.Fatalf("load buffer: %v", err)
	}
	space := hash.THashH([]byte("workflow test space"))
	if err = buf.Genesis(space, agent, nil); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	handle := chain.NewChainRootHandle(store, ks, chain.StrategyMutex)
	pw, err := buf.Flush()
	if err != nil {
		t.Fatalf("flush genesis: %v", err)
	}
	if err = handle.TryAppendChain(context.Background(), pw, nil, false); err != nil {
		t.Fatalf("commit genesis: %v", err)
	}
	handle.Close()

	return &testEnv{
		store: store,
		ks:    ks,
		agent: agent,
		cleanup: func() {
			store.Close()
			os.RemoveAll(dir)
		},
	}
}

func (env *testEnv) newWorkspace(t *testing.T, network Network) *CallZomeWorkspaceLock {
	t.Helper()
	buf, err := chain.NewSourceChainBuf(env.store, env.ks)
	if err != nil {
		t.Fatalf("load buffer: %v", err)
	}
	ws, err := NewCallZomeWorkspace(buf, network)
	if err != nil {
		t.Fatalf("build workspace: %v", err)
	}
	return NewCallZomeWorkspaceLock(ws)
}

func (env *testEnv) reload(t *testing.T) *chain.SourceChainBuf {
	t.Helper()
	buf, err := chain.NewSourceChainBuf(env.store, env.ks)
	if err != nil {
		t.Fatalf("reload chain: %v", err)
	}
	return buf
}

// stageCreate appends an app entry to the workspace chain the way a running
// zome would.
func stageCreate(ws *CallZomeWorkspace, agent proto.AgentID, body string) (hash.Hash, error) {
	entry := &types.Entry{Type: types.EntryTypeApp, Body: []byte(body)}
	return ws.SourceChain.PutRaw(types.Header{
		Type:       types.HeaderTypeCreate,
		Author:     agent,
		Timestamp:  stagingTime(ws),
		Seq:        ws.SourceChain.Len(),
		PrevHeader: ws.SourceChain.ChainHead(),
		EntryType:  types.EntryTypeApp,
	}, entry)
}

func stageCreateLink(ws *CallZomeWorkspace, agent proto.AgentID,
	base, target hash.Hash) (hash.Hash, error) {
	return ws.SourceChain.PutRaw(types.Header{
		Type:          types.HeaderTypeCreateLink,
		Author:        agent,
		Timestamp:     stagingTime(ws),
		Seq:           ws.SourceChain.Len(),
		PrevHeader:    ws.SourceChain.ChainHead(),
		BaseAddress:   &base,
		TargetAddress: &target,
		Tag:           []byte("relates-to"),
	}, nil)
}

func stagingTime(ws *CallZomeWorkspace) time.Time {
	return time.Now().UTC().Add(time.Duration(ws.SourceChain.Len()) * time.Millisecond)
}

func TestCallZomeCommit(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a zome call that stages one create", t, func() {
		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				err := host.Workspace.Write(func(ws *CallZomeWorkspace) error {
					_, err := stageCreate(ws, inv.Agent, "hello record")
					return err
				})
				return &ZomeCallResult{Payload: []byte("ok")}, err
			},
		}
		bus := chainbus.New()
		var published int
		handler := chainbus.Handler(func(args ...interface{}) { published++ })
		bus.Subscribe(TopicProduceDHTOps, &handler)

		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{
			Ribosome: rib,
			Keystore: env.ks,
			Handle:   handle,
			Bus:      bus,
		}
		lock := env.newWorkspace(t, nil)
		inv := NewZomeInvocation(env.agent, "notes", "add_note", []byte(`{"text":"hi"}`))

		Convey("The call commits and announces the append", func() {
			oldHead := env.reload(t).ChainHead()
			result, err := CallZome(context.Background(), cfg, lock, inv)
			So(err, ShouldBeNil)
			So(string(result.Payload), ShouldEqual, "ok")
			So(rib.entryCalls, ShouldEqual, 1)
			So(published, ShouldEqual, 1)

			fresh := env.reload(t)
			So(fresh.Len(), ShouldEqual, 4)
			element, err := fresh.GetAtIndex(3)
			So(err, ShouldBeNil)
			So(string(element.Entry.Body), ShouldEqual, "hello record")
			So(element.Header().PrevHeader.IsEqual(oldHead), ShouldBeTrue)
			So(element.SignedHeader.Verify(), ShouldBeNil)
		})
	})
}

func TestCallZomeRejection(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a zome call whose entry validation rejects", t, func() {
		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				err := host.Workspace.Write(func(ws *CallZomeWorkspace) error {
					_, err := stageCreate(ws, inv.Agent, "forbidden record")
					return err
				})
				return &ZomeCallResult{}, err
			},
			entryOutcome: Rejected("content not allowed"),
		}
		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{Ribosome: rib, Keystore: env.ks, Handle: handle}
		lock := env.newWorkspace(t, nil)
		inv := NewZomeInvocation(env.agent, "notes", "add_note", nil)

		Convey("The call fails with InvalidCommitError and commits nothing", func() {
			result, err := CallZome(context.Background(), cfg, lock, inv)
			So(result, ShouldBeNil)

			invalid, ok := err.(*InvalidCommitError)
			So(ok, ShouldBeTrue)
			So(invalid.Reason, ShouldContainSubstring, "content not allowed")

			So(env.reload(t).Len(), ShouldEqual, 3)
		})
	})
}

func TestCallZomeAwaitingDeps(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a zome call whose validation awaits dependencies", t, func() {
		dep := hash.THashH([]byte("unresolved dependency"))
		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				err := host.Workspace.Write(func(ws *CallZomeWorkspace) error {
					_, err := stageCreate(ws, inv.Agent, "pending record")
					return err
				})
				return &ZomeCallResult{}, err
			},
			entryOutcome: AwaitingDeps(dep),
		}
		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{Ribosome: rib, Keystore: env.ks, Handle: handle}
		lock := env.newWorkspace(t, nil)
		inv := NewZomeInvocation(env.agent, "notes", "add_note", nil)

		Convey("Awaiting deps is a hard failure inside a zome call", func() {
			_, err := CallZome(context.Background(), cfg, lock, inv)
			invalid, ok := err.(*InvalidCommitError)
			So(ok, ShouldBeTrue)
			So(invalid.Missing, ShouldHaveLength, 1)
			So(invalid.Missing[0].IsEqual(&dep), ShouldBeTrue)
			So(env.reload(t).Len(), ShouldEqual, 3)
		})
	})
}

func TestCallZomeShortCircuit(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a zome call staging three creates with a bad middle one", t, func() {
		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				err := host.Workspace.Write(func(ws *CallZomeWorkspace) (err error) {
					for _, body := range []string{"first", "second", "third"} {
						if _, err = stageCreate(ws, inv.Agent, body); err != nil {
							return
						}
					}
					return
				})
				return &ZomeCallResult{}, err
			},
			rejectBody: "second",
		}
		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{Ribosome: rib, Keystore: env.ks, Handle: handle}
		lock := env.newWorkspace(t, nil)

		Convey("Validation stops at the rejection and nothing commits", func() {
			_, err := CallZome(context.Background(), cfg, lock,
				NewZomeInvocation(env.agent, "notes", "add_notes", nil))
			invalid, ok := err.(*InvalidCommitError)
			So(ok, ShouldBeTrue)
			So(invalid.Reason, ShouldContainSubstring, "entry content rejected")
			// the element after the rejected one is never validated
			So(rib.entryCalls, ShouldEqual, 2)
			So(env.reload(t).Len(), ShouldEqual, 3)
		})
	})
}

func TestCallZomeLinks(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a zome call that links two entries", t, func() {
		target := &types.Entry{Type: types.EntryTypeApp, Body: []byte("remote target")}
		targetHash, err := target.ComputeHash()
		So(err, ShouldBeNil)

		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				err := host.Workspace.Write(func(ws *CallZomeWorkspace) (err error) {
					baseAddr, err := stageCreate(ws, inv.Agent, "base record")
					if err != nil {
						return
					}
					element, err := ws.SourceChain.GetElement(baseAddr)
					if err != nil {
						return
					}
					_, err = stageCreateLink(ws, inv.Agent,
						*element.Header().EntryHash, targetHash)
					return
				})
				return &ZomeCallResult{}, err
			},
		}
		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{Ribosome: rib, Keystore: env.ks, Handle: handle}

		Convey("With the target resolvable on the network, the link commits", func() {
			network := &fakeNetwork{
				entries: map[hash.Hash]*types.Entry{targetHash: target},
			}
			cfg.Network = network
			lock := env.newWorkspace(t, network)

			_, err := CallZome(context.Background(), cfg, lock,
				NewZomeInvocation(env.agent, "notes", "link_note", nil))
			So(err, ShouldBeNil)
			So(rib.linkCalls, ShouldEqual, 1)
			So(network.calls, ShouldEqual, 1) // base resolved locally
			So(env.reload(t).Len(), ShouldEqual, 5)
		})

		Convey("With the target unknown everywhere, the call fails", func() {
			lock := env.newWorkspace(t, &fakeNetwork{})
			before := env.reload(t).Len()

			_, err := CallZome(context.Background(), cfg, lock,
				NewZomeInvocation(env.agent, "notes", "link_note", nil))
			invalid, ok := err.(*InvalidCommitError)
			So(ok, ShouldBeTrue)
			So(invalid.Missing, ShouldHaveLength, 1)
			So(invalid.Missing[0].IsEqual(&targetHash), ShouldBeTrue)
			So(env.reload(t).Len(), ShouldEqual, before)
		})
	})
}

func TestCallZomeNoAppends(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("A read-only zome call commits nothing and publishes nothing", t, func() {
		rib := &fakeRibosome{
			run: func(ctx context.Context, host *HostAccess,
				inv *ZomeInvocation) (*ZomeCallResult, error) {
				return &ZomeCallResult{Payload: []byte("read only")}, nil
			},
		}
		bus := chainbus.New()
		var published int
		handler := chainbus.Handler(func(args ...interface{}) { published++ })
		bus.Subscribe(TopicProduceDHTOps, &handler)

		handle := chain.NewChainRootHandle(env.store, env.ks, chain.StrategyMutex)
		defer handle.Close()
		cfg := &CallZomeConfig{Ribosome: rib, Keystore: env.ks, Handle: handle, Bus: bus}
		lock := env.newWorkspace(t, nil)

		result, err := CallZome(context.Background(), cfg, lock,
			NewZomeInvocation(env.agent, "notes", "list_notes", nil))
		So(err, ShouldBeNil)
		So(string(result.Payload), ShouldEqual, "read only")
		So(published, ShouldEqual, 0)
		So(env.reload(t).Len(), ShouldEqual, 3)
	})
}
