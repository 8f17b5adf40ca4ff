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
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/agentchain/agentchain/chain"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/types"
)

func TestSysValidateElement(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	Convey("Given a chain with genesis and one staged create", t, func() {
		buf, err := chain.NewSourceChainBuf(env.store, env.ks)
		So(err, ShouldBeNil)
		ws, err := NewCallZomeWorkspace(buf, nil)
		So(err, ShouldBeNil)
		addr, err := stageCreate(ws, env.agent, "validated record")
		So(err, ShouldBeNil)

		Convey("Every element on the chain passes", func() {
			for i := uint32(0); i < buf.Len(); i++ {
				element, err := buf.GetAtIndex(i)
				So(err, ShouldBeNil)
				So(SysValidateElement(buf, element), ShouldBeNil)
			}
		})

		Convey("A tampered header fails", func() {
			element, err := buf.GetElement(addr)
			So(err, ShouldBeNil)
			tampered := *element.SignedHeader
			tampered.Seq++
			So(SysValidateElement(buf, &types.Element{
				SignedHeader: &tampered,
				Entry:        element.Entry,
			}), ShouldNotBeNil)
		})

		Convey("A swapped entry fails", func() {
			element, err := buf.GetElement(addr)
			So(err, ShouldBeNil)
			So(SysValidateElement(buf, &types.Element{
				SignedHeader: element.SignedHeader,
				Entry:        &types.Entry{Type: types.EntryTypeApp, Body: []byte("other")},
			}), ShouldNotBeNil)
		})
	})
}

func TestSysValidateStructure(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	buf, err := chain.NewSourceChainBuf(env.store, env.ks)
	if err != nil {
		t.Fatalf("load buffer: %v", err)
	}
	head := buf.ChainHead()
	headElement, err := buf.GetElement(*head)
	if err != nil {
		t.Fatalf("read head: %v", err)
	}
	baseTime := headElement.Header().Timestamp

	// sign builds a signed element without staging it.
	sign := func(h types.Header) *types.Element {
		sh := &types.SignedHeader{Header: h}
		if err := sh.SignWith(env.ks); err != nil {
			t.Fatalf("sign header: %v", err)
		}
		return &types.Element{SignedHeader: sh}
	}

	Convey("Structure rules are enforced", t, func() {
		Convey("A non-Dna header at seq 0 fails", func() {
			e := sign(types.Header{
				Type:      types.HeaderTypeInitZomesComplete,
				Author:    env.agent,
				Timestamp: baseTime.Add(time.Second),
				Seq:       0,
			})
			So(errors.Cause(SysValidateElement(buf, e)), ShouldEqual, ErrBadChainStructure)
		})

		Convey("A Dna header past seq 0 fails", func() {
			space := hash.THashH([]byte("space"))
			e := sign(types.Header{
				Type:       types.HeaderTypeDna,
				Author:     env.agent,
				Timestamp:  baseTime.Add(time.Second),
				Seq:        3,
				PrevHeader: head,
				SpaceHash:  &space,
			})
			So(errors.Cause(SysValidateElement(buf, e)), ShouldEqual, ErrBadChainStructure)
		})

		Convey("A missing predecessor fails", func() {
			phantom := hash.THashH([]byte("not on chain"))
			e := sign(types.Header{
				Type:       types.HeaderTypeInitZomesComplete,
				Author:     env.agent,
				Timestamp:  baseTime.Add(time.Second),
				Seq:        3,
				PrevHeader: &phantom,
			})
			So(errors.Cause(SysValidateElement(buf, e)), ShouldEqual, ErrPrevHeaderMissing)
		})

		Convey("A sequence number skip fails", func() {
			e := sign(types.Header{
				Type:       types.HeaderTypeInitZomesComplete,
				Author:     env.agent,
				Timestamp:  baseTime.Add(time.Second),
				Seq:        5,
				PrevHeader: head,
			})
			So(errors.Cause(SysValidateElement(buf, e)), ShouldEqual, ErrBadChainStructure)
		})

		Convey("A non-advancing timestamp fails", func() {
			e := sign(types.Header{
				Type:       types.HeaderTypeInitZomesComplete,
				Author:     env.agent,
				Timestamp:  baseTime,
				Seq:        3,
				PrevHeader: head,
			})
			So(errors.Cause(SysValidateElement(buf, e)), ShouldEqual, ErrBadChainStructure)
		})

		Convey("Missing kind-specific payloads fail", func() {
			for _, h := range []types.Header{
				{Type: types.HeaderTypeDelete},
				{Type: types.HeaderTypeCreateLink},
				{Type: types.HeaderTypeDeleteLink},
			} {
				h.Author = env.agent
				h.Timestamp = baseTime.Add(time.Second)
				h.Seq = 3
				h.PrevHeader = head
				err := SysValidateElement(buf, sign(h))
				So(errors.Cause(err), ShouldEqual, ErrBadHeaderPayload)
			}
		})

		Convey("An Update without its original header fails", func() {
			entry := &types.Entry{Type: types.EntryTypeApp, Body: []byte("updated")}
			entryHash, err := entry.ComputeHash()
			So(err, ShouldBeNil)
			sh := &types.SignedHeader{Header: types.Header{
				Type:       types.HeaderTypeUpdate,
				Author:     env.agent,
				Timestamp:  baseTime.Add(time.Second),
				Seq:        3,
				PrevHeader: head,
				EntryType:  types.EntryTypeApp,
				EntryHash:  &entryHash,
			}}
			So(sh.SignWith(env.ks), ShouldBeNil)
			err = SysValidateElement(buf, &types.Element{SignedHeader: sh, Entry: entry})
			So(errors.Cause(err), ShouldEqual, ErrBadHeaderPayload)
		})
	})
}
