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

package hash

import (
	"bytes"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewHash(t *testing.T) {
	buf := make([]byte, HashSize)
	for i := range buf {
		buf[i] = byte(i)
	}

	h, err := NewHash(buf)
	if err != nil {
		t.Fatalf("NewHash: unexpected error %v", err)
	}
	if !bytes.Equal(h[:], buf) {
		t.Errorf("NewHash: contents mismatch - got: %v, want: %v", h[:], buf)
	}
	if _, err = NewHash(buf[:HashSize-1]); err == nil {
		t.Errorf("NewHash: expected error for short input")
	}
	if err = h.SetBytes(buf[:4]); err == nil {
		t.Errorf("SetBytes: expected error for short input")
	}
}

func TestHashStringRoundTrip(t *testing.T) {
	h := THashH([]byte("agent chain genesis"))

	parsed, err := NewHashFromStr(h.String())
	if err != nil {
		t.Fatalf("NewHashFromStr: unexpected error %v", err)
	}
	if !parsed.IsEqual(&h) {
		t.Errorf("round trip mismatch - got: %v, want: %v", parsed, h)
	}
}

func TestIsEqual(t *testing.T) {
	a := THashH([]byte("a"))
	b := THashH([]byte("b"))
	var nilHash *Hash

	if a.IsEqual(&b) {
		t.Errorf("IsEqual: distinct hashes compare equal")
	}
	if !nilHash.IsEqual(nil) {
		t.Errorf("IsEqual: nil should equal nil")
	}
	if nilHash.IsEqual(&a) || a.IsEqual(nil) {
		t.Errorf("IsEqual: nil should not equal non-nil")
	}
}

func TestTHash(t *testing.T) {
	Convey("THashH is deterministic and differs from plain sha256", t, func() {
		data := []byte("content addressed record")
		So(THashH(data), ShouldResemble, THashH(data))
		So(THashH(data), ShouldNotResemble, HashH(data))
		So(THashB(data), ShouldHaveLength, HashSize)
	})
	Convey("Hash marshals as a JSON hex string", t, func() {
		h := THashH([]byte("x"))
		enc, err := json.Marshal(h)
		So(err, ShouldBeNil)

		var dec Hash
		So(json.Unmarshal(enc, &dec), ShouldBeNil)
		So(dec.IsEqual(&h), ShouldBeTrue)
	})
}
