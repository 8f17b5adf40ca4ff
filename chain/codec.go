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

import (
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/asymmetric"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/types"
	"github.com/agentchain/agentchain/utils"
)

// storedHeader is the persisted form of a signed header. Key material is
// flattened to its serialized byte forms since curve points and big integers
// do not round-trip through msgpack.
type storedHeader struct {
	Header    types.Header
	DataHash  hash.Hash
	Signee    []byte
	Signature []byte
}

func encodeSignedHeader(sh *types.SignedHeader) (enc []byte, err error) {
	rec := storedHeader{
		Header:   sh.Header,
		DataHash: sh.HSV.DataHash,
	}
	if sh.HSV.Signee != nil {
		rec.Signee = sh.HSV.Signee.Serialize()
	}
	if sh.HSV.Signature != nil {
		rec.Signature = sh.HSV.Signature.Serialize()
	}
	buf, err := utils.EncodeMsgPack(&rec)
	if err != nil {
		err = errors.Wrap(err, "encode signed header")
		return
	}
	enc = buf.Bytes()
	return
}

func decodeSignedHeader(enc []byte) (sh *types.SignedHeader, err error) {
	var rec storedHeader
	if err = utils.DecodeMsgPack(enc, &rec); err != nil {
		err = errors.Wrap(err, "decode signed header")
		return
	}
	sh = &types.SignedHeader{Header: rec.Header}
	sh.HSV.DataHash = rec.DataHash
	if len(rec.Signee) > 0 {
		if sh.HSV.Signee, err = asymmetric.ParsePubKey(rec.Signee); err != nil {
			err = errors.Wrap(err, "decode signee key")
			return
		}
	}
	if len(rec.Signature) > 0 {
		if sh.HSV.Signature, err = asymmetric.ParseDERSignature(rec.Signature); err != nil {
			err = errors.Wrap(err, "decode header signature")
			return
		}
	}
	return
}

func encodeEntry(entry *types.Entry) (enc []byte, err error) {
	buf, err := utils.EncodeMsgPack(entry)
	if err != nil {
		err = errors.Wrap(err, "encode entry")
		return
	}
	enc = buf.Bytes()
	return
}

func decodeEntry(enc []byte) (entry *types.Entry, err error) {
	entry = &types.Entry{}
	if err = utils.DecodeMsgPack(enc, entry); err != nil {
		entry = nil
		err = errors.Wrap(err, "decode entry")
	}
	return
}

// seqRecord is the persisted form of one sequence index item.
type seqRecord struct {
	HeaderAddress hash.Hash
	OpsComplete   bool
}

func encodeSeqRecord(rec *seqRecord) (enc []byte, err error) {
	buf, err := utils.EncodeMsgPack(rec)
	if err != nil {
		err = errors.Wrap(err, "encode sequence record")
		return
	}
	enc = buf.Bytes()
	return
}

func decodeSeqRecord(enc []byte) (rec *seqRecord, err error) {
	rec = &seqRecord{}
	if err = utils.DecodeMsgPack(enc, rec); err != nil {
		rec = nil
		err = errors.Wrap(err, "decode sequence record")
	}
	return
}
