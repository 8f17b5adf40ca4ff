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

// Package crypto provides address derivation from public keys.
package crypto

import (
	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto/asymmetric"
	"github.com/agentchain/agentchain/crypto/hash"
	"github.com/agentchain/agentchain/proto"
)

// PublicKeyToAgentID is an alias to function crypto.PubKeyHash.
var PublicKeyToAgentID = PubKeyHash

// PubKeyHash generates the agent address for a specified public key.
func PubKeyHash(pubKey *asymmetric.PublicKey) (agent proto.AgentID, err error) {
	if !pubKey.IsValid() {
		err = errors.New("invalid public key")
		return
	}
	var enc []byte
	if enc, err = pubKey.MarshalHash(); err != nil {
		return
	}
	agent = proto.AgentID(hash.THashH(enc).String())
	return
}
