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

// Package kms holds the private keys of locally running agents and exposes
// the signing capability consumed by the source chain.
package kms

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/agentchain/agentchain/crypto"
	"github.com/agentchain/agentchain/crypto/asymmetric"
	"github.com/agentchain/agentchain/proto"
)

// ErrKeyUnavailable indicates that the identity is not held in the local
// keystore.
var ErrKeyUnavailable = errors.New("agent key unavailable")

// Keystore is the signing capability: it signs digests on behalf of locally
// held agent identities without handing out private keys.
type Keystore interface {
	// SignHash signs digest with the private key of agent, returning the
	// signature and the signing public key. Fails with ErrKeyUnavailable if
	// the identity is not held locally.
	SignHash(agent proto.AgentID, digest []byte) (
		sig *asymmetric.Signature, signee *asymmetric.PublicKey, err error)
	// PublicKey returns the public key of a locally held agent.
	PublicKey(agent proto.AgentID) (pub *asymmetric.PublicKey, err error)
}

// LocalKeystore is an in-memory Keystore.
type LocalKeystore struct {
	sync.RWMutex
	keys map[proto.AgentID]*asymmetric.PrivateKey
}

// NewLocalKeystore returns a new empty LocalKeystore.
func NewLocalKeystore() *LocalKeystore {
	return &LocalKeystore{
		keys: make(map[proto.AgentID]*asymmetric.PrivateKey),
	}
}

// NewAgent generates a fresh key pair, registers it and returns the derived
// agent address.
func (ks *LocalKeystore) NewAgent() (agent proto.AgentID, err error) {
	var (
		priv *asymmetric.PrivateKey
		pub  *asymmetric.PublicKey
	)
	if priv, pub, err = asymmetric.GenSecp256k1KeyPair(); err != nil {
		return
	}
	if agent, err = crypto.PubKeyHash(pub); err != nil {
		return
	}
	ks.SetKey(agent, priv)
	return
}

// SetKey registers a private key under an agent address.
func (ks *LocalKeystore) SetKey(agent proto.AgentID, priv *asymmetric.PrivateKey) {
	ks.Lock()
	defer ks.Unlock()
	ks.keys[agent] = priv
}

// SignHash implements Keystore.SignHash.
func (ks *LocalKeystore) SignHash(agent proto.AgentID, digest []byte) (
	sig *asymmetric.Signature, signee *asymmetric.PublicKey, err error,
) {
	ks.RLock()
	priv, ok := ks.keys[agent]
	ks.RUnlock()
	if !ok {
		err = errors.Wrapf(ErrKeyUnavailable, "no key for agent %s", agent)
		return
	}
	if sig, err = priv.Sign(digest); err != nil {
		return
	}
	signee = priv.PubKey()
	return
}

// PublicKey implements Keystore.PublicKey.
func (ks *LocalKeystore) PublicKey(agent proto.AgentID) (pub *asymmetric.PublicKey, err error) {
	ks.RLock()
	priv, ok := ks.keys[agent]
	ks.RUnlock()
	if !ok {
		err = errors.Wrapf(ErrKeyUnavailable, "no key for agent %s", agent)
		return
	}
	pub = priv.PubKey()
	return
}
