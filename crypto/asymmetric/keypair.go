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

// Package asymmetric is a wrapper of btcsuite's secp256k1 package, exporting
// only the types and functions needed for agent identities and header
// signatures.
package asymmetric

import (
	"crypto/ecdsa"

	ec "github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
)

// PrivateKey is a secp256k1 private key held by a local agent.
type PrivateKey ec.PrivateKey

// PublicKey is a secp256k1 public key identifying an agent.
type PublicKey ec.PublicKey

// GenSecp256k1KeyPair generates a new private/public key pair.
func GenSecp256k1KeyPair() (privateKey *PrivateKey, publicKey *PublicKey, err error) {
	var priv *ec.PrivateKey
	if priv, err = ec.NewPrivateKey(ec.S256()); err != nil {
		err = errors.Wrap(err, "generate private key failed")
		return
	}
	privateKey = (*PrivateKey)(priv)
	publicKey = (*PublicKey)(priv.PubKey())
	return
}

// PrivKeyFromBytes returns a private and public key pair for the given
// serialized private key bytes.
func PrivKeyFromBytes(b []byte) (*PrivateKey, *PublicKey) {
	priv, pub := ec.PrivKeyFromBytes(ec.S256(), b)
	return (*PrivateKey)(priv), (*PublicKey)(pub)
}

// PubKey returns the public key corresponding to the private key.
func (p *PrivateKey) PubKey() *PublicKey {
	return (*PublicKey)((*ec.PrivateKey)(p).PubKey())
}

// Serialize returns the raw private key bytes.
func (p *PrivateKey) Serialize() []byte {
	return (*ec.PrivateKey)(p).Serialize()
}

// ParsePubKey parses a compressed or uncompressed public key from bytes.
func ParsePubKey(b []byte) (*PublicKey, error) {
	pub, err := ec.ParsePubKey(b, ec.S256())
	return (*PublicKey)(pub), err
}

// Serialize returns the compressed public key bytes.
func (p *PublicKey) Serialize() []byte {
	return (*ec.PublicKey)(p).SerializeCompressed()
}

// IsValid returns whether the public key carries a valid curve point.
func (p *PublicKey) IsValid() bool {
	return p != nil && p.X != nil && p.Y != nil
}

// IsEqual returns true if both public keys are the same curve point.
func (p *PublicKey) IsEqual(other *PublicKey) bool {
	return (*ec.PublicKey)(p).IsEqual((*ec.PublicKey)(other))
}

// MarshalHash returns the stable bytes used for hashing the public key.
func (p *PublicKey) MarshalHash() (o []byte, err error) {
	return p.Serialize(), nil
}

func (p *PublicKey) toECDSA() *ecdsa.PublicKey {
	return (*ecdsa.PublicKey)(p)
}
