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
	"crypto/sha256"

	// "minio/blake2b-simd" supports more CPU instructions than
	// "golang.org/x/crypto/blake2b"
	blake2b "github.com/minio/blake2b-simd"
)

// HashBSize is the size of HashB.
const HashBSize = sha256.Size

// HashB calculates sha256(b) and returns the resulting bytes.
func HashB(b []byte) []byte {
	hash := sha256.Sum256(b)
	return hash[:]
}

// HashH calculates sha256(b) and returns the resulting bytes as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB calculates sha256(sha256(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates sha256(sha256(b)) and returns the resulting bytes as
// a Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// THashB calculates sha256(blake2b-512(b)) and returns the resulting bytes.
// The combination of two different hash algorithms hardens the content
// address against a break of either one.
func THashB(b []byte) []byte {
	first := blake2b.Sum512(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// THashH calculates sha256(blake2b-512(b)) and returns the resulting bytes as
// a Hash.
func THashH(b []byte) Hash {
	first := blake2b.Sum512(b)
	return Hash(sha256.Sum256(first[:]))
}
