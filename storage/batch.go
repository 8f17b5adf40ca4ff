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

package storage

import (
	bolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"
)

// BatchOp is a single staged put.
type BatchOp struct {
	Bucket []byte
	Key    []byte
	Value  []byte
}

// Batch is an ordered list of staged puts forming one prepared transaction.
// It is built outside any database transaction and applied atomically inside
// one.
type Batch struct {
	Ops []BatchOp
}

// Put stages a put operation.
func (b *Batch) Put(bucket, key, value []byte) {
	b.Ops = append(b.Ops, BatchOp{Bucket: bucket, Key: key, Value: value})
}

// Append stages every operation of another batch after the current ones.
func (b *Batch) Append(other *Batch) {
	b.Ops = append(b.Ops, other.Ops...)
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.Ops)
}

// Apply writes every staged operation within tx, in order.
func (b *Batch) Apply(tx *bolt.Tx) (err error) {
	for _, op := range b.Ops {
		bucket := tx.Bucket(op.Bucket)
		if bucket == nil {
			return errors.Errorf("no such bucket %s", op.Bucket)
		}
		if err = bucket.Put(op.Key, op.Value); err != nil {
			return errors.Wrapf(err, "put %x into %s", op.Key, op.Bucket)
		}
	}
	return
}
