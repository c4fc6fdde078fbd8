// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import "hash/fnv"

// bloomFilter answers "definitely not present" for static-route lookups
// before the hash table is consulted. False positives fall through to the
// map; false negatives cannot happen.
//
// Hash functions are derived from a single FNV-1a base hash XORed with
// per-function seeds, so membership tests hash the key once.
type bloomFilter struct {
	bits  []uint64
	size  uint64
	seeds []uint64
}

func newBloomFilter(size uint64, hashes int) *bloomFilter {
	bf := &bloomFilter{
		bits:  make([]uint64, (size+63)/64),
		size:  size,
		seeds: make([]uint64, hashes),
	}
	for i := range hashes {
		bf.seeds[i] = uint64(i + 1)
	}
	return bf
}

func (bf *bloomFilter) position(baseHash, seed uint64) uint64 {
	return (baseHash ^ seed) % bf.size
}

func (bf *bloomFilter) add(key string) {
	h := fnv.New64a()
	h.Write([]byte(key))
	base := h.Sum64()
	for _, seed := range bf.seeds {
		pos := bf.position(base, seed)
		bf.bits[pos/64] |= 1 << (pos % 64)
	}
}

// testHash checks membership using a pre-computed FNV-1a hash. Early exit
// on the first unset bit keeps the miss path short.
func (bf *bloomFilter) testHash(base uint64) bool {
	for _, seed := range bf.seeds {
		pos := bf.position(base, seed)
		if bf.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
