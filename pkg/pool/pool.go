// Copyright 2024 The Weenix Authors.
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

// Package pool provides pooled allocation of constant-size records, in the
// manner of a kernel slab allocator. Allocation never blocks: when a pool's
// capacity is exhausted, Get fails with syserr.ENOMEM and the caller decides
// whether to retry.
package pool

import (
	"github.com/hdl/Weenix/pkg/syserr"
	"github.com/hdl/Weenix/pkg/sync"
)

// Pool allocates records of type T. The zero Pool is not usable; use New.
//
// Records returned by Get are zeroed. Records passed to Put are retained on
// a free list for reuse.
type Pool[T any] struct {
	name string

	mu sync.Mutex

	// capacity is the maximum number of records that may be outstanding.
	// Zero means unlimited.
	capacity int

	// used is the number of records handed out and not yet returned.
	used int

	free []*T
}

// New creates an unlimited pool named name. The name appears in logs and
// diagnostics only.
func New[T any](name string) *Pool[T] {
	return &Pool[T]{name: name}
}

// Name returns the pool's name.
func (p *Pool[T]) Name() string { return p.name }

// SetCapacity bounds the number of outstanding records. n == 0 removes the
// bound. Shrinking below the current number of outstanding records does not
// reclaim them; it only causes further Gets to fail.
func (p *Pool[T]) SetCapacity(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capacity = n
}

// InUse returns the number of outstanding records.
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used
}

// Get allocates a zeroed record. It fails with syserr.ENOMEM if the pool is
// at capacity.
func (p *Pool[T]) Get() (*T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity != 0 && p.used >= p.capacity {
		return nil, syserr.ENOMEM
	}
	p.used++
	if n := len(p.free); n > 0 {
		x := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return x, nil
	}
	return new(T), nil
}

// Put returns a record to the pool. The record is zeroed so that stale
// references do not survive reuse.
func (p *Pool[T]) Put(x *T) {
	if x == nil {
		panic("pool.Put of nil record")
	}
	var zero T
	*x = zero
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used--
	if p.used < 0 {
		panic("pool.Put without matching Get: " + p.name)
	}
	p.free = append(p.free, x)
}
