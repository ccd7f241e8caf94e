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

// Package refs defines an interface for reference counted objects and
// provides a drop-in implementation called AtomicRefCount.
//
// Reference counts must be atomic: regions in independently-locked address
// spaces may share a backing object after fork, so IncRef/DecRef race across
// execution contexts even though each address space is singly-locked.
package refs

import (
	"fmt"
	"sync/atomic"
)

// RefCounter is the interface to be implemented by objects that are
// reference counted.
type RefCounter interface {
	// IncRef increments the reference counter on the object.
	IncRef()

	// DecRef decrements the reference counter on the object. When the count
	// reaches zero the object releases its resources.
	DecRef()
}

// AtomicRefCount keeps a reference count using atomic operations. It is
// intended to be embedded. Users must call Init before first use and must
// release their reference via DecRefWithDestructor (usually from the
// embedding type's DecRef).
type AtomicRefCount struct {
	// refCount is the number of outstanding references.
	refCount atomic.Int64
}

// Init initializes the count to one reference, held by the caller.
func (r *AtomicRefCount) Init() {
	r.refCount.Store(1)
}

// ReadRefs returns the current number of references. It is intended for
// tests and diagnostics; the value may be stale as soon as it is returned.
func (r *AtomicRefCount) ReadRefs() int64 {
	return r.refCount.Load()
}

// IncRef increments the reference count.
//
// Precondition: the caller already holds a reference, so the count is
// nonzero.
func (r *AtomicRefCount) IncRef() {
	if v := r.refCount.Add(1); v <= 1 {
		panic(fmt.Sprintf("refs.AtomicRefCount: IncRef on released object (refs=%d)", v))
	}
}

// TryIncRef attempts to increment the reference count and returns true on
// success. Unlike IncRef, the caller need not already hold a reference:
// TryIncRef fails, leaving the count unchanged, once the count has reached
// zero. This is the only safe way to revive an object from a cache that
// does not itself hold a reference.
func (r *AtomicRefCount) TryIncRef() bool {
	for {
		v := r.refCount.Load()
		if v <= 0 {
			return false
		}
		if r.refCount.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// DecRefWithDestructor decrements the reference count and calls destroy when
// the count reaches zero. destroy runs at most once.
func (r *AtomicRefCount) DecRefWithDestructor(destroy func()) {
	switch v := r.refCount.Add(-1); {
	case v < 0:
		panic(fmt.Sprintf("refs.AtomicRefCount: DecRef below zero (refs=%d)", v))
	case v == 0:
		if destroy != nil {
			destroy()
		}
	}
}
