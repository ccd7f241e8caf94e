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

// Package pframe provides physical page frames and a capacity-limited frame
// allocator. Backing storage objects draw frames from an Allocator when
// resolving pages; the memory-map core itself never allocates frames.
package pframe

import (
	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/sync"
	"github.com/hdl/Weenix/pkg/syserr"
)

// Frame is a single physical page frame.
//
// A Frame is owned by exactly one backing storage object; concurrent access
// to its contents is mediated by the owning object.
type Frame struct {
	// pn is the page number within the owning object's page space.
	pn uint64

	// data holds the frame contents, always hostarch.PageSize bytes.
	data []byte

	// dirty is set when the frame has been written through a mapping and
	// has not been cleaned by write-back.
	dirty bool
}

// PageNumber returns the frame's page number within its owning object.
func (f *Frame) PageNumber() uint64 { return f.pn }

// Data returns the frame contents. The returned slice aliases the frame;
// it is valid until the frame is freed.
func (f *Frame) Data() []byte { return f.data }

// MarkDirty records that the frame contents have been modified and must be
// considered by any later write-back.
func (f *Frame) MarkDirty() { f.dirty = true }

// Dirty returns true if the frame has been modified since it was last
// cleaned.
func (f *Frame) Dirty() bool { return f.dirty }

// Clean clears the frame's dirty state, as after a successful write-back.
func (f *Frame) Clean() { f.dirty = false }

// Allocator hands out page frames up to a fixed capacity. A zero capacity
// means unlimited. Allocation never blocks; exhaustion fails with
// syserr.ENOMEM.
type Allocator struct {
	mu sync.Mutex

	// capacity is the maximum number of outstanding frames; 0 is unlimited.
	capacity int

	// used is the number of outstanding frames.
	used int
}

// NewAllocator creates an Allocator bounded to capacity frames.
func NewAllocator(capacity int) *Allocator {
	return &Allocator{capacity: capacity}
}

// Alloc returns a zero-filled frame for page number pn.
func (a *Allocator) Alloc(pn uint64) (*Frame, error) {
	a.mu.Lock()
	if a.capacity != 0 && a.used >= a.capacity {
		a.mu.Unlock()
		return nil, syserr.ENOMEM
	}
	a.used++
	a.mu.Unlock()
	return &Frame{
		pn:   pn,
		data: make([]byte, hostarch.PageSize),
	}, nil
}

// Free returns a frame to the allocator. The frame must not be used after
// Free.
func (a *Allocator) Free(f *Frame) {
	if f == nil {
		panic("pframe.Free of nil frame")
	}
	f.data = nil
	a.mu.Lock()
	a.used--
	if a.used < 0 {
		panic("pframe.Free without matching Alloc")
	}
	a.mu.Unlock()
}

// InUse returns the number of outstanding frames.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}
