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

// Package mm implements per-process virtual address-space management: an
// ordered sequence of non-overlapping mapped regions, the interval
// algorithms that mutate it (ordered insert, two-direction first-fit
// search, the four-case unmap split), and byte-level access through the
// regions' backing storage objects.
//
// Locking: the package performs no internal synchronization of an
// AddressSpace. Callers must hold exclusive access to a space across any
// mutation (Insert, MMap, MUnmap, Clone of the source is read-only, Destroy)
// and must not run reads (Lookup, FindRange, IsRangeEmpty, diagnostics)
// concurrently with a mutation of the same space. Backing-object reference
// counts are atomic, since fork-shared objects are referenced from
// independently-locked spaces.
package mm

import (
	"fmt"

	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/memlayout"
	"github.com/hdl/Weenix/pkg/memmap"
	"github.com/hdl/Weenix/pkg/pframe"
	"github.com/hdl/Weenix/pkg/pool"
)

// Record pools for address spaces and regions, in the manner of the
// kernel's slab allocators. Tests shrink their capacity to exercise
// exhaustion paths.
var (
	addressSpacePool = pool.New[AddressSpace]("mm.address_space")
	regionPool       = pool.New[Region]("mm.region")
)

// MapFlags is the mapping kind of a region.
type MapFlags uint32

const (
	// MapShared propagates writes to the backing object.
	MapShared MapFlags = 1 << iota

	// MapPrivate gives the mapping copy-on-write semantics: the first
	// write to a page faults into a private copy.
	MapPrivate
)

// String implements fmt.Stringer.String.
func (f MapFlags) String() string {
	switch {
	case f&MapPrivate != 0:
		return "PRIVATE"
	case f&MapShared != 0:
		return "SHARED"
	default:
		return "NONE"
	}
}

// Direction is the placement preference for free-range search.
type Direction int

const (
	// BottomUp prefers the lowest-addressed gap, placing flush against
	// its low edge.
	BottomUp Direction = iota

	// TopDown prefers the highest-addressed gap, placing flush against
	// its high edge.
	TopDown
)

// String implements fmt.Stringer.String.
func (d Direction) String() string {
	if d == TopDown {
		return "top-down"
	}
	return "bottom-up"
}

// Region describes one contiguous range of mapped virtual pages with
// uniform protection, flags and backing. Page bounds are half-open
// [start, end) virtual page numbers within the user range.
type Region struct {
	start uint64
	end   uint64

	// off is the page offset into the backing object's page space at which
	// this region begins. It advances whenever the region's start is
	// trimmed forward.
	off uint64

	perms hostarch.AccessType
	flags MapFlags

	// object is the backing storage object. The region holds exactly one
	// strong reference, released when the region is destroyed. It is nil
	// on a structurally cloned region until the cloner attaches one.
	object memmap.Object

	// space is a non-owning back-reference to the containing address
	// space, valid only while the region is linked in.
	space *AddressSpace
}

// Start returns the region's first page number.
func (r *Region) Start() uint64 { return r.start }

// End returns the page number one past the region's last page.
func (r *Region) End() uint64 { return r.end }

// Range returns the region's page range.
func (r *Region) Range() hostarch.PageRange {
	return hostarch.PageRange{Start: r.start, End: r.end}
}

// Offset returns the region's page offset into its backing object.
func (r *Region) Offset() uint64 { return r.off }

// Perms returns the region's protection.
func (r *Region) Perms() hostarch.AccessType { return r.perms }

// Flags returns the region's mapping kind.
func (r *Region) Flags() MapFlags { return r.flags }

// Object returns the region's backing object, or nil if none is attached.
// The returned reference is borrowed from the region.
func (r *Region) Object() memmap.Object { return r.object }

// Space returns the address space the region is linked into, or nil.
func (r *Region) Space() *AddressSpace { return r.space }

// AttachObject gives a backing object to a region that has none, taking
// over the caller's reference. Process duplication uses this to wire its
// share-or-shadow policy onto regions produced by Clone.
func (r *Region) AttachObject(obj memmap.Object) {
	if r.object != nil {
		panic(fmt.Sprintf("mm: AttachObject on region %v that already has a backing object", r.Range()))
	}
	r.object = obj
	obj.AddMapping(r)
}

// String implements fmt.Stringer.String.
func (r *Region) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("[%#x, %#x) %v %v off=%#x", r.start, r.end, r.perms, r.flags, r.off)
}

// Invalidate implements memmap.MappingSpace.Invalidate. Page-table and TLB
// maintenance are outside this subsystem, so there are no cached
// translations to shoot down here.
func (r *Region) Invalidate(pr hostarch.PageRange) {
}

// AddressSpace is the ordered collection of a process's mapped regions,
// ascending by start page and pairwise non-overlapping.
type AddressSpace struct {
	// regions is kept sorted by Region.start.
	regions []*Region

	// maxPage bounds all page numbers: every region lies in [0, maxPage).
	maxPage uint64

	// mem supplies page frames for objects created on behalf of this
	// space (anonymous and shadow storage).
	mem *pframe.Allocator

	// owner is an opaque, non-owning handle to the owning process. It is
	// nil for a freshly created or cloned space until the process
	// subsystem attaches it.
	owner any
}

// NewAddressSpace creates an empty address space for the user range
// described by layout, drawing page frames from mem. It fails with
// syserr.ENOMEM if the record pool is exhausted.
func NewAddressSpace(layout memlayout.Layout, mem *pframe.Allocator) (*AddressSpace, error) {
	as, err := addressSpacePool.Get()
	if err != nil {
		return nil, err
	}
	as.maxPage = layout.MaxUserPages()
	as.mem = mem
	return as, nil
}

// MaxPage returns the number of user-addressable pages; all region bounds
// lie in [0, MaxPage).
func (as *AddressSpace) MaxPage() uint64 { return as.maxPage }

// Owner returns the opaque owning-process handle, or nil.
func (as *AddressSpace) Owner() any { return as.owner }

// SetOwner attaches the owning-process handle. The address space does not
// interpret it.
func (as *AddressSpace) SetOwner(owner any) { as.owner = owner }

// Regions returns the number of mapped regions.
func (as *AddressSpace) Regions() int { return len(as.regions) }

// Destroy releases every region's backing reference, frees every region,
// and frees the address space record. The space must not be used after
// Destroy.
func (as *AddressSpace) Destroy() {
	log.Debugf("destroy: %d regions", len(as.regions))
	for _, r := range as.regions {
		if r.object != nil {
			r.object.RemoveMapping(r)
			r.object.DecRef()
		}
		regionPool.Put(r)
	}
	as.regions = nil
	addressSpacePool.Put(as)
}

// Clone produces a new address space whose regions are structurally
// identical to as's in bounds, offset, protection and flags, preserving
// order, with no backing objects attached. Wiring shared or copy-on-write
// backing is the caller's policy, applied per region via AttachObject.
//
// On pool exhaustion all partial allocation is rolled back, the source is
// left unmodified, and syserr.ENOMEM is returned.
func (as *AddressSpace) Clone() (*AddressSpace, error) {
	nas, err := addressSpacePool.Get()
	if err != nil {
		return nil, err
	}
	nas.maxPage = as.maxPage
	nas.mem = as.mem
	nas.regions = make([]*Region, 0, len(as.regions))
	for _, r := range as.regions {
		nr, err := regionPool.Get()
		if err != nil {
			nas.Destroy()
			return nil, err
		}
		nr.start = r.start
		nr.end = r.end
		nr.off = r.off
		nr.perms = r.perms
		nr.flags = r.flags
		nr.space = nas
		nas.regions = append(nas.regions, nr)
	}
	return nas, nil
}
