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

package mm

import (
	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/memmap"
	"github.com/hdl/Weenix/pkg/syserr"
)

// MMapOpts specifies a request to create a memory mapping.
type MMapOpts struct {
	// File is the file to map. If File is nil, the mapping is anonymous
	// zero-fill.
	File memmap.Mappable

	// Addr is the starting page number for an explicit placement; any
	// existing mapping overlapping the requested range is unmapped first.
	// If Addr is zero, placement is chosen by free-range search in
	// Direction.
	Addr uint64

	// Length is the length of the mapping in pages.
	Length uint64

	// Perms is the protection applied to the mapping.
	Perms hostarch.AccessType

	// Flags selects the sharing mode and must contain exactly one of
	// MapShared or MapPrivate.
	Flags MapFlags

	// Offset is the byte offset into File at which the mapping begins.
	// It must be page-aligned. Ignored for anonymous mappings.
	Offset uint64

	// Direction is the placement preference used when Addr is zero.
	Direction Direction
}

// MMap creates a mapping per opts and returns the new region.
//
// The step ordering is deliberate: everything that can fail happens before
// anything irreversible. The first irreversible step is clearing the
// overlap of an explicit placement; objects created along the way but not
// yet linked are released on failure, leaving the space's visible mapping
// set unchanged.
func (as *AddressSpace) MMap(opts MMapOpts) (*Region, error) {
	if opts.Length == 0 {
		return nil, syserr.EINVAL
	}
	if !hostarch.IsPageAligned(opts.Offset) {
		return nil, syserr.EINVAL
	}
	switch opts.Flags & (MapShared | MapPrivate) {
	case MapShared, MapPrivate:
	default:
		return nil, syserr.EINVAL
	}

	r, err := regionPool.Get()
	if err != nil {
		return nil, err
	}

	lopage := opts.Addr
	explicit := lopage != 0
	if !explicit {
		lopage, err = as.FindRange(opts.Length, opts.Direction)
		if err != nil {
			regionPool.Put(r)
			return nil, err
		}
		log.Debugf("mmap: found range [%#x, %#x) %v", lopage, lopage+opts.Length, opts.Direction)
	} else if lopage > as.maxPage || opts.Length > as.maxPage-lopage {
		regionPool.Put(r)
		return nil, syserr.EINVAL
	}

	r.start = lopage
	r.end = lopage + opts.Length
	r.perms = opts.Perms
	r.flags = opts.Flags

	var obj memmap.Object
	if opts.File == nil {
		anon := memmap.NewAnon(as.mem)
		// Materialize every page now so that first access never fails on
		// frame exhaustion later.
		for pn := uint64(0); pn < opts.Length; pn++ {
			if _, err := anon.LookupPage(pn, true); err != nil {
				anon.DecRef()
				regionPool.Put(r)
				return nil, err
			}
		}
		obj = anon
	} else {
		obj, err = opts.File.Mmap(opts.Offset)
		if err != nil {
			regionPool.Put(r)
			return nil, err
		}
		r.off = opts.Offset >> hostarch.PageShift
	}

	// A private mapping writes into a shadow rather than the shared
	// object. The shadow takes over our reference on obj.
	if opts.Flags&MapPrivate != 0 {
		obj = memmap.NewShadow(obj, as.mem)
	}

	if explicit {
		if err := as.MUnmap(lopage, opts.Length); err != nil {
			obj.DecRef()
			regionPool.Put(r)
			return nil, err
		}
	}

	r.object = obj
	obj.AddMapping(r)
	as.Insert(r)
	log.Debugf("mmap: %v %v %v off=%#x", r.Range(), r.perms, r.flags, r.off)
	return r, nil
}
