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
	"fmt"
	"sort"

	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/syserr"
)

// Insert links r into the address space, preserving ascending-by-start
// order, and sets r's owner back-reference.
//
// Preconditions:
//   - r.Start() < r.End() <= as.MaxPage().
//   - r does not overlap any region already in as; the map/unmap machinery
//     clears overlaps before inserting.
func (as *AddressSpace) Insert(r *Region) {
	if r.start >= r.end {
		panic(fmt.Sprintf("mm: inserting empty region %v", r.Range()))
	}
	if r.end > as.maxPage {
		panic(fmt.Sprintf("mm: region %v exceeds user range [0, %#x)", r.Range(), as.maxPage))
	}
	// First region whose start is at or above the new region's end; the new
	// region goes immediately before it, or at the tail if there is none.
	i := sort.Search(len(as.regions), func(i int) bool {
		return as.regions[i].start >= r.end
	})
	if i > 0 && as.regions[i-1].end > r.start {
		panic(fmt.Sprintf("mm: inserting region %v overlapping %v", r.Range(), as.regions[i-1].Range()))
	}
	as.regions = append(as.regions, nil)
	copy(as.regions[i+1:], as.regions[i:])
	as.regions[i] = r
	r.space = as
	log.Debugf("insert: %v", r.Range())
}

// FindRange returns the starting page of a free gap of length npages,
// searching first fit in the given direction, without mutating the space.
//
// BottomUp scans gaps from page 0 upward and returns the start of the first
// gap that fits; TopDown scans from MaxPage downward and returns a
// placement flush against the high edge of the first (highest) gap that
// fits. Fails with syserr.ENOSPC when no gap is large enough.
func (as *AddressSpace) FindRange(npages uint64, dir Direction) (uint64, error) {
	if npages == 0 {
		return 0, syserr.EINVAL
	}
	if dir == TopDown {
		next := as.maxPage
		for i := len(as.regions) - 1; i >= 0; i-- {
			r := as.regions[i]
			if next-r.end >= npages {
				return next - npages, nil
			}
			next = r.start
		}
		if next >= npages {
			return next - npages, nil
		}
		return 0, syserr.ENOSPC
	}
	prev := uint64(0)
	for _, r := range as.regions {
		if r.start-prev >= npages {
			return prev, nil
		}
		prev = r.end
	}
	if as.maxPage-prev >= npages {
		return prev, nil
	}
	return 0, syserr.ENOSPC
}

// Lookup returns the region containing page vfn, or nil if the page is
// unmapped.
//
// Precondition: vfn < as.MaxPage().
func (as *AddressSpace) Lookup(vfn uint64) *Region {
	if vfn >= as.maxPage {
		panic(fmt.Sprintf("mm: Lookup of page %#x outside user range [0, %#x)", vfn, as.maxPage))
	}
	for _, r := range as.regions {
		if vfn < r.start {
			break
		}
		if vfn < r.end {
			return r
		}
	}
	return nil
}

// IsRangeEmpty returns true iff no region overlaps [start, start+npages).
// It never mutates the space.
func (as *AddressSpace) IsRangeEmpty(start, npages uint64) bool {
	pr := hostarch.PageRange{Start: start, End: start + npages}
	for _, r := range as.regions {
		if r.Range().Overlaps(pr) {
			return false
		}
	}
	return true
}
