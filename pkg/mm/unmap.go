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

// MUnmap removes or trims every region overlapping [lopage, lopage+npages);
// regions outside the range are untouched. Exactly one of four cases
// applies to each overlapping region:
//
//	key:
//	         [             ]   existing region
//	       *******             range to be unmapped
//
//	Case 1:  [   ******    ]
//	The range lies strictly inside the region: split it in two. The left
//	part is a new region keeping the original start and offset; the
//	original is reused in place as the right part with its start and
//	offset advanced. Both reference the backing object, so one new strong
//	reference is taken.
//
//	Case 2:  [      *******]**
//	The range overlaps the end of the region: trim the end.
//
//	Case 3: *[*****        ]
//	The range overlaps the beginning: advance the offset and the start.
//
//	Case 4: *[*************]**
//	The range covers the region: release its backing reference, unlink
//	and free it.
//
// The only failure is record-pool exhaustion when case 1 needs a new
// region; the affected region is left unmodified in that case.
func (as *AddressSpace) MUnmap(lopage, npages uint64) error {
	hipage := lopage + npages
	log.Debugf("munmap: [%#x, %#x)", lopage, hipage)

	for i := 0; i < len(as.regions); {
		r := as.regions[i]
		switch {
		case r.end <= lopage:
			// Entirely below the range.
			i++

		case r.start >= hipage:
			// Entirely above the range; everything after it is too.
			return nil

		case r.start < lopage && r.end > hipage:
			// Case 1: interior split.
			left, err := regionPool.Get()
			if err != nil {
				return err
			}
			left.start = r.start
			left.end = lopage
			left.off = r.off
			left.perms = r.perms
			left.flags = r.flags
			left.space = as
			if r.object != nil {
				left.object = r.object
				r.object.IncRef()
				r.object.AddMapping(left)
			}

			r.off += hipage - r.start
			r.start = hipage

			// The left part's range is strictly below the adjusted right
			// part's, so inserting it at r's old position keeps order.
			as.regions = append(as.regions, nil)
			copy(as.regions[i+1:], as.regions[i:])
			as.regions[i] = left
			log.Debugf("munmap: split into %v and %v", left.Range(), r.Range())
			return nil

		case r.start < lopage:
			// Case 2: trim the tail.
			r.end = lopage
			log.Debugf("munmap: trimmed tail to %v", r.Range())
			i++

		case r.end > hipage:
			// Case 3: trim the head, keeping the offset in step.
			r.off += hipage - r.start
			r.start = hipage
			log.Debugf("munmap: trimmed head to %v off=%#x", r.Range(), r.off)
			i++

		default:
			// Case 4: fully covered.
			log.Debugf("munmap: removing %v", r.Range())
			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			if r.object != nil {
				r.object.RemoveMapping(r)
				r.object.DecRef()
			}
			regionPool.Put(r)
		}
	}
	return nil
}
