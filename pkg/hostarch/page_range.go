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

package hostarch

import "fmt"

// PageRange is a half-open range [Start, End) of virtual page frame numbers.
type PageRange struct {
	// Start is the inclusive start of the range.
	Start uint64

	// End is the exclusive end of the range.
	End uint64
}

// WellFormed returns true if pr.Start <= pr.End. All other methods on a
// PageRange require that the PageRange is well-formed.
func (pr PageRange) WellFormed() bool {
	return pr.Start <= pr.End
}

// Length returns the number of pages in pr.
func (pr PageRange) Length() uint64 {
	return pr.End - pr.Start
}

// Contains returns true if pr contains the page vfn.
func (pr PageRange) Contains(vfn uint64) bool {
	return pr.Start <= vfn && vfn < pr.End
}

// Overlaps returns true if pr and other overlap in at least one page.
func (pr PageRange) Overlaps(other PageRange) bool {
	return pr.Start < other.End && other.Start < pr.End
}

// IsSupersetOf returns true if pr contains every page in other.
func (pr PageRange) IsSupersetOf(other PageRange) bool {
	return pr.Start <= other.Start && other.End <= pr.End
}

// Intersect returns the intersection of pr and other, which may be empty.
func (pr PageRange) Intersect(other PageRange) PageRange {
	if pr.Start < other.Start {
		pr.Start = other.Start
	}
	if pr.End > other.End {
		pr.End = other.End
	}
	if pr.End < pr.Start {
		pr.End = pr.Start
	}
	return pr
}

// String implements fmt.Stringer.String.
func (pr PageRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", pr.Start, pr.End)
}
