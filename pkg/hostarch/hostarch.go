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

// Package hostarch provides address and page arithmetic for the virtual
// memory subsystem.
package hostarch

const (
	// PageShift is the binary log of the system page size.
	// 4K pages: 2^12 = 4096
	PageShift = 12

	// PageSize is the system page size in bytes.
	PageSize = 1 << PageShift

	// PageMask masks the byte offset within a page.
	PageMask = PageSize - 1
)

// PageNumber returns the virtual page frame number containing the byte
// address addr.
func PageNumber(addr uint64) uint64 {
	return addr >> PageShift
}

// PageOffset returns the byte offset of addr within its page.
func PageOffset(addr uint64) uint64 {
	return addr & PageMask
}

// PageRoundDown returns addr rounded down to the nearest page boundary.
func PageRoundDown(addr uint64) uint64 {
	return addr &^ uint64(PageMask)
}

// PageRoundUp returns addr rounded up to the nearest page boundary. ok is
// true iff rounding up did not wrap around.
func PageRoundUp(addr uint64) (rounded uint64, ok bool) {
	rounded = PageRoundDown(addr + PageMask)
	ok = rounded >= addr
	return
}

// IsPageAligned returns true if addr is a multiple of the page size.
func IsPageAligned(addr uint64) bool {
	return PageOffset(addr) == 0
}
