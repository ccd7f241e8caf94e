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
	"github.com/hdl/Weenix/pkg/syserr"
)

// Read copies bytes from the virtual range [vaddr, vaddr+len(buf)) of the
// address space into buf. vaddr is a byte offset within the user range, so
// the page containing it is vaddr >> PageShift.
//
// No presence or permission checks are performed; the caller guarantees the
// range is mapped. The range may span multiple regions and start or end
// mid-page. Read returns the number of bytes transferred before any
// failure; on an unmapped or unresolvable page it stops there and fails
// with syserr.EFAULT, having copied exactly the returned prefix.
func (as *AddressSpace) Read(vaddr uint64, buf []byte) (int, error) {
	return as.copyPages(vaddr, buf, false)
}

// Write copies bytes from buf into the virtual range [vaddr,
// vaddr+len(buf)) of the address space, marking each touched frame dirty so
// it is considered for later write-back. Its contract is otherwise that of
// Read.
func (as *AddressSpace) Write(vaddr uint64, buf []byte) (int, error) {
	return as.copyPages(vaddr, buf, true)
}

// copyPages decomposes [vaddr, vaddr+len(buf)) into per-page segments,
// resolves each page through the owning region's backing object, and copies
// the partial-page bytes.
func (as *AddressSpace) copyPages(vaddr uint64, buf []byte, write bool) (int, error) {
	var done int
	for done < len(buf) {
		cur := vaddr + uint64(done)
		vfn := hostarch.PageNumber(cur)
		if vfn >= as.maxPage {
			return done, syserr.EFAULT
		}
		r := as.Lookup(vfn)
		if r == nil || r.object == nil {
			return done, syserr.EFAULT
		}
		f, err := r.object.LookupPage(r.off+(vfn-r.start), write)
		if err != nil {
			log.Debugf("io: resolving page %#x: %v", vfn, err)
			return done, syserr.EFAULT
		}
		off := hostarch.PageOffset(cur)
		n := uint64(hostarch.PageSize) - off
		if rem := uint64(len(buf) - done); n > rem {
			n = rem
		}
		if write {
			copy(f.Data()[off:off+n], buf[done:done+int(n)])
			f.MarkDirty()
		} else {
			copy(buf[done:done+int(n)], f.Data()[off:off+n])
		}
		done += int(n)
	}
	return done, nil
}
