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

package memmap

import (
	"bytes"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/pframe"
	"github.com/hdl/Weenix/pkg/syserr"
)

func TestAnonZeroFill(t *testing.T) {
	mem := pframe.NewAllocator(0)
	o := NewAnon(mem)
	defer o.DecRef()

	f, err := o.LookupPage(3, false)
	if err != nil {
		t.Fatalf("LookupPage got err %v want nil", err)
	}
	for i, b := range f.Data() {
		if b != 0 {
			t.Fatalf("anonymous page not zero-filled at byte %d", i)
		}
	}
	// Same frame on repeat lookup.
	f2, err := o.LookupPage(3, true)
	if err != nil || f2 != f {
		t.Errorf("repeat LookupPage got (%p, %v) want (%p, nil)", f2, err, f)
	}
}

func TestAnonReleasesFramesOnDestroy(t *testing.T) {
	mem := pframe.NewAllocator(0)
	o := NewAnon(mem)
	for pn := uint64(0); pn < 4; pn++ {
		if _, err := o.LookupPage(pn, true); err != nil {
			t.Fatalf("LookupPage(%d) got err %v want nil", pn, err)
		}
	}
	if got := mem.InUse(); got != 4 {
		t.Fatalf("frames in use got %d want 4", got)
	}
	o.DecRef()
	if got := mem.InUse(); got != 0 {
		t.Errorf("frames in use after destroy got %d want 0", got)
	}
}

func TestShadowCopyOnWrite(t *testing.T) {
	mem := pframe.NewAllocator(0)
	lower := NewAnon(mem)
	base, err := lower.LookupPage(0, true)
	if err != nil {
		t.Fatalf("LookupPage got err %v want nil", err)
	}
	copy(base.Data(), "shared below")

	lower.IncRef()
	shadow := NewShadow(lower, mem)
	defer shadow.DecRef()
	defer lower.DecRef()

	// Reads pass through to the lower object.
	f, err := shadow.LookupPage(0, false)
	if err != nil {
		t.Fatalf("read LookupPage got err %v want nil", err)
	}
	if f != base {
		t.Errorf("read through shadow got a private frame before any write")
	}

	// The first write copies the page up.
	wf, err := shadow.LookupPage(0, true)
	if err != nil {
		t.Fatalf("write LookupPage got err %v want nil", err)
	}
	if wf == base {
		t.Fatalf("write through shadow did not copy the page")
	}
	if !bytes.Equal(wf.Data()[:12], base.Data()[:12]) {
		t.Errorf("copied page does not carry the lower contents")
	}
	copy(wf.Data(), "private now!")
	if string(base.Data()[:12]) != "shared below" {
		t.Errorf("write through shadow mutated the lower object")
	}

	// Later reads see the private copy.
	rf, err := shadow.LookupPage(0, false)
	if err != nil || rf != wf {
		t.Errorf("read after copy-up got (%p, %v) want (%p, nil)", rf, err, wf)
	}
}

func TestShadowHoldsLowerReference(t *testing.T) {
	mem := pframe.NewAllocator(0)
	lower := NewAnon(mem)
	if got := lower.ReadRefs(); got != 1 {
		t.Fatalf("lower refs got %d want 1", got)
	}
	shadow := NewShadow(lower, mem) // takes over our reference
	if got := lower.ReadRefs(); got != 1 {
		t.Errorf("lower refs after shadow creation got %d want 1", got)
	}
	shadow.DecRef()
	// The shadow released the lower object with itself.
	if got := mem.InUse(); got != 0 {
		t.Errorf("frames in use after chain teardown got %d want 0", got)
	}
}

func TestShadowCopyUpAllocFailure(t *testing.T) {
	mem := pframe.NewAllocator(1)
	lower := NewAnon(mem)
	if _, err := lower.LookupPage(0, true); err != nil {
		t.Fatalf("LookupPage got err %v want nil", err)
	}
	shadow := NewShadow(lower, mem)
	defer shadow.DecRef()

	if _, err := shadow.LookupPage(0, true); err != syserr.ENOMEM {
		t.Errorf("copy-up beyond frame capacity got err %v want ENOMEM", err)
	}
	// Reads still work.
	if _, err := shadow.LookupPage(0, false); err != nil {
		t.Errorf("read after failed copy-up got err %v want nil", err)
	}
}

func TestMemFileMmapSharesObject(t *testing.T) {
	mem := pframe.NewAllocator(0)
	file := NewMemFile(mem, make([]byte, 2*hostarch.PageSize))

	o1, err := file.Mmap(0)
	if err != nil {
		t.Fatalf("Mmap got err %v want nil", err)
	}
	o2, err := file.Mmap(hostarch.PageSize)
	if err != nil {
		t.Fatalf("second Mmap got err %v want nil", err)
	}
	if o1 != o2 {
		t.Errorf("mappings of one file got distinct objects %p, %p", o1, o2)
	}
	o2.DecRef()
	o1.DecRef()

	// A fresh mapping after the object died gets a new one.
	o3, err := file.Mmap(0)
	if err != nil {
		t.Fatalf("Mmap after release got err %v want nil", err)
	}
	o3.DecRef()
}

func TestMemFileMmapConcurrentRelease(t *testing.T) {
	mem := pframe.NewAllocator(0)
	file := NewMemFile(mem, make([]byte, hostarch.PageSize))

	// Mappers and last-reference drops race on the file's cached object;
	// resurrecting an object whose count already hit zero must not happen.
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for j := 0; j < 1000; j++ {
				o, err := file.Mmap(0)
				if err != nil {
					return err
				}
				if _, err := o.LookupPage(0, false); err != nil {
					o.DecRef()
					return err
				}
				o.DecRef()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent Mmap/DecRef got err %v want nil", err)
	}
	if got := mem.InUse(); got != 0 {
		t.Errorf("frames in use after churn got %d want 0", got)
	}
}

func TestMemFileMmapUnaligned(t *testing.T) {
	file := NewMemFile(pframe.NewAllocator(0), nil)
	if _, err := file.Mmap(17); err != syserr.EINVAL {
		t.Errorf("Mmap(17) got err %v want EINVAL", err)
	}
}

type invalidateRecorder struct {
	ranges []hostarch.PageRange
}

func (ir *invalidateRecorder) Invalidate(pr hostarch.PageRange) {
	ir.ranges = append(ir.ranges, pr)
}

func TestMemFileTruncateInvalidates(t *testing.T) {
	mem := pframe.NewAllocator(0)
	data := make([]byte, 3*hostarch.PageSize)
	for i := range data {
		data[i] = 0xaa
	}
	file := NewMemFile(mem, data)

	obj, err := file.Mmap(0)
	if err != nil {
		t.Fatalf("Mmap got err %v want nil", err)
	}
	defer obj.DecRef()

	var rec invalidateRecorder
	obj.AddMapping(&rec)
	defer obj.RemoveMapping(&rec)

	// Fault in all three pages, then cut the file to one.
	for pn := uint64(0); pn < 3; pn++ {
		if _, err := obj.LookupPage(pn, false); err != nil {
			t.Fatalf("LookupPage(%d) got err %v want nil", pn, err)
		}
	}
	file.Truncate(hostarch.PageSize)

	if len(rec.ranges) != 1 || rec.ranges[0].Start != 1 {
		t.Fatalf("Invalidate calls got %v want one starting at page 1", rec.ranges)
	}
	// Dropped pages read back as zeros after regrowth.
	file.Truncate(3 * hostarch.PageSize)
	f, err := obj.LookupPage(2, false)
	if err != nil {
		t.Fatalf("LookupPage after regrow got err %v want nil", err)
	}
	for i, b := range f.Data() {
		if b != 0 {
			t.Fatalf("page beyond truncation point kept stale byte %#x at %d", b, i)
		}
	}
}
