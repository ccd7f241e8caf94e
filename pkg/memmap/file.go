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
	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/pframe"
	"github.com/hdl/Weenix/pkg/refs"
	"github.com/hdl/Weenix/pkg/sync"
	"github.com/hdl/Weenix/pkg/syserr"
)

// Mappable is the vnode mmap hook: it is implemented by files that support
// memory mapping.
type Mappable interface {
	// Mmap returns the backing object for the file's pages. offset is the
	// byte offset at which the mapping begins and must be page-aligned;
	// mappers address the returned object in file pages, so all mappings
	// of the same file share one object and see each other's writes. The
	// caller owns the returned reference.
	Mmap(offset uint64) (Object, error)
}

// MemFile is a memory-resident file implementing Mappable. All mappings of
// the file share a single backing object; the object writes dirty frames
// back into the file contents when its last reference is dropped.
type MemFile struct {
	mem *pframe.Allocator

	mu   sync.Mutex
	data []byte
	obj  *fileObject
}

// NewMemFile creates a MemFile with the given initial contents. data is
// retained by the file.
func NewMemFile(mem *pframe.Allocator, data []byte) *MemFile {
	return &MemFile{
		mem:  mem,
		data: data,
	}
}

// Size returns the current length of the file in bytes.
func (f *MemFile) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.data))
}

// Bytes returns a copy of the file contents, including any frames written
// back so far but not those still dirty in a live mapping object.
func (f *MemFile) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// Mmap implements Mappable.Mmap. Pages beyond the end of the file read as
// zeros; writes to them are discarded at write-back.
func (f *MemFile) Mmap(offset uint64) (Object, error) {
	if !hostarch.IsPageAligned(offset) {
		return nil, syserr.EINVAL
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// The cached object is not referenced by the file itself, so it may be
	// running its final DecRef concurrently. TryIncRef fails once the count
	// has hit zero; the dying object then finishes write-back on its own and
	// a fresh object takes its place in the cache.
	if f.obj != nil && f.obj.refs.TryIncRef() {
		return f.obj, nil
	}
	o := &fileObject{
		file:  f,
		pages: make(map[uint64]*pframe.Frame),
	}
	o.refs.Init()
	f.obj = o
	return o, nil
}

// Truncate changes the file length to size bytes. Cached frames wholly
// beyond the new end are dropped and registered mappings are invalidated
// for the affected page range.
func (f *MemFile) Truncate(size uint64) {
	f.mu.Lock()
	if size <= uint64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	obj := f.obj
	f.mu.Unlock()

	if obj == nil {
		return
	}
	firstGone, _ := hostarch.PageRoundUp(size)
	obj.invalidateFrom(hostarch.PageNumber(firstGone))
}

// fileObject is the shared backing object for one MemFile. Its page space
// is file pages: page pn covers file bytes [pn*PageSize, (pn+1)*PageSize).
type fileObject struct {
	refs refs.AtomicRefCount
	mappingRegistry

	file *MemFile

	mu    sync.Mutex
	pages map[uint64]*pframe.Frame
}

// IncRef implements Object.IncRef.
func (o *fileObject) IncRef() {
	o.refs.IncRef()
}

// DecRef implements Object.DecRef.
func (o *fileObject) DecRef() {
	o.refs.DecRefWithDestructor(o.destroy)
}

// LookupPage implements Object.LookupPage.
func (o *fileObject) LookupPage(pn uint64, forWrite bool) (*pframe.Frame, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.pages[pn]; ok {
		return f, nil
	}
	f, err := o.file.mem.Alloc(pn)
	if err != nil {
		return nil, err
	}
	o.file.readPage(pn, f.Data())
	o.pages[pn] = f
	return f, nil
}

// invalidateFrom drops cached frames at or above page firstGone and tells
// mappers their translations for those pages are stale.
func (o *fileObject) invalidateFrom(firstGone uint64) {
	o.mu.Lock()
	for pn, f := range o.pages {
		if pn >= firstGone {
			o.file.mem.Free(f)
			delete(o.pages, pn)
		}
	}
	o.mu.Unlock()
	o.invalidateAll(hostarch.PageRange{Start: firstGone, End: ^uint64(0)})
}

// destroy writes dirty frames back to the file and releases all frames.
func (o *fileObject) destroy() {
	o.mu.Lock()
	for pn, f := range o.pages {
		if f.Dirty() {
			o.file.writePage(pn, f.Data())
			f.Clean()
		}
		o.file.mem.Free(f)
		delete(o.pages, pn)
	}
	o.mu.Unlock()

	o.file.mu.Lock()
	if o.file.obj == o {
		o.file.obj = nil
	}
	o.file.mu.Unlock()
}

// readPage copies file page pn into dst, zero-filling past end of file.
func (f *MemFile) readPage(pn uint64, dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := pn << hostarch.PageShift
	if off < uint64(len(f.data)) {
		copy(dst, f.data[off:])
	}
}

// writePage copies dst's frame contents back into file page pn. Bytes past
// end of file are discarded.
func (f *MemFile) writePage(pn uint64, src []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	off := pn << hostarch.PageShift
	if off < uint64(len(f.data)) {
		copy(f.data[off:], src)
	}
}
