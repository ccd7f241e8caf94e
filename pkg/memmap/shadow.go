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
	"github.com/hdl/Weenix/pkg/pframe"
	"github.com/hdl/Weenix/pkg/refs"
	"github.com/hdl/Weenix/pkg/sync"
)

// ShadowObject implements copy-on-write over a lower object. Reads are
// forwarded to the lower object until a write fault copies the page into
// the shadow; from then on the private copy services both reads and writes.
//
// Shadow chains are acyclic: a shadow's lower object is created before the
// shadow and never points back at it.
type ShadowObject struct {
	refs refs.AtomicRefCount
	mappingRegistry

	mem *pframe.Allocator

	// lower is the shadowed object. The shadow holds one strong reference
	// on it for its whole lifetime.
	lower Object

	mu    sync.Mutex
	pages map[uint64]*pframe.Frame
}

// NewShadow wraps lower in a copy-on-write shadow, taking over the caller's
// reference on lower. The caller owns the returned reference.
func NewShadow(lower Object, mem *pframe.Allocator) *ShadowObject {
	o := &ShadowObject{
		mem:   mem,
		lower: lower,
		pages: make(map[uint64]*pframe.Frame),
	}
	o.refs.Init()
	return o
}

// Lower returns the shadowed object. The returned reference is borrowed
// from the shadow.
func (o *ShadowObject) Lower() Object {
	return o.lower
}

// IncRef implements Object.IncRef.
func (o *ShadowObject) IncRef() {
	o.refs.IncRef()
}

// DecRef implements Object.DecRef.
func (o *ShadowObject) DecRef() {
	o.refs.DecRefWithDestructor(o.destroy)
}

// ReadRefs returns the current reference count.
func (o *ShadowObject) ReadRefs() int64 {
	return o.refs.ReadRefs()
}

// LookupPage implements Object.LookupPage. A read of a page that has not
// been copied is serviced by the lower object; the first write copies the
// page up.
func (o *ShadowObject) LookupPage(pn uint64, forWrite bool) (*pframe.Frame, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.pages[pn]; ok {
		return f, nil
	}
	if !forWrite {
		return o.lower.LookupPage(pn, false)
	}
	src, err := o.lower.LookupPage(pn, false)
	if err != nil {
		return nil, err
	}
	f, err := o.mem.Alloc(pn)
	if err != nil {
		return nil, err
	}
	copy(f.Data(), src.Data())
	o.pages[pn] = f
	return f, nil
}

func (o *ShadowObject) destroy() {
	o.mu.Lock()
	for pn, f := range o.pages {
		o.mem.Free(f)
		delete(o.pages, pn)
	}
	o.mu.Unlock()
	o.lower.DecRef()
}
