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

// AnonObject provides anonymous zero-fill storage. Frames are materialized
// on first lookup and freed when the object is destroyed.
type AnonObject struct {
	refs refs.AtomicRefCount
	mappingRegistry

	mem *pframe.Allocator

	mu    sync.Mutex
	pages map[uint64]*pframe.Frame
}

// NewAnon creates an anonymous object drawing frames from mem. The caller
// owns the returned reference.
func NewAnon(mem *pframe.Allocator) *AnonObject {
	o := &AnonObject{
		mem:   mem,
		pages: make(map[uint64]*pframe.Frame),
	}
	o.refs.Init()
	return o
}

// IncRef implements Object.IncRef.
func (o *AnonObject) IncRef() {
	o.refs.IncRef()
}

// DecRef implements Object.DecRef.
func (o *AnonObject) DecRef() {
	o.refs.DecRefWithDestructor(o.destroy)
}

// ReadRefs returns the current reference count.
func (o *AnonObject) ReadRefs() int64 {
	return o.refs.ReadRefs()
}

// LookupPage implements Object.LookupPage.
func (o *AnonObject) LookupPage(pn uint64, forWrite bool) (*pframe.Frame, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.pages[pn]; ok {
		return f, nil
	}
	f, err := o.mem.Alloc(pn)
	if err != nil {
		return nil, err
	}
	o.pages[pn] = f
	return f, nil
}

func (o *AnonObject) destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for pn, f := range o.pages {
		o.mem.Free(f)
		delete(o.pages, pn)
	}
}
