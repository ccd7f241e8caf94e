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

// Package memmap defines backing storage objects: reference-counted
// providers of page frames for mapped regions. Variants are anonymous
// zero-fill storage, file-backed storage, and the copy-on-write shadow that
// can wrap either.
//
// Ownership of an object is shared. Every mapped region holds one strong
// reference; the object is destroyed when the last reference is dropped.
// Reference counting is atomic because regions in different address spaces
// (fork-shared storage) are manipulated by independent execution contexts.
package memmap

import (
	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/pframe"
	"github.com/hdl/Weenix/pkg/refs"
	"github.com/hdl/Weenix/pkg/sync"
)

// Object is a backing storage object.
//
// Page numbers passed to LookupPage are indices into the object's own page
// space; callers translate virtual page numbers through their region's
// offset first.
type Object interface {
	refs.RefCounter

	// LookupPage resolves the frame at page number pn, allocating, reading
	// or faulting as needed. New anonymous pages are zero-filled. forWrite
	// indicates intent to modify the frame; a copy-on-write object uses it
	// to decide whether a private copy is required.
	//
	// The returned frame remains valid while the caller holds a reference
	// on the object.
	LookupPage(pn uint64, forWrite bool) (*pframe.Frame, error)

	// AddMapping records that ms maps this object. The set of mapping
	// spaces is consulted for reverse lookups when copy-on-write
	// restructuring invalidates cached translations.
	AddMapping(ms MappingSpace)

	// RemoveMapping removes a previous AddMapping.
	RemoveMapping(ms MappingSpace)
}

// MappingSpace is implemented by mappers of an Object (regions). Invalidate
// notifies the mapper that pages it may have translated through the object
// are no longer valid.
type MappingSpace interface {
	Invalidate(pr hostarch.PageRange)
}

// MappingSet is an unordered set of mapping spaces. It is not synchronized;
// embedders guard it with their own mutex (see mappingRegistry).
type MappingSet map[MappingSpace]struct{}

// Add inserts ms into the set.
func (s *MappingSet) Add(ms MappingSpace) {
	if *s == nil {
		*s = make(MappingSet)
	}
	(*s)[ms] = struct{}{}
}

// Remove deletes ms from the set.
func (s MappingSet) Remove(ms MappingSpace) {
	delete(s, ms)
}

// mappingRegistry provides the AddMapping/RemoveMapping half of Object. It
// is embedded by every object implementation in this package.
type mappingRegistry struct {
	mapMu    sync.Mutex
	mappings MappingSet
}

// AddMapping implements Object.AddMapping.
func (mr *mappingRegistry) AddMapping(ms MappingSpace) {
	mr.mapMu.Lock()
	defer mr.mapMu.Unlock()
	mr.mappings.Add(ms)
}

// RemoveMapping implements Object.RemoveMapping.
func (mr *mappingRegistry) RemoveMapping(ms MappingSpace) {
	mr.mapMu.Lock()
	defer mr.mapMu.Unlock()
	mr.mappings.Remove(ms)
}

// invalidateAll notifies every registered mapping space that pages in pr
// are no longer valid.
func (mr *mappingRegistry) invalidateAll(pr hostarch.PageRange) {
	mr.mapMu.Lock()
	defer mr.mapMu.Unlock()
	for ms := range mr.mappings {
		ms.Invalidate(pr)
	}
}
