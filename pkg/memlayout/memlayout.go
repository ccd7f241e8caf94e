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

// Package memlayout describes the kernel's user memory layout: the bounds
// of the user-addressable virtual range, from which the number of
// user-addressable pages is derived. The layout is a fixed,
// process-independent property of the kernel configuration.
package memlayout

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/hdl/Weenix/pkg/hostarch"
)

// Layout is the user memory layout. Both bounds are byte addresses and must
// be page-aligned, with UserLow < UserHigh.
type Layout struct {
	// UserLow is the lowest user-addressable byte address.
	UserLow uint64 `toml:"user_low"`

	// UserHigh is the first byte address above the user-addressable range.
	UserHigh uint64 `toml:"user_high"`
}

// Default returns the layout used when no configuration is supplied:
// user space spans [4MB, 3GB).
func Default() Layout {
	return Layout{
		UserLow:  0x00400000,
		UserHigh: 0xc0000000,
	}
}

// MaxUserPages returns the number of pages in the user-addressable range.
// Page numbers handled by the memory-map core lie in [0, MaxUserPages).
func (l Layout) MaxUserPages() uint64 {
	return (l.UserHigh - l.UserLow) >> hostarch.PageShift
}

// Validate checks the layout's alignment and ordering constraints.
func (l Layout) Validate() error {
	if !hostarch.IsPageAligned(l.UserLow) || !hostarch.IsPageAligned(l.UserHigh) {
		return fmt.Errorf("memlayout: bounds must be page-aligned: [%#x, %#x)", l.UserLow, l.UserHigh)
	}
	if l.UserLow >= l.UserHigh {
		return fmt.Errorf("memlayout: empty user range: [%#x, %#x)", l.UserLow, l.UserHigh)
	}
	return nil
}

// String implements fmt.Stringer.String.
func (l Layout) String() string {
	return fmt.Sprintf("user [%#x, %#x), %d pages", l.UserLow, l.UserHigh, l.MaxUserPages())
}

// Load reads a layout from the TOML file at path and validates it.
func Load(path string) (Layout, error) {
	l := Default()
	if _, err := toml.DecodeFile(path, &l); err != nil {
		return Layout{}, fmt.Errorf("memlayout: decoding %s: %w", path, err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}
