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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/hdl/Weenix/pkg/hostarch"
	"github.com/hdl/Weenix/pkg/memlayout"
	"github.com/hdl/Weenix/pkg/memmap"
	"github.com/hdl/Weenix/pkg/mm"
	"github.com/hdl/Weenix/pkg/pframe"
)

// demoCmd implements subcommands.Command for the "demo" command.
type demoCmd struct {
	file string
}

// Name implements subcommands.Command.Name.
func (*demoCmd) Name() string {
	return "demo"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*demoCmd) Synopsis() string {
	return "build a demonstration address space and dump its mapping table"
}

// Usage implements subcommands.Command.Usage.
func (*demoCmd) Usage() string {
	return `demo [-file <layout.toml>]

Creates an address space, performs a handful of representative map, unmap
and split operations, and prints the resulting mapping table.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *demoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&d.file, "file", "", "TOML memory-layout file to use")
}

// Execute implements subcommands.Command.Execute.
func (d *demoCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	layout := memlayout.Default()
	if d.file != "" {
		var err error
		layout, err = memlayout.Load(d.file)
		if err != nil {
			fmt.Fprintln(f.Output(), err)
			return subcommands.ExitFailure
		}
	}

	mem := pframe.NewAllocator(0)
	as, err := mm.NewAddressSpace(layout, mem)
	if err != nil {
		logrus.Errorf("creating address space: %v", err)
		return subcommands.ExitFailure
	}
	defer as.Destroy()

	// A private text-like mapping backed by a small in-memory file, an
	// anonymous heap placed bottom-up, and an anonymous stack placed
	// top-down.
	file := memmap.NewMemFile(mem, make([]byte, 4*hostarch.PageSize))
	if _, err := as.MMap(mm.MMapOpts{
		File:   file,
		Addr:   16,
		Length: 4,
		Perms:  hostarch.ReadExecute,
		Flags:  mm.MapPrivate,
	}); err != nil {
		logrus.Errorf("mapping text: %v", err)
		return subcommands.ExitFailure
	}
	if _, err := as.MMap(mm.MMapOpts{
		Length: 8,
		Perms:  hostarch.ReadWrite,
		Flags:  mm.MapShared,
	}); err != nil {
		logrus.Errorf("mapping heap: %v", err)
		return subcommands.ExitFailure
	}
	if _, err := as.MMap(mm.MMapOpts{
		Length:    16,
		Perms:     hostarch.ReadWrite,
		Flags:     mm.MapPrivate,
		Direction: mm.TopDown,
	}); err != nil {
		logrus.Errorf("mapping stack: %v", err)
		return subcommands.ExitFailure
	}

	// Punch a hole through the heap to show the interior split.
	if err := as.MUnmap(3, 2); err != nil {
		logrus.Errorf("unmapping: %v", err)
		return subcommands.ExitFailure
	}

	fmt.Print(as.String())
	return subcommands.ExitSuccess
}
