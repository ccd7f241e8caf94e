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

	"github.com/hdl/Weenix/pkg/memlayout"
)

// layoutCmd implements subcommands.Command for the "layout" command.
type layoutCmd struct {
	file string
}

// Name implements subcommands.Command.Name.
func (*layoutCmd) Name() string {
	return "layout"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*layoutCmd) Synopsis() string {
	return "validate and display a user memory layout"
}

// Usage implements subcommands.Command.Usage.
func (*layoutCmd) Usage() string {
	return `layout [-file <layout.toml>]

Prints the user memory layout and the derived page count. Without -file the
built-in default layout is shown.

OPTIONS:
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *layoutCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&l.file, "file", "", "TOML memory-layout file to load")
}

// Execute implements subcommands.Command.Execute.
func (l *layoutCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	layout := memlayout.Default()
	if l.file != "" {
		var err error
		layout, err = memlayout.Load(l.file)
		if err != nil {
			fmt.Fprintln(f.Output(), err)
			return subcommands.ExitFailure
		}
	}
	fmt.Println(layout)
	return subcommands.ExitSuccess
}
