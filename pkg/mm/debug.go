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
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hdl/Weenix/pkg/hostarch"
)

var log = logrus.WithField("subsys", "mm")

// String renders the ordered region sequence as a table: byte-address
// bounds, permission string, sharing mode, backing-object identity, page
// offset, and page-number range.
func (as *AddressSpace) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%21s %5s %7s %14s %8s %15s\n",
		"VADDR RANGE", "PROT", "FLAGS", "OBJECT", "OFFSET", "VFN RANGE")
	for _, r := range as.regions {
		fmt.Fprintf(&b, "%#010x-%#010x   %s %7s %14p %#8x %#06x-%#06x\n",
			r.start<<hostarch.PageShift, r.end<<hostarch.PageShift,
			r.perms, r.flags, r.object, r.off, r.start, r.end)
	}
	return b.String()
}

// ReadMappingsInto renders the region table into buf, truncating if it does
// not fit. The result is always NUL-terminated and never exceeds len(buf).
// It returns the number of bytes written, including the terminator, or 0 if
// buf is empty.
func (as *AddressSpace) ReadMappingsInto(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	n := copy(buf[:len(buf)-1], as.String())
	buf[n] = 0
	return n + 1
}
