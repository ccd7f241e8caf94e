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

package hostarch

import "testing"

func TestPageArithmetic(t *testing.T) {
	if got := PageNumber(PageSize + 123); got != 1 {
		t.Errorf("PageNumber got %d want 1", got)
	}
	if got := PageOffset(PageSize + 123); got != 123 {
		t.Errorf("PageOffset got %d want 123", got)
	}
	if got := PageRoundDown(PageSize + 123); got != PageSize {
		t.Errorf("PageRoundDown got %#x want %#x", got, PageSize)
	}
	if got, ok := PageRoundUp(PageSize + 1); !ok || got != 2*PageSize {
		t.Errorf("PageRoundUp got (%#x, %v) want (%#x, true)", got, ok, 2*PageSize)
	}
	if got, ok := PageRoundUp(^uint64(0)); ok {
		t.Errorf("PageRoundUp at top of address space got (%#x, true) want wrap", got)
	}
	if !IsPageAligned(2 * PageSize) {
		t.Errorf("IsPageAligned(%#x) got false", 2*PageSize)
	}
	if IsPageAligned(2*PageSize + 1) {
		t.Errorf("IsPageAligned(%#x) got true", 2*PageSize+1)
	}
}

func TestPageRangeOverlap(t *testing.T) {
	pr := PageRange{Start: 5, End: 15}
	for _, test := range []struct {
		other PageRange
		want  bool
	}{
		{PageRange{0, 5}, false},
		{PageRange{15, 20}, false},
		{PageRange{0, 6}, true},
		{PageRange{14, 20}, true},
		{PageRange{7, 9}, true},
		{PageRange{0, 20}, true},
	} {
		if got := pr.Overlaps(test.other); got != test.want {
			t.Errorf("%v.Overlaps(%v) got %v want %v", pr, test.other, got, test.want)
		}
	}
}

func TestAccessTypeString(t *testing.T) {
	for _, test := range []struct {
		at   AccessType
		want string
	}{
		{NoAccess, "---"},
		{Read, "r--"},
		{ReadWrite, "rw-"},
		{ReadExecute, "r-x"},
		{AnyAccess, "rwx"},
	} {
		if got := test.at.String(); got != test.want {
			t.Errorf("%+v.String() got %q want %q", test.at, got, test.want)
		}
	}
}
