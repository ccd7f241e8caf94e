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

package memlayout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultLayout(t *testing.T) {
	l := Default()
	if err := l.Validate(); err != nil {
		t.Fatalf("Default().Validate() got err %v want nil", err)
	}
	// [4MB, 3GB) of 4K pages.
	if got, want := l.MaxUserPages(), uint64((0xc0000000-0x00400000)>>12); got != want {
		t.Errorf("MaxUserPages got %d want %d", got, want)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.toml")
	if err := os.WriteFile(path, []byte("user_low = 0x1000\nuser_high = 0x15000\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load got err %v want nil", err)
	}
	if got := l.MaxUserPages(); got != 20 {
		t.Errorf("MaxUserPages got %d want 20", got)
	}
}

func TestLoadRejectsBadLayouts(t *testing.T) {
	for _, test := range []struct {
		name, body string
	}{
		{name: "unaligned", body: "user_low = 0x1001\nuser_high = 0x15000\n"},
		{name: "empty range", body: "user_low = 0x15000\nuser_high = 0x1000\n"},
	} {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "layout.toml")
			if err := os.WriteFile(path, []byte(test.body), 0644); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted invalid layout %q", test.body)
			}
		})
	}
}
