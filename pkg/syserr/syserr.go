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

// Package syserr holds the standardized error values returned by the memory
// subsystem. Each error carries the errno it maps to at the system-call
// boundary, allowing fast identity comparison comparable to unix.Errno
// constants.
package syserr

import (
	"golang.org/x/sys/unix"
)

// Error represents a kernel error with a descriptive message and the errno
// reported to userspace.
type Error struct {
	message string
	errno   unix.Errno
}

// New creates a new *Error.
func New(message string, errno unix.Errno) *Error {
	return &Error{
		message: message,
		errno:   errno,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Errno returns the underlying unix.Errno value.
func (e *Error) Errno() unix.Errno { return e.errno }

// Errors used by the memory subsystem. Callers compare by identity.
var (
	ENOMEM = New("out of memory", unix.ENOMEM)
	ENOSPC = New("no space left in address range", unix.ENOSPC)
	EFAULT = New("bad address", unix.EFAULT)
	EINVAL = New("invalid argument", unix.EINVAL)
)
