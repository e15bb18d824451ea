// Copyright 2026 The Pumlcheck Authors
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

package engine

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"
)

// ErrCheckFailed is returned by Run() when at least one check failed.
//
// The information will have been provided via the Report interface.
var ErrCheckFailed = errors.New("a check failed")

// BacktraceableError is an error that has a starlark backtrace attached to it.
type BacktraceableError interface {
	error
	// Backtrace returns a user-friendly error message describing the stack
	// of calls that led to this error, along with the error message itself.
	Backtrace() string
}

// evalError is a starlark.EvalError raised while evaluating a configuration
// file.
type evalError struct {
	*starlark.EvalError
}

// Backtrace returns the call stack without the trailing builtin frame.
func (e *evalError) Backtrace() string {
	c := e.CallStack
	if len(c) > 0 && c[len(c)-1].Pos.Filename() == "<builtin>" {
		c = c[:len(c)-1]
	}
	return c.String()
}

var _ BacktraceableError = (*evalError)(nil)

// DirectoryNotFoundError is returned when a directory to scan does not exist,
// is not a directory or cannot be read.
type DirectoryNotFoundError struct {
	Path string
	Err  error
}

func (e *DirectoryNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("directory not found: %s: %s", e.Path, e.Err)
	}
	return "directory not found: " + e.Path
}

func (e *DirectoryNotFoundError) Unwrap() error {
	return e.Err
}

// FileNotFoundError is returned when an expected asset file is absent, is not
// a regular file or cannot be read.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file not found: %s: %s", e.Path, e.Err)
	}
	return "file not found: " + e.Path
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// InvalidExtensionError is returned when a listed file does not end with the
// exact expected extension, e.g. "Foo.PUML" when ".puml" was expected.
type InvalidExtensionError struct {
	Path string
	Ext  string
}

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("%s: expected extension %q", e.Path, e.Ext)
}

// CountMismatchError is returned when two listings that must be paired have
// different lengths.
type CountMismatchError struct {
	DirA   string
	ExtA   string
	CountA int
	DirB   string
	ExtB   string
	CountB int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("found %d %s files in %s but %d %s files in %s",
		e.CountA, e.ExtA, e.DirA, e.CountB, e.ExtB, e.DirB)
}

// NameMismatchError is returned at the first index where the sorted listings
// disagree on the basename.
type NameMismatchError struct {
	Index int
	NameA string
	NameB string
	PathA string
	PathB string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("basename mismatch at index %d: %q (%s) != %q (%s)",
		e.Index, e.NameA, e.PathA, e.NameB, e.PathB)
}

// DecodeError is returned when a file is not valid UTF-8.
type DecodeError struct {
	Path string
	// Line is the 1-based line containing the first invalid byte sequence.
	Line int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s(%d): invalid UTF-8", e.Path, e.Line)
}

// SyntaxError is returned when the syntax checker flagged a document, either
// through its error flag or by returning at least one error record.
type SyntaxError struct {
	Path    string
	Outcome *Outcome
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: syntax check failed: %s", e.Path, e.Outcome.Diagnostic())
}

