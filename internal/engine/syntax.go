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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Default markers wrapped around every validated file. Asset files only
// contain diagram bodies.
const (
	DefaultStartMarker = "@startuml"
	DefaultEndMarker   = "@enduml"
)

// ErrorRecord is one error reported by a SyntaxChecker.
type ErrorRecord struct {
	Message string
	// Line is the 1-based line in the checked document, markers included. 0
	// when unknown.
	Line int
}

func (e ErrorRecord) String() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Outcome is the result of a syntax check of a single document.
type Outcome struct {
	// Description is the free form summary returned by the checker.
	Description string
	// Errors is the list of errors found.
	Errors []ErrorRecord
	// IsError is the checker's own verdict.
	IsError bool
}

// Failed returns true if the checker set its error flag or returned at least
// one error record.
//
// Checkers have been observed to disagree with themselves, so both signals
// are considered.
func (o *Outcome) Failed() bool {
	return o.IsError || len(o.Errors) != 0
}

// Consistent returns false when the error flag and the error records
// disagree.
func (o *Outcome) Consistent() bool {
	return o.IsError == (len(o.Errors) != 0)
}

// Err returns a *SyntaxError if the outcome failed, nil otherwise.
func (o *Outcome) Err(path string) error {
	if !o.Failed() {
		return nil
	}
	return &SyntaxError{Path: path, Outcome: o}
}

// Diagnostic returns a one line summary including the raw error records.
func (o *Outcome) Diagnostic() string {
	recs := make([]string, 0, len(o.Errors))
	for _, e := range o.Errors {
		recs = append(recs, e.String())
	}
	return fmt.Sprintf("%s, [%s], error=%t", o.Description, strings.Join(recs, "; "), o.IsError)
}

// SyntaxChecker validates a complete diagram document.
//
// Implementations must be safe for concurrent use.
type SyntaxChecker interface {
	// CheckSyntax checks lines, which include the start and end markers.
	//
	// It returns an error only when the check itself could not be done.
	CheckSyntax(ctx context.Context, lines []string) (*Outcome, error)
}

// Validator wraps asset files with markers and runs a SyntaxChecker on them.
type Validator struct {
	Checker SyntaxChecker
	// StartMarker and EndMarker default to DefaultStartMarker and
	// DefaultEndMarker.
	StartMarker string
	EndMarker   string
}

// Result is the outcome of validating one file.
type Result struct {
	Path    string
	Outcome *Outcome
	// Err is set when the file could not be validated at all.
	Err error
	// Lines is the number of lines in the file, markers excluded.
	Lines int
}

// Failed returns true if the file could not be validated or if the syntax
// check failed.
func (r *Result) Failed() bool {
	return r.Err != nil || (r.Outcome != nil && r.Outcome.Failed())
}

// Error returns the error for this file, if any; it may be a *SyntaxError.
func (r *Result) Error() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Outcome != nil {
		return r.Outcome.Err(r.Path)
	}
	return nil
}

// SourceLine converts a line of the checked document into a line of the
// file. It returns 0 when the line points at a marker or is out of range.
func (r *Result) SourceLine(docLine int) int {
	if l := docLine - 1; l >= 1 && l <= r.Lines {
		return l
	}
	return 0
}

// Validate reads the file at path, wraps it with the markers and checks its
// syntax.
//
// The returned error is *FileNotFoundError, *DecodeError or an error from the
// checker itself. A syntax error is not an error here; use Outcome.Failed().
func (v *Validator) Validate(ctx context.Context, path string) (*Outcome, error) {
	r := v.validate(ctx, path)
	return r.Outcome, r.Err
}

// Check is Validate that also returns a *SyntaxError when the outcome failed.
func (v *Validator) Check(ctx context.Context, path string) error {
	r := v.validate(ctx, path)
	return r.Error()
}

// ValidateAll validates each file independently and concurrently.
//
// Results are in the same order as paths. A failure for one file does not
// stop the others.
func (v *Validator) ValidateAll(ctx context.Context, paths []string) []Result {
	out := make([]Result, len(paths))
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU() + 2)
	for i := range paths {
		i := i
		eg.Go(func() error {
			out[i] = v.validate(ctx, paths[i])
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (v *Validator) validate(ctx context.Context, path string) Result {
	res := Result{Path: path}
	if v.Checker == nil {
		res.Err = errors.New("no syntax checker configured")
		return res
	}
	lines, err := readLines(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Lines = len(lines)
	start := v.StartMarker
	if start == "" {
		start = DefaultStartMarker
	}
	end := v.EndMarker
	if end == "" {
		end = DefaultEndMarker
	}
	doc := make([]string, 0, len(lines)+2)
	doc = append(doc, start)
	doc = append(doc, lines...)
	doc = append(doc, end)
	o, err := v.Checker.CheckSyntax(ctx, doc)
	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)
		return res
	}
	if o == nil {
		res.Err = fmt.Errorf("%s: syntax checker returned no outcome", path)
		return res
	}
	res.Outcome = o
	return res
}

// readLines reads a UTF-8 text file and splits it into lines.
//
// "\n", "\r\n" and "\r" are all line terminators. A terminator at the end of
// the file does not create an extra empty line.
func readLines(path string) ([]string, error) {
	b := buffers.get()
	defer buffers.push(b)
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileNotFoundError{Path: path, Err: err}
	}
	//#nosec G307
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, &FileNotFoundError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, &FileNotFoundError{Path: path, Err: fs.ErrInvalid}
	}
	if _, err = b.ReadFrom(f); err != nil {
		return nil, &FileNotFoundError{Path: path, Err: err}
	}
	lines := splitLines(b.String())
	for i, l := range lines {
		if !utf8.ValidString(l) {
			return nil, &DecodeError{Path: path, Line: i + 1}
		}
	}
	return lines, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
