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
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/tools/txtar"
)

// writeTree extracts a txtar archive into a new temporary directory and
// returns its path.
func writeTree(t testing.TB, archive string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range txtar.Parse([]byte(archive)).Files {
		writeFile(t, root, f.Name, string(f.Data))
	}
	return root
}

func writeFile(t testing.TB, root, path, content string) {
	writeFileBytes(t, root, path, []byte(content), 0o600)
}

func writeFileBytes(t testing.TB, root, path string, content []byte, perm os.FileMode) {
	abs := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, content, perm); err != nil {
		t.Fatal(err)
	}
}

// validTree is a minimal repository that passes every check.
const validTree = `
-- EIP_Elements.puml --
!$color = "#fff"
!procedure $Element($name)
rectangle $name
!endprocedure
-- dist/EIP-PlantUML.puml --
skinparam shadowing false
-- sprites/Aggregator.puml --
sprite $Aggregator [16x16/16] {
FFFFFF
}
-- sprites/Aggregator.png --
png
-- sprites/Router.puml --
sprite $Router [16x16/16] {
FFFFFF
}
-- sprites/Router.png --
png
`

type reportNoPrint struct {
	t testing.TB
}

func (r *reportNoPrint) EmitFinding(ctx context.Context, check string, level Level, message, root, file string, s Span) error {
	r.t.Errorf("unexpected finding: %s: %s, %q, %s, %s, %# v", check, level, message, root, file, s)
	return errors.New("not implemented")
}

func (r *reportNoPrint) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, l Level, err error) {
}

func (r *reportNoPrint) Print(ctx context.Context, check, file string, line int, message string) {
	r.t.Errorf("unexpected print: %s %s(%d): %s", check, file, line, message)
}

type finding struct {
	Check   string
	Level   Level
	Message string
	File    string
	Span    Span
}

type completed struct {
	Check string
	Level Level
	Err   string
}

// reportEmit records everything, in an order independent of scheduling.
type reportEmit struct {
	mu        sync.Mutex
	findings  []finding
	completed []completed
	b         strings.Builder
}

func (r *reportEmit) EmitFinding(ctx context.Context, check string, level Level, message, root, file string, s Span) error {
	r.mu.Lock()
	r.findings = append(r.findings, finding{Check: check, Level: level, Message: message, File: file, Span: s})
	r.mu.Unlock()
	return nil
}

func (r *reportEmit) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, l Level, err error) {
	c := completed{Check: check, Level: l}
	if err != nil {
		c.Err = err.Error()
	}
	r.mu.Lock()
	r.completed = append(r.completed, c)
	r.mu.Unlock()
}

func (r *reportEmit) Print(ctx context.Context, check, file string, line int, message string) {
	r.mu.Lock()
	fmt.Fprintf(&r.b, "[%s:%d] %s\n", file, line, message)
	r.mu.Unlock()
}

// fakeChecker records the documents it receives and returns a fixed outcome.
type fakeChecker struct {
	mu      sync.Mutex
	docs    [][]string
	outcome Outcome
	err     error
}

func (f *fakeChecker) CheckSyntax(ctx context.Context, lines []string) (*Outcome, error) {
	f.mu.Lock()
	f.docs = append(f.docs, lines)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	o := f.outcome
	return &o, nil
}

func init() {
	// Silence logging.
	log.SetOutput(io.Discard)
}
