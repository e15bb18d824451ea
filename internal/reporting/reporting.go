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

// Package reporting renders check results for humans and CI systems.
package reporting

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Report is a closable engine.Report.
type Report interface {
	io.Closer
	engine.Report
}

// Get returns the right reporting implementation based on the current
// environment.
func Get(ctx context.Context) (*MultiReport, error) {
	r := &MultiReport{}

	// On LUCI/Swarming. ResultDB!
	if os.Getenv("LUCI_CONTEXT") != "" {
		l := &luci{batchWaitDuration: 20 * time.Millisecond}
		if err := l.init(ctx); err != nil {
			return nil, err
		}
		r.Reporters = append(r.Reporters, l)
	}

	// The following reporters all emit to stdout so they are mutually
	// exclusive.
	switch {
	case os.Getenv("GITHUB_RUN_ID") != "":
		r.Reporters = append(r.Reporters, &github{out: os.Stdout})
	case os.Getenv("TERM") != "dumb" && isatty.IsTerminal(os.Stderr.Fd()):
		// Active terminal. Colors!
		r.Reporters = append(r.Reporters, &interactive{out: colorable.NewColorableStdout()})
	default:
		// Anything else, e.g. redirected output.
		r.Reporters = append(r.Reporters, &basic{out: os.Stdout})
	}
	return r, nil
}

// tally counts completed and failed checks.
type tally struct {
	mu     sync.Mutex
	total  int
	failed int
}

func (t *tally) add(level engine.Level, err error) {
	t.mu.Lock()
	t.total++
	if err != nil || level == engine.Error {
		t.failed++
	}
	t.mu.Unlock()
}

func (t *tally) get() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total, t.failed
}

// status returns the word printed for a completed check.
func status(level engine.Level, err error) engine.Level {
	if err != nil {
		return engine.Error
	}
	if level == engine.Nothing || level == engine.Notice {
		return "success"
	}
	return level
}

// location formats file and line the way compilers do.
func location(file string, s engine.Span) string {
	if s.Start.Line > 0 {
		return fmt.Sprintf("%s(%d)", file, s.Start.Line)
	}
	return file
}

// basic is the plain text reporter used when the output is redirected.
type basic struct {
	out io.Writer
	tally
}

func (b *basic) Close() error {
	total, failed := b.get()
	if total == 0 {
		return nil
	}
	_, err := fmt.Fprintf(b.out, "%d checks, %d failed\n", total, failed)
	return err
}

func (b *basic) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	if file != "" {
		_, err := fmt.Fprintf(b.out, "[%s/%s] %s: %s\n", check, level, location(file, s), message)
		return err
	}
	_, err := fmt.Fprintf(b.out, "[%s/%s] %s\n", check, level, message)
	return err
}

func (b *basic) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	b.add(level, err)
	if err != nil {
		fmt.Fprintf(b.out, "- %s (%s in %s): %s\n", check, status(level, err), d.Round(time.Millisecond), err)
	} else {
		fmt.Fprintf(b.out, "- %s (%s in %s)\n", check, status(level, err), d.Round(time.Millisecond))
	}
}

func (b *basic) Print(ctx context.Context, check, file string, line int, message string) {
	if check != "" {
		fmt.Fprintf(b.out, "- %s [%s:%d] %s\n", check, file, line, message)
	} else {
		fmt.Fprintf(b.out, "[%s:%d] %s\n", file, line, message)
	}
}

// github is the Report implementation when running inside a GitHub Actions
// Workflow.
//
// See https://docs.github.com/en/actions/using-workflows/workflow-commands-for-github-actions
type github struct {
	out io.Writer
}

func (g *github) Close() error {
	return nil
}

func (g *github) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	var params []string
	if file != "" {
		params = append(params, "file="+file)
		if s.Start.Line > 0 {
			params = append(params, fmt.Sprintf("line=%d", s.Start.Line))
			if s.Start.Col > 0 {
				params = append(params, fmt.Sprintf("col=%d", s.Start.Col))
			}
			if s.End.Line > 0 {
				params = append(params, fmt.Sprintf("endLine=%d", s.End.Line))
				if s.End.Col > 0 {
					params = append(params, fmt.Sprintf("endColumn=%d", s.End.Col))
				}
			}
		}
	}
	params = append(params, "title="+check)
	_, err := fmt.Fprintf(g.out, "::%s %s::%s\n", level, strings.Join(params, ","), escapeData(message))
	return err
}

func (g *github) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	if err != nil {
		// Surface checks that could not run at all, e.g. a missing directory.
		fmt.Fprintf(g.out, "::error title=%s::%s\n", check, escapeData(err.Error()))
	}
}

func (g *github) Print(ctx context.Context, check, file string, line int, message string) {
	// Use debug since the file/line reference points to the configuration
	// file, which is rarely part of the change being reviewed.
	if check != "" {
		fmt.Fprintf(g.out, "::debug::%s [%s:%d] %s\n", check, file, line, escapeData(message))
	} else {
		fmt.Fprintf(g.out, "::debug::[%s:%d] %s\n", file, line, escapeData(message))
	}
}

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(s)
}

// interactive is the colored reporter for terminals. It prints the lines
// referenced by each finding.
type interactive struct {
	out io.Writer
	tally
}

func (i *interactive) Close() error {
	total, failed := i.get()
	if total == 0 {
		return nil
	}
	c := fgGreen
	if failed != 0 {
		c = fgRed
	}
	_, err := fmt.Fprintf(i.out, "%s%d checks, %s%d failed%s\n", reset, total, c, failed, reset)
	return err
}

func (i *interactive) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	c := levelColor[level]
	if file == "" {
		_, err := fmt.Fprintf(i.out, "%s[%s%s%s/%s%s%s] %s\n", reset, fgHiCyan, check, reset, c, level, reset, message)
		return err
	}
	if _, err := fmt.Fprintf(i.out, "%s[%s%s%s/%s%s%s] %s: %s\n", reset, fgHiCyan, check, reset, c, level, reset, location(file, s), message); err != nil {
		return err
	}
	if s.Start.Line <= 0 {
		return nil
	}
	return i.excerpt(filepath.Join(root, filepath.FromSlash(file)), s, c)
}

// excerpt prints the lines covered by s, preceded by one line of context.
func (i *interactive) excerpt(path string, s engine.Span, c ansiCode) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	start := s.Start.Line
	end := max(s.End.Line, start)
	if start > len(lines) {
		// The check pointed past the end of the file; still print the
		// finding itself.
		return nil
	}
	end = min(end, len(lines))
	fmt.Fprintln(i.out)
	for n := max(1, start-1); n <= end; n++ {
		l := lines[n-1]
		if n < start {
			fmt.Fprintf(i.out, "  %s%4d%s  %s\n", faint, n, reset, l)
			continue
		}
		from, to := 0, len(l)
		if n == start && s.Start.Col > 0 {
			from = min(s.Start.Col-1, len(l))
		}
		if n == end && s.End.Col > 0 {
			to = min(s.End.Col-1, len(l))
		}
		to = max(to, from)
		fmt.Fprintf(i.out, "  %s%4d%s  %s%s%s%s%s\n", faint, n, reset, l[:from], c, l[from:to], reset, l[to:])
	}
	_, err = fmt.Fprintln(i.out)
	return err
}

func (i *interactive) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	i.add(level, err)
	st := status(level, err)
	c := levelColor[st]
	if err != nil {
		fmt.Fprintf(i.out, "%s- %s%s%s (%s in %s): %s\n", reset, c, check, reset, st, d.Round(time.Millisecond), err)
	} else {
		fmt.Fprintf(i.out, "%s- %s%s%s (%s in %s)\n", reset, c, check, reset, st, d.Round(time.Millisecond))
	}
}

func (i *interactive) Print(ctx context.Context, check, file string, line int, message string) {
	if check != "" {
		fmt.Fprintf(i.out, "%s- %s%s %s[%s%s:%d%s] %s%s%s\n", reset, fgYellow, check, reset, fgHiBlue, file, line, reset, bold, message, reset)
	} else {
		fmt.Fprintf(i.out, "%s[%s%s:%d%s] %s%s%s\n", reset, fgHiBlue, file, line, reset, bold, message, reset)
	}
}

var levelColor = map[engine.Level]ansiCode{
	engine.Notice:  fgGreen,
	engine.Warning: fgYellow,
	engine.Error:   fgRed,
	engine.Nothing: fgGreen,
	"success":      fgGreen,
}
