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
	"log"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Cursor represents a point in a file.
type Cursor struct {
	Line int
	Col  int

	// Require keyed arguments.
	_ struct{}
}

// Span represents a section in a file.
type Span struct {
	// Start is the beginning of the span. If Col is specified, Line must be
	// specified.
	Start Cursor
	// End is the end of the span. If not specified, the span has only one line.
	// If Col is specified, Start.Col must be specified too. End.Col is the
	// column just past the span.
	End Cursor

	// Require keyed arguments.
	_ struct{}
}

// Level is one of "notice", "warning" or "error".
//
// A check is only considered failed if it emits at least one finding with
// level "error".
type Level string

// Valid Level values.
const (
	Notice  Level = "notice"
	Warning Level = "warning"
	Error   Level = "error"
	Nothing Level = ""
)

func (l Level) rank() int {
	switch l {
	case Notice:
		return 1
	case Warning:
		return 2
	case Error:
		return 3
	default:
		return 0
	}
}

// Report exposes callbacks that the engine calls for everything generated by
// the checks.
type Report interface {
	// EmitFinding emits a finding by a check for a specific file. This is not a
	// failure by itself, unless level "error" is used.
	//
	// file is relative to root, POSIX style. It can be empty.
	EmitFinding(ctx context.Context, check string, level Level, message, root, file string, s Span) error
	// CheckCompleted is called when a check is completed.
	//
	// It is called with the start time, wall clock duration, the highest level
	// emitted and an error if the check could not complete.
	CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, highest Level, err error)
	// Print is called when print() is called in the configuration file.
	Print(ctx context.Context, check, file string, line int, message string)
}

// CheckFilter controls which checks are run.
//
// Names are either a check name, e.g. "sprite_pairs", or a group, e.g.
// "syntax" for every "syntax/..." check.
type CheckFilter struct {
	// AllowList specifies checks to run. If non-empty, all other checks will be
	// skipped.
	AllowList []string
	// DenyList specifies checks to skip.
	DenyList []string
}

func (f *CheckFilter) filter(checks []*check) ([]*check, error) {
	if len(checks) == 0 {
		return checks, nil
	}
	allowList := make(map[string]struct{})
	for _, name := range f.AllowList {
		allowList[name] = struct{}{}
	}
	var allowedAndDenied []string
	denyList := make(map[string]struct{})
	for _, name := range f.DenyList {
		denyList[name] = struct{}{}
		if _, ok := allowList[name]; ok {
			allowedAndDenied = append(allowedAndDenied, name)
		}
	}
	if len(allowedAndDenied) > 0 {
		return nil, fmt.Errorf(
			"checks cannot be both allowed and denied: %s",
			strings.Join(allowedAndDenied, ", "))
	}

	// Track the names that matched at least one check so invalid names can be
	// reported.
	seen := make(map[string]struct{})
	matches := func(list map[string]struct{}, c *check) bool {
		found := false
		for _, n := range []string{c.name, c.group()} {
			if _, ok := list[n]; ok {
				seen[n] = struct{}{}
				found = true
			}
		}
		return found
	}
	var filtered []*check
	for _, c := range checks {
		if len(allowList) != 0 && !matches(allowList, c) {
			continue
		}
		if matches(denyList, c) {
			continue
		}
		filtered = append(filtered, c)
	}

	var invalidChecks []string
	for _, l := range []map[string]struct{}{allowList, denyList} {
		for name := range l {
			if _, ok := seen[name]; !ok {
				invalidChecks = append(invalidChecks, name)
			}
		}
	}
	if len(invalidChecks) > 0 {
		msg := "checks do not exist"
		if len(invalidChecks) == 1 {
			msg = "check does not exist"
		}
		slices.Sort(invalidChecks)
		return nil, fmt.Errorf("%s: %s", msg, strings.Join(invalidChecks, ", "))
	}
	if len(filtered) == 0 {
		// Fail noisily if all checks are filtered out, it's probably user
		// error.
		return nil, errors.New("no checks to run")
	}
	return filtered, nil
}

// Options is the options for Run().
type Options struct {
	// Report gets all the emitted findings from the checks.
	//
	// This is the only required argument. It is recommended to use
	// reporting.Get() which returns the right implementation based on the
	// environment (CI, interactive, etc).
	Report Report
	// Dir is the root of the checkout to analyze. It defaults to the current
	// working directory.
	Dir string
	// Config is the configuration file, relative to Dir. When empty,
	// DefaultConfigFile is used if present.
	Config string
	// Filter controls which checks run.
	Filter CheckFilter
	// Checker overrides the syntax checker selected by the configuration.
	Checker SyntaxChecker
}

// Run loads the configuration from a root directory and runs every check on
// the assets found there.
//
// Checks run concurrently and independently; a failing check never prevents
// another from reporting. Returns ErrCheckFailed if any check failed.
func Run(ctx context.Context, o *Options) error {
	if o.Report == nil {
		return errors.New("a Report is required")
	}
	root, err := resolveRoot(o.Dir)
	if err != nil {
		return err
	}
	cfg, err := LoadConfig(ctx, root, o.Config, o.Config != "", func(file string, line int, msg string) {
		o.Report.Print(ctx, "", file, line, msg)
	})
	if err != nil {
		return err
	}
	checker := o.Checker
	if checker == nil {
		if checker, err = NewChecker(cfg); err != nil {
			return err
		}
	}
	v := &Validator{Checker: checker, StartMarker: cfg.StartMarker, EndMarker: cfg.EndMarker}
	checks, err := o.Filter.filter(buildChecks(cfg, v))
	if err != nil {
		return err
	}
	log.Printf("running %d checks in %s", len(checks), cfg.Layout.Root)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU() + 2)
	for _, c := range checks {
		c := c
		eg.Go(func() error {
			return c.run(ctx, o.Report, cfg.Layout.Root)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	for _, c := range checks {
		if c.failed() {
			return ErrCheckFailed
		}
	}
	return nil
}

// NewChecker returns the SyntaxChecker selected by cfg.
func NewChecker(cfg *Config) (SyntaxChecker, error) {
	switch cfg.Checker {
	case "", CheckerBuiltin:
		return BuiltinChecker{}, nil
	case CheckerPlantUML:
		return NewPlantUMLChecker(cfg.PlantUMLCommand, 0)
	default:
		return nil, fmt.Errorf("unknown checker %q", cfg.Checker)
	}
}

// resolveRoot returns the absolute path of dir.
func resolveRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return "", &DirectoryNotFoundError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return "", &DirectoryNotFoundError{Path: dir, Err: errors.New("not a directory")}
	}
	return filepath.Abs(dir)
}

// check is one independent unit of work reporting its own findings.
type check struct {
	name string
	impl func(ctx context.Context, c *check) error

	// Set while running. A check runs in a single goroutine so no lock is
	// needed.
	r            Report
	root         string
	highestLevel Level
	err          error
}

// group returns the part of the name before the first "/".
func (c *check) group() string {
	g, _, _ := strings.Cut(c.name, "/")
	return g
}

func (c *check) failed() bool {
	return c.err != nil || c.highestLevel == Error
}

func (c *check) run(ctx context.Context, r Report, root string) error {
	c.r = r
	c.root = root
	start := time.Now()
	err := c.impl(ctx, c)
	if err != nil && ctx.Err() != nil {
		// The context was canceled, likely by the user. Don't report a
		// failure that is a side effect of the cancellation.
		return ctx.Err()
	}
	c.err = err
	r.CheckCompleted(ctx, c.name, start, time.Since(start), c.highestLevel, err)
	return nil
}

func (c *check) emit(ctx context.Context, level Level, message, file string, s Span) error {
	if level.rank() > c.highestLevel.rank() {
		c.highestLevel = level
	}
	return c.r.EmitFinding(ctx, c.name, level, message, c.root, file, s)
}

// buildChecks returns every check for the configured layout.
func buildChecks(cfg *Config, v *Validator) []*check {
	l := &cfg.Layout
	checks := []*check{
		{name: "forbidden_tokens", impl: forbiddenTokensCheck(l, cfg.ForbiddenTokens)},
		{name: "sprite_pairs", impl: spritePairsCheck(l)},
		{
			name: "syntax/" + l.Rel(filepath.Join(l.Root, l.Elements)),
			impl: syntaxCheck(l, v, l.ElementsFile),
		},
		{
			name: "syntax/" + l.Rel(filepath.Join(l.Root, l.Dist, l.Generated)),
			impl: syntaxCheck(l, v, l.GeneratedDocFile),
		},
	}
	sprites, err := l.SpriteFiles()
	if err != nil {
		// Report the listing failure as its own check instead of hiding every
		// sprite.
		checks = append(checks, &check{
			name: "syntax/" + l.Rel(l.SpritesDir()),
			impl: func(context.Context, *check) error { return err },
		})
		return checks
	}
	for _, s := range sprites {
		p := s.Path
		checks = append(checks, &check{
			name: "syntax/" + l.Rel(p),
			impl: syntaxCheck(l, v, func() (string, error) { return p, nil }),
		})
	}
	return checks
}

func forbiddenTokensCheck(l *Layout, tokens []string) func(context.Context, *check) error {
	return func(ctx context.Context, c *check) error {
		p, err := l.ElementsFile()
		if err != nil {
			return err
		}
		matches, err := ScanTokens(p, tokens)
		if err != nil {
			return err
		}
		rel := l.Rel(p)
		for _, m := range matches {
			s := Span{
				Start: Cursor{Line: m.Line, Col: m.Col},
				End:   Cursor{Line: m.Line, Col: m.Col + len(m.Token)},
			}
			if err := c.emit(ctx, Error, fmt.Sprintf("forbidden token %q", m.Token), rel, s); err != nil {
				return err
			}
		}
		return nil
	}
}

func spritePairsCheck(l *Layout) func(context.Context, *check) error {
	return func(ctx context.Context, c *check) error {
		res, err := l.CheckSpritePairs()
		if err == nil {
			log.Printf("%d sprite pairs in %s", len(res.Pairs), l.SpritesDir())
			return nil
		}
		var countErr *CountMismatchError
		var nameErr *NameMismatchError
		var extErr *InvalidExtensionError
		switch {
		case errors.As(err, &countErr):
			return c.emit(ctx, Error, err.Error(), l.Rel(l.SpritesDir()), Span{})
		case errors.As(err, &nameErr):
			return c.emit(ctx, Error, err.Error(), l.Rel(nameErr.PathA), Span{})
		case errors.As(err, &extErr):
			return c.emit(ctx, Error, err.Error(), l.Rel(extErr.Path), Span{})
		default:
			return err
		}
	}
}

func syntaxCheck(l *Layout, v *Validator, find func() (string, error)) func(context.Context, *check) error {
	return func(ctx context.Context, c *check) error {
		p, err := find()
		if err != nil {
			return err
		}
		r := v.validate(ctx, p)
		if r.Err != nil {
			return r.Err
		}
		o := r.Outcome
		if !o.Failed() {
			return nil
		}
		rel := l.Rel(p)
		if len(o.Errors) == 0 {
			return c.emit(ctx, Error, "syntax checker flagged an error without details: "+o.Diagnostic(), rel, Span{})
		}
		for _, e := range o.Errors {
			if err := c.emit(ctx, Error, e.Message, rel, Span{Start: Cursor{Line: r.SourceLine(e.Line)}}); err != nil {
				return err
			}
		}
		if !o.IsError {
			return c.emit(ctx, Warning, "syntax checker returned errors without setting its error flag", rel, Span{})
		}
		return nil
	}
}
