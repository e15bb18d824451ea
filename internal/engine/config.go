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
	"path"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/starlark/builtins"
	"go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/mod/semver"
)

// DefaultConfigFile is the basename of the optional configuration file looked
// up in the root directory.
const DefaultConfigFile = "pumlcheck.star"

// Checker names accepted by checker().
const (
	CheckerBuiltin  = "builtin"
	CheckerPlantUML = "plantuml"
)

var errEmptyIgnore = errors.New("ignore patterns cannot be empty strings")

// Config is the evaluated content of a pumlcheck.star file.
type Config struct {
	Layout          Layout
	ForbiddenTokens []string
	StartMarker     string
	EndMarker       string
	// Checker is CheckerBuiltin or CheckerPlantUML.
	Checker string
	// PlantUMLCommand is only used with CheckerPlantUML.
	PlantUMLCommand []string
	// MinVersion is the version requested by min_version(), if any.
	MinVersion string
}

// DefaultConfig is the configuration used when no pumlcheck.star exists.
func DefaultConfig(root string) *Config {
	return &Config{
		Layout:          DefaultLayout(root),
		ForbiddenTokens: append([]string(nil), DefaultForbiddenTokens...),
		StartMarker:     DefaultStartMarker,
		EndMarker:       DefaultEndMarker,
		Checker:         CheckerBuiltin,
	}
}

// PrintFunc receives the output of print() in configuration files.
type PrintFunc func(file string, line int, message string)

// LoadConfig evaluates the configuration file name, relative to root.
//
// When the file doesn't exist, DefaultConfig is returned unless mustExist is
// set.
func LoadConfig(ctx context.Context, root, name string, mustExist bool, pi PrintFunc) (*Config, error) {
	if name == "" {
		name = DefaultConfigFile
	}
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	cfg := DefaultConfig(root)
	src, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !mustExist {
			return cfg, nil
		}
		return nil, err
	}
	l := configLoader{cfg: cfg, root: root}
	th := &starlark.Thread{
		Name: "config",
		Print: func(th *starlark.Thread, msg string) {
			if pi != nil {
				pos := th.CallFrame(1).Pos
				pi(pos.Filename(), int(pos.Line), msg)
			}
		},
	}
	stop := context.AfterFunc(ctx, func() {
		th.Cancel(ctx.Err().Error())
	})
	defer stop()
	if _, err = starlark.ExecFileOptions(starlarkOptions(), th, name, src, l.predeclared()); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, &evalError{evalErr}
		}
		return nil, err
	}
	return cfg, nil
}

func starlarkOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:       true,
		While:     true,
		Recursion: true,
	}
}

// configLoader holds the state mutated by the configuration builtins.
type configLoader struct {
	cfg  *Config
	root string

	layoutCalled  bool
	forbidCalled  bool
	markersCalled bool
	checkerCalled bool
}

func (l *configLoader) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"checker":     starlark.NewBuiltin("checker", l.checker),
		"forbid":      starlark.NewBuiltin("forbid", l.forbid),
		"ignore":      starlark.NewBuiltin("ignore", l.ignore),
		"layout":      starlark.NewBuiltin("layout", l.layout),
		"markers":     starlark.NewBuiltin("markers", l.markers),
		"min_version": starlark.NewBuiltin("min_version", l.minVersion),

		"fail": builtins.Fail,
		"json": json.Module,
	}
}

// minVersion implements min_version("x.y.z").
func (l *configLoader) minVersion(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var v string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &v); err != nil {
		return nil, err
	}
	sv := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(sv) {
		return nil, fmt.Errorf("%s: invalid version %q", fn.Name(), v)
	}
	if semver.Compare(sv, "v"+Version.String()) > 0 {
		return nil, fmt.Errorf("%s: configuration requires pumlcheck %s, running %s", fn.Name(), v, Version)
	}
	l.cfg.MinVersion = v
	return starlark.None, nil
}

// layout implements layout(root=, dist=, sprites=, elements=, generated=).
func (l *configLoader) layout(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("%s: only keyword arguments are accepted", fn.Name())
	}
	if l.layoutCalled {
		return nil, fmt.Errorf("%s: can only be called once", fn.Name())
	}
	l.layoutCalled = true
	var root, dist, sprites, elements, generated string
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"root?", &root,
		"dist?", &dist,
		"sprites?", &sprites,
		"elements?", &elements,
		"generated?", &generated,
	); err != nil {
		return nil, err
	}
	for _, a := range []struct {
		name string
		v    string
		dst  *string
	}{
		{"dist", dist, &l.cfg.Layout.Dist},
		{"sprites", sprites, &l.cfg.Layout.Sprites},
		{"elements", elements, &l.cfg.Layout.Elements},
		{"generated", generated, &l.cfg.Layout.Generated},
	} {
		if a.v == "" {
			continue
		}
		if err := validRelPath(a.v); err != nil {
			return nil, fmt.Errorf("%s: for parameter %q: %s %w", fn.Name(), a.name, a.v, err)
		}
		*a.dst = filepath.FromSlash(a.v)
	}
	if root != "" {
		if err := validRelPath(root); err != nil {
			return nil, fmt.Errorf("%s: for parameter \"root\": %s %w", fn.Name(), root, err)
		}
		l.cfg.Layout.Root = filepath.Join(l.root, filepath.FromSlash(root))
	}
	return starlark.None, nil
}

// ignore implements ignore(*patterns).
func (l *configLoader) ignore(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	patterns, err := unpackStrings(fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	for _, p := range patterns {
		if p == "" {
			return nil, fmt.Errorf("%s: %w", fn.Name(), errEmptyIgnore)
		}
	}
	l.cfg.Layout.Ignore = append(l.cfg.Layout.Ignore, patterns...)
	return starlark.None, nil
}

// forbid implements forbid(*tokens). The first call replaces the default
// tokens.
func (l *configLoader) forbid(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	tokens, err := unpackStrings(fn, args, kwargs)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t == "" {
			return nil, fmt.Errorf("%s: tokens cannot be empty strings", fn.Name())
		}
	}
	if !l.forbidCalled {
		l.forbidCalled = true
		l.cfg.ForbiddenTokens = nil
	}
	l.cfg.ForbiddenTokens = append(l.cfg.ForbiddenTokens, tokens...)
	return starlark.None, nil
}

// markers implements markers(start=, end=).
func (l *configLoader) markers(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if l.markersCalled {
		return nil, fmt.Errorf("%s: can only be called once", fn.Name())
	}
	l.markersCalled = true
	start, end := DefaultStartMarker, DefaultEndMarker
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "start?", &start, "end?", &end); err != nil {
		return nil, err
	}
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, fmt.Errorf("%s: markers cannot be empty", fn.Name())
	}
	l.cfg.StartMarker = start
	l.cfg.EndMarker = end
	return starlark.None, nil
}

// checker implements checker(name, command=[]).
func (l *configLoader) checker(th *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if l.checkerCalled {
		return nil, fmt.Errorf("%s: can only be called once", fn.Name())
	}
	l.checkerCalled = true
	var name string
	var command *starlark.List
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "command?", &command); err != nil {
		return nil, err
	}
	switch name {
	case CheckerBuiltin:
		if command != nil && command.Len() != 0 {
			return nil, fmt.Errorf("%s: command is only supported with %q", fn.Name(), CheckerPlantUML)
		}
	case CheckerPlantUML:
		if command != nil {
			cmd, err := listOfStrings(command)
			if err != nil {
				return nil, fmt.Errorf("%s: for parameter \"command\": %w", fn.Name(), err)
			}
			l.cfg.PlantUMLCommand = cmd
		}
	default:
		return nil, fmt.Errorf("%s: unknown checker %q, expected %q or %q", fn.Name(), name, CheckerBuiltin, CheckerPlantUML)
	}
	l.cfg.Checker = name
	return starlark.None, nil
}

func unpackStrings(fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) ([]string, error) {
	if len(kwargs) != 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", fn.Name())
	}
	out := make([]string, 0, len(args))
	for i, a := range args {
		s, ok := starlark.AsString(a)
		if !ok {
			return nil, fmt.Errorf("%s: for argument %d: got %s, want string", fn.Name(), i+1, a.Type())
		}
		out = append(out, s)
	}
	return out, nil
}

func listOfStrings(l *starlark.List) ([]string, error) {
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		s, ok := starlark.AsString(l.Index(i))
		if !ok {
			return nil, fmt.Errorf("item %d: got %s, want string", i+1, l.Index(i).Type())
		}
		if s == "" {
			return nil, fmt.Errorf("item %d is empty", i+1)
		}
		out = append(out, s)
	}
	return out, nil
}

// validRelPath validates a POSIX style path relative to the root.
func validRelPath(rel string) error {
	if strings.Contains(rel, "\\") {
		return errors.New("use POSIX style path")
	}
	if path.IsAbs(rel) {
		return errors.New("do not use absolute path")
	}
	// This is overly zealous. Revisit if it is too much.
	if path.Clean(rel) != rel {
		return errors.New("pass cleaned path")
	}
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return errors.New("cannot escape root")
	}
	return nil
}
