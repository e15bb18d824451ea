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
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidator_Markers(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "-- a.puml --\nfoo\r\nbar\r\n")
	data := []struct {
		name  string
		v     Validator
		want  []string
		lines int
	}{
		{
			"default",
			Validator{},
			[]string{"@startuml", "foo", "bar", "@enduml"},
			2,
		},
		{
			"custom",
			Validator{StartMarker: "@startmindmap", EndMarker: "@endmindmap"},
			[]string{"@startmindmap", "foo", "bar", "@endmindmap"},
			2,
		},
	}
	for i := range data {
		i := i
		t.Run(data[i].name, func(t *testing.T) {
			t.Parallel()
			f := &fakeChecker{}
			v := data[i].v
			v.Checker = f
			o, err := v.Validate(context.Background(), filepath.Join(root, "a.puml"))
			if err != nil {
				t.Fatal(err)
			}
			if o.Failed() {
				t.Fatalf("unexpected failure: %s", o.Diagnostic())
			}
			if diff := cmp.Diff([][]string{data[i].want}, f.docs); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidator_Check(t *testing.T) {
	t.Parallel()
	root := writeTree(t, "-- a.puml --\nfoo\n")
	p := filepath.Join(root, "a.puml")
	data := []struct {
		name    string
		outcome Outcome
		wantErr string
	}{
		{
			"valid",
			Outcome{Description: "(1 lines)"},
			"",
		},
		{
			"flag only",
			Outcome{Description: "Syntax Error?", IsError: true},
			p + ": syntax check failed: Syntax Error?, [], error=true",
		},
		{
			"records only",
			Outcome{Description: "x", Errors: []ErrorRecord{{Message: "bad", Line: 2}}},
			p + ": syntax check failed: x, [line 2: bad], error=false",
		},
		{
			"both",
			Outcome{
				Description: "Syntax Error?",
				Errors:      []ErrorRecord{{Message: "bad"}, {Message: "worse", Line: 3}},
				IsError:     true,
			},
			p + ": syntax check failed: Syntax Error?, [bad; line 3: worse], error=true",
		},
	}
	for i := range data {
		i := i
		t.Run(data[i].name, func(t *testing.T) {
			t.Parallel()
			v := Validator{Checker: &fakeChecker{outcome: data[i].outcome}}
			err := v.Check(context.Background(), p)
			if data[i].wantErr == "" {
				if err != nil {
					t.Fatal(err)
				}
				return
			}
			var synErr *SyntaxError
			if !errors.As(err, &synErr) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if diff := cmp.Diff(data[i].wantErr, err.Error()); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
			if synErr.Outcome.Consistent() != (data[i].outcome.IsError == (len(data[i].outcome.Errors) != 0)) {
				t.Fatal("unexpected consistency")
			}
		})
	}
}

func TestValidator_Fail(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFileBytes(t, root, "latin1.puml", []byte("ok\ncaf\xe9\n"), 0o600)
	writeFile(t, root, "dir/x.puml", "")

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		v := Validator{Checker: &fakeChecker{}}
		_, err := v.Validate(context.Background(), filepath.Join(root, "missing.puml"))
		var fileErr *FileNotFoundError
		if !errors.As(err, &fileErr) {
			t.Fatalf("expected FileNotFoundError, got %v", err)
		}
	})
	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		v := Validator{Checker: &fakeChecker{}}
		_, err := v.Validate(context.Background(), filepath.Join(root, "dir"))
		var fileErr *FileNotFoundError
		if !errors.As(err, &fileErr) {
			t.Fatalf("expected FileNotFoundError, got %v", err)
		}
	})
	t.Run("decode", func(t *testing.T) {
		t.Parallel()
		f := &fakeChecker{}
		v := Validator{Checker: f}
		_, err := v.Validate(context.Background(), filepath.Join(root, "latin1.puml"))
		want := &DecodeError{Path: filepath.Join(root, "latin1.puml"), Line: 2}
		if diff := cmp.Diff(error(want), err); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
		if len(f.docs) != 0 {
			t.Fatal("the checker must not be called")
		}
	})
	t.Run("checker error", func(t *testing.T) {
		t.Parallel()
		v := Validator{Checker: &fakeChecker{err: errors.New("boom")}}
		p := filepath.Join(root, "dir", "x.puml")
		_, err := v.Validate(context.Background(), p)
		if err == nil || err.Error() != p+": boom" {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("no checker", func(t *testing.T) {
		t.Parallel()
		v := Validator{}
		if _, err := v.Validate(context.Background(), filepath.Join(root, "dir", "x.puml")); err == nil {
			t.Fatal("expecting an error")
		}
	})
}

func TestValidator_ValidateAll(t *testing.T) {
	t.Parallel()
	root := writeTree(t, `
-- good.puml --
rectangle a
-- bad.puml --
rectangle a {
-- also_good.puml --
rectangle b
`)
	paths := []string{
		filepath.Join(root, "good.puml"),
		filepath.Join(root, "missing.puml"),
		filepath.Join(root, "bad.puml"),
		filepath.Join(root, "also_good.puml"),
	}
	v := Validator{Checker: BuiltinChecker{}}
	res := v.ValidateAll(context.Background(), paths)
	if len(res) != len(paths) {
		t.Fatalf("got %d results", len(res))
	}
	var got []bool
	for i, r := range res {
		if r.Path != paths[i] {
			t.Errorf("result %d is for %s", i, r.Path)
		}
		got = append(got, r.Failed())
	}
	if diff := cmp.Diff([]bool{false, true, true, false}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	var synErr *SyntaxError
	if !errors.As(res[2].Error(), &synErr) {
		t.Fatalf("expected SyntaxError, got %v", res[2].Error())
	}
	// "{" is on the first line of the file, the second of the document.
	if diff := cmp.Diff([]ErrorRecord{{Message: `"{" is never closed`, Line: 2}}, synErr.Outcome.Errors); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if l := res[2].SourceLine(2); l != 1 {
		t.Fatalf("expected source line 1, got %d", l)
	}
}

func TestResult_SourceLine(t *testing.T) {
	t.Parallel()
	r := Result{Lines: 3}
	for doc, want := range map[int]int{0: 0, 1: 0, 2: 1, 4: 3, 5: 0, 10: 0} {
		if got := r.SourceLine(doc); got != want {
			t.Errorf("SourceLine(%d) = %d, want %d", doc, got, want)
		}
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()
	data := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		{"a\rb", []string{"a", "b"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"\n", []string{""}},
	}
	for _, d := range data {
		if diff := cmp.Diff(d.want, splitLines(d.in)); diff != "" {
			t.Errorf("splitLines(%q) mismatch (-want +got):\n%s", d.in, diff)
		}
	}
}
