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
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScanTokens(t *testing.T) {
	t.Parallel()
	root := writeTree(t, `
-- a.puml --
rectangle a
!$r_label = "x" ' r_label
a.b(c)
`)
	p := filepath.Join(root, "a.puml")
	got, err := ScanTokens(p, []string{"r_label", "a.b(", ""})
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenMatch{
		{Token: "r_label", Line: 2, Col: 3, Text: `!$r_label = "x" ' r_label`},
		{Token: "r_label", Line: 2, Col: 19, Text: `!$r_label = "x" ' r_label`},
		{Token: "a.b(", Line: 3, Col: 1, Text: "a.b(c)"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got, err = ScanTokens(p, DefaultForbiddenTokens[:0])
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no match, got %v", got)
	}
}

func TestScanTokens_Missing(t *testing.T) {
	t.Parallel()
	_, err := ScanTokens(filepath.Join(t.TempDir(), "missing.puml"), DefaultForbiddenTokens)
	var fileErr *FileNotFoundError
	if !errors.As(err, &fileErr) {
		t.Fatalf("expected FileNotFoundError, got %v", err)
	}
}
