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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuiltinChecker_Valid(t *testing.T) {
	t.Parallel()
	data := []struct {
		name string
		doc  string
	}{
		{"minimal", "@startuml\nrectangle a\n@enduml"},
		{"blank lines around", "\n@startuml\nrectangle a\n@enduml\n\n"},
		{
			"sprite",
			"@startuml\nsprite $Router [4x4/16] {\nFFFF\n0000\n}\n@enduml",
		},
		{
			"preprocessor",
			strings.Join([]string{
				"@startuml",
				"!$size = 12",
				"!unquoted procedure Element($name, $stereo=\"\")",
				"!if ($stereo == \"\")",
				"rectangle $name",
				"!else",
				"rectangle $name <<$stereo>>",
				"!endif",
				"!endprocedure",
				"!function $double($a) !return $a * 2",
				"!include <tupadr3/common>",
				"@enduml",
			}, "\n"),
		},
		{
			"comments",
			strings.Join([]string{
				"@startuml",
				"' !bogus directive in a comment",
				"/' block",
				"   !also ignored {",
				"'/",
				"/' one line '/",
				"rectangle a",
				"@enduml",
			}, "\n"),
		},
		{
			"nested braces",
			"@startuml\npackage p {\nnode n {\n}\n} \n@enduml",
		},
	}
	for i := range data {
		i := i
		t.Run(data[i].name, func(t *testing.T) {
			t.Parallel()
			lines := strings.Split(data[i].doc, "\n")
			o, err := BuiltinChecker{}.CheckSyntax(context.Background(), lines)
			if err != nil {
				t.Fatal(err)
			}
			if o.Failed() {
				t.Fatalf("unexpected failure: %s", o.Diagnostic())
			}
			if !o.Consistent() {
				t.Fatal("inconsistent outcome")
			}
		})
	}
}

func TestBuiltinChecker_Errors(t *testing.T) {
	t.Parallel()
	data := []struct {
		name string
		doc  []string
		want []ErrorRecord
	}{
		{
			"empty",
			[]string{"", "  "},
			[]ErrorRecord{{Message: "empty document"}},
		},
		{
			"missing end",
			[]string{"@startuml", "rectangle a"},
			[]ErrorRecord{{Message: "missing @end marker", Line: 2}},
		},
		{
			"content before start",
			[]string{"rectangle a", "@startuml", "@enduml"},
			[]ErrorRecord{
				{Message: "content before @start marker", Line: 1},
				{Message: "nested @startuml", Line: 2},
			},
		},
		{
			"nested start",
			[]string{"@startuml", "@startuml", "@enduml"},
			[]ErrorRecord{{Message: "nested @startuml", Line: 2}},
		},
		{
			"content after end",
			[]string{"@startuml", "@enduml", "rectangle a"},
			[]ErrorRecord{{Message: "content after @enduml", Line: 2}},
		},
		{
			"duplicate end",
			[]string{"@startuml", "@enduml", "@enduml"},
			[]ErrorRecord{
				{Message: "content after @enduml", Line: 2},
				{Message: "duplicate @enduml", Line: 3},
			},
		},
		{
			"unbalanced close brace",
			[]string{"@startuml", "}", "@enduml"},
			[]ErrorRecord{{Message: `unbalanced "}"`, Line: 2}},
		},
		{
			"unclosed brace",
			[]string{"@startuml", "package p {", "@enduml"},
			[]ErrorRecord{{Message: `"{" is never closed`, Line: 2}},
		},
		{
			"unterminated comment",
			[]string{"@startuml", "/' never", "@enduml"},
			[]ErrorRecord{
				{Message: "unterminated block comment", Line: 2},
				{Message: "missing @end marker", Line: 3},
			},
		},
		{
			"unknown directive",
			[]string{"@startuml", "!bogus", "@enduml"},
			[]ErrorRecord{{Message: "unknown directive !bogus", Line: 2}},
		},
		{
			"empty directive",
			[]string{"@startuml", "!", "@enduml"},
			[]ErrorRecord{{Message: "empty directive", Line: 2}},
		},
		{
			"unclosed procedure",
			[]string{"@startuml", "!procedure $p()", "@enduml"},
			[]ErrorRecord{{Message: "!procedure is never closed by !endprocedure", Line: 2}},
		},
		{
			"mismatched closer",
			[]string{"@startuml", "!if %true()", "!endprocedure", "@enduml"},
			[]ErrorRecord{{Message: "!endprocedure closes !if opened at line 2", Line: 3}},
		},
		{
			"unexpected closer",
			[]string{"@startuml", "!endif", "@enduml"},
			[]ErrorRecord{{Message: "unexpected !endif", Line: 2}},
		},
		{
			"else outside if",
			[]string{"@startuml", "!else", "@enduml"},
			[]ErrorRecord{{Message: "!else outside of !if", Line: 2}},
		},
	}
	for i := range data {
		i := i
		t.Run(data[i].name, func(t *testing.T) {
			t.Parallel()
			o, err := BuiltinChecker{}.CheckSyntax(context.Background(), data[i].doc)
			if err != nil {
				t.Fatal(err)
			}
			if !o.IsError || o.Description != "Syntax Error?" {
				t.Fatalf("unexpected outcome: %s", o.Diagnostic())
			}
			if diff := cmp.Diff(data[i].want, o.Errors); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuiltinChecker_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (BuiltinChecker{}).CheckSyntax(ctx, []string{"@startuml", "@enduml"}); err == nil {
		t.Fatal("expecting an error")
	}
}
