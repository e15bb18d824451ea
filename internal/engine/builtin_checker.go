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
	"fmt"
	"strings"
)

// BuiltinChecker is a structural SyntaxChecker that does not need PlantUML.
//
// It verifies the document markers, block comments, "{" / "}" blocks and
// preprocessor blocks, and rejects unknown preprocessor directives. It does
// not understand diagram semantics.
type BuiltinChecker struct{}

var _ SyntaxChecker = BuiltinChecker{}

// directiveClosers maps block opening directives to their closing directive.
var directiveClosers = map[string]string{
	"procedure":  "endprocedure",
	"function":   "endfunction",
	"if":         "endif",
	"ifdef":      "endif",
	"ifndef":     "endif",
	"while":      "endwhile",
	"foreach":    "endfor",
	"definelong": "enddefinelong",
	"startsub":   "endsub",
}

// knownDirectives is every other directive accepted by the preprocessor.
var knownDirectives = map[string]struct{}{
	"assert":        {},
	"define":        {},
	"dump_memory":   {},
	"else":          {},
	"elseif":        {},
	"global":        {},
	"import":        {},
	"include":       {},
	"include_many":  {},
	"include_once":  {},
	"includedef":    {},
	"includesub":    {},
	"includeurl":    {},
	"local":         {},
	"log":           {},
	"pragma":        {},
	"return":        {},
	"theme":         {},
	"undef":         {},
	"endprocedure":  {},
	"endfunction":   {},
	"endif":         {},
	"endwhile":      {},
	"endfor":        {},
	"enddefinelong": {},
	"endsub":        {},
}

type openBlock struct {
	directive string
	line      int
}

// CheckSyntax implements SyntaxChecker.
func (BuiltinChecker) CheckSyntax(ctx context.Context, lines []string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var errs []ErrorRecord
	add := func(line int, format string, args ...any) {
		errs = append(errs, ErrorRecord{Message: fmt.Sprintf(format, args...), Line: line})
	}

	first, last := 0, 0
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			if first == 0 {
				first = i + 1
			}
			last = i + 1
		}
	}
	if first == 0 {
		add(0, "empty document")
		return &Outcome{Description: "Syntax Error?", Errors: errs, IsError: true}, nil
	}

	var directives []openBlock
	var braces []int
	commentStart := 0
	started, ended := false, false
	for i, l := range lines {
		n := i + 1
		t := strings.TrimSpace(l)
		if commentStart != 0 {
			if strings.Contains(t, "'/") {
				commentStart = 0
			}
			continue
		}
		if t == "" || strings.HasPrefix(t, "'") {
			continue
		}
		if strings.HasPrefix(t, "/'") {
			if !strings.Contains(t[2:], "'/") {
				commentStart = n
			}
			continue
		}
		if strings.HasPrefix(t, "@start") {
			if started {
				add(n, "nested %s", t)
			} else if n != first {
				add(n, "%s must be the first line", t)
			}
			started = true
			continue
		}
		if strings.HasPrefix(t, "@end") {
			if ended {
				add(n, "duplicate %s", t)
			} else if n != last {
				add(n, "content after %s", t)
			}
			ended = true
			continue
		}
		if !started {
			add(n, "content before @start marker")
			started = true
		}
		if strings.HasPrefix(t, "!") {
			directives = checkDirective(n, t, directives, add)
			continue
		}
		if strings.HasPrefix(t, "}") {
			if len(braces) == 0 {
				add(n, "unbalanced \"}\"")
			} else {
				braces = braces[:len(braces)-1]
			}
		}
		if strings.HasSuffix(t, "{") {
			braces = append(braces, n)
		}
	}
	if commentStart != 0 {
		add(commentStart, "unterminated block comment")
	}
	for _, d := range directives {
		add(d.line, "!%s is never closed by !%s", d.directive, directiveClosers[d.directive])
	}
	for _, b := range braces {
		add(b, "\"{\" is never closed")
	}
	if !ended {
		add(last, "missing @end marker")
	}
	if len(errs) != 0 {
		return &Outcome{Description: "Syntax Error?", Errors: errs, IsError: true}, nil
	}
	return &Outcome{Description: fmt.Sprintf("(%d lines)", len(lines))}, nil
}

// checkDirective validates one preprocessor line and updates the stack of
// open blocks.
func checkDirective(n int, t string, open []openBlock, add func(int, string, ...any)) []openBlock {
	words := strings.Fields(t[1:])
	if len(words) == 0 {
		add(n, "empty directive")
		return open
	}
	w := words[0]
	if strings.HasPrefix(w, "$") {
		// Variable assignment, e.g. "!$color = red".
		return open
	}
	// Modifiers, e.g. "!unquoted procedure $foo()".
	for i := 1; (w == "unquoted" || w == "final") && i < len(words); i++ {
		w = words[i]
	}
	if i := strings.IndexAny(w, "($"); i > 0 {
		w = w[:i]
	}
	w = strings.ToLower(w)
	if _, ok := directiveClosers[w]; ok {
		// A one line function: !function $f($a) !return $a
		if w == "function" && strings.Contains(t, "!return") {
			return open
		}
		return append(open, openBlock{directive: w, line: n})
	}
	if _, ok := knownDirectives[w]; !ok {
		add(n, "unknown directive !%s", w)
		return open
	}
	switch w {
	case "else", "elseif":
		if len(open) == 0 || directiveClosers[open[len(open)-1].directive] != "endif" {
			add(n, "!%s outside of !if", w)
		}
		return open
	}
	for _, closer := range directiveClosers {
		if w != closer {
			continue
		}
		if len(open) == 0 {
			add(n, "unexpected !%s", w)
			return open
		}
		top := open[len(open)-1]
		if directiveClosers[top.directive] != w {
			add(n, "!%s closes !%s opened at line %d", w, top.directive, top.line)
		}
		return open[:len(open)-1]
	}
	return open
}
