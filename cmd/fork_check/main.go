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
// Package main implements a vet tool that reports os/exec.Cmd methods which
// fork without going through the execsupport package.
//
// Usage: go vet -vettool=$(go env GOPATH)/bin/fork_check ./...
package main

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/singlechecker"
)

// forking maps the exec.Cmd methods that fork to their replacement.
var forking = map[string]string{
	"Start":          "execsupport.Start(%s)",
	"Run":            "execsupport.Run(%s)",
	"Output":         "execsupport.Run(%s) with %s.Stdout set",
	"CombinedOutput": "execsupport.Run(%s) with %s.Stdout and %s.Stderr set",
}

var analyzer = &analysis.Analyzer{
	Name: "directexec",
	Doc:  "do not call os/exec.Cmd methods that fork directly, use execsupport",
	Run:  run,
}

func run(pass *analysis.Pass) (any, error) {
	// The wrappers themselves are the only legitimate callers.
	if strings.HasSuffix(pass.Pkg.Path(), "/internal/execsupport") {
		return nil, nil
	}
	for _, f := range pass.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			selector, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			repl, ok := forking[selector.Sel.Name]
			if !ok {
				return true
			}
			sel := pass.TypesInfo.Selections[selector]
			if sel == nil || sel.Kind() != types.MethodVal || !isExecCmd(sel.Recv()) {
				return true
			}
			name := types.ExprString(selector.X)
			pass.Reportf(call.Pos(), "do not call %s.%s() directly, use %s instead",
				name, selector.Sel.Name, strings.ReplaceAll(repl, "%s", name))
			return true
		})
	}
	return nil, nil
}

func isExecCmd(t types.Type) bool {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := t.(*types.Named)
	if !ok {
		return false
	}
	o := n.Obj()
	return o.Pkg() != nil && o.Pkg().Path() == "os/exec" && o.Name() == "Cmd"
}

func main() {
	singlechecker.Main(analyzer)
}
