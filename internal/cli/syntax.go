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

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	flag "github.com/spf13/pflag"
)

type syntaxCmd struct {
	commandBase
}

func (*syntaxCmd) Name() string {
	return "syntax"
}

func (*syntaxCmd) Description() string {
	return "Check the syntax of individual files.\n" +
		"Usage: pumlcheck syntax FILE..."
}

func (s *syntaxCmd) SetFlags(f *flag.FlagSet) {
	s.commandBase.SetFlags(f)
}

func (s *syntaxCmd) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("at least one file is required")
	}
	cfg, checker, err := s.loadConfig(ctx)
	if err != nil {
		return err
	}
	v := &engine.Validator{Checker: checker, StartMarker: cfg.StartMarker, EndMarker: cfg.EndMarker}
	failed := false
	for _, r := range v.ValidateAll(ctx, args) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.Failed() {
			fmt.Fprintf(stdout, "%s: ok\n", r.Path)
			continue
		}
		failed = true
		if r.Err != nil {
			fmt.Fprintf(stdout, "%s: %s\n", r.Path, r.Err)
			continue
		}
		if len(r.Outcome.Errors) == 0 {
			fmt.Fprintf(stdout, "%s: %s\n", r.Path, r.Outcome.Diagnostic())
		}
		for _, e := range r.Outcome.Errors {
			if l := r.SourceLine(e.Line); l > 0 {
				fmt.Fprintf(stdout, "%s(%d): %s\n", r.Path, l, e.Message)
			} else {
				fmt.Fprintf(stdout, "%s: %s\n", r.Path, e.Message)
			}
		}
	}
	if failed {
		return engine.ErrCheckFailed
	}
	return nil
}
