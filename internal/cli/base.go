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
	"fmt"
	"strings"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	flag "github.com/spf13/pflag"
)

// commandBase holds the flags shared by the commands that read a checkout.
type commandBase struct {
	cwd      string
	config   string
	checker  string
	plantuml string
}

func (c *commandBase) SetFlags(f *flag.FlagSet) {
	f.StringVarP(&c.cwd, "cwd", "C", ".", "root of the checkout to analyze")
	f.StringVar(&c.config, "config", "", "configuration file relative to the root, defaults to "+engine.DefaultConfigFile+" if present")
	f.StringVar(&c.checker, "checker", "", "syntax checker to use, \""+engine.CheckerBuiltin+"\" or \""+engine.CheckerPlantUML+"\"; overrides the configuration")
	f.StringVar(&c.plantuml, "plantuml", "", "plantuml command line, implies --checker="+engine.CheckerPlantUML)
}

// syntaxChecker returns the checker requested on the command line, or nil to
// use the one selected by the configuration.
func (c *commandBase) syntaxChecker() (engine.SyntaxChecker, error) {
	name := c.checker
	if name == "" && c.plantuml == "" {
		return nil, nil
	}
	if name == "" {
		name = engine.CheckerPlantUML
	}
	if c.plantuml != "" && name != engine.CheckerPlantUML {
		return nil, fmt.Errorf("--plantuml requires --checker=%s", engine.CheckerPlantUML)
	}
	return engine.NewChecker(&engine.Config{Checker: name, PlantUMLCommand: strings.Fields(c.plantuml)})
}

// options returns the engine options for the flags.
func (c *commandBase) options(r engine.Report) (*engine.Options, error) {
	checker, err := c.syntaxChecker()
	if err != nil {
		return nil, err
	}
	return &engine.Options{
		Report:  r,
		Dir:     c.cwd,
		Config:  c.config,
		Checker: checker,
	}, nil
}

// loadConfig evaluates the configuration for commands that don't go through
// engine.Run.
func (c *commandBase) loadConfig(ctx context.Context) (*engine.Config, engine.SyntaxChecker, error) {
	cfg, err := engine.LoadConfig(ctx, c.cwd, c.config, c.config != "", func(file string, line int, msg string) {
		fmt.Fprintf(helpOut, "[%s:%d] %s\n", file, line, msg)
	})
	if err != nil {
		return nil, nil, err
	}
	checker, err := c.syntaxChecker()
	if err != nil {
		return nil, nil, err
	}
	if checker == nil {
		if checker, err = engine.NewChecker(cfg); err != nil {
			return nil, nil, err
		}
	}
	return cfg, checker, nil
}
