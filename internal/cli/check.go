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
	"os"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"github.com/eip-plantuml/pumlcheck/internal/reporting"
	flag "github.com/spf13/pflag"
)

type checkCmd struct {
	commandBase
	only     []string
	skip     []string
	sarifOut string
}

func (*checkCmd) Name() string {
	return "check"
}

func (*checkCmd) Description() string {
	return "Run every asset check on a checkout."
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	c.commandBase.SetFlags(f)
	f.StringArrayVar(&c.only, "only", nil, "only run this check or group of checks, e.g. \"syntax\"; can be repeated")
	f.StringArrayVar(&c.skip, "skip", nil, "skip this check or group of checks; can be repeated")
	f.StringVar(&c.sarifOut, "sarif-out", "", "also write the findings as SARIF to this file")
}

func (c *checkCmd) Execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("unsupported arguments")
	}
	r, err := reporting.Get(ctx)
	if err != nil {
		return err
	}
	if c.sarifOut != "" {
		f, err := os.Create(c.sarifOut)
		if err != nil {
			_ = r.Close()
			return err
		}
		defer f.Close()
		r.Reporters = append(r.Reporters, &reporting.SarifReport{Out: f})
	}
	o, err := c.options(r)
	if err == nil {
		o.Filter = engine.CheckFilter{AllowList: c.only, DenyList: c.skip}
		err = engine.Run(ctx, o)
	}
	if err2 := r.Close(); err == nil {
		err = err2
	}
	return err
}
