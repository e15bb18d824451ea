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
	"strings"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	flag "github.com/spf13/pflag"
)

type pairCmd struct {
	list bool
}

func (*pairCmd) Name() string {
	return "pair"
}

func (*pairCmd) Description() string {
	return "Verify that two directories hold files with the same basenames.\n" +
		"Usage: pumlcheck pair DIR_A EXT_A DIR_B EXT_B"
}

func (p *pairCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.list, "list", false, "print every pair")
}

func (p *pairCmd) Execute(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return errors.New("expected 4 arguments: DIR_A EXT_A DIR_B EXT_B")
	}
	extA, extB := normalizeExt(args[1]), normalizeExt(args[3])
	res, err := engine.CheckPairing(args[0], extA, args[2], extB)
	if err != nil {
		return err
	}
	if p.list {
		for _, pr := range res.Pairs {
			fmt.Fprintf(stdout, "%s\t%s\t%s\n", pr.Base, pr.A, pr.B)
		}
	}
	_, err = fmt.Fprintf(stdout, "%d pairs\n", len(res.Pairs))
	return err
}

// normalizeExt accepts "png", ".png" and "*.png".
func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(ext, "*")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
