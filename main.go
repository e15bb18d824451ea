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
// Package main is the pumlcheck executable.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/eip-plantuml/pumlcheck/internal/cli"
	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"
)

func main() {
	signalChannel := make(chan os.Signal, 2)
	signal.Notify(signalChannel, syscall.SIGTERM, syscall.SIGINT)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signalChannel
		cancel()
		// Only dump goroutines when automation terminates us; a hung plantuml
		// process is the usual suspect.
		if sig == syscall.SIGTERM {
			_ = pprof.Lookup("goroutine").WriteTo(os.Stderr, 1)
		}
	}()

	if err := cli.Main(ctx, os.Args); err != nil && !errors.Is(err, flag.ErrHelp) {
		var stackerr engine.BacktraceableError
		if errors.As(err, &stackerr) {
			_, _ = os.Stderr.WriteString(stackerr.Backtrace())
		}
		// On a terminal, failed checks were already shown by the reporter and
		// a cancellation is most likely a Ctrl-C.
		if !isatty.IsTerminal(os.Stderr.Fd()) ||
			(!errors.Is(err, engine.ErrCheckFailed) && !errors.Is(err, context.Canceled)) {
			_, _ = fmt.Fprintf(os.Stderr, "pumlcheck: %s\n", err)
		}
		os.Exit(1)
	}
}
