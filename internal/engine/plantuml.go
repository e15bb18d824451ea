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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/eip-plantuml/pumlcheck/internal/execsupport"
	"golang.org/x/sync/semaphore"
)

// DefaultPlantUMLCommand runs the plantuml wrapper script found in $PATH.
var DefaultPlantUMLCommand = []string{"plantuml", "-syntax"}

// PlantUMLChecker is a SyntaxChecker running "plantuml -syntax" in a
// subprocess.
//
// The document is sent on stdin. The first line of output is either "ERROR",
// followed by the 0-based error position and the error messages, or the
// diagram type followed by its description.
type PlantUMLChecker struct {
	command []string
	sem     *semaphore.Weighted
}

var _ SyntaxChecker = (*PlantUMLChecker)(nil)

// NewPlantUMLChecker returns a checker running command. At most parallelism
// subprocesses run at once; 0 means NumCPU.
func NewPlantUMLChecker(command []string, parallelism int) (*PlantUMLChecker, error) {
	if len(command) == 0 {
		command = DefaultPlantUMLCommand
	}
	if command[0] == "" {
		return nil, errors.New("plantuml command is empty")
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &PlantUMLChecker{
		command: append([]string(nil), command...),
		sem:     semaphore.NewWeighted(int64(parallelism)),
	}, nil
}

// CheckSyntax implements SyntaxChecker.
func (p *PlantUMLChecker) CheckSyntax(ctx context.Context, lines []string) (*Outcome, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Stdin = strings.NewReader(strings.Join(lines, "\n") + "\n")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := execsupport.Run(cmd)
	if err != nil {
		var exitErr *exec.ExitError
		// Some plantuml versions exit non-zero on a syntax error; the output
		// is still authoritative.
		if !errors.As(err, &exitErr) || !bytes.HasPrefix(stdout.Bytes(), []byte("ERROR")) {
			return nil, fmt.Errorf("running %s: %w: %s", strings.Join(p.command, " "), err, strings.TrimSpace(stderr.String()))
		}
	}
	if stderr.Len() != 0 {
		log.Printf("plantuml stderr: %s", strings.TrimSpace(stderr.String()))
	}
	return parseSyntaxOutput(stdout.String())
}

// parseSyntaxOutput parses the output of "plantuml -syntax".
func parseSyntaxOutput(out string) (*Outcome, error) {
	var lines []string
	for _, l := range splitLines(out) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("plantuml returned no output")
	}
	if lines[0] != "ERROR" {
		return &Outcome{Description: strings.Join(lines, " ")}, nil
	}
	if len(lines) < 2 {
		return nil, errors.New("plantuml returned ERROR without a position")
	}
	pos, err := strconv.Atoi(lines[1])
	if err != nil {
		return nil, fmt.Errorf("plantuml returned an invalid error position %q", lines[1])
	}
	o := &Outcome{Description: "ERROR", IsError: true}
	for _, msg := range lines[2:] {
		o.Errors = append(o.Errors, ErrorRecord{Message: msg, Line: pos + 1})
	}
	if len(o.Errors) != 0 {
		o.Description = o.Errors[0].Message
	}
	return o, nil
}
