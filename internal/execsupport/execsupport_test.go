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
package execsupport

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func TestWriteExecutableRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	t.Parallel()
	dir := t.TempDir()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	outs := make([]bytes.Buffer, 8)
	for i := range errs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := filepath.Join(dir, "script"+string(rune('a'+i)))
			if errs[i] = WriteExecutable(p, []byte("#!/bin/sh\necho ok\n")); errs[i] != nil {
				return
			}
			cmd := exec.Command(p)
			cmd.Stdout = &outs[i]
			errs[i] = Run(cmd)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		if s := strings.TrimSpace(outs[i].String()); s != "ok" {
			t.Fatalf("#%d: got %q", i, s)
		}
	}
}

func TestRun_NotFound(t *testing.T) {
	t.Parallel()
	cmd := exec.Command(filepath.Join(t.TempDir(), "missing"))
	if err := Run(cmd); err == nil {
		t.Fatal("expected an error")
	}
}
