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

// Package execsupport serializes process forks against writes of executable
// files.
//
// A file open for writing while another goroutine forks is inherited by the
// child and stays open after the parent closes it; executing it then fails
// with ETXTBSY. See https://github.com/golang/go/issues/22315.
//
// pumlcheck runs many plantuml subprocesses in parallel, and its tests write
// fake plantuml scripts while other tests fork. Every fork goes through Run
// or Start, and every executable is written with WriteExecutable.
package execsupport

import (
	"os"
	"os/exec"
	"sync"
)

// mu is held for reading during forks and for writing while an executable
// file is open.
var mu sync.RWMutex

// Start is a fork-safe wrapper around os/exec.Cmd.Start.
func Start(cmd *exec.Cmd) error {
	mu.RLock()
	defer mu.RUnlock()
	return cmd.Start()
}

// Run is a fork-safe wrapper around os/exec.Cmd.Run.
func Run(cmd *exec.Cmd) error {
	if err := Start(cmd); err != nil {
		return err
	}
	return cmd.Wait()
}

// WriteExecutable writes content to name with mode 0o755, blocking forks
// until the file is closed.
func WriteExecutable(name string, content []byte) error {
	mu.Lock()
	defer mu.Unlock()
	return os.WriteFile(name, content, 0o755)
}
