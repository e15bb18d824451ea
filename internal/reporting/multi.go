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

package reporting

import (
	"context"
	"sync"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"go.chromium.org/luci/common/errors"
	"golang.org/x/sync/errgroup"
)

// MultiReport is a Report that wraps any number of other Report objects and
// tees output to all of them.
//
// Checks run concurrently; calls are serialized so each underlying reporter
// sees one finding at a time.
type MultiReport struct {
	Reporters []Report

	mu sync.Mutex
}

var _ Report = (*MultiReport)(nil)

func (t *MultiReport) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	return t.do(func(r Report) error {
		return r.EmitFinding(ctx, check, level, message, root, file, s)
	})
}

func (t *MultiReport) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	_ = t.do(func(r Report) error {
		r.CheckCompleted(ctx, check, start, d, level, err)
		return nil
	})
}

func (t *MultiReport) Print(ctx context.Context, check, file string, line int, message string) {
	_ = t.do(func(r Report) error {
		r.Print(ctx, check, file, line, message)
		return nil
	})
}

// Close closes every reporter, even when some fail, and returns all the
// errors as an errors.MultiError.
func (t *MultiReport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make(errors.MultiError, len(t.Reporters))
	var eg errgroup.Group
	for i, r := range t.Reporters {
		i, r := i, r
		eg.Go(func() error {
			all[i] = r.Close()
			return nil
		})
	}
	_ = eg.Wait()
	var errs errors.MultiError
	for _, err := range all {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (t *MultiReport) do(f func(r Report) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var eg errgroup.Group
	for _, r := range t.Reporters {
		r := r
		eg.Go(func() error {
			return f(r)
		})
	}
	return eg.Wait()
}
