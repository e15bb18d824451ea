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
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"github.com/eip-plantuml/pumlcheck/internal/reporting"
	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"
)

type watchCmd struct {
	commandBase
	only     []string
	skip     []string
	debounce time.Duration
}

func (*watchCmd) Name() string {
	return "watch"
}

func (*watchCmd) Description() string {
	return "Run the checks again every time an asset changes."
}

func (w *watchCmd) SetFlags(f *flag.FlagSet) {
	w.commandBase.SetFlags(f)
	f.StringArrayVar(&w.only, "only", nil, "only run this check or group of checks; can be repeated")
	f.StringArrayVar(&w.skip, "skip", nil, "skip this check or group of checks; can be repeated")
	f.DurationVar(&w.debounce, "debounce", 300*time.Millisecond, "wait for changes to settle for this long before running")
}

func (w *watchCmd) Execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errors.New("unsupported arguments")
	}
	if w.debounce <= 0 {
		return errors.New("--debounce must be positive")
	}
	cfg, _, err := w.loadConfig(ctx)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	dirs, err := watchDirs(&cfg.Layout)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
		log.Printf("watching %s", d)
	}
	return watchLoop(ctx, watcher.Events, watcher.Errors, w.debounce, w.runOnce)
}

// runOnce runs every check and reports problems without stopping the watch.
func (w *watchCmd) runOnce(ctx context.Context) error {
	r, err := reporting.Get(ctx)
	if err != nil {
		return err
	}
	o, err := w.options(r)
	if err == nil {
		o.Filter = engine.CheckFilter{AllowList: w.only, DenyList: w.skip}
		err = engine.Run(ctx, o)
	}
	if err2 := r.Close(); err == nil {
		err = err2
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, engine.ErrCheckFailed) {
		// Likely a configuration mistake the user is fixing right now.
		fmt.Fprintf(helpOut, "pumlcheck: %s\n", err)
	}
	return nil
}

// watchDirs returns the existing directories holding assets. fsnotify is not
// recursive so every directory under the sprites is listed.
func watchDirs(l *engine.Layout) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(d string) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	add(l.Root)
	for _, d := range []string{filepath.Join(l.Root, l.Dist), filepath.Dir(filepath.Join(l.Root, l.Elements))} {
		if fi, err := os.Stat(d); err == nil && fi.IsDir() {
			add(d)
		}
	}
	err := filepath.WalkDir(l.SpritesDir(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			add(p)
		}
		return nil
	})
	return out, err
}

// relevant returns true for changes that can alter a check result.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".puml", ".png", ".star":
		return true
	}
	return false
}

// watchLoop calls run once, then again after each burst of relevant events
// once no new event arrived for delay.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, delay time.Duration, run func(context.Context) error) error {
	if err := run(ctx); err != nil {
		return err
	}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			log.Printf("%s", ev)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(delay)
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return err
		case <-fire:
			fire = nil
			if err := run(ctx); err != nil {
				return err
			}
		}
	}
}
