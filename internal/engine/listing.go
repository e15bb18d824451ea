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
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileEntry is one file found by ListFiles.
type FileEntry struct {
	// Path is the full path, as joined from the listed directory.
	Path string
	// Name is the file name, without directory.
	Name string
	// Base is Name without Ext.
	Base string
	// Ext is the last extension of Name, including the dot.
	Ext string
}

// FileListing is a list of files sorted lexicographically by Path.
type FileListing []FileEntry

// Paths returns the full path of every entry.
func (l FileListing) Paths() []string {
	out := make([]string, 0, len(l))
	for _, e := range l {
		out = append(out, e.Path)
	}
	return out
}

// ListOptions tweaks ListFiles.
type ListOptions struct {
	// Ignore excludes files and directories. Paths are matched relative to
	// IgnoreRoot.
	Ignore gitignore.Matcher
	// IgnoreRoot defaults to the listed directory.
	IgnoreRoot string
}

// ListFiles recursively lists the files under dir whose name matches pattern,
// like find(1) -iname.
//
// The pattern is matched against the file name only, case-insensitively, and
// supports doublestar syntax. The result is sorted by full path.
func ListFiles(dir, pattern string, o *ListOptions) (FileListing, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, &DirectoryNotFoundError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return nil, &DirectoryNotFoundError{Path: dir, Err: fmt.Errorf("not a directory")}
	}
	var ignore gitignore.Matcher
	ignoreRoot := dir
	if o != nil {
		ignore = o.Ignore
		if o.IgnoreRoot != "" {
			ignoreRoot = o.IgnoreRoot
		}
	}
	lowerPattern := strings.ToLower(pattern)

	var out FileListing
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &DirectoryNotFoundError{Path: p, Err: walkErr}
		}
		if ignore != nil && p != dir {
			if rel, err := filepath.Rel(ignoreRoot, p); err == nil && filepath.IsLocal(rel) {
				if ignore.Match(strings.Split(filepath.ToSlash(rel), "/"), d.IsDir()) {
					if d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
			}
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		// The pattern was validated above.
		if ok, _ := doublestar.Match(lowerPattern, strings.ToLower(name)); !ok {
			return nil
		}
		ext := filepath.Ext(name)
		out = append(out, FileEntry{
			Path: p,
			Name: name,
			Base: strings.TrimSuffix(name, ext),
			Ext:  ext,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Sort for determinism; WalkDir order is lexical per directory only.
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// newIgnoreMatcher parses gitignore-style patterns.
func newIgnoreMatcher(patterns []string) (gitignore.Matcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	ps := make([]gitignore.Pattern, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			return nil, errEmptyIgnore
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	return gitignore.NewMatcher(ps), nil
}
