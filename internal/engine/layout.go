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
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Layout locates the assets of an icon library checkout.
//
// Dist and Sprites are relative to Root. Elements is relative to Root,
// Generated to Dist.
type Layout struct {
	Root      string
	Dist      string
	Sprites   string
	Elements  string
	Generated string
	// Ignore lists gitignore-style patterns, relative to Root, excluded from
	// directory walks.
	Ignore []string
}

// DefaultLayout returns the layout of the EIP-PlantUML repository rooted at
// root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:      root,
		Dist:      "dist",
		Sprites:   "sprites",
		Elements:  "EIP_Elements.puml",
		Generated: "EIP-PlantUML.puml",
	}
}

// ElementsFile returns the path of the hand written elements file.
func (l *Layout) ElementsFile() (string, error) {
	return findFile(l.Root, l.Elements)
}

// GeneratedDocFile returns the path of the generated distribution file.
func (l *Layout) GeneratedDocFile() (string, error) {
	return findFile(filepath.Join(l.Root, l.Dist), l.Generated)
}

// SpritesDir returns the path of the sprites directory.
func (l *Layout) SpritesDir() string {
	return filepath.Join(l.Root, l.Sprites)
}

// SpriteFiles returns every sprite definition file, sorted.
func (l *Layout) SpriteFiles() (FileListing, error) {
	o, err := l.listOptions()
	if err != nil {
		return nil, err
	}
	files, err := ListFiles(l.SpritesDir(), "*.puml", o)
	if err != nil {
		var dirErr *DirectoryNotFoundError
		if errors.As(err, &dirErr) {
			return nil, &FileNotFoundError{Path: dirErr.Path, Err: dirErr.Err}
		}
		return nil, err
	}
	return files, nil
}

// CheckSpritePairs verifies that every sprite .puml file has a .png image
// with the same basename, and vice versa.
func (l *Layout) CheckSpritePairs() (*PairingResult, error) {
	o, err := l.listOptions()
	if err != nil {
		return nil, err
	}
	d := l.SpritesDir()
	return checkPairing(o, d, ".puml", d, ".png")
}

// Rel returns p relative to Root in POSIX style, or p itself if it is not
// under Root.
func (l *Layout) Rel(p string) string {
	rel, err := filepath.Rel(l.Root, p)
	if err != nil || !filepath.IsLocal(rel) {
		return p
	}
	return filepath.ToSlash(rel)
}

func (l *Layout) listOptions() (*ListOptions, error) {
	m, err := newIgnoreMatcher(l.Ignore)
	if err != nil {
		return nil, err
	}
	return &ListOptions{Ignore: m, IgnoreRoot: l.Root}, nil
}

// findFile returns dir/name after verifying that dir is a directory and that
// name is a readable regular file.
func findFile(dir, name string) (string, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return "", &FileNotFoundError{Path: dir, Err: err}
	}
	if !fi.IsDir() {
		return "", &FileNotFoundError{Path: dir, Err: fmt.Errorf("not a directory")}
	}
	p := filepath.Join(dir, name)
	f, err := os.Open(p)
	if err != nil {
		return "", &FileNotFoundError{Path: p, Err: err}
	}
	defer f.Close()
	if fi, err = f.Stat(); err != nil {
		return "", &FileNotFoundError{Path: p, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return "", &FileNotFoundError{Path: p, Err: fmt.Errorf("not a regular file")}
	}
	return p, nil
}
