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
	"strings"
)

// Pair is one aligned entry of two paired listings.
type Pair struct {
	// Base is the shared basename.
	Base string
	// A and B are the full paths on each side.
	A string
	B string
}

// PairingResult is the outcome of a successful CheckPairing call.
type PairingResult struct {
	// Pairs is in sorted order. It is empty when both sides are empty.
	Pairs []Pair
}

// Basenames returns the basename of every pair, in order.
func (r *PairingResult) Basenames() []string {
	out := make([]string, 0, len(r.Pairs))
	for _, p := range r.Pairs {
		out = append(out, p.Base)
	}
	return out
}

// CheckPairing verifies that the files matching *extA under dirA and the files
// matching *extB under dirB correspond 1:1 by basename.
//
// Both listings are sorted by full path independently, then compared index by
// index. The first discrepancy is returned as *CountMismatchError,
// *InvalidExtensionError or *NameMismatchError. Missing directories return
// *DirectoryNotFoundError.
func CheckPairing(dirA, extA, dirB, extB string) (*PairingResult, error) {
	return checkPairing(nil, dirA, extA, dirB, extB)
}

func checkPairing(o *ListOptions, dirA, extA, dirB, extB string) (*PairingResult, error) {
	a, err := ListFiles(dirA, "*"+extA, o)
	if err != nil {
		return nil, err
	}
	b, err := ListFiles(dirB, "*"+extB, o)
	if err != nil {
		return nil, err
	}
	if len(a) != len(b) {
		return nil, &CountMismatchError{
			DirA: dirA, ExtA: extA, CountA: len(a),
			DirB: dirB, ExtB: extB, CountB: len(b),
		}
	}
	res := &PairingResult{Pairs: make([]Pair, 0, len(a))}
	for i := range a {
		baseA, err := trimExt(a[i], extA)
		if err != nil {
			return nil, err
		}
		baseB, err := trimExt(b[i], extB)
		if err != nil {
			return nil, err
		}
		if baseA != baseB {
			return nil, &NameMismatchError{
				Index: i,
				NameA: baseA,
				NameB: baseB,
				PathA: a[i].Path,
				PathB: b[i].Path,
			}
		}
		res.Pairs = append(res.Pairs, Pair{Base: baseA, A: a[i].Path, B: b[i].Path})
	}
	return res, nil
}

// trimExt strips the exact extension ext from the entry name.
func trimExt(e FileEntry, ext string) (string, error) {
	if !strings.HasSuffix(e.Name, ext) {
		return "", &InvalidExtensionError{Path: e.Path, Ext: ext}
	}
	return strings.TrimSuffix(e.Name, ext), nil
}
