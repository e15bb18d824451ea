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
	"regexp"
	"sync"
)

// DefaultForbiddenTokens are the tokens that must never appear in the
// elements file.
var DefaultForbiddenTokens = []string{"r_label"}

// TokenMatch is one occurrence of a forbidden token.
type TokenMatch struct {
	Token string
	// Line and Col are 1-based. Col counts bytes.
	Line int
	Col  int
	// Text is the whole line.
	Text string
}

// ScanTokens returns every occurrence of each literal token in the file, in
// line order then token order.
func ScanTokens(path string, tokens []string) ([]TokenMatch, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var out []TokenMatch
	for i, l := range lines {
		for _, tok := range tokens {
			if tok == "" {
				continue
			}
			r, err := reCache.literal(tok)
			if err != nil {
				return nil, err
			}
			for _, m := range r.FindAllStringIndex(l, -1) {
				out = append(out, TokenMatch{Token: tok, Line: i + 1, Col: m[0] + 1, Text: l})
			}
		}
	}
	return out, nil
}

var reCache = reCacheImpl{r: map[string]*regexp.Regexp{}}

type reCacheImpl struct {
	m sync.Mutex
	r map[string]*regexp.Regexp
}

// literal returns a cached regexp matching tok literally.
func (c *reCacheImpl) literal(tok string) (*regexp.Regexp, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if r := c.r[tok]; r != nil {
		return r, nil
	}
	r, err := regexp.Compile(regexp.QuoteMeta(tok))
	if err != nil {
		return nil, err
	}
	c.r[tok] = r
	return r, nil
}
