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
	"sync"
)

// maxPooledBuffer is the largest buffer kept for reuse. The generated
// distribution file is the largest asset and stays well below it.
const maxPooledBuffer = 4 * 1024 * 1024

// buffers holds read buffers shared by all concurrently validated files.
//
// Sprite files are small; preallocate a few so the first wave of parallel
// reads doesn't allocate.
var buffers = bufferPool{
	free: []*bytes.Buffer{
		bytes.NewBuffer(make([]byte, 0, 32*1024)),
		bytes.NewBuffer(make([]byte, 0, 32*1024)),
		bytes.NewBuffer(make([]byte, 0, 32*1024)),
		bytes.NewBuffer(make([]byte, 0, 32*1024)),
	},
}

type bufferPool struct {
	mu   sync.Mutex
	free []*bytes.Buffer
}

func (p *bufferPool) get() *bytes.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := len(p.free)
	if l == 0 {
		return &bytes.Buffer{}
	}
	b := p.free[l-1]
	p.free = p.free[:l-1]
	return b
}

func (p *bufferPool) push(b *bytes.Buffer) {
	if b.Cap() > maxPooledBuffer {
		return
	}
	b.Reset()
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
}
