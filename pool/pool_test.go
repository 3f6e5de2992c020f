// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_BorrowReturn(t *testing.T) {
	p := New(128)

	c1 := p.Borrow()
	assert.Len(t, c1, 128)
	assert.EqualValues(t, 1, p.TotalAllocated())
	assert.EqualValues(t, 1, p.Outstanding())
	assert.Equal(t, 0, p.PoolSize())

	require.NoError(t, p.Return(c1))
	assert.Equal(t, 1, p.PoolSize())
	assert.EqualValues(t, 0, p.Outstanding())

	c2 := p.Borrow()
	assert.Len(t, c2, 128)
	assert.EqualValues(t, 1, p.TotalAllocated(), "reused the returned chunk instead of allocating")
}

func TestPool_ReturnWrongSize(t *testing.T) {
	p := New(64)
	err := p.Return(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

func TestPool_DefaultChunkSize(t *testing.T) {
	p := New(0)
	assert.Equal(t, 4096, p.ChunkSize())
}

// TestPool_Conservation 对应 spec 的 testable property:
// totalAllocated == poolFree + outstandingBorrows at every moment.
func TestPool_Conservation(t *testing.T) {
	p := New(32)

	const workers = 8
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				c := p.Borrow()
				_ = p.Return(c)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, p.TotalAllocated(), int64(p.PoolSize())+p.Outstanding())
}
