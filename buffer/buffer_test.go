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

package buffer

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/pool"
)

func TestChunkedBuffer_WriteRead_SpansChunks(t *testing.T) {
	p := pool.New(8)
	b := New(p)

	require.NoError(t, b.Write([]byte("hello, ")))
	require.NoError(t, b.Write([]byte("world!")))

	got, err := b.Read(13)
	require.NoError(t, err)
	assert.Equal(t, "hello, world!", string(got))
}

// TestChunkedBuffer_Concatenation 对应 spec 的 testable property:
// for any split of write operations, the concatenation of reads equals the
// concatenation of writes.
func TestChunkedBuffer_Concatenation(t *testing.T) {
	p := pool.New(16)
	b := New(p)

	var want bytes.Buffer
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		n := r.Intn(37) + 1
		chunk := make([]byte, n)
		_, _ = r.Read(chunk)
		want.Write(chunk)
		require.NoError(t, b.Write(chunk))
	}

	var got bytes.Buffer
	for {
		chunk, err := b.Read(7)
		got.Write(chunk)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if len(chunk) == 0 {
			b.CloseWriter()
		}
	}

	assert.Equal(t, want.Bytes(), got.Bytes())
}

func TestChunkedBuffer_RewindReadPosition(t *testing.T) {
	p := pool.New(4)
	b := New(p)
	require.NoError(t, b.Write([]byte("abcdefgh")))

	first, err := b.Read(6)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(first))

	require.NoError(t, b.SetReadPosition(0))
	again, err := b.Read(6)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(again))
}

func TestChunkedBuffer_OutOfRange(t *testing.T) {
	p := pool.New(4)
	b := New(p)
	require.NoError(t, b.Write([]byte("ab")))

	assert.ErrorIs(t, b.SetReadPosition(-1), ErrOutOfRange)
	assert.ErrorIs(t, b.SetReadPosition(100), ErrOutOfRange)
}

func TestChunkedBuffer_DrainTo(t *testing.T) {
	p := pool.New(4)
	b := New(p)
	require.NoError(t, b.Write([]byte("0123456789")))

	var sink bytes.Buffer
	n, err := b.DrainTo(&sink)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
	assert.Equal(t, "0123456789", sink.String())
	assert.EqualValues(t, 0, b.Len())
}

func TestChunkedBuffer_Compact(t *testing.T) {
	p := pool.New(4)
	b := New(p)
	require.NoError(t, b.Write([]byte("0123456789ab")))

	_, err := b.Read(9)
	require.NoError(t, err)

	b.Compact()
	assert.EqualValues(t, 1, b.ReadPosition())
	rest, err := b.Read(3)
	require.NoError(t, err)
	assert.Equal(t, "9ab", string(rest))
}

func TestChunkedBuffer_Dispose(t *testing.T) {
	p := pool.New(4)
	b := New(p)
	require.NoError(t, b.Write([]byte("abcd")))

	b.Dispose()
	assert.Equal(t, 1, p.PoolSize())

	err := b.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestChunkedBuffer_WriterClosedDistinguishesEOF(t *testing.T) {
	p := pool.New(8)
	b := New(p)
	require.NoError(t, b.Write([]byte("ab")))

	got, err := b.Read(10)
	require.NoError(t, err)
	assert.Equal(t, "ab", string(got))
	assert.False(t, b.WriterClosed())

	got, err = b.Read(10)
	assert.NoError(t, err)
	assert.Empty(t, got)

	b.CloseWriter()
	_, err = b.Read(10)
	assert.ErrorIs(t, err, io.EOF)
}
