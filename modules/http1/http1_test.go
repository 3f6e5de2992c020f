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

package http1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
	"github.com/packetd/gosocknet/pool"
)

func newTestBuffer() *buffer.ChunkedBuffer {
	return buffer.New(pool.New(32))
}

func TestHTTP1_RequestRoundTrip(t *testing.T) {
	header := make(http.Header)
	header.Set("Host", "example.com")
	header.Set("Upgrade", "websocket")
	req := NewRequest(http.MethodGet, "/chat", header, nil)

	wire := Append(nil, req)

	buf := newTestBuffer()
	require.NoError(t, buf.Write(wire))

	got, err := Parse(buf)
	require.NoError(t, err)

	assert.False(t, got.IsResponse)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/chat", got.Path)
	assert.Equal(t, "HTTP/1.1", got.Proto)
	assert.Equal(t, "example.com", got.Header.Get("Host"))
	assert.Equal(t, "websocket", got.Header.Get("Upgrade"))
	assert.Empty(t, got.Body)
}

func TestHTTP1_ResponseWithBodyRoundTrip(t *testing.T) {
	header := make(http.Header)
	header.Set("Content-Type", "text/plain")
	resp := NewResponse(http.StatusOK, "OK", header, []byte("hello"))

	wire := Append(nil, resp)

	buf := newTestBuffer()
	require.NoError(t, buf.Write(wire))

	got, err := Parse(buf)
	require.NoError(t, err)

	assert.True(t, got.IsResponse)
	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.Equal(t, "OK", got.StatusText)
	assert.Equal(t, "5", got.Header.Get("Content-Length"))
	assert.Equal(t, []byte("hello"), got.Body)
}

func TestHTTP1_IncompleteHeaderBlockRewindsBuffer(t *testing.T) {
	req := NewRequest(http.MethodGet, "/", nil, nil)
	wire := Append(nil, req)

	buf := newTestBuffer()
	// 去掉末尾的空行 头部块尚未终止
	require.NoError(t, buf.Write(wire[:len(wire)-2]))

	start := buf.ReadPosition()
	_, err := Parse(buf)
	assert.ErrorIs(t, err, errkit.Incomplete)
	assert.Equal(t, start, buf.ReadPosition())

	require.NoError(t, buf.Write(wire[len(wire)-2:]))
	got, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "/", got.Path)
}

func TestHTTP1_IncompleteBodyRewindsBuffer(t *testing.T) {
	resp := NewResponse(http.StatusOK, "OK", nil, []byte("payload"))
	wire := Append(nil, resp)

	buf := newTestBuffer()
	require.NoError(t, buf.Write(wire[:len(wire)-3]))

	start := buf.ReadPosition()
	_, err := Parse(buf)
	assert.ErrorIs(t, err, errkit.Incomplete)
	assert.Equal(t, start, buf.ReadPosition())

	require.NoError(t, buf.Write(wire[len(wire)-3:]))
	got, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got.Body)
}

func TestHTTP1_PipelinedMessagesLeaveRemainderForNextParse(t *testing.T) {
	first := NewRequest(http.MethodGet, "/a", nil, nil)
	second := NewRequest(http.MethodGet, "/b", nil, nil)

	buf := newTestBuffer()
	require.NoError(t, buf.Write(Append(nil, first)))
	require.NoError(t, buf.Write(Append(nil, second)))

	got1, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "/a", got1.Path)

	got2, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "/b", got2.Path)

	assert.Equal(t, int64(0), buf.Len())
}

func TestHTTP1_InvalidHeaderTokenRejected(t *testing.T) {
	buf := newTestBuffer()
	require.NoError(t, buf.Write([]byte("GET / HTTP/1.1\r\nBad Header: x\r\n\r\n")))

	_, err := Parse(buf)
	assert.ErrorIs(t, err, ErrMalformed)
}
