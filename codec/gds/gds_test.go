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

package gds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
	"github.com/packetd/gosocknet/pool"
)

func newTestPool() *pool.Pool {
	return pool.New(16)
}

func TestGds_FullFrameRoundTrip(t *testing.T) {
	p := newTestPool()
	body := buffer.New(p)
	require.NoError(t, body.Write([]byte("payload")))

	f := &Frame{
		StreamID:   42,
		Type:       FrameFull,
		IsComplete: true,
		Headers:    map[string][]byte{"content-type": []byte("text/plain")},
		Body:       body,
	}

	wire, err := Append(nil, f)
	require.NoError(t, err)

	buf := buffer.New(p)
	require.NoError(t, buf.Write(wire))

	got, err := Parse(buf, p)
	require.NoError(t, err)
	defer got.Dispose()

	assert.Equal(t, uint64(42), got.StreamID)
	assert.Equal(t, FrameFull, got.Type)
	assert.True(t, got.IsComplete)
	assert.Equal(t, []byte("text/plain"), got.Headers["content-type"])

	gotBody, err := got.Body.Read(int(got.Body.Len()))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), gotBody)
}

func TestGds_HeadersOnlyFrameNoBody(t *testing.T) {
	p := newTestPool()
	f := &Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: true, Headers: map[string][]byte{"x": []byte("y")}}

	wire, err := Append(nil, f)
	require.NoError(t, err)

	buf := buffer.New(p)
	require.NoError(t, buf.Write(wire))

	got, err := Parse(buf, p)
	require.NoError(t, err)
	defer got.Dispose()

	assert.Nil(t, got.Body)
	assert.Equal(t, []byte("y"), got.Headers["x"])
}

func TestGds_IncompleteFrameRewindsBuffer(t *testing.T) {
	p := newTestPool()
	body := buffer.New(p)
	require.NoError(t, body.Write([]byte("hello world")))
	f := &Frame{StreamID: 7, Type: FrameFull, IsComplete: true, Headers: map[string][]byte{}, Body: body}

	wire, err := Append(nil, f)
	require.NoError(t, err)

	buf := buffer.New(p)
	require.NoError(t, buf.Write(wire[:len(wire)-3]))

	start := buf.ReadPosition()
	_, err = Parse(buf, p)
	assert.ErrorIs(t, err, errkit.Incomplete)
	assert.Equal(t, start, buf.ReadPosition())

	require.NoError(t, buf.Write(wire[len(wire)-3:]))
	got, err := Parse(buf, p)
	require.NoError(t, err)
	defer got.Dispose()
	assert.Equal(t, uint64(7), got.StreamID)
}

func TestGds_AccumulatorMergesHeadersAndBodyFrames(t *testing.T) {
	p := newTestPool()
	acc := NewAccumulator(p, true)

	headersFrame := &Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: false, Headers: map[string][]byte{"a": []byte("1")}}
	emit, err := acc.Feed(headersFrame)
	require.NoError(t, err)
	assert.Nil(t, emit, "headers alone should not complete the message")

	bodyBuf := buffer.New(p)
	require.NoError(t, bodyBuf.Write([]byte("chunk1")))
	bodyFrame := &Frame{StreamID: 1, Type: FrameBodyOnly, IsComplete: false, Body: bodyBuf}
	emit, err = acc.Feed(bodyFrame)
	require.NoError(t, err)
	assert.Nil(t, emit)

	bodyBuf2 := buffer.New(p)
	require.NoError(t, bodyBuf2.Write([]byte("chunk2")))
	finalFrame := &Frame{StreamID: 1, Type: FrameBodyOnly, IsComplete: true, Headers: map[string][]byte{"b": []byte("2")}, Body: bodyBuf2}
	emit, err = acc.Feed(finalFrame)
	require.NoError(t, err)
	require.NotNil(t, emit)
	defer emit.Dispose()

	assert.Equal(t, FrameFull, emit.Type, "HeadersOnly + BodyOnly should promote to Full")
	assert.Equal(t, []byte("1"), emit.Headers["a"])
	assert.Equal(t, []byte("2"), emit.Headers["b"])

	got, err := emit.Body.Read(int(emit.Body.Len()))
	require.NoError(t, err)
	assert.Equal(t, []byte("chunk1chunk2"), got)
}

func TestGds_AccumulatorLaterHeaderWinsOnCollision(t *testing.T) {
	p := newTestPool()
	acc := NewAccumulator(p, true)

	_, err := acc.Feed(&Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: false, Headers: map[string][]byte{"k": []byte("first")}})
	require.NoError(t, err)

	emit, err := acc.Feed(&Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: true, Headers: map[string][]byte{"k": []byte("second")}})
	require.NoError(t, err)
	require.NotNil(t, emit)

	assert.Equal(t, []byte("second"), emit.Headers["k"])
}

func TestGds_AccumulatorControlFramesBypass(t *testing.T) {
	p := newTestPool()
	acc := NewAccumulator(p, true)

	_, err := acc.Feed(&Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: false, Headers: map[string][]byte{"a": []byte("1")}})
	require.NoError(t, err)

	ping := &Frame{StreamID: 1, Type: FramePing, IsComplete: true}
	emit, err := acc.Feed(ping)
	require.NoError(t, err)
	assert.Same(t, ping, emit, "control frames pass through untouched, bypassing the accumulator")

	// the in-progress message for the stream should be unaffected
	emit, err = acc.Feed(&Frame{StreamID: 1, Type: FrameBodyOnly, IsComplete: true, Body: func() *buffer.ChunkedBuffer {
		b := buffer.New(p)
		_ = b.Write([]byte("body"))
		return b
	}()})
	require.NoError(t, err)
	require.NotNil(t, emit)
	defer emit.Dispose()
	assert.Equal(t, []byte("1"), emit.Headers["a"])
}

func TestGds_AccumulatorDisabledPassesThrough(t *testing.T) {
	p := newTestPool()
	acc := NewAccumulator(p, false)

	f := &Frame{StreamID: 1, Type: FrameHeadersOnly, IsComplete: false, Headers: map[string][]byte{"a": []byte("1")}}
	emit, err := acc.Feed(f)
	require.NoError(t, err)
	assert.Same(t, f, emit)
}

func TestGds_Factory(t *testing.T) {
	p := newTestPool()
	factory := NewFactory(p, true)
	a := factory.NewPerChannelInstance()
	b := factory.NewPerChannelInstance()
	assert.NotSame(t, a, b)
}
