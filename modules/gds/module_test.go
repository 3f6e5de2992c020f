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

package gds_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/buffer"
	gdswire "github.com/packetd/gosocknet/codec/gds"

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"

	"github.com/packetd/gosocknet/modules/gds"
)

// echoModule 把收到的完整 Gds 帧原样回送 用于验证端到端收发
type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*gdswire.Frame](ch.Pipeline(), "echo", func(c any, f *gdswire.Frame, box *pipeline.Box) {
		_ = c.(*channel.Channel).Send(f)
	})
	return nil
}

func (echoModule) Uninstall(ch *channel.Channel) error { return nil }

// captureModule 把收到的完整帧送进一个 channel 供测试断言
type captureModule struct{ got chan *gdswire.Frame }

func (m captureModule) Name() string { return "capture" }

func (m captureModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*gdswire.Frame](ch.Pipeline(), "capture", func(c any, f *gdswire.Frame, box *pipeline.Box) {
		m.got <- f
	})
	return nil
}

func (m captureModule) Uninstall(ch *channel.Channel) error { return nil }

func TestGdsModule_EndToEndFullFrame(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := pool.New(256)

	serverDone := make(chan struct{})
	got := make(chan *gdswire.Frame, 1)
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv, err := channel.Accept(conn, p)
		if err != nil {
			return
		}
		require.NoError(t, srv.AddModule(gds.New(p, true)))
		require.NoError(t, srv.AddModule(captureModule{got: got}))
		<-srv.Done()
	}()

	client := channel.NewClient("tcp", ln.Addr().String(), p)
	require.NoError(t, client.AddModule(gds.New(p, true)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	body := buffer.New(p)
	require.NoError(t, body.Write([]byte("hello")))
	f := &gdswire.Frame{
		StreamID:   1,
		Type:       gdswire.FrameFull,
		IsComplete: true,
		Headers:    map[string][]byte{"x-test": []byte("1")},
		Body:       body,
	}
	require.NoError(t, client.Send(f))

	select {
	case recv := <-got:
		assert.Equal(t, uint64(1), recv.StreamID)
		assert.Equal(t, []byte("1"), recv.Headers["x-test"])
		payload, err := recv.Body.Read(int(recv.Body.Len()))
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}

	require.NoError(t, client.Disconnect())
	<-serverDone
}

func TestGdsModule_ReassemblesSplitChunks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := pool.New(256)

	serverDone := make(chan struct{})
	got := make(chan *gdswire.Frame, 1)
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv, err := channel.Accept(conn, p)
		if err != nil {
			return
		}
		require.NoError(t, srv.AddModule(gds.New(p, true)))
		require.NoError(t, srv.AddModule(captureModule{got: got}))
		<-srv.Done()
	}()

	client := channel.NewClient("tcp", ln.Addr().String(), p)
	require.NoError(t, client.AddModule(gds.New(p, true)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	headersFrame := &gdswire.Frame{
		StreamID:   9,
		Type:       gdswire.FrameHeadersOnly,
		IsComplete: false,
		Headers:    map[string][]byte{"a": []byte("1")},
	}
	require.NoError(t, client.Send(headersFrame))

	bodyBuf := buffer.New(p)
	require.NoError(t, bodyBuf.Write([]byte("payload")))
	bodyFrame := &gdswire.Frame{
		StreamID:   9,
		Type:       gdswire.FrameBodyOnly,
		IsComplete: true,
		Body:       bodyBuf,
	}
	require.NoError(t, client.Send(bodyFrame))

	select {
	case recv := <-got:
		assert.Equal(t, gdswire.FrameFull, recv.Type)
		assert.Equal(t, []byte("1"), recv.Headers["a"])
		payload, err := recv.Body.Read(int(recv.Body.Len()))
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reassembled frame")
	}

	require.NoError(t, client.Disconnect())
	<-serverDone
}
