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

package channel_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"
)

// echoModule 把收到的字节原样发回 用来验证收发循环与 Send 的端到端行为
type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "echo", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		data, err := buf.Read(int(buf.Len()))
		if err != nil || len(data) == 0 {
			return
		}
		_ = c.(*channel.Channel).Send(append([]byte(nil), data...))
	})
	return nil
}

func (echoModule) Uninstall(ch *channel.Channel) error { return nil }

// captureModule 把收到的字节送进一个 channel 供测试断言
type captureModule struct{ got chan []byte }

func (m captureModule) Name() string { return "capture" }

func (m captureModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "capture", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		data, err := buf.Read(int(buf.Len()))
		if err != nil || len(data) == 0 {
			return
		}
		m.got <- append([]byte(nil), data...)
	})
	return nil
}

func (m captureModule) Uninstall(ch *channel.Channel) error { return nil }

func TestChannel_ConnectSendReceiveEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := pool.New(256)

	serverDone := make(chan struct{})
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
		require.NoError(t, srv.AddModule(echoModule{}))
		<-srv.Done()
	}()

	got := make(chan []byte, 1)
	client := channel.NewClient("tcp", ln.Addr().String(), p)
	require.NoError(t, client.AddModule(captureModule{got: got}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))
	assert.Equal(t, channel.StateConnected, client.State())

	require.NoError(t, client.Send([]byte("hello")))

	select {
	case data := <-got:
		assert.Equal(t, "hello", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echo")
	}

	require.NoError(t, client.Disconnect())
	assert.Equal(t, channel.StateDisconnected, client.State())
	<-serverDone
}

func TestChannel_SendBeforeConnectIsAborted(t *testing.T) {
	p := pool.New(64)
	client := channel.NewClient("tcp", "127.0.0.1:1", p)
	err := client.Send([]byte("x"))
	assert.ErrorIs(t, err, channel.ErrNotConnected)
}

func TestChannel_DisconnectIsIdempotent(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := pool.New(64)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = channel.Accept(conn, p)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	client := channel.NewClient("tcp", ln.Addr().String(), p)
	require.NoError(t, client.Connect(ctx))

	require.NoError(t, client.Disconnect())
	require.NoError(t, client.Disconnect())
}
