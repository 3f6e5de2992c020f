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

package websocket_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wsframe "github.com/packetd/gosocknet/codec/websocket"

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"

	"github.com/packetd/gosocknet/modules/websocket"
)

// echoFrameModule 把收到的文本/二进制帧原样发回 用于验证握手之后的帧级别收发
type echoFrameModule struct{}

func (echoFrameModule) Name() string { return "echo-frame" }

func (echoFrameModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*wsframe.Frame](ch.Pipeline(), "echo-frame", func(c any, f *wsframe.Frame, box *pipeline.Box) {
		_ = c.(*channel.Channel).Send(wsframe.NewServerFrame(f.Opcode, f.Payload, true))
	})
	return nil
}

func (echoFrameModule) Uninstall(ch *channel.Channel) error { return nil }

// captureFrameModule 把收到的帧负载送进一个 channel 供测试断言
type captureFrameModule struct{ got chan []byte }

func (m captureFrameModule) Name() string { return "capture-frame" }

func (m captureFrameModule) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*wsframe.Frame](ch.Pipeline(), "capture-frame", func(c any, f *wsframe.Frame, box *pipeline.Box) {
		m.got <- append([]byte(nil), f.Payload...)
	})
	return nil
}

func (m captureFrameModule) Uninstall(ch *channel.Channel) error { return nil }

func TestWebSocketModule_HandshakeThenFrameEcho(t *testing.T) {
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
		require.NoError(t, srv.AddModule(websocket.NewServer()))
		require.NoError(t, srv.AddModule(echoFrameModule{}))
		<-srv.Done()
	}()

	got := make(chan []byte, 1)
	client := channel.NewClient("tcp", ln.Addr().String(), p)
	clientModule := websocket.NewClient(ln.Addr().String())
	require.NoError(t, client.AddModule(clientModule))
	require.NoError(t, client.AddModule(captureFrameModule{got: got}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	deadline := time.Now().Add(2 * time.Second)
	for !clientModule.Upgraded() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for websocket handshake to complete")
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, client.Send(wsframe.NewClientFrame(wsframe.OpcodeText, []byte("hello"), true)))

	select {
	case data := <-got:
		assert.Equal(t, "hello", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed frame")
	}

	require.NoError(t, client.Disconnect())
	<-serverDone
}
