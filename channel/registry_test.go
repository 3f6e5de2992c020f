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

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pool"
)

func TestRegistry_TracksConnectAndDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	p := pool.New(256)
	registry := channel.NewRegistry()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv, err := channel.Accept(conn, p, channel.WithRegistry(registry))
		if err != nil {
			return
		}
		<-srv.Done()
	}()

	client := channel.NewClient("tcp", ln.Addr().String(), p, channel.WithRegistry(registry))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	deadline := time.Now().Add(2 * time.Second)
	for registry.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for both channels to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	got, ok := registry.Get(client.ID())
	require.True(t, ok)
	assert.Same(t, client, got)

	require.NoError(t, client.Disconnect())
	<-serverDone

	deadline = time.Now().Add(2 * time.Second)
	for registry.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for channels to unregister")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
