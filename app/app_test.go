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

package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/gosocknet/app"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/common"
	"github.com/packetd/gosocknet/confengine"
	"github.com/packetd/gosocknet/pool"
)

const testConfigYaml = `
app:
  listener:
    enabled: true
    address: 127.0.0.1:0
    chunkSize: 4096
    modules:
      - name: gds
        combineChunks: true
server:
  enabled: true
  address: 127.0.0.1:0
  timeout: 2s
logger:
  stdout: true
`

func TestApp_StartAcceptsConnectionsAndExposesDebugRoutes(t *testing.T) {
	conf, err := confengine.LoadContent([]byte(testConfigYaml))
	require.NoError(t, err)

	a, err := app.New(conf, common.GetBuildInfo())
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	require.NotNil(t, a.Addr())

	client := channel.NewClient("tcp", a.Addr().String(), pool.New(4096))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// the client doesn't need a protocol module to exercise accept + registry wiring
	require.NoError(t, client.Connect(ctx))

	deadline := time.Now().Add(2 * time.Second)
	for a.Registry().Len() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for accepted channel to register")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/channels", nil)
	a.Server().Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "connected", list[0]["state"])

	id, _ := list[0]["id"].(string)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/debug/channels/"+id, nil)
	a.Server().Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	incoming, _ := detail["incomingHandlers"].([]any)
	require.Contains(t, incoming, "gds.decode")

	require.NoError(t, client.Disconnect())
}

func TestApp_ListenerDisabled_DoesNotBindPort(t *testing.T) {
	conf, err := confengine.LoadContent([]byte(`
app:
  listener:
    enabled: false
server:
  enabled: false
logger:
  stdout: true
`))
	require.NoError(t, err)

	a, err := app.New(conf, common.GetBuildInfo())
	require.NoError(t, err)
	require.NoError(t, a.Start())
	defer a.Stop()

	assert.Nil(t, a.Addr())
}
