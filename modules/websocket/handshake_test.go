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

package websocket

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestComputeAccept_RFC6455Example 复现 RFC 6455 §1.3 给出的示例值
func TestComputeAccept_RFC6455Example(t *testing.T) {
	got := computeAccept("dGhlIHNhbXBsZSBub25jZQ==")
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", got)
}

func TestBuildRequestAndResponseHeader_RoundTrip(t *testing.T) {
	reqHeader, key, err := BuildRequestHeader("example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", reqHeader.Get("Host"))
	assert.Equal(t, "13", reqHeader.Get("Sec-WebSocket-Version"))

	respHeader, err := BuildResponseHeader(reqHeader)
	require.NoError(t, err)
	assert.True(t, ValidateAccept(respHeader, key))
}

func TestBuildResponseHeader_RejectsNonUpgradeRequest(t *testing.T) {
	header := make(http.Header)
	header.Set("Host", "example.com")

	_, err := BuildResponseHeader(header)
	assert.ErrorIs(t, err, ErrHandshake)
}

func TestHeaderContainsToken_CommaSeparatedConnection(t *testing.T) {
	assert.True(t, headerContainsToken("keep-alive, Upgrade", "upgrade"))
	assert.False(t, headerContainsToken("keep-alive", "upgrade"))
}
