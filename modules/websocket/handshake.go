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

// Package websocket 在 modules/http1 的升级握手之上 挂载 RFC 6455 帧编解码器
//
// 握手完成后 channel 的入站/出站 pipeline 从 http1.Message 切换为
// codec/websocket.Frame 握手前到达的字节仍然经由 modules/http1 解析
package websocket

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"strings"
)

// acceptGUID 是 RFC 6455 §1.3 规定的固定 magic string
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// computeAccept 依据 Sec-WebSocket-Key 计算 Sec-WebSocket-Accept
func computeAccept(key string) string {
	sum := sha1.Sum([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// newClientKey 生成客户端握手请求中的 Sec-WebSocket-Key (16 字节随机数的 base64)
func newClientKey() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw[:]), nil
}

// BuildRequestHeader 构造客户端升级请求所需的头部字段集合
func BuildRequestHeader(host string) (header http.Header, key string, err error) {
	key, err = newClientKey()
	if err != nil {
		return nil, "", err
	}
	header = make(http.Header)
	header.Set("Host", host)
	header.Set("Upgrade", "websocket")
	header.Set("Connection", "Upgrade")
	header.Set("Sec-WebSocket-Key", key)
	header.Set("Sec-WebSocket-Version", "13")
	return header, key, nil
}

// BuildResponseHeader 构造服务端对一次合法升级请求的响应头部
func BuildResponseHeader(requestHeader http.Header) (header http.Header, err error) {
	if !isUpgradeRequest(requestHeader) {
		return nil, ErrHandshake
	}
	key := requestHeader.Get("Sec-WebSocket-Key")
	if key == "" {
		return nil, ErrHandshake
	}

	header = make(http.Header)
	header.Set("Upgrade", "websocket")
	header.Set("Connection", "Upgrade")
	header.Set("Sec-WebSocket-Accept", computeAccept(key))
	return header, nil
}

// isUpgradeRequest 校验请求头部满足 websocket 升级的最低要求
func isUpgradeRequest(header http.Header) bool {
	return headerContainsToken(header.Get("Upgrade"), "websocket") &&
		headerContainsToken(header.Get("Connection"), "upgrade") &&
		header.Get("Sec-WebSocket-Version") == "13"
}

// ValidateAccept 校验服务端响应中的 Sec-WebSocket-Accept 与请求时使用的 key 匹配
func ValidateAccept(responseHeader http.Header, key string) bool {
	return responseHeader.Get("Sec-WebSocket-Accept") == computeAccept(key)
}

// headerContainsToken 检查逗号分隔的头部字段值中是否包含 token (大小写不敏感)
// Connection 头部常见形如 "keep-alive, Upgrade" 因此不能用相等比较
func headerContainsToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
