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

// Package http2 把 codec/hpack 与 codec/http2 组装成一个 channel.Module:
// 按 stream 累积 HEADERS(+CONTINUATION) 头部块片段与 DATA 帧负载 解码/编码
// 使用连接级别共享的单个 HPACK Decoder/Encoder (动态表按 RFC 7541 定义本就是
// 连接范围而非单个 stream 范围)
package http2

import "net/http"

// Message 是一条已经完整重组的 HTTP/2 请求/响应 对应单个 stream 上的一轮交换
type Message struct {
	StreamID uint32
	Header   http.Header
	Body     []byte
}

// NewMessage 构造一条待发送的消息 header 为 nil 时分配一个空 http.Header
func NewMessage(streamID uint32, header http.Header, body []byte) *Message {
	if header == nil {
		header = make(http.Header)
	}
	return &Message{StreamID: streamID, Header: header, Body: body}
}
