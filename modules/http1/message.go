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

// Package http1 实现了一个足够支撑协议升级握手 (WebSocket/h2c) 的最小 HTTP/1.1
// 报文编解码器 请求路由/状态码语义不属于这里的职责 (参见 spec 对 HTTP 语义的范围说明)
package http1

import "net/http"

// Message 统一承载请求与响应 IsResponse 区分具体种类
type Message struct {
	IsResponse bool

	Method string
	Path   string
	Proto  string

	StatusCode int
	StatusText string

	Header http.Header
	Body   []byte
}

// NewRequest 构造一个请求报文
func NewRequest(method, path string, header http.Header, body []byte) *Message {
	if header == nil {
		header = make(http.Header)
	}
	return &Message{Method: method, Path: path, Proto: "HTTP/1.1", Header: header, Body: body}
}

// NewResponse 构造一个响应报文
func NewResponse(statusCode int, statusText string, header http.Header, body []byte) *Message {
	if header == nil {
		header = make(http.Header)
	}
	return &Message{IsResponse: true, Proto: "HTTP/1.1", StatusCode: statusCode, StatusText: statusText, Header: header, Body: body}
}
