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

import "github.com/packetd/gosocknet/buffer"

// FrameType 区分一个 Gds 帧携带的内容
type FrameType uint8

const (
	FrameHeadersOnly FrameType = iota
	FrameBodyOnly
	FrameFull
	FramePing
	FramePong
	FrameClose
)

// IsControl 返回该类型是否为控制帧 (Ping/Pong/Close) 控制帧不参与重组
func (t FrameType) IsControl() bool {
	switch t {
	case FramePing, FramePong, FrameClose:
		return true
	default:
		return false
	}
}

// Frame 是一个 Gds 帧 Body 为 nil 表示该帧不携带消息体 (例如纯 HeadersOnly 帧)
type Frame struct {
	StreamID   uint64
	Type       FrameType
	IsComplete bool
	Headers    map[string][]byte
	Body       *buffer.ChunkedBuffer
}

// Dispose 释放 Body 持有的 chunk 对没有 Body 的帧是安全的空操作
func (f *Frame) Dispose() {
	if f.Body != nil {
		f.Body.Dispose()
	}
}
