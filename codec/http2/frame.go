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

package http2

// FrameType 标识帧首部中的 type 字段 与 RFC 7540 §11.2 的登记表一致
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRSTStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

// Flags 是帧首部的 8 位标志字段 不同帧类型对同一 bit 赋予不同含义
type Flags uint8

const (
	// FlagEndStream 用于 DATA/HEADERS: 当前帧是该流的最后一帧
	FlagEndStream Flags = 0x1

	// FlagAck 用于 SETTINGS/PING: 与 FlagEndStream 复用同一 bit 位置
	FlagAck Flags = 0x1

	// FlagEndHeaders 用于 HEADERS/PUSH_PROMISE/CONTINUATION: 头部块片段传输完毕
	FlagEndHeaders Flags = 0x4

	// FlagPadded 用于 DATA/HEADERS/PUSH_PROMISE: 负载前有 1 字节 Pad Length + 尾部填充
	FlagPadded Flags = 0x8

	// FlagPriority 用于 HEADERS: 负载携带 5 字节的流依赖/权重信息
	FlagPriority Flags = 0x20
)

// Has 判断 bit 是否被置位
func (f Flags) Has(bit Flags) bool {
	return f&bit != 0
}

// Frame 是一个已解析的 HTTP/2 帧: 通用首部字段 + 按 Type 区分的 Payload
//
// Payload 持有下面某个具体负载类型的指针 未知类型落到 *UnknownPayload
type Frame struct {
	Type     FrameType
	Flags    Flags
	StreamID uint32
	Payload  any
}

// DataPayload 对应 DATA 帧 Data 已经去除了可能存在的填充字节
type DataPayload struct {
	Data []byte
}

// PriorityParams 是 HEADERS 帧在 FlagPriority 置位时携带的优先级信息
// 与独立的 PRIORITY 帧共用同一形状
type PriorityParams struct {
	StreamDependency uint32
	Exclusive        bool
	Weight           uint8
}

// HeadersPayload 对应 HEADERS 帧 Priority 仅在 FlagPriority 置位时非 nil
type HeadersPayload struct {
	Priority            *PriorityParams
	HeaderBlockFragment []byte
}

// PriorityPayload 对应独立的 PRIORITY 帧 固定 5 字节负载
type PriorityPayload struct {
	StreamDependency uint32
	Exclusive        bool
	Weight           uint8
}

// RSTStreamPayload 对应 RST_STREAM 帧 固定 4 字节负载
type RSTStreamPayload struct {
	ErrorCode uint32
}

// SettingParam 是 SETTINGS 帧负载中的一对 (id, value)
type SettingParam struct {
	ID    uint16
	Value uint32
}

// SettingsPayload 对应 SETTINGS 帧
type SettingsPayload struct {
	Params []SettingParam
}

// PushPromisePayload 对应 PUSH_PROMISE 帧
type PushPromisePayload struct {
	PromisedStreamID    uint32
	HeaderBlockFragment []byte
}

// PingPayload 对应 PING 帧 固定 8 字节负载
type PingPayload struct {
	Data [8]byte
}

// GoAwayPayload 对应 GOAWAY 帧
type GoAwayPayload struct {
	LastStreamID uint32
	ErrorCode    uint32
	DebugData    []byte
}

// WindowUpdatePayload 对应 WINDOW_UPDATE 帧 固定 4 字节负载
type WindowUpdatePayload struct {
	WindowSizeIncrement uint32
}

// ContinuationPayload 对应 CONTINUATION 帧 整个负载都是头部块片段
type ContinuationPayload struct {
	HeaderBlockFragment []byte
}

// UnknownPayload 承载未登记帧类型的原始负载 原样透传
type UnknownPayload struct {
	Data []byte
}
