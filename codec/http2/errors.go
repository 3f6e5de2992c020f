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

// Package http2 实现 RFC 7540 的帧层编解码: 9 字节帧首部 + 按类型解析的负载
//
// 只负责单个 TCP 连接上的帧级别编解码 不涉及流状态机/流控/多路复用调度
// 未知帧类型原样透传 (type/flags/streamId/payload) 交给上层决定如何处理
package http2

import (
	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/errkit"
)

func newError(format string, args ...any) error {
	format = "http2: " + format
	return errors.Errorf(format, args...)
}

// frameSizeErr 构造一个 FrameSizeError 协议错误 name 标识帧类型 便于定位
func frameSizeErr(name string, length int) error {
	return errkit.Protocol("frame_size_error", newError("%s frame: invalid length %d", name, length))
}
