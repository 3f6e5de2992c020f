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

// Package websocket 实现 RFC 6455 的帧层编解码: FIN/RSV/opcode/mask 首部
// 长度形式 (7/16/64 位)、掩码 XOR、以及分片消息的重组
package websocket

import (
	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/errkit"
)

func newError(format string, args ...any) error {
	format = "websocket: " + format
	return errors.Errorf(format, args...)
}

// ErrBadOpcode 标记收到了保留/未知的 opcode 或者分片序列不合法
var ErrBadOpcode = errkit.Protocol("bad_opcode", newError("invalid or out-of-sequence opcode"))
