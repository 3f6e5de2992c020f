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

import "encoding/binary"

// Reassembler 累积一条消息的分片帧 每个方向每条连接各持有一个实例
//
// 控制帧 (close/ping/pong) 永远不分片 原样直通 不经过 Reassembler 状态
type Reassembler struct {
	opcode  Opcode
	payload []byte
	active  bool
}

// Feed 消费一个数据帧 (非控制帧) 返回值:
//   - complete != nil: 消息已经完整 (收到了 fin=true 的帧) 调用方应当把它当作一个
//     完整消息处理 Reassembler 的内部状态已被清空
//   - complete == nil, err == nil: 消息仍在分片中 等待下一帧
//   - err != nil: 分片序列不合法 (例如中途收到新的非 continuation 起始帧
//     或者在没有进行中消息时收到 continuation 帧)
func (r *Reassembler) Feed(f *Frame) (complete *Frame, err error) {
	if f.Opcode.IsControl() {
		return nil, ErrBadOpcode
	}

	if f.Opcode == OpcodeContinuation {
		if !r.active {
			return nil, ErrBadOpcode
		}
		r.payload = append(r.payload, f.Payload...)
	} else {
		if r.active {
			return nil, ErrBadOpcode
		}
		r.opcode = f.Opcode
		r.payload = append([]byte(nil), f.Payload...)
		r.active = true
	}

	if !f.Fin {
		return nil, nil
	}

	out := &Frame{Fin: true, Opcode: r.opcode, Payload: r.payload}
	r.opcode = 0
	r.payload = nil
	r.active = false
	return out, nil
}

// ParseClosePayload 解析 close 帧负载中可选的 2 字节状态码 + UTF-8 原因
//
// 空负载是合法的 (ok=true, reason="") 代表没有携带状态码
func ParseClosePayload(payload []byte) (code uint16, reason string, ok bool) {
	if len(payload) == 0 {
		return 0, "", true
	}
	if len(payload) < 2 {
		return 0, "", false
	}
	return binary.BigEndian.Uint16(payload[:2]), string(payload[2:]), true
}

// AppendClosePayload 构造一个 close 帧负载 code==0 时省略状态码 (意味着没有 reason)
func AppendClosePayload(code uint16, reason string) []byte {
	if code == 0 {
		return nil
	}
	out := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(out, code)
	return append(out, reason...)
}
