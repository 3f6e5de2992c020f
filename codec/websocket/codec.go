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
	"crypto/rand"
	"encoding/binary"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
)

const (
	bit0     = 0x80
	bit1     = 0x40
	bit2     = 0x20
	bit3     = 0x10
	bits4to7 = 0x0f
	bits0to6 = 0x7f

	len7bits  = 125
	len16bits = 126
	len64bits = 127
)

// Parse 尝试从 buf 的 readPosition 处解析一个完整帧
//
// 任何一段还没到齐的字节 (首部两字节/扩展长度/掩码 key/负载) 都会让 readPosition
// 复原到调用前的位置 并返回 errkit.Incomplete
func Parse(buf *buffer.ChunkedBuffer) (*Frame, error) {
	start := buf.ReadPosition()

	f, err := tryParse(buf)
	if err != nil {
		if serr := buf.SetReadPosition(start); serr != nil {
			return nil, errkit.IO(serr)
		}
		return nil, err
	}
	return f, nil
}

func tryParse(buf *buffer.ChunkedBuffer) (*Frame, error) {
	if buf.Len() < 2 {
		return nil, errkit.Incomplete
	}
	head, err := buf.Read(2)
	if err != nil {
		return nil, errkit.IO(err)
	}

	f := &Frame{
		Fin:    head[0]&bit0 != 0,
		RSV1:   head[0]&bit1 != 0,
		RSV2:   head[0]&bit2 != 0,
		RSV3:   head[0]&bit3 != 0,
		Opcode: Opcode(head[0] & bits4to7),
		Masked: head[1]&bit0 != 0,
	}

	lenField := head[1] & bits0to6
	var payloadLen uint64
	switch {
	case lenField <= len7bits:
		payloadLen = uint64(lenField)
	case lenField == len16bits:
		if buf.Len() < 2 {
			return nil, errkit.Incomplete
		}
		b, rerr := buf.Read(2)
		if rerr != nil {
			return nil, errkit.IO(rerr)
		}
		payloadLen = uint64(binary.BigEndian.Uint16(b))
	case lenField == len64bits:
		if buf.Len() < 8 {
			return nil, errkit.Incomplete
		}
		b, rerr := buf.Read(8)
		if rerr != nil {
			return nil, errkit.IO(rerr)
		}
		payloadLen = binary.BigEndian.Uint64(b)
	}

	if f.Masked {
		if buf.Len() < 4 {
			return nil, errkit.Incomplete
		}
		keyBytes, rerr := buf.Read(4)
		if rerr != nil {
			return nil, errkit.IO(rerr)
		}
		copy(f.MaskKey[:], keyBytes)
	}

	if buf.Len() < int64(payloadLen) {
		return nil, errkit.Incomplete
	}
	payload, err := buf.Read(int(payloadLen))
	if err != nil {
		return nil, errkit.IO(err)
	}

	if f.Masked {
		maskPayload(payload, f.MaskKey)
	}
	f.Payload = payload
	return f, nil
}

// Append 把 f 序列化并追加到 dst
//
// 如果 f.Masked 为 true 且 MaskKey 为全零 会现取一个随机 key (客户端发送场景)
// 序列化过程中会对 f.Payload 本身做原地掩码 调用方发送后不应再读取该切片
func Append(dst []byte, f *Frame) ([]byte, error) {
	if f.Masked && f.MaskKey == ([4]byte{}) {
		if _, err := rand.Read(f.MaskKey[:]); err != nil {
			return nil, newError("failed to generate mask key: %v", err)
		}
	}

	var b0 byte
	if f.Fin {
		b0 |= bit0
	}
	if f.RSV1 {
		b0 |= bit1
	}
	if f.RSV2 {
		b0 |= bit2
	}
	if f.RSV3 {
		b0 |= bit3
	}
	b0 |= byte(f.Opcode) & bits4to7
	dst = append(dst, b0)

	n := len(f.Payload)
	var b1 byte
	if f.Masked {
		b1 |= bit0
	}
	switch {
	case n <= len7bits:
		dst = append(dst, b1|byte(n))
	case n <= 0xffff:
		dst = append(dst, b1|len16bits)
		var ext [2]byte
		binary.BigEndian.PutUint16(ext[:], uint16(n))
		dst = append(dst, ext[:]...)
	default:
		dst = append(dst, b1|len64bits)
		var ext [8]byte
		binary.BigEndian.PutUint64(ext[:], uint64(n))
		dst = append(dst, ext[:]...)
	}

	if f.Masked {
		dst = append(dst, f.MaskKey[:]...)
		maskPayload(f.Payload, f.MaskKey)
	}
	return append(dst, f.Payload...), nil
}

// NewClientFrame 构造一个客户端发出的帧 Masked 总是 true
func NewClientFrame(opcode Opcode, payload []byte, fin bool) *Frame {
	return &Frame{Fin: fin, Opcode: opcode, Masked: true, Payload: payload}
}

// NewServerFrame 构造一个服务端发出的帧 Masked 总是 false
func NewServerFrame(opcode Opcode, payload []byte, fin bool) *Frame {
	return &Frame{Fin: fin, Opcode: opcode, Masked: false, Payload: payload}
}
