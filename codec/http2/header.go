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

import "encoding/binary"

// frameHeaderLen 是帧首部的固定长度: length(24) + type(8) + flags(8) + R(1)+streamId(31)
const frameHeaderLen = 9

// frameHeader 是已解析的通用帧首部
type frameHeader struct {
	Length   uint32
	Type     FrameType
	Flags    Flags
	StreamID uint32
}

// parseFrameHeader 解析恰好 frameHeaderLen 字节的首部 调用方负责保证长度足够
func parseFrameHeader(b []byte) frameHeader {
	length := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	streamID := binary.BigEndian.Uint32(b[5:9]) & 0x7fffffff
	return frameHeader{
		Length:   length,
		Type:     FrameType(b[3]),
		Flags:    Flags(b[4]),
		StreamID: streamID,
	}
}

// appendFrameHeader 把首部字段序列化追加到 dst
func appendFrameHeader(dst []byte, length uint32, typ FrameType, flags Flags, streamID uint32) []byte {
	dst = append(dst, byte(length>>16), byte(length>>8), byte(length))
	dst = append(dst, byte(typ), byte(flags))
	var sid [4]byte
	binary.BigEndian.PutUint32(sid[:], streamID&0x7fffffff)
	return append(dst, sid[:]...)
}
