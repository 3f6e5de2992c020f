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

import (
	"encoding/binary"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
)

// appendUvarint 用标准库的 LEB128 varint 编码追加 v
func appendUvarint(dst []byte, v uint64) []byte {
	var scratch [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(scratch[:], v)
	return append(dst, scratch[:n]...)
}

// readUvarint 从 buf 的 readPosition 逐字节读取一个 varint
//
// 字节不足以构成一个完整 varint 时返回 errkit.Incomplete 调用方 (tryParse) 负责
// 把整个帧的读游标回退到帧起始处 这里不做局部回退
func readUvarint(buf *buffer.ChunkedBuffer) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; ; i++ {
		if buf.Len() < 1 {
			return 0, errkit.Incomplete
		}
		b, err := buf.Read(1)
		if err != nil {
			return 0, errkit.IO(err)
		}
		if b[0] < 0x80 {
			if i >= binary.MaxVarintLen64 {
				return 0, newError("varint overflows 64 bits")
			}
			return x | uint64(b[0])<<s, nil
		}
		x |= uint64(b[0]&0x7f) << s
		s += 7
	}
}

// readBytes 从 buf 读取恰好 n 字节 不足时返回 errkit.Incomplete
func readBytes(buf *buffer.ChunkedBuffer, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if buf.Len() < int64(n) {
		return nil, errkit.Incomplete
	}
	b, err := buf.Read(n)
	if err != nil {
		return nil, errkit.IO(err)
	}
	return b, nil
}
