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

package hpack

// appendString 编码一个 HPACK 字符串字面量 (H 位 + 7-bit 前缀长度 + 数据)
//
// 只有当 Huffman 编码结果严格短于原始字节数时才选择 Huffman 与 spec 描述一致
func appendString(dst []byte, s string) []byte {
	huffLen := huffmanEncodedLen(s)
	if huffLen < len(s) {
		dst = appendInt(dst, 7, 0x80, uint64(huffLen))
		return huffmanEncode(dst, s)
	}

	dst = appendInt(dst, 7, 0x00, uint64(len(s)))
	return append(dst, s...)
}

// readString 解码一个 HPACK 字符串字面量 maxLen<=0 表示不做长度上限检查
func readString(src []byte, maxLen int) (s string, consumed int, err error) {
	if len(src) == 0 {
		return "", 0, ErrTruncatedBlock
	}

	huffman := src[0]&0x80 != 0
	length, n, ok := readInt(src, 7)
	if !ok {
		return "", 0, ErrTruncatedBlock
	}
	total := n + int(length)
	if total > len(src) {
		return "", 0, ErrTruncatedBlock
	}

	raw := src[n:total]
	if huffman {
		s, err = huffmanDecode(raw, maxLen)
		if err != nil {
			return "", 0, err
		}
		return s, total, nil
	}

	if maxLen > 0 && len(raw) > maxLen {
		return "", 0, ErrHeaderTooLarge
	}
	return string(raw), total, nil
}
