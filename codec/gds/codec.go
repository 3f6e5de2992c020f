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
	"bytes"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
	"github.com/packetd/gosocknet/pool"
)

// Parse 尝试从 buf 的 readPosition 处解析一个完整的 Gds 帧
//
// 解析过程中任何一段数据不足都会让 readPosition 复原到调用前的位置并返回
// errkit.Incomplete 解析成功返回的 Frame.Body (如果非 nil) 从 p 中借用 chunk
// 调用方负责最终 Dispose
func Parse(buf *buffer.ChunkedBuffer, p *pool.Pool) (*Frame, error) {
	start := buf.ReadPosition()

	f, err := tryParse(buf, p)
	if err != nil {
		if serr := buf.SetReadPosition(start); serr != nil {
			return nil, errkit.IO(serr)
		}
		return nil, err
	}
	return f, nil
}

func tryParse(buf *buffer.ChunkedBuffer, p *pool.Pool) (*Frame, error) {
	streamID, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}

	typeByte, err := readBytes(buf, 1)
	if err != nil {
		return nil, err
	}
	isComplete := typeByte[0]&0x80 != 0
	typ := FrameType(typeByte[0] &^ 0x80)

	headerCount, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}

	headers := make(map[string][]byte, headerCount)
	for i := uint64(0); i < headerCount; i++ {
		nameLen, err := readUvarint(buf)
		if err != nil {
			return nil, err
		}
		name, err := readBytes(buf, int(nameLen))
		if err != nil {
			return nil, err
		}
		valLen, err := readUvarint(buf)
		if err != nil {
			return nil, err
		}
		val, err := readBytes(buf, int(valLen))
		if err != nil {
			return nil, err
		}
		headers[string(name)] = append([]byte(nil), val...)
	}

	bodyLen, err := readUvarint(buf)
	if err != nil {
		return nil, err
	}
	bodyBytes, err := readBytes(buf, int(bodyLen))
	if err != nil {
		return nil, err
	}

	var body *buffer.ChunkedBuffer
	if bodyLen > 0 {
		body = buffer.New(p)
		if werr := body.Write(bodyBytes); werr != nil {
			return nil, errkit.IO(werr)
		}
	}

	return &Frame{StreamID: streamID, Type: typ, IsComplete: isComplete, Headers: headers, Body: body}, nil
}

// Append 把 f 序列化并追加到 dst
//
// 如果 f.Body 非 nil 会被完全耗尽 (DrainTo) 并 Dispose 调用方发送之后不应再持有它
func Append(dst []byte, f *Frame) ([]byte, error) {
	dst = appendUvarint(dst, f.StreamID)

	tb := byte(f.Type)
	if f.IsComplete {
		tb |= 0x80
	}
	dst = append(dst, tb)

	dst = appendUvarint(dst, uint64(len(f.Headers)))
	for k, v := range f.Headers {
		dst = appendUvarint(dst, uint64(len(k)))
		dst = append(dst, k...)
		dst = appendUvarint(dst, uint64(len(v)))
		dst = append(dst, v...)
	}

	var bodyBytes []byte
	if f.Body != nil {
		var sink bytes.Buffer
		if _, err := f.Body.DrainTo(&sink); err != nil {
			return nil, errkit.IO(err)
		}
		f.Body.Dispose()
		bodyBytes = sink.Bytes()
	}
	dst = appendUvarint(dst, uint64(len(bodyBytes)))
	return append(dst, bodyBytes...), nil
}
