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

import (
	"encoding/binary"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
)

// Parse 尝试从 buf 的 readPosition 处解析一个完整帧
//
// 如果可读字节不足以构成 9 字节首部 + payload 声明的长度 readPosition 会被
// 复原到调用前的位置 并返回 errkit.Incomplete 调用方应当等待更多字节后重试
func Parse(buf *buffer.ChunkedBuffer) (*Frame, error) {
	start := buf.ReadPosition()

	if buf.Len() < frameHeaderLen {
		return nil, errkit.Incomplete
	}
	hdrBytes, err := buf.Read(frameHeaderLen)
	if err != nil {
		return nil, errkit.IO(err)
	}
	hdr := parseFrameHeader(hdrBytes)

	if buf.Len() < int64(hdr.Length) {
		if serr := buf.SetReadPosition(start); serr != nil {
			return nil, errkit.IO(serr)
		}
		return nil, errkit.Incomplete
	}

	payload, err := buf.Read(int(hdr.Length))
	if err != nil {
		return nil, errkit.IO(err)
	}

	return decodePayload(hdr, payload)
}

// Append 把 f 序列化并追加到 dst 返回新的切片
func Append(dst []byte, f *Frame) ([]byte, error) {
	payload, err := encodePayload(f)
	if err != nil {
		return nil, err
	}
	dst = appendFrameHeader(dst, uint32(len(payload)), f.Type, f.Flags, f.StreamID)
	return append(dst, payload...), nil
}

// splitPadding 剥离 payload 前导 1 字节 Pad Length 声明的尾部填充
// 仅适用于 padding 紧跟在负载起始处的帧 (DATA) HEADERS/PUSH_PROMISE 自行处理顺序
func splitPadding(b []byte, name string) ([]byte, error) {
	if len(b) < 1 {
		return nil, frameSizeErr(name, len(b))
	}
	padLen := int(b[0])
	rest := b[1:]
	if padLen > len(rest) {
		return nil, frameSizeErr(name, len(b))
	}
	return rest[:len(rest)-padLen], nil
}

func decodePayload(hdr frameHeader, b []byte) (*Frame, error) {
	f := &Frame{Type: hdr.Type, Flags: hdr.Flags, StreamID: hdr.StreamID}

	switch hdr.Type {
	case FrameData:
		data := b
		if hdr.Flags.Has(FlagPadded) {
			var err error
			data, err = splitPadding(b, "DATA")
			if err != nil {
				return nil, err
			}
		}
		f.Payload = &DataPayload{Data: data}

	case FrameHeaders:
		rest := b
		padLen := 0
		if hdr.Flags.Has(FlagPadded) {
			if len(rest) < 1 {
				return nil, frameSizeErr("HEADERS", len(b))
			}
			padLen = int(rest[0])
			rest = rest[1:]
		}
		var prio *PriorityParams
		if hdr.Flags.Has(FlagPriority) {
			if len(rest) < 5 {
				return nil, frameSizeErr("HEADERS", len(b))
			}
			dep := binary.BigEndian.Uint32(rest[:4])
			excl := dep&0x80000000 != 0
			dep &^= 0x80000000
			prio = &PriorityParams{StreamDependency: dep, Exclusive: excl, Weight: rest[4]}
			rest = rest[5:]
		}
		if padLen > len(rest) {
			return nil, frameSizeErr("HEADERS", len(b))
		}
		f.Payload = &HeadersPayload{Priority: prio, HeaderBlockFragment: rest[:len(rest)-padLen]}

	case FramePriority:
		if len(b) != 5 {
			return nil, frameSizeErr("PRIORITY", len(b))
		}
		dep := binary.BigEndian.Uint32(b[:4])
		excl := dep&0x80000000 != 0
		dep &^= 0x80000000
		f.Payload = &PriorityPayload{StreamDependency: dep, Exclusive: excl, Weight: b[4]}

	case FrameRSTStream:
		if len(b) != 4 {
			return nil, frameSizeErr("RST_STREAM", len(b))
		}
		f.Payload = &RSTStreamPayload{ErrorCode: binary.BigEndian.Uint32(b)}

	case FrameSettings:
		if len(b)%6 != 0 {
			return nil, frameSizeErr("SETTINGS", len(b))
		}
		params := make([]SettingParam, 0, len(b)/6)
		for off := 0; off < len(b); off += 6 {
			params = append(params, SettingParam{
				ID:    binary.BigEndian.Uint16(b[off : off+2]),
				Value: binary.BigEndian.Uint32(b[off+2 : off+6]),
			})
		}
		f.Payload = &SettingsPayload{Params: params}

	case FramePushPromise:
		rest := b
		padLen := 0
		if hdr.Flags.Has(FlagPadded) {
			if len(rest) < 1 {
				return nil, frameSizeErr("PUSH_PROMISE", len(b))
			}
			padLen = int(rest[0])
			rest = rest[1:]
		}
		if len(rest) < 4 {
			return nil, frameSizeErr("PUSH_PROMISE", len(b))
		}
		promised := binary.BigEndian.Uint32(rest[:4]) & 0x7fffffff
		rest = rest[4:]
		if padLen > len(rest) {
			return nil, frameSizeErr("PUSH_PROMISE", len(b))
		}
		f.Payload = &PushPromisePayload{PromisedStreamID: promised, HeaderBlockFragment: rest[:len(rest)-padLen]}

	case FramePing:
		if len(b) != 8 {
			return nil, frameSizeErr("PING", len(b))
		}
		var data [8]byte
		copy(data[:], b)
		f.Payload = &PingPayload{Data: data}

	case FrameGoAway:
		if len(b) < 8 {
			return nil, frameSizeErr("GOAWAY", len(b))
		}
		last := binary.BigEndian.Uint32(b[:4]) & 0x7fffffff
		code := binary.BigEndian.Uint32(b[4:8])
		f.Payload = &GoAwayPayload{LastStreamID: last, ErrorCode: code, DebugData: b[8:]}

	case FrameWindowUpdate:
		if len(b) != 4 {
			return nil, frameSizeErr("WINDOW_UPDATE", len(b))
		}
		inc := binary.BigEndian.Uint32(b) & 0x7fffffff
		f.Payload = &WindowUpdatePayload{WindowSizeIncrement: inc}

	case FrameContinuation:
		f.Payload = &ContinuationPayload{HeaderBlockFragment: b}

	default:
		f.Payload = &UnknownPayload{Data: b}
	}

	return f, nil
}

func encodePayload(f *Frame) ([]byte, error) {
	switch p := f.Payload.(type) {
	case *DataPayload:
		return p.Data, nil

	case *HeadersPayload:
		var out []byte
		if p.Priority != nil {
			var dep [4]byte
			binary.BigEndian.PutUint32(dep[:], p.Priority.StreamDependency)
			if p.Priority.Exclusive {
				dep[0] |= 0x80
			}
			out = append(out, dep[:]...)
			out = append(out, p.Priority.Weight)
		}
		return append(out, p.HeaderBlockFragment...), nil

	case *PriorityPayload:
		var out [5]byte
		binary.BigEndian.PutUint32(out[:4], p.StreamDependency)
		if p.Exclusive {
			out[0] |= 0x80
		}
		out[4] = p.Weight
		return out[:], nil

	case *RSTStreamPayload:
		var out [4]byte
		binary.BigEndian.PutUint32(out[:], p.ErrorCode)
		return out[:], nil

	case *SettingsPayload:
		out := make([]byte, 0, len(p.Params)*6)
		for _, s := range p.Params {
			var b6 [6]byte
			binary.BigEndian.PutUint16(b6[:2], s.ID)
			binary.BigEndian.PutUint32(b6[2:], s.Value)
			out = append(out, b6[:]...)
		}
		return out, nil

	case *PushPromisePayload:
		var promised [4]byte
		binary.BigEndian.PutUint32(promised[:], p.PromisedStreamID&0x7fffffff)
		out := append(promised[:], p.HeaderBlockFragment...)
		return out, nil

	case *PingPayload:
		out := make([]byte, 8)
		copy(out, p.Data[:])
		return out, nil

	case *GoAwayPayload:
		out := make([]byte, 8, 8+len(p.DebugData))
		binary.BigEndian.PutUint32(out[:4], p.LastStreamID&0x7fffffff)
		binary.BigEndian.PutUint32(out[4:8], p.ErrorCode)
		return append(out, p.DebugData...), nil

	case *WindowUpdatePayload:
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, p.WindowSizeIncrement&0x7fffffff)
		return out, nil

	case *ContinuationPayload:
		return p.HeaderBlockFragment, nil

	case *UnknownPayload:
		return p.Data, nil

	default:
		return nil, newError("unsupported payload type %T", f.Payload)
	}
}
