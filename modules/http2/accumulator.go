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
	"net/http"

	"github.com/packetd/gosocknet/codec/hpack"
	wire "github.com/packetd/gosocknet/codec/http2"
)

// headerBlock 累积一个 stream 上尚未凑齐 END_HEADERS 的 HEADERS(+CONTINUATION)片段
type headerBlock struct {
	fragment  []byte
	endStream bool
}

// pendingMessage 是头部已经解码完毕 但仍在等待 DATA 帧补齐 body 的消息
type pendingMessage struct {
	header http.Header
	body   []byte
}

// accumulator 是单个 channel 入站方向上的 HTTP/2 重组状态
//
// decoder 是整条连接共享的 HPACK 动态表 (RFC 7541 的表范围是连接而非单个 stream)
// headerBlocks/pending 按 streamId 分别跟踪头部块收集进度与消息体收集进度
type accumulator struct {
	decoder *hpack.Decoder

	headerBlocks map[uint32]*headerBlock
	pending      map[uint32]*pendingMessage
}

func newAccumulator(maxDynamicTableSize, maxHeaderSize int) *accumulator {
	return &accumulator{
		decoder:      hpack.NewDecoder(maxDynamicTableSize, maxHeaderSize),
		headerBlocks: make(map[uint32]*headerBlock),
		pending:      make(map[uint32]*pendingMessage),
	}
}

// feed 消费一个已解析的帧
//
// 返回值互斥: msg 非空代表一条消息完整重组 passthrough 非空代表帧不参与重组
// (SETTINGS/PING/PRIORITY/RST_STREAM/GOAWAY/WINDOW_UPDATE/PUSH_PROMISE/未知类型)
// 应当原样交给下游处理 两者皆空代表仍在累积中 等待后续帧
func (a *accumulator) feed(f *wire.Frame) (msg *Message, passthrough *wire.Frame, err error) {
	switch f.Type {
	case wire.FrameHeaders:
		payload, ok := f.Payload.(*wire.HeadersPayload)
		if !ok {
			return nil, f, nil
		}
		a.headerBlocks[f.StreamID] = &headerBlock{
			fragment:  append([]byte(nil), payload.HeaderBlockFragment...),
			endStream: f.Flags.Has(wire.FlagEndStream),
		}
		if f.Flags.Has(wire.FlagEndHeaders) {
			return a.finishHeaderBlock(f.StreamID)
		}
		return nil, nil, nil

	case wire.FrameContinuation:
		payload, ok := f.Payload.(*wire.ContinuationPayload)
		if !ok {
			return nil, f, nil
		}
		blk, exists := a.headerBlocks[f.StreamID]
		if !exists {
			return nil, nil, newError("continuation frame for stream %d with no open header block", f.StreamID)
		}
		blk.fragment = append(blk.fragment, payload.HeaderBlockFragment...)
		if f.Flags.Has(wire.FlagEndHeaders) {
			return a.finishHeaderBlock(f.StreamID)
		}
		return nil, nil, nil

	case wire.FrameData:
		payload, ok := f.Payload.(*wire.DataPayload)
		if !ok {
			return nil, f, nil
		}
		pm, exists := a.pending[f.StreamID]
		if !exists {
			pm = &pendingMessage{header: make(http.Header)}
			a.pending[f.StreamID] = pm
		}
		pm.body = append(pm.body, payload.Data...)
		if f.Flags.Has(wire.FlagEndStream) {
			delete(a.pending, f.StreamID)
			return &Message{StreamID: f.StreamID, Header: pm.header, Body: pm.body}, nil, nil
		}
		return nil, nil, nil

	default:
		return nil, f, nil
	}
}

// finishHeaderBlock 用连接级别共享的 decoder 解码一个完整头部块
//
// 若该头部块所属的 HEADERS 帧携带了 END_STREAM (没有 body) 直接产出完整消息
// 否则把解码出的头部暂存 等待后续 DATA 帧补齐 body
func (a *accumulator) finishHeaderBlock(streamID uint32) (*Message, *wire.Frame, error) {
	blk := a.headerBlocks[streamID]
	delete(a.headerBlocks, streamID)

	header := make(http.Header)
	if err := a.decoder.Decode(blk.fragment, func(hf hpack.HeaderField) {
		header.Add(hf.Name, hf.Value)
	}); err != nil {
		return nil, nil, err
	}
	if err := a.decoder.EndHeaderBlock(); err != nil {
		return nil, nil, err
	}

	if blk.endStream {
		return &Message{StreamID: streamID, Header: header, Body: nil}, nil, nil
	}

	a.pending[streamID] = &pendingMessage{header: header}
	return nil, nil, nil
}
