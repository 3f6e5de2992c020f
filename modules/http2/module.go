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
	"sync"

	"github.com/packetd/gosocknet/codec/hpack"
	wire "github.com/packetd/gosocknet/codec/http2"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pipeline"
)

// DefaultDynamicTableSize 是 RFC 7541 §4.2 规定的 SETTINGS_HEADER_TABLE_SIZE 初始值
const DefaultDynamicTableSize = 4096

// Module 把 codec/hpack + codec/http2 组装成一个 channel.Module
//
// 一个 Module 实例只服务于一个 channel: 入站方向持有一个 accumulator (内含
// 连接级别共享的 HPACK Decoder) 出站方向持有一个 Encoder 两者都不是并发安全的
// (参见 hpack.Encoder 的 doc) 出站 handler 因此加锁串行化
type Module struct {
	acc           *accumulator
	maxHeaderSize int

	encMu   sync.Mutex
	encoder *hpack.Encoder
}

// New 创建一个 Module 实例 maxHeaderSize<=0 表示不限制单个 name/value 的长度
func New(maxHeaderSize int) *Module {
	return &Module{
		acc:           newAccumulator(DefaultDynamicTableSize, maxHeaderSize),
		maxHeaderSize: maxHeaderSize,
		encoder:       hpack.NewEncoder(DefaultDynamicTableSize),
	}
}

func (m *Module) Name() string { return "http2" }

func (m *Module) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "http2.decode", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		f, err := wire.Parse(buf)
		if err != nil {
			return
		}

		msg, passthrough, err := m.acc.feed(f)
		if err != nil {
			return
		}
		switch {
		case msg != nil:
			box.Set(msg)
		case passthrough != nil:
			box.Set(passthrough)
		}
	})

	pipeline.AddOutgoingLast[*Message](ch.Pipeline(), "http2.encode", func(c any, msg *Message, box *pipeline.Box) {
		out, err := m.encodeMessage(msg)
		if err != nil {
			return
		}
		box.Set(out)
	})

	pipeline.AddOutgoingLast[*wire.Frame](ch.Pipeline(), "http2.encode-frame", func(c any, f *wire.Frame, box *pipeline.Box) {
		out, err := wire.Append(nil, f)
		if err != nil {
			return
		}
		box.Set(out)
	})
	return nil
}

func (m *Module) Uninstall(ch *channel.Channel) error {
	return nil
}

// encodeMessage 把 msg 编码为一个 HEADERS 帧 (+ 视 Body 而定的一个 DATA 帧)
func (m *Module) encodeMessage(msg *Message) ([]byte, error) {
	m.encMu.Lock()
	defer m.encMu.Unlock()

	var fragment []byte
	for name, values := range msg.Header {
		for _, v := range values {
			fragment = m.encoder.EncodeHeader(fragment, hpack.HeaderField{Name: name, Value: v})
		}
	}

	flags := wire.FlagEndHeaders
	if len(msg.Body) == 0 {
		flags |= wire.FlagEndStream
	}
	headers := &wire.Frame{
		Type:     wire.FrameHeaders,
		Flags:    flags,
		StreamID: msg.StreamID,
		Payload:  &wire.HeadersPayload{HeaderBlockFragment: fragment},
	}

	dst, err := wire.Append(nil, headers)
	if err != nil {
		return nil, err
	}

	if len(msg.Body) == 0 {
		return dst, nil
	}

	data := &wire.Frame{
		Type:     wire.FrameData,
		Flags:    wire.FlagEndStream,
		StreamID: msg.StreamID,
		Payload:  &wire.DataPayload{Data: msg.Body},
	}
	return wire.Append(dst, data)
}
