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
	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/pool"
)

// Accumulator 是单个 channel 单个方向上的重组状态 每个 channel 各持有一个实例
// (参见 Factory)
//
// 控制帧 (Ping/Pong/Close) 永远直通 不经过重组状态 普通帧在 combineChunks 关闭
// 时也直通 否则按 streamId 隐含的单一进行中消息累积头部与消息体 直到某个帧的
// IsComplete 为 true 才整体输出
type Accumulator struct {
	pool          *pool.Pool
	combineChunks bool

	active     bool
	streamID   uint64
	headers    map[string][]byte
	body       *buffer.ChunkedBuffer
	hasHeaders bool
	hasBody    bool
}

// NewAccumulator 创建一个重组状态 combineChunks 为 false 时 Feed 对所有帧都直通
func NewAccumulator(p *pool.Pool, combineChunks bool) *Accumulator {
	return &Accumulator{pool: p, combineChunks: combineChunks}
}

// bufferSink 把 ChunkedBuffer.Write 适配成 io.Writer 供 DrainTo 的拷贝路径使用
// 与 channel 包的 sendSink 是同一个适配模式 只是目的地是另一个 ChunkedBuffer
type bufferSink struct{ dst *buffer.ChunkedBuffer }

func (s *bufferSink) Write(p []byte) (int, error) {
	if err := s.dst.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Feed 消费一个解析好的帧 返回值:
//   - emit != nil: 一条完整消息已经就绪 (控制帧直通 或者累积到 isComplete)
//   - emit == nil, err == nil: 仍在累积中 等待后续帧
func (a *Accumulator) Feed(f *Frame) (emit *Frame, err error) {
	if f.Type.IsControl() || !a.combineChunks {
		return f, nil
	}

	if !a.active {
		a.active = true
		a.streamID = f.StreamID
		a.headers = make(map[string][]byte)
		a.body = buffer.New(a.pool)
		a.hasHeaders = false
		a.hasBody = false
	}

	for k, v := range f.Headers {
		a.headers[k] = v
		a.hasHeaders = true
	}
	if f.Body != nil {
		if _, derr := f.Body.DrainTo(&bufferSink{dst: a.body}); derr != nil {
			return nil, derr
		}
		f.Body.Dispose()
		a.hasBody = true
	}
	if f.Type == FrameFull {
		a.hasHeaders = true
		a.hasBody = true
	}

	if !f.IsComplete {
		return nil, nil
	}

	out := &Frame{
		StreamID:   a.streamID,
		Type:       a.combinedType(),
		IsComplete: true,
		Headers:    a.headers,
		Body:       a.body,
	}
	a.active = false
	a.headers = nil
	a.body = nil
	return out, nil
}

func (a *Accumulator) combinedType() FrameType {
	switch {
	case a.hasHeaders && a.hasBody:
		return FrameFull
	case a.hasHeaders:
		return FrameHeadersOnly
	default:
		return FrameBodyOnly
	}
}

// Factory 按 channel 创建独立的 Accumulator 实例 对应 teacher repo
// 为每条 TCP 流构造独立 decoder 的工厂/每连接分离模式 只是这里每个 channel
// 只需要一个 Accumulator (一个方向) 而不是每个 stream 一个
type Factory struct {
	pool          *pool.Pool
	combineChunks bool
}

// NewFactory 创建一个 Accumulator 工厂 combineChunks 对所有新建实例生效
func NewFactory(p *pool.Pool, combineChunks bool) *Factory {
	return &Factory{pool: p, combineChunks: combineChunks}
}

// NewPerChannelInstance 为一个 channel 创建一个新的 Accumulator
func (f *Factory) NewPerChannelInstance() *Accumulator {
	return NewAccumulator(f.pool, f.combineChunks)
}
