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

// Package gds 把 codec/gds 组装成一个 channel.Module
package gds

import (
	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/codec/gds"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"
)

// Module 把入站字节解析为 Gds 帧 并通过一个每 channel 独立的 Accumulator 重组
//
// 一个 Module 实例可以安装到多个 channel 上: Install 每次调用都会从共享的
// Factory 取一个新的 Accumulator 实例 各 channel 的重组状态互不影响
type Module struct {
	pool    *pool.Pool
	factory *gds.Factory
}

// New 创建一个 Module combineChunks 控制是否把 HeadersOnly/BodyOnly 帧重组为
// 单条完整消息再交给下游 (参见 codec/gds.Accumulator)
func New(p *pool.Pool, combineChunks bool) *Module {
	return &Module{pool: p, factory: gds.NewFactory(p, combineChunks)}
}

func (m *Module) Name() string { return "gds" }

func (m *Module) Install(ch *channel.Channel) error {
	acc := m.factory.NewPerChannelInstance()

	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "gds.decode", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		f, err := gds.Parse(buf, m.pool)
		if err != nil {
			return
		}

		emit, err := acc.Feed(f)
		if err != nil {
			return
		}
		if emit != nil {
			box.Set(emit)
		}
	})

	pipeline.AddOutgoingLast[*gds.Frame](ch.Pipeline(), "gds.encode", func(c any, f *gds.Frame, box *pipeline.Box) {
		wire, err := gds.Append(nil, f)
		if err != nil {
			return
		}
		box.Set(wire)
	})
	return nil
}

func (m *Module) Uninstall(ch *channel.Channel) error {
	return nil
}
