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

package http1

import (
	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/pipeline"
)

// Module 把 Parse/Append 挂载到 channel 的入站/出站 pipeline 上
//
// 每次入站调用只解析一条报文: pumpIncoming 会在 readPosition 推进的前提下重复
// 调用入站链 直到当前缓冲不再能凑出下一条完整报文为止 (参见 channel 包的
// pumpIncoming)
type Module struct{}

// New 创建一个 http1 Module 实例 当前实现无内部状态 可以被多个 channel 共享
func New() *Module { return &Module{} }

func (*Module) Name() string { return "http1" }

func (m *Module) Install(ch *channel.Channel) error {
	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "http1.decode", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		msg, err := Parse(buf)
		if err != nil {
			return
		}
		box.Set(msg)
	})

	pipeline.AddOutgoingLast[*Message](ch.Pipeline(), "http1.encode", func(c any, msg *Message, box *pipeline.Box) {
		box.Set(Append(nil, msg))
	})
	return nil
}

func (m *Module) Uninstall(ch *channel.Channel) error {
	return nil
}
