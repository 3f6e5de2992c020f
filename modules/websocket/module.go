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

package websocket

import (
	"net/http"
	"sync"
	"time"

	wsframe "github.com/packetd/gosocknet/codec/websocket"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/modules/http1"
	"github.com/packetd/gosocknet/pipeline"
)

// Role 区分一个 Module 实例扮演握手的哪一方
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

// Module 在一个 channel 上完成一次 RFC 6455 升级握手 并在握手完成后把该
// channel 的收发 pipeline 切换到帧级别 (codec/websocket.Frame)
//
// 一个 Module 实例只服务于一个 channel: 握手前沿用 modules/http1 的报文编解码
// (这里直接调用 http1.Parse/Append 而不装配独立的 http1.Module 实例 避免握手
// 完成后还要撤销一个无用的 http1 解码 handler) 握手完成后同一个入站 handler
// 切换成帧解析 + Reassembler 重组
type Module struct {
	role Role
	host string // 仅 RoleClient 使用 作为请求行的 Host 头部

	mu          sync.Mutex
	clientKey   string
	upgraded    bool
	reassembler *wsframe.Reassembler
}

// NewServer 创建一个服务端角色的 Module 等待对端发起升级请求
func NewServer() *Module {
	return &Module{role: RoleServer, reassembler: &wsframe.Reassembler{}}
}

// NewClient 创建一个客户端角色的 Module 在 Install 时立即发起升级请求
func NewClient(host string) *Module {
	return &Module{role: RoleClient, host: host, reassembler: &wsframe.Reassembler{}}
}

func (m *Module) Name() string { return "websocket" }

// Upgraded 返回握手是否已经完成 (帧级别 pipeline 是否已经生效)
func (m *Module) Upgraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upgraded
}

func (m *Module) Install(ch *channel.Channel) error {
	// Install 在 Channel 状态转入 Connected 之前执行 (参见 channel.installModules)
	// 此时 ch.Send 还会被 ErrNotConnected 拒绝 客户端的握手请求延迟到
	// EventConnected 广播之后 经由 pubsub 队列触发发送
	if m.role == RoleClient {
		queue := ch.Events().Subscribe(4)
		go func() {
			defer ch.Events().Unsubscribe(queue)
			for {
				msg, ok := queue.PopTimeout(10 * time.Second)
				if !ok {
					return
				}
				ev, ok := msg.(channel.Event)
				if !ok {
					continue
				}
				switch ev.Kind {
				case channel.EventConnected:
					_ = m.sendHandshakeRequest(ch)
					return
				case channel.EventDisconnected:
					return
				}
			}
		}()
	}

	pipeline.AddIncomingLast[*buffer.ChunkedBuffer](ch.Pipeline(), "websocket.decode", func(c any, buf *buffer.ChunkedBuffer, box *pipeline.Box) {
		if m.Upgraded() {
			m.decodeFrame(buf, box)
			return
		}
		m.decodeHandshake(c.(*channel.Channel), buf)
	})

	pipeline.AddOutgoingLast[*wsframe.Frame](ch.Pipeline(), "websocket.encode", func(c any, f *wsframe.Frame, box *pipeline.Box) {
		wire, err := wsframe.Append(nil, f)
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

// decodeHandshake 尝试把 buf 当作一条握手用的 HTTP/1.1 报文解析
//
// 解析失败 (数据不足或者不是合法的升级请求/响应) 时原样返回 留给 pumpIncoming
// 的进展探测机制决定是否还需要继续等待字节
func (m *Module) decodeHandshake(ch *channel.Channel, buf *buffer.ChunkedBuffer) {
	msg, err := http1.Parse(buf)
	if err != nil {
		return
	}

	switch m.role {
	case RoleServer:
		if msg.IsResponse || !isUpgradeRequest(msg.Header) {
			return
		}
		respHeader, err := BuildResponseHeader(msg.Header)
		if err != nil {
			return
		}
		resp := http1.NewResponse(http.StatusSwitchingProtocols, "Switching Protocols", respHeader, nil)
		if err := ch.Send(http1.Append(nil, resp)); err != nil {
			return
		}
		m.markUpgraded()
	case RoleClient:
		m.mu.Lock()
		key := m.clientKey
		m.mu.Unlock()
		if !msg.IsResponse || !ValidateAccept(msg.Header, key) {
			return
		}
		m.markUpgraded()
	}
}

// sendHandshakeRequest 发出客户端的升级请求 记下本次握手使用的 key 供校验响应
func (m *Module) sendHandshakeRequest(ch *channel.Channel) error {
	header, key, err := BuildRequestHeader(m.host)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.clientKey = key
	m.mu.Unlock()

	req := http1.NewRequest(http.MethodGet, "/", header, nil)
	return ch.Send(http1.Append(nil, req))
}

func (m *Module) markUpgraded() {
	m.mu.Lock()
	m.upgraded = true
	m.mu.Unlock()
}

// decodeFrame 解析一个 WebSocket 帧 控制帧直接向下游输出 数据帧经 Reassembler
// 重组 只有消息完整时才 box.Set
func (m *Module) decodeFrame(buf *buffer.ChunkedBuffer, box *pipeline.Box) {
	f, err := wsframe.Parse(buf)
	if err != nil {
		return
	}

	if f.Opcode.IsControl() {
		box.Set(f)
		return
	}

	complete, err := m.reassembler.Feed(f)
	if err != nil || complete == nil {
		return
	}
	box.Set(complete)
}
