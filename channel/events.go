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

package channel

import "github.com/packetd/gosocknet/internal/pubsub"

// EventKind 标识一次 Channel 生命周期事件的类型
type EventKind string

const (
	EventConnected         EventKind = "connected"
	EventHandshakeComplete EventKind = "handshake_complete"
	EventDisconnected      EventKind = "disconnected"
)

// Event 是 Channel 通过 pubsub 广播的生命周期事件
type Event struct {
	Kind EventKind
	Err  error
}

// Events 返回该 Channel 的事件总线 Module 或外部观察者可以 Subscribe 关注生命周期事件
func (ch *Channel) Events() *pubsub.PubSub {
	return ch.events
}

func (ch *Channel) publish(kind EventKind, err error) {
	ch.events.Publish(Event{Kind: kind, Err: err})
}
