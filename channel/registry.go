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

import "sync"

// Registry 并发安全地跟踪一组存活的 Channel 供调试端点按 id 枚举/查找
//
// 一个 Registry 可以在多个 Channel 之间共享 (通过 WithRegistry) Channel
// 自己在进入 Connected 状态时注册 在彻底断开时反注册 调用方不需要手动维护
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewRegistry 创建一个空的 Registry
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*Channel)}
}

func (r *Registry) register(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
}

func (r *Registry) unregister(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, ch.ID())
}

// Get 按 id 查找一个仍然存活的 Channel
func (r *Registry) Get(id string) (*Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// Snapshot 返回当前所有存活 Channel 的一份拷贝 顺序不保证
func (r *Registry) Snapshot() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	return out
}

// Len 返回当前注册的 Channel 数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
