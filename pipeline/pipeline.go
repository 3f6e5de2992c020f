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

// Package pipeline 实现了一条有序的 类型分发 handler 链
//
// 与 teacher repo 的 pipeline.Pipeline (按配置文件中静态声明的 processor 名称
// 顺序遍历) 不同 这里的链是运行时可变的: handler 按照声明的类型 T 绑定
// 只有当前 in-flight 对象的动态类型与 T 匹配时才会被调用 调用方可以把对象
// 替换成任意其他类型 后续 handler 会针对新的类型重新判断是否匹配
//
// 一条 Pipeline 同时维护 incoming 与 outgoing 两条独立的链 分别对应入站
// 字节 -> 帧 的提升链路 与 出站 帧 -> 字节 的下沉链路
package pipeline

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Box 包裹了流经 pipeline 的 in-flight 对象
//
// handler 通过 Box.Set 将对象替换成任意新的类型 后续 handler 会针对新类型重新分发
type Box struct {
	v any
}

// Get 返回当前持有的对象
func (b *Box) Get() any {
	return b.v
}

// Set 将对象替换为 v 可以是与当前完全不同的类型
func (b *Box) Set(v any) {
	b.v = v
}

// HandlerID 是 handler 的唯一标识 用于 RemoveIncoming/RemoveOutgoing
type HandlerID uint64

// HandlerFunc 是类型为 T 的 handler 回调
//
// ch 是拥有此 pipeline 的 channel (解耦为 any 以避免 pipeline/channel 包之间的循环依赖)
// v 是当前 in-flight 对象按 T 做过类型断言后的值
// box 是原始载体 handler 通过 box.Set 替换 in-flight 对象的类型
type HandlerFunc[T any] func(ch any, v T, box *Box)

type entry struct {
	id    uint64
	label string
	typ   reflect.Type
	fn    func(ch any, box *Box)
}

func (e *entry) matches(v any) bool {
	if v == nil {
		return false
	}
	t := reflect.TypeOf(v)
	if e.typ.Kind() == reflect.Interface {
		return t.Implements(e.typ)
	}
	return t == e.typ
}

// Pipeline 维护 incoming/outgoing 两条有序 handler 链
type Pipeline struct {
	nextID uint64

	mu       sync.Mutex
	incoming []*entry
	outgoing []*entry
}

// New 创建并返回一个空的 *Pipeline
func New() *Pipeline {
	return &Pipeline{}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func wrap[T any](h HandlerFunc[T]) func(ch any, box *Box) {
	return func(ch any, box *Box) {
		v, ok := box.v.(T)
		if !ok {
			return
		}
		h(ch, v, box)
	}
}

func (p *Pipeline) newEntry(label string, typ reflect.Type, fn func(ch any, box *Box)) *entry {
	id := atomic.AddUint64(&p.nextID, 1)
	return &entry{id: id, label: label, typ: typ, fn: fn}
}

// AddIncomingFirst 在入站链头部插入一个类型为 T 的 handler
func AddIncomingFirst[T any](p *Pipeline, label string, h HandlerFunc[T]) HandlerID {
	e := p.newEntry(label, typeOf[T](), wrap(h))
	p.mu.Lock()
	p.incoming = prepend(p.incoming, e)
	p.mu.Unlock()
	return HandlerID(e.id)
}

// AddIncomingLast 在入站链尾部追加一个类型为 T 的 handler
func AddIncomingLast[T any](p *Pipeline, label string, h HandlerFunc[T]) HandlerID {
	e := p.newEntry(label, typeOf[T](), wrap(h))
	p.mu.Lock()
	p.incoming = append(p.incoming, e)
	p.mu.Unlock()
	return HandlerID(e.id)
}

// AddOutgoingFirst 在出站链头部插入一个类型为 T 的 handler
func AddOutgoingFirst[T any](p *Pipeline, label string, h HandlerFunc[T]) HandlerID {
	e := p.newEntry(label, typeOf[T](), wrap(h))
	p.mu.Lock()
	p.outgoing = prepend(p.outgoing, e)
	p.mu.Unlock()
	return HandlerID(e.id)
}

// AddOutgoingLast 在出站链尾部追加一个类型为 T 的 handler
func AddOutgoingLast[T any](p *Pipeline, label string, h HandlerFunc[T]) HandlerID {
	e := p.newEntry(label, typeOf[T](), wrap(h))
	p.mu.Lock()
	p.outgoing = append(p.outgoing, e)
	p.mu.Unlock()
	return HandlerID(e.id)
}

// RemoveIncoming 按标识移除一个入站 handler 返回是否命中
func (p *Pipeline) RemoveIncoming(id HandlerID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed bool
	p.incoming, removed = removeByID(p.incoming, id)
	return removed
}

// RemoveOutgoing 按标识移除一个出站 handler 返回是否命中
func (p *Pipeline) RemoveOutgoing(id HandlerID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed bool
	p.outgoing, removed = removeByID(p.outgoing, id)
	return removed
}

func prepend(list []*entry, e *entry) []*entry {
	out := make([]*entry, 0, len(list)+1)
	out = append(out, e)
	out = append(out, list...)
	return out
}

func removeByID(list []*entry, id HandlerID) ([]*entry, bool) {
	for i, e := range list {
		if e.id == uint64(id) {
			out := make([]*entry, 0, len(list)-1)
			out = append(out, list[:i]...)
			out = append(out, list[i+1:]...)
			return out, true
		}
	}
	return list, false
}

// HandleIncoming 顺序执行入站链 返回最终 in-flight 对象
func (p *Pipeline) HandleIncoming(ch any, obj any) any {
	return p.dispatch(&p.incoming, ch, obj)
}

// HandleOutgoing 顺序执行出站链 返回最终 in-flight 对象
func (p *Pipeline) HandleOutgoing(ch any, obj any) any {
	return p.dispatch(&p.outgoing, ch, obj)
}

// dispatch 按序遍历 list 每次重新读取当前切片 以便 handler 内发起的
// add/remove 能够影响同一次调用中尚未执行的后续 entry
//
// invoked 记录已经执行过的 entry id 保证链表因 prepend 等操作发生位移时
// 不会让同一个 handler 在同一次 dispatch 中被调用两次
func (p *Pipeline) dispatch(list *[]*entry, ch any, obj any) any {
	box := &Box{v: obj}
	invoked := make(map[uint64]bool)

	i := 0
	for {
		p.mu.Lock()
		l := *list
		if i >= len(l) {
			p.mu.Unlock()
			break
		}
		e := l[i]
		p.mu.Unlock()

		if !invoked[e.id] {
			invoked[e.id] = true
			if e.matches(box.v) {
				e.fn(ch, box)
			}
		}
		i++
	}
	return box.v
}

// Snapshot 返回当前 incoming/outgoing 链上 handler 的 label 按序排列
//
// 供调试/监控接口展示一个 channel 当前装配的 pipeline 形状
func (p *Pipeline) Snapshot() (incoming, outgoing []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.incoming {
		incoming = append(incoming, e.label)
	}
	for _, e := range p.outgoing {
		outgoing = append(outgoing, e.label)
	}
	return incoming, outgoing
}
