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

package hpack

// Encoder 持有一份动态表 把 HeaderField 序列编码为 HPACK 字节流
//
// 不是并发安全的: 一个 Encoder 只属于一个连接的一个方向 (参见 modules/http2 的
// 使用场景: 每个 channel 的 HTTP/2 Module 各自持有一个出站 Encoder)
type Encoder struct {
	dyn *dynamicTable

	pendingUpdate bool
	pendingSize   int
}

// NewEncoder 创建一个动态表容量为 maxDynamicTableSize 的 Encoder
func NewEncoder(maxDynamicTableSize int) *Encoder {
	return &Encoder{dyn: newDynamicTable(maxDynamicTableSize)}
}

// SetMaxTableSize 安排在下一次 EncodeHeader 调用时在头部块起始处发出一次
// dynamic-table-size-update 并据此淘汰条目
func (e *Encoder) SetMaxTableSize(n int) {
	e.pendingUpdate = true
	e.pendingSize = n
}

// DynamicTableSize 返回当前动态表占用的字节数 (Σ entrySize)
func (e *Encoder) DynamicTableSize() int {
	return e.dyn.Size()
}

// EncodeHeader 把 h 追加编码到 dst 并返回新的切片
//
// sensitive 头部总是以 "literal never-indexed" representation 发出 不会修改动态表
// 非 sensitive 头部按 indexed -> literal-indexed-name -> literal-new-name 的优先级编码
func (e *Encoder) EncodeHeader(dst []byte, h HeaderField) []byte {
	if e.pendingUpdate {
		dst = appendInt(dst, 5, 0x20, uint64(e.pendingSize))
		e.dyn.SetMaxSize(e.pendingSize)
		e.pendingUpdate = false
	}

	if h.Sensitive {
		return e.encodeNeverIndexed(dst, h.Name, h.Value)
	}

	if idx := lookupPair(h.Name, h.Value, e.dyn); idx != 0 {
		return appendInt(dst, 7, 0x80, uint64(idx))
	}

	if idx := lookupName(h.Name, e.dyn); idx != 0 {
		dst = appendInt(dst, 6, 0x40, uint64(idx))
		dst = appendString(dst, h.Value)
		e.dyn.Add(h.Name, h.Value)
		return dst
	}

	dst = append(dst, 0x40)
	dst = appendString(dst, h.Name)
	dst = appendString(dst, h.Value)
	e.dyn.Add(h.Name, h.Value)
	return dst
}

func (e *Encoder) encodeNeverIndexed(dst []byte, name, value string) []byte {
	if idx := lookupName(name, e.dyn); idx != 0 {
		dst = appendInt(dst, 4, 0x10, uint64(idx))
	} else {
		dst = append(dst, 0x10)
		dst = appendString(dst, name)
	}
	return appendString(dst, value)
}
