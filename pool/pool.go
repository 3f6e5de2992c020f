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

// Package pool 实现了一个固定长度 chunk 的 free-list 池
//
// ChunkPool 是 buffer.ChunkedBuffer 的底层分配器 借用/归还均是线程安全操作
// 池子本身没有容量上限 借用为空时会直接分配新的 chunk
package pool

import (
	"sync"

	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "pool: " + format
	return errors.Errorf(format, args...)
}

// ErrInvalidChunkSize 归还了一个长度不匹配的 chunk
var ErrInvalidChunkSize = newError("invalid chunk size")

// Chunk 是池子分配的固定长度字节切片
type Chunk = []byte

// Pool 是固定长度 chunk 的 free-list
//
// 借用(Borrow)/归还(Return) 可并发调用 不会丢失也不会重复持有同一个 chunk
// Return 不会清零内容 调用方如果关心内容需要自行清零
type Pool struct {
	chunkSize int

	mut  sync.Mutex
	free [][]byte

	totalAllocated int64
}

// New 创建并返回 *Pool 实例
//
// chunkSize <= 0 时回退到 common.ReadWriteBlockSize 对应的默认值 4096
func New(chunkSize int) *Pool {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	return &Pool{chunkSize: chunkSize}
}

// ChunkSize 返回池子固定的 chunk 长度
func (p *Pool) ChunkSize() int {
	return p.chunkSize
}

// Borrow 从池子中取出一个 chunk
//
// 池子为空时直接分配一个新的 chunk 并计入 totalAllocated
func (p *Pool) Borrow() Chunk {
	p.mut.Lock()
	n := len(p.free)
	if n == 0 {
		p.totalAllocated++
		p.mut.Unlock()
		return make([]byte, p.chunkSize)
	}

	c := p.free[n-1]
	p.free = p.free[:n-1]
	p.mut.Unlock()
	return c
}

// Return 将 chunk 归还至池子
//
// chunk 长度必须与池子的 chunkSize 一致 否则返回 ErrInvalidChunkSize
// 归还的内容不会被清零
func (p *Pool) Return(c Chunk) error {
	if cap(c) != p.chunkSize {
		return ErrInvalidChunkSize
	}

	p.mut.Lock()
	p.free = append(p.free, c[:p.chunkSize])
	p.mut.Unlock()
	return nil
}

// PoolSize 返回当前空闲 chunk 数量
func (p *Pool) PoolSize() int {
	p.mut.Lock()
	defer p.mut.Unlock()
	return len(p.free)
}

// TotalAllocated 返回池子累计分配的 chunk 总量
//
// 满足 spec 的 Pool conservation 不变式:
// totalAllocated == poolFree + outstandingBorrows
func (p *Pool) TotalAllocated() int64 {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.totalAllocated
}

// Outstanding 返回当前被借出尚未归还的 chunk 数量
func (p *Pool) Outstanding() int64 {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.totalAllocated - int64(len(p.free))
}
