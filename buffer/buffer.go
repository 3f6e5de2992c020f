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

// Package buffer 实现了一个基于 pool.Pool 的分段字节流缓冲区
//
// ChunkedBuffer 是一段逻辑上连续的字节流 底层由若干个定长 chunk 拼接而成
// 读/写游标 (readPosition/writePosition) 相互独立 可以各自前移或者 (read 方向) 回退
//
// 写入时按照 pool 的 chunk 大小 (pool.ChunkSize) 切割成若干次对底层 chunk 的填充
// 这与 teacher repo 中 connstream.chunkWriter 按固定块大小拆分一次写入的做法一致
// 只是这里的块来自共享的 pool.Pool 而不是一次性 scratch slice
package buffer

import (
	"io"

	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/internal/zerocopy"
	"github.com/packetd/gosocknet/pool"
)

func newError(format string, args ...any) error {
	format = "buffer: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrOutOfRange 游标被设置到了 [0, totalLength] 之外
	ErrOutOfRange = newError("out of range")

	// ErrDisposed 在已经 dispose 的 buffer 上执行操作
	ErrDisposed = newError("disposed")
)

// ChunkedBuffer 是逻辑字节流缓冲区 参见 package doc
//
// 非并发安全: 单个 ChunkedBuffer 同一时刻只应被一个 goroutine 持有 (参见 spec §5)
type ChunkedBuffer struct {
	pool      *pool.Pool
	chunkSize int

	chunks [][]byte // 每个 chunk 容量固定为 chunkSize 除了尚未写满的最后一个

	readPos  int64
	writePos int64

	writerClosed bool
	disposed     bool
}

// New 创建并返回一个空的 *ChunkedBuffer 从 p 中借用 chunk
func New(p *pool.Pool) *ChunkedBuffer {
	return &ChunkedBuffer{
		pool:      p,
		chunkSize: p.ChunkSize(),
	}
}

// totalLength 返回当前已分配 chunk 的总容量 (不是已写入的字节数)
func (b *ChunkedBuffer) totalLength() int64 {
	return int64(len(b.chunks)) * int64(b.chunkSize)
}

// ReadPosition 返回当前读游标
func (b *ChunkedBuffer) ReadPosition() int64 {
	return b.readPos
}

// WritePosition 返回当前写游标 (即已写入的逻辑字节数)
func (b *ChunkedBuffer) WritePosition() int64 {
	return b.writePos
}

// SetReadPosition 设置读游标
//
// 允许在当前已写入的范围内回退 (partial frame 场景下的 rewind)
// 超出 [0, totalLength] 范围返回 ErrOutOfRange
func (b *ChunkedBuffer) SetReadPosition(pos int64) error {
	if b.disposed {
		return ErrDisposed
	}
	if pos < 0 || pos > b.totalLength() {
		return ErrOutOfRange
	}
	b.readPos = pos
	return nil
}

// SetWritePosition 设置写游标 通常用于在 SetReadPosition 配合下重写已分配但未提交的区域
func (b *ChunkedBuffer) SetWritePosition(pos int64) error {
	if b.disposed {
		return ErrDisposed
	}
	if pos < 0 || pos > b.totalLength() {
		return ErrOutOfRange
	}
	b.writePos = pos
	return nil
}

// WriterClosed 返回写端是否已经关闭 (区分 "暂时没有数据" 与 "流已结束")
func (b *ChunkedBuffer) WriterClosed() bool {
	return b.writerClosed
}

// CloseWriter 标记写端已经关闭 后续 Read 在耗尽已写字节后返回 io.EOF
func (b *ChunkedBuffer) CloseWriter() {
	b.writerClosed = true
}

// Len 返回当前可读字节数 (writePosition - readPosition)
func (b *ChunkedBuffer) Len() int64 {
	return b.writePos - b.readPos
}

// growFor 保证 [writePos, writePos+n) 区间已经被分配
func (b *ChunkedBuffer) growFor(n int) {
	need := b.writePos + int64(n)
	for b.totalLength() < need {
		b.chunks = append(b.chunks, b.pool.Borrow())
	}
}

// Write 将 p 写入缓冲区尾部 从 pool 中按需借用新 chunk
//
// 内部按 chunkSize 对齐切割写入 与 teacher repo 的 chunkWriter 思路一致
func (b *ChunkedBuffer) Write(p []byte) error {
	if b.disposed {
		return ErrDisposed
	}
	if len(p) == 0 {
		return nil
	}

	b.growFor(len(p))

	off := 0
	for off < len(p) {
		idx := int((b.writePos + int64(off)) / int64(b.chunkSize))
		within := int((b.writePos + int64(off)) % int64(b.chunkSize))
		n := copy(b.chunks[idx][within:], p[off:])
		off += n
	}
	b.writePos += int64(len(p))
	return nil
}

// Read 从 readPosition 消费最多 n 字节
//
// 仅当流已结束 (writerClosed 且已读完全部字节) 时才会返回 io.EOF
// 如果可读字节少于 n 但写端尚未关闭 返回现有的字节和 nil error
// 调用方需要结合 WriterClosed() 区分 "读到的比请求的少" 到底是真正的 EOF 还是数据尚未到达
func (b *ChunkedBuffer) Read(n int) ([]byte, error) {
	if b.disposed {
		return nil, ErrDisposed
	}
	avail := b.Len()
	if avail == 0 {
		if b.writerClosed {
			return nil, io.EOF
		}
		return nil, nil
	}

	if int64(n) > avail {
		n = int(avail)
	}

	out := make([]byte, n)
	b.copyOut(out, b.readPos)
	b.readPos += int64(n)
	return out, nil
}

// ReadInto 与 Read 语义相同 但拷贝进调用方提供的 buf 以减少一次分配
func (b *ChunkedBuffer) ReadInto(buf []byte) (int, error) {
	if b.disposed {
		return 0, ErrDisposed
	}
	avail := b.Len()
	if avail == 0 {
		if b.writerClosed {
			return 0, io.EOF
		}
		return 0, nil
	}

	n := len(buf)
	if int64(n) > avail {
		n = int(avail)
	}

	b.copyOut(buf[:n], b.readPos)
	b.readPos += int64(n)
	return n, nil
}

// PeekChunk 尝试零拷贝地返回 [readPosition, readPosition+n) 区间
//
// 仅当该区间落在单个底层 chunk 内时才能零拷贝返回 (ok=true)
// 否则调用方应回退到 Read(n) 的拷贝路径
//
// 底层通过 internal/zerocopy.Buffer 包一层当前 chunk 剩余部分后再 Read(n)
// 取出切片 调用方不得修改返回的字节 (与 zerocopy.NewBuffer 的契约一致)
func (b *ChunkedBuffer) PeekChunk(n int) (p []byte, ok bool) {
	if b.disposed || int64(n) > b.Len() || n == 0 {
		return nil, false
	}

	idx := int(b.readPos / int64(b.chunkSize))
	within := int(b.readPos % int64(b.chunkSize))
	if within+n > b.chunkSize {
		return nil, false
	}

	zb := zerocopy.NewBuffer(b.chunks[idx][within:])
	p, err := zb.Read(n)
	if err != nil {
		return nil, false
	}
	return p, true
}

// DrainTo 将 [readPosition, writePosition) 拷贝进 sink 并推进 readPosition
func (b *ChunkedBuffer) DrainTo(sink io.Writer) (int64, error) {
	if b.disposed {
		return 0, ErrDisposed
	}

	var total int64
	for b.Len() > 0 {
		within := int(b.readPos % int64(b.chunkSize))
		n := minInt(int(b.Len()), b.chunkSize-within)

		chunk, ok := b.PeekChunk(n)
		if !ok {
			break // 理论上不会发生 n 已经按 chunk 边界对齐
		}

		written, err := sink.Write(chunk)
		total += int64(written)
		b.readPos += int64(written)
		if err != nil {
			return total, err
		}
		if written < len(chunk) {
			break
		}
	}
	return total, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// copyOut 将 [from, from+len(dst)) 拷贝到 dst 不推进任何游标
func (b *ChunkedBuffer) copyOut(dst []byte, from int64) {
	off := 0
	for off < len(dst) {
		pos := from + int64(off)
		idx := int(pos / int64(b.chunkSize))
		within := int(pos % int64(b.chunkSize))
		n := copy(dst[off:], b.chunks[idx][within:])
		off += n
	}
}

// Compact 归还已经被完整读过的前导 chunk 避免长连接上的 inbound buffer 无限增长
//
// 归还后 readPosition/writePosition 相应地减去被释放的字节数
// 在此之前对 readPosition 的回退 (partial frame rewind) 必须已经完成
// Compact 之后再往回退就只能退到当前仍然保留的 chunk 范围内 这与 spec 的描述一致
func (b *ChunkedBuffer) Compact() {
	if b.disposed {
		return
	}
	drop := int(b.readPos / int64(b.chunkSize))
	if drop == 0 {
		return
	}

	for i := 0; i < drop; i++ {
		_ = b.pool.Return(b.chunks[i])
	}
	b.chunks = append([][]byte{}, b.chunks[drop:]...)

	freed := int64(drop) * int64(b.chunkSize)
	b.readPos -= freed
	b.writePos -= freed
}

// Dispose 归还所有 chunk 给 pool 之后任何操作都返回 ErrDisposed
func (b *ChunkedBuffer) Dispose() {
	if b.disposed {
		return
	}
	for _, c := range b.chunks {
		_ = b.pool.Return(c)
	}
	b.chunks = nil
	b.disposed = true
}
