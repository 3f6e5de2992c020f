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

// Package errkit 定义了贯穿 pool/buffer/codec/channel 的一组带标签错误
//
// 上层调用方通过 errors.As 取出 *Error 并根据 Kind 字段分支处理 而不是
// 对错误消息做字符串匹配
package errkit

import "fmt"

// Kind 标识错误的种类
type Kind string

const (
	// KindIncomplete 输入尚不足以构成一个完整对象 调用方应当在有更多字节后重试
	KindIncomplete Kind = "incomplete"

	// KindProtocol 输入违反了协议本身的约束 Sub 给出具体子类型
	KindProtocol Kind = "protocol_error"

	// KindIO 底层连接读写失败
	KindIO Kind = "io_error"

	// KindTLS TLS 握手或证书校验失败
	KindTLS Kind = "tls_error"

	// KindAborted 操作因为 channel 状态不允许而被拒绝 (例如未连接时发送)
	KindAborted Kind = "aborted"

	// KindUnhandled pipeline 执行完毕后 in-flight 对象既不是字节也不是可识别的终态类型
	KindUnhandled Kind = "unhandled"

	// KindDisposed 在已经释放的资源上执行操作
	KindDisposed Kind = "disposed"
)

// Error 是携带 Kind/Sub 的标签错误
type Error struct {
	Kind Kind
	Sub  string
	Err  error
}

func (e *Error) Error() string {
	if e.Sub != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Sub, e.Err)
		}
		return fmt.Sprintf("%s[%s]", e.Kind, e.Sub)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, errkit.Incomplete) 之类的哨兵比较按 Kind 生效 忽略 Sub/Err
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Sub != "" && t.Sub != e.Sub {
		return false
	}
	return t.Kind == e.Kind
}

// New 构造一个不带子类型的标签错误
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewSub 构造一个带子类型的标签错误 (目前仅 KindProtocol 使用)
func NewSub(kind Kind, sub string, err error) *Error {
	return &Error{Kind: kind, Sub: sub, Err: err}
}

// Incomplete 是 KindIncomplete 的哨兵值 用于 errors.Is 比较
var Incomplete = &Error{Kind: KindIncomplete}

// Disposed 是 KindDisposed 的哨兵值
var Disposed = &Error{Kind: KindDisposed}

// Aborted 是 KindAborted 的哨兵值
var Aborted = &Error{Kind: KindAborted}

// Unhandled 是 KindUnhandled 的哨兵值
var Unhandled = &Error{Kind: KindUnhandled}

// Protocol 构造一个 KindProtocol 的标签错误 sub 标识具体违反了哪一类协议约束
func Protocol(sub string, err error) *Error {
	return NewSub(KindProtocol, sub, err)
}

// IO 构造一个 KindIO 的标签错误 包裹底层连接错误
func IO(err error) *Error {
	return New(KindIO, err)
}

// TLS 构造一个 KindTLS 的标签错误
func TLS(err error) *Error {
	return New(KindTLS, err)
}
