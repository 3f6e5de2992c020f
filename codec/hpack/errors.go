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

// Package hpack 实现了 RFC 7541 定义的 HTTP/2 头部压缩编解码
//
// Encoder/Decoder 各自持有独立的动态表 不能在多个方向/多个 channel 间共享
package hpack

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "hpack: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrHeaderTooLarge 一个 name/value 字符串解码后长度超过 maxHeaderSize
	ErrHeaderTooLarge = newError("header too large")

	// ErrInvalidIndex 索引落在静态表与动态表的组合索引空间之外
	ErrInvalidIndex = newError("invalid index")

	// ErrIllegalSizeUpdate 动态表大小更新出现在头部块前缀之外的位置
	ErrIllegalSizeUpdate = newError("illegal dynamic table size update")

	// ErrTruncatedBlock endHeaderBlock 被调用时仍有尚未解析完的半截 representation
	ErrTruncatedBlock = newError("truncated header block")
)
