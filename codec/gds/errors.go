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

// Package gds 实现了一套自定义的帧协议: streamId + 类型 + 头部映射 + 消息体
//
// 线缆格式本身是内部约定 (不追求与任何外部协议的兼容性) 真正需要保持语义的是
// 重组规则: 连续到达的 HeadersOnly/BodyOnly 帧会被合并成一个 Full 帧
package gds

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "gds: " + format
	return errors.Errorf(format, args...)
}
