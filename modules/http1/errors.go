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

package http1

import (
	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/errkit"
)

func newError(format string, args ...any) error {
	format = "http1: " + format
	return errors.Errorf(format, args...)
}

// ErrMalformed 标记一个无法解析的请求行/状态行/头部字段
var ErrMalformed = errkit.Protocol("malformed", newError("malformed HTTP/1.1 message"))
