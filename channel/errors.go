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

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/errkit"
)

func newError(format string, args ...any) error {
	format = "channel: " + format
	return errors.Errorf(format, args...)
}

// appendErr 把 err 聚合进 result (首次调用时 result 为 nil)
func appendErr(result error, err error) error {
	if err == nil {
		return result
	}
	return multierror.Append(result, err)
}

var (
	// ErrNotConnected 在未处于 Connected 状态的 Channel 上调用 Send
	ErrNotConnected = errkit.New(errkit.KindAborted, newError("not connected"))

	// ErrAlreadyConnected 在已经处于非 Disconnected 状态的 Channel 上再次调用 Connect
	ErrAlreadyConnected = errkit.New(errkit.KindAborted, newError("already connected"))

	// ErrDisposed 在已经终态 disconnect 的 Channel 上调用需要连接的操作
	ErrDisposed = errkit.New(errkit.KindDisposed, newError("channel disposed"))
)
