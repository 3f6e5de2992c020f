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

package app

import (
	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/modules/gds"
	"github.com/packetd/gosocknet/modules/http1"
	"github.com/packetd/gosocknet/modules/http2"
	"github.com/packetd/gosocknet/modules/websocket"
	"github.com/packetd/gosocknet/pool"
)

// newServerModule 按名字构造一个服务端角色的协议模块 由 acceptLoop 对每条新
// 接入的 Channel 调用
func newServerModule(spec ModuleSpec, p *pool.Pool) (channel.Module, error) {
	switch spec.Name {
	case "http1":
		return http1.New(), nil
	case "websocket":
		return websocket.NewServer(), nil
	case "http2":
		return http2.New(spec.MaxHeaderSize), nil
	case "gds":
		return gds.New(p, spec.CombineChunks), nil
	default:
		return nil, errors.Errorf("unknown module %q", spec.Name)
	}
}
