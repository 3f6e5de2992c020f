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

// Module 是安装在 Channel 上的协议插件 (http1/websocket/http2/gds 等)
//
// Install 在 Channel 建立连接的过程中、状态切到 Connected 之前调用 (或者 Module
// 在已连接的 Channel 上被追加装配时立即调用) 负责向 Channel 的 pipeline 挂载自己的 handler
// Uninstall 负责撤销 Install 挂载的一切 handler 必须是幂等且对称的
type Module interface {
	Name() string
	Install(ch *Channel) error
	Uninstall(ch *Channel) error
}

// AddModule 注册一个 Module
//
// 如果 Channel 当前处于 Connected 状态 会立即调用 Install
// 否则会在状态转入 Connected 时统一按注册顺序调用
func (ch *Channel) AddModule(m Module) error {
	ch.modMu.Lock()
	defer ch.modMu.Unlock()

	if _, exists := ch.modules[m.Name()]; exists {
		return newError("module %q already installed", m.Name())
	}

	ch.modOrder = append(ch.modOrder, m.Name())
	ch.modules[m.Name()] = m

	if State(ch.state.Load()) == StateConnected {
		return m.Install(ch)
	}
	return nil
}

// RemoveModule 撤销一个 Module 的装配
func (ch *Channel) RemoveModule(name string) error {
	ch.modMu.Lock()
	defer ch.modMu.Unlock()

	m, exists := ch.modules[name]
	if !exists {
		return newError("module %q not installed", name)
	}

	delete(ch.modules, name)
	for i, n := range ch.modOrder {
		if n == name {
			ch.modOrder = append(ch.modOrder[:i], ch.modOrder[i+1:]...)
			break
		}
	}

	if State(ch.state.Load()) == StateConnected {
		return m.Uninstall(ch)
	}
	return nil
}

// installModules 按注册顺序安装所有已注册的 Module 在 Connected 转换时调用
func (ch *Channel) installModules() error {
	ch.modMu.Lock()
	defer ch.modMu.Unlock()

	for _, name := range ch.modOrder {
		if err := ch.modules[name].Install(ch); err != nil {
			return newError("installing module %q: %w", name, err)
		}
	}
	return nil
}

// uninstallModules 按注册顺序撤销所有 Module 尽量执行完全部 Module 再返回聚合错误
func (ch *Channel) uninstallModules() error {
	ch.modMu.Lock()
	defer ch.modMu.Unlock()

	var result error
	for _, name := range ch.modOrder {
		if err := ch.modules[name].Uninstall(ch); err != nil {
			result = appendErr(result, err)
		}
	}
	return result
}
