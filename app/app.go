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

// Package app 把 channel/pipeline/modules/server 组装成一个可以从 YAML
// 配置驱动启动的进程 对应 cmd 包里 serve 子命令背后的生命周期管理
package app

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/common"
	"github.com/packetd/gosocknet/confengine"
	"github.com/packetd/gosocknet/logger"
	"github.com/packetd/gosocknet/metrics"
	"github.com/packetd/gosocknet/pool"
	"github.com/packetd/gosocknet/server"
)

// ModuleSpec 描述一个要安装到每条入站 Channel 上的协议模块
type ModuleSpec struct {
	Name          string `config:"name"`
	MaxHeaderSize int    `config:"maxHeaderSize"` // http2 专用, <=0 表示不限制
	CombineChunks bool   `config:"combineChunks"` // gds 专用
}

// ListenerConfig 描述监听端的配置
type ListenerConfig struct {
	Enabled   bool         `config:"enabled"`
	Address   string       `config:"address"`
	ChunkSize int          `config:"chunkSize"`
	Modules   []ModuleSpec `config:"modules"`
}

func (c ListenerConfig) getChunkSize() int {
	if c.ChunkSize <= 0 {
		return common.ReadWriteBlockSize
	}
	return c.ChunkSize
}

// Config 是 App 的顶层配置 挂在 YAML 的 "app" 键下
type Config struct {
	Listener ListenerConfig `config:"listener"`
}

// App 管理一个监听端口 + 一组按配置安装的协议模块 + 一个可选的调试端点
type App struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	pool     *pool.Pool
	registry *channel.Registry
	svr      *server.Server
	ln       net.Listener

	doneCh chan struct{}
}

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "gosocknet.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// New 从配置创建一个 App 尚未监听端口 调用 Start 才会真正绑定
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*App, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("app", &cfg); err != nil {
		return nil, err
	}

	registry := channel.NewRegistry()
	svr, err := server.New(conf, registry)
	if err != nil {
		return nil, err
	}

	p := pool.New(cfg.Listener.getChunkSize())
	if svr != nil {
		svr.WatchPool("listener", p)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		pool:      p,
		registry:  registry,
		svr:       svr,
		doneCh:    make(chan struct{}),
	}, nil
}

// Start 启动调试端点 (若配置了) 与 TCP 监听 (若配置了) 两者都是非阻塞的
func (a *App) Start() error {
	if a.svr != nil {
		go func() {
			err := a.svr.ListenAndServe()
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Errorf("failed to start debug server: %v", err)
			}
		}()
	}

	go a.recordUptime()

	if !a.cfg.Listener.Enabled {
		close(a.doneCh)
		return nil
	}

	ln, err := net.Listen("tcp", a.cfg.Listener.Address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	a.ln = ln
	logger.Infof("listening on %s with modules %v", a.cfg.Listener.Address, moduleNames(a.cfg.Listener.Modules))

	go a.acceptLoop()
	return nil
}

func moduleNames(specs []ModuleSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}

func (a *App) acceptLoop() {
	defer close(a.doneCh)
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return
			default:
				logger.Errorf("accept failed: %v", err)
				return
			}
		}
		go a.handleConn(conn)
	}
}

func (a *App) handleConn(conn net.Conn) {
	ch, err := channel.Accept(conn, a.pool, channel.WithRegistry(a.registry))
	if err != nil {
		logger.Errorf("failed to accept channel from %s: %v", conn.RemoteAddr(), err)
		return
	}

	for _, spec := range a.cfg.Listener.Modules {
		m, err := newServerModule(spec, a.pool)
		if err != nil {
			logger.Errorf("failed to build module %q: %v", spec.Name, err)
			_ = ch.Disconnect()
			return
		}
		if err := ch.AddModule(m); err != nil {
			logger.Errorf("failed to install module %q: %v", spec.Name, err)
			_ = ch.Disconnect()
			return
		}
	}
}

func (a *App) recordUptime() {
	metrics.BuildInfo.WithLabelValues(a.buildInfo.Version, a.buildInfo.GitHash, a.buildInfo.Time).Set(1)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.Uptime.Set(float64(time.Now().Unix() - common.Started()))
		case <-a.ctx.Done():
			return
		}
	}
}

// Registry 暴露当前所有存活 channel 的注册表 供测试或上层工具查询
func (a *App) Registry() *channel.Registry { return a.registry }

// Server 暴露调试/指标端点 (若配置中已启用) 供测试或反向代理直接挂载
func (a *App) Server() *server.Server { return a.svr }

// Addr 返回监听地址 仅在 Start 成功绑定端口后有效
func (a *App) Addr() net.Addr {
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

// Stop 关闭监听端口并等待 accept 循环退出 然后断开所有存活连接
// 调试端点不会被关闭 其余后台 goroutine 不会被等待
func (a *App) Stop() {
	a.cancel()
	if a.ln != nil {
		_ = a.ln.Close()
		<-a.doneCh
	}
	for _, ch := range a.registry.Snapshot() {
		_ = ch.Disconnect()
	}
}
