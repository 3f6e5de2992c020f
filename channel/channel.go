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

// Package channel 实现了一条 TCP 连接的全生命周期: 状态机 握手 pipeline 装配
// 以及入站/出站字节流的搬运
//
// 状态迁移为 Disconnected -> Connecting -> {TLSHandshaking} -> Connected
// -> Disconnecting -> Disconnected 状态保存在一个 atomic 变量里 只有
// Disconnected -> Connecting 这一跳用 CAS 其余迁移直接 Store/Swap
//
// receive loop 把从 net.Conn 读到的字节 append 进入站 ChunkedBuffer 再反复调用
// pipeline.HandleIncoming 直到一次调用不再推进 readPosition 为止 这种
// "喂字节 - 反复尝试解析 - 探测有没有进展" 的结构对应 teacher repo 里
// connstream 对每个 protocol.Decoder 喂入字节直到其消费完当前缓冲的做法
// 只是这里把 decoder 换成了运行时可重排的 pipeline
package channel

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
	"github.com/packetd/gosocknet/internal/fasttime"
	"github.com/packetd/gosocknet/internal/pubsub"
	"github.com/packetd/gosocknet/internal/rescue"
	"github.com/packetd/gosocknet/logger"
	"github.com/packetd/gosocknet/metrics"
	"github.com/packetd/gosocknet/pipeline"
	"github.com/packetd/gosocknet/pool"
)

// CertValidator 实现自定义证书校验策略 peerCert 是对端叶子证书 chain 是对端提供的完整证书链
//
// 返回 false 会使握手失败 conf.InsecureSkipVerify 会被置为 true 把默认校验完全交给该回调
type CertValidator func(peerCert *x509.Certificate, chain []*x509.Certificate) bool

// Option 配置一个新建的 Channel
type Option func(*Channel)

// WithID 指定 Channel 的标识 默认随机生成一个 uuid
func WithID(id string) Option {
	return func(ch *Channel) { ch.id = id }
}

// WithTLSConfig 为 Channel 配置 TLS 参数 非 nil 时 Connect/accept 会执行握手
func WithTLSConfig(conf *tls.Config) Option {
	return func(ch *Channel) { ch.tlsConfig = conf }
}

// WithCertValidator 为 Channel 配置自定义证书校验策略 必须配合 WithTLSConfig 使用
func WithCertValidator(v CertValidator) Option {
	return func(ch *Channel) { ch.certValidator = v }
}

// WithRegistry 让 Channel 在进入 Connected 状态时注册到 r 断开时自动反注册
// 多个 Channel 可以共享同一个 Registry (例如一个监听器 accept 出的所有连接)
func WithRegistry(r *Registry) Option {
	return func(ch *Channel) { ch.registry = r }
}

// Channel 代表一条受管理的 TCP (可选 TLS) 连接
//
// 同一个 Channel 的 Send 可以被多个 goroutine 并发调用 (由内部锁序列化)
// 但 pipeline 装配 (AddModule/RemoveModule) 预期发生在连接建立前后的单一 goroutine 中
type Channel struct {
	id string

	network string // 仅客户端路径需要, Accept 创建的 Channel 为空
	addr    string

	pool *pool.Pool
	pipe *pipeline.Pipeline

	tlsConfig     *tls.Config
	certValidator CertValidator
	registry      *Registry

	state atomic.Int32

	conn    net.Conn
	connMu  sync.Mutex // 保护 conn 字段本身的替换 (TLS 升级) 而非并发写
	sendMu  sync.Mutex // 序列化对 conn 的写入 保证调用顺序即上线顺序
	inbound *buffer.ChunkedBuffer

	modMu    sync.Mutex
	modules  map[string]Module
	modOrder []string

	events *pubsub.PubSub

	activeAt atomic.Int64

	wg       sync.WaitGroup
	doneCh   chan struct{}
	closeOne sync.Once
	closing  atomic.Bool

	lastErrMu sync.Mutex
	lastErr   error
}

func newChannel(p *pool.Pool, opts ...Option) *Channel {
	ch := &Channel{
		id:      uuid.New().String(),
		pool:    p,
		pipe:    pipeline.New(),
		modules: make(map[string]Module),
		events:  pubsub.New(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ch)
	}
	ch.activeAt.Store(fasttime.UnixTimestamp())
	return ch
}

// NewClient 创建一个尚未连接的客户端 Channel 调用 Connect 发起拨号
func NewClient(network, addr string, p *pool.Pool, opts ...Option) *Channel {
	ch := newChannel(p, opts...)
	ch.network = network
	ch.addr = addr
	return ch
}

// Accept 接管一条 listener 已经 accept 的连接 立即开始 TLS 握手 (如果配置了) 以及接收循环
func Accept(conn net.Conn, p *pool.Pool, opts ...Option) (*Channel, error) {
	ch := newChannel(p, opts...)
	if err := ch.start(context.Background(), conn, true); err != nil {
		return nil, err
	}
	return ch, nil
}

// ID 返回 Channel 的唯一标识
func (ch *Channel) ID() string { return ch.id }

// State 返回当前连接状态
func (ch *Channel) State() State { return State(ch.state.Load()) }

// Pipeline 暴露底层 pipeline 供 Module 挂载 handler
func (ch *Channel) Pipeline() *pipeline.Pipeline { return ch.pipe }

// ActiveAt 返回最近一次收到字节的 unix 时间戳 用于空闲连接的回收策略
func (ch *Channel) ActiveAt() int64 { return ch.activeAt.Load() }

// RemoteAddr 返回对端地址 未连接时返回 nil
func (ch *Channel) RemoteAddr() net.Addr {
	ch.connMu.Lock()
	defer ch.connMu.Unlock()
	if ch.conn == nil {
		return nil
	}
	return ch.conn.RemoteAddr()
}

// LastErr 返回导致 Channel 转入 Disconnected 的最后一个错误 正常 Disconnect 时为 nil
func (ch *Channel) LastErr() error {
	ch.lastErrMu.Lock()
	defer ch.lastErrMu.Unlock()
	return ch.lastErr
}

// Connect 发起客户端拨号 ctx 用于控制拨号 (以及可选的 TLS 握手) 的截止时间
//
// 成功后 Channel 进入 Connected 状态并启动接收循环 失败时回到 Disconnected
func (ch *Channel) Connect(ctx context.Context) error {
	if !casState(&ch.state, StateDisconnected, StateConnecting) {
		return ErrAlreadyConnected
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, ch.network, ch.addr)
	if err != nil {
		ch.state.Store(int32(StateDisconnected))
		return errkit.IO(err)
	}

	return ch.start(ctx, conn, false)
}

// start 在给定的已建立 net.Conn 上完成可选的 TLS 握手 安装 Module 并启动接收循环
//
// alreadyConnecting 为 true 表示调用方 (Accept) 尚未把状态切到 Connecting
func (ch *Channel) start(ctx context.Context, conn net.Conn, alreadyConnecting bool) error {
	if alreadyConnecting {
		if !casState(&ch.state, StateDisconnected, StateConnecting) {
			_ = conn.Close()
			return ErrAlreadyConnected
		}
	}

	if ch.tlsConfig != nil {
		ch.state.Store(int32(StateTLSHandshaking))
		tlsConn, err := ch.handshakeTLS(ctx, conn)
		if err != nil {
			_ = conn.Close()
			ch.state.Store(int32(StateDisconnected))
			return errkit.TLS(err)
		}
		conn = tlsConn
	}

	ch.connMu.Lock()
	ch.conn = conn
	ch.connMu.Unlock()
	ch.inbound = buffer.New(ch.pool)

	if err := ch.installModules(); err != nil {
		_ = conn.Close()
		ch.state.Store(int32(StateDisconnected))
		return err
	}

	ch.state.Store(int32(StateConnected))
	metrics.ChannelsConnected.Inc()
	if ch.registry != nil {
		ch.registry.register(ch)
	}
	ch.publish(EventConnected, nil)
	if ch.tlsConfig != nil {
		ch.publish(EventHandshakeComplete, nil)
	}

	ch.wg.Add(1)
	go ch.receiveLoop()
	return nil
}

// Send 把 obj 交给出站 pipeline 处理 最终产物 (字节序列) 写入底层连接
//
// 多个 goroutine 并发调用 Send 时 写入顺序与各自完成出站 pipeline 处理的顺序一致
// 而不是调用 Send 的顺序: pipeline 处理本身不加锁 只有最终的底层写入被序列化
func (ch *Channel) Send(obj any) error {
	if ch.State() != StateConnected {
		return ErrNotConnected
	}

	final := ch.pipe.HandleOutgoing(ch, obj)
	metrics.PipelineFramesTotal.WithLabelValues("outgoing").Inc()

	var payload []byte
	switch v := final.(type) {
	case []byte:
		payload = v
	case *buffer.ChunkedBuffer:
		defer v.Dispose()
		_, err := v.DrainTo(&sendSink{ch: ch})
		return err
	default:
		return errkit.Unhandled
	}

	return ch.writeBytes(payload)
}

// sendSink 把 ChunkedBuffer.DrainTo 的零拷贝分段写入直接转发到底层连接的写入路径
type sendSink struct{ ch *Channel }

func (s *sendSink) Write(p []byte) (int, error) {
	if err := s.ch.writeBytes(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ch *Channel) writeBytes(p []byte) error {
	ch.sendMu.Lock()
	defer ch.sendMu.Unlock()

	ch.connMu.Lock()
	conn := ch.conn
	ch.connMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	_, err := conn.Write(p)
	if err != nil {
		return errkit.IO(err)
	}
	return nil
}

// Disconnect 主动关闭连接 等待接收循环退出 卸载所有 Module 并释放入站缓冲
//
// 可以安全地多次调用 只有第一次调用产生效果
func (ch *Channel) Disconnect() error {
	var uninstallErr error
	ch.closeOne.Do(func() {
		ch.closing.Store(true)
		prev := State(ch.state.Swap(int32(StateDisconnecting)))

		ch.connMu.Lock()
		conn := ch.conn
		ch.connMu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		ch.wg.Wait()

		uninstallErr = ch.uninstallModules()

		if ch.inbound != nil {
			ch.inbound.Dispose()
		}
		if prev == StateConnected || prev == StateTLSHandshaking {
			metrics.ChannelsConnected.Dec()
		}
		if ch.registry != nil {
			ch.registry.unregister(ch)
		}

		ch.state.Store(int32(StateDisconnected))
		ch.publish(EventDisconnected, ch.LastErr())
		close(ch.doneCh)
	})
	return uninstallErr
}

// Done 返回一个在 Channel 彻底断开后关闭的 channel
func (ch *Channel) Done() <-chan struct{} { return ch.doneCh }

// receiveLoop 持续从 conn 读取字节 追加进入站缓冲并驱动 pipeline
//
// 对照 teacher repo 对长期运行 goroutine 统一套 rescue.HandleCrash 的做法
// 这里捕获 panic 之后把 Channel 当作 io 错误处理并退出循环
func (ch *Channel) receiveLoop() {
	defer func() {
		if r := recover(); r != nil {
			for _, fn := range rescue.PanicHandlers {
				fn(r)
			}
			ch.fail(newError("handler panic: %v", r))
		}
		ch.wg.Done()
	}()

	scratch := make([]byte, ch.pool.ChunkSize())
	for {
		n, err := ch.conn.Read(scratch)
		if n > 0 {
			ch.activeAt.Store(fasttime.UnixTimestamp())
			if werr := ch.inbound.Write(scratch[:n]); werr != nil {
				ch.fail(werr)
				return
			}
			ch.pumpIncoming()
		}
		if err != nil {
			if ch.closing.Load() {
				return
			}
			if err == io.EOF {
				go func() { _ = ch.Disconnect() }()
			} else {
				ch.fail(errkit.IO(err))
			}
			return
		}
	}
}

// pumpIncoming 反复调用 HandleIncoming 直到 readPosition 不再推进或缓冲已空
//
// 这实现了 spec 描述的 "探测进展" 语义的 readPosition 半边: 当一次调用没有消费
// 任何字节时 说明当前缓冲里的数据不足以构成下一个完整对象 停止重试等待更多字节
func (ch *Channel) pumpIncoming() {
	for ch.inbound.Len() > 0 {
		pre := ch.inbound.ReadPosition()
		ch.pipe.HandleIncoming(ch, ch.inbound)
		metrics.PipelineFramesTotal.WithLabelValues("incoming").Inc()
		if ch.inbound.ReadPosition() == pre {
			break
		}
	}
	ch.inbound.Compact()
}

// fail 记录致命错误并异步触发 Disconnect 调用方 (receiveLoop) 自身已经在退出
func (ch *Channel) fail(err error) {
	ch.lastErrMu.Lock()
	ch.lastErr = err
	ch.lastErrMu.Unlock()

	kind := "io_error"
	var tagged *errkit.Error
	if ok := asErrkit(err, &tagged); ok {
		kind = string(tagged.Kind)
	}
	metrics.ChannelErrorsTotal.WithLabelValues(kind).Inc()
	logger.Errorf("channel %s: fatal error: %v", ch.id, err)

	go func() { _ = ch.Disconnect() }()
}

func asErrkit(err error, target **errkit.Error) bool {
	for err != nil {
		if e, ok := err.(*errkit.Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
