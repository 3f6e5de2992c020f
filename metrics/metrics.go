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

// Package metrics 汇总了 pool/channel/pipeline 的 prometheus 打点
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/gosocknet/common"
)

var (
	// PoolOutstanding 当前被借出尚未归还的 chunk 数量
	PoolOutstanding = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "pool_outstanding",
			Help:      "Chunks currently borrowed and not yet returned",
		},
		[]string{"pool"},
	)

	// PoolFree 当前池子中空闲的 chunk 数量
	PoolFree = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "pool_free",
			Help:      "Chunks currently sitting in the free list",
		},
		[]string{"pool"},
	)

	// PoolTotalAllocated 池子累计分配的 chunk 总量
	PoolTotalAllocated = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "pool_total_allocated",
			Help:      "Chunks ever allocated by the pool",
		},
		[]string{"pool"},
	)

	// ChannelsConnected 当前处于 Connected 状态的 channel 数量
	ChannelsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "channels_connected",
			Help:      "Channels currently in the Connected state",
		},
	)

	// ChannelErrorsTotal channel 因故障转入 Disconnected 的总量 按错误类型打标
	ChannelErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "channel_errors_total",
			Help:      "Channel fatal errors by kind",
		},
		[]string{"kind"},
	)

	// PipelineFramesTotal 流经 pipeline 的帧总量 按方向打标 (incoming/outgoing)
	PipelineFramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "pipeline_frames_total",
			Help:      "Frames handled by the pipeline by direction",
		},
		[]string{"direction"},
	)

	// Uptime 进程运行时长 单位秒
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	// BuildInfo 构建信息 值恒为 1 标签携带版本/提交/构建时间
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)
)

// PoolStats 是任意暴露池子统计数据的最小接口 解耦 metrics 对 pool 包的依赖方向
type PoolStats interface {
	PoolSize() int
	TotalAllocated() int64
	Outstanding() int64
}

// ObservePool 将一次 pool 快照写入 gauge 由调用方决定采样频率
func ObservePool(name string, p PoolStats) {
	PoolFree.WithLabelValues(name).Set(float64(p.PoolSize()))
	PoolTotalAllocated.WithLabelValues(name).Set(float64(p.TotalAllocated()))
	PoolOutstanding.WithLabelValues(name).Set(float64(p.Outstanding()))
}
