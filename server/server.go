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

// Package server 暴露一个可选的调试/指标 HTTP 端点 与实际的 TCP 收发无关
package server

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/gosocknet/channel"
	"github.com/packetd/gosocknet/confengine"
	"github.com/packetd/gosocknet/logger"
	"github.com/packetd/gosocknet/pool"
)

type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

// Server 是一个只读的调试/观测端点 不参与任何 channel 的实际收发
type Server struct {
	config   Config
	router   *mux.Router
	server   *http.Server
	pools    map[string]*pool.Pool
	registry *channel.Registry
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断 registry 可以为 nil
// 此时 /debug/channels 系列路由总是返回空结果
func New(conf *confengine.Config, registry *channel.Registry) (*Server, error) {
	var config Config
	if err := conf.UnpackChild("server", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}

	router := mux.NewRouter()
	s := &Server{
		config:   config,
		router:   router,
		pools:    make(map[string]*pool.Pool),
		registry: registry,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}
	s.registerDebugRoutes()
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s, nil
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	logger.Infof("server listening on %s", s.config.Address)
	return s.server.Serve(l)
}

// Handler 返回底层的 http.Handler 供测试或外部反向代理封装使用
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterPostRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPost).Path(path).HandlerFunc(f)
}

// WatchPool 把 p 以 name 为键纳入 /debug/pool 的统计输出
func (s *Server) WatchPool(name string, p *pool.Pool) {
	s.pools[name] = p
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}

func (s *Server) registerDebugRoutes() {
	s.RegisterGetRoute("/debug/pool", s.handlePoolStats)
	s.RegisterGetRoute("/debug/channels", s.handleChannelList)
	s.RegisterGetRoute("/debug/channels/{id}", s.handleChannelDetail)
	s.router.Path("/metrics").Methods(http.MethodGet).Handler(promhttp.Handler())
}

type poolStats struct {
	Name           string `json:"name"`
	ChunkSize      int    `json:"chunkSize"`
	Free           int    `json:"free"`
	TotalAllocated int64  `json:"totalAllocated"`
	Outstanding    int64  `json:"outstanding"`
}

func (s *Server) handlePoolStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]poolStats, 0, len(s.pools))
	for name, p := range s.pools {
		stats = append(stats, poolStats{
			Name:           name,
			ChunkSize:      p.ChunkSize(),
			Free:           p.PoolSize(),
			TotalAllocated: p.TotalAllocated(),
			Outstanding:    p.Outstanding(),
		})
	}
	writeJSON(w, stats)
}

type channelSummary struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
	ActiveAt   int64  `json:"activeAt"`
}

func (s *Server) handleChannelList(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		writeJSON(w, []channelSummary{})
		return
	}

	channels := s.registry.Snapshot()
	out := make([]channelSummary, 0, len(channels))
	for _, ch := range channels {
		out = append(out, summarize(ch))
	}
	writeJSON(w, out)
}

type channelDetail struct {
	channelSummary
	IncomingHandlers []string `json:"incomingHandlers"`
	OutgoingHandlers []string `json:"outgoingHandlers"`
}

func (s *Server) handleChannelDetail(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.NotFound(w, r)
		return
	}

	id := mux.Vars(r)["id"]
	ch, ok := s.registry.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	incoming, outgoing := ch.Pipeline().Snapshot()
	writeJSON(w, channelDetail{
		channelSummary:   summarize(ch),
		IncomingHandlers: incoming,
		OutgoingHandlers: outgoing,
	})
}

func summarize(ch *channel.Channel) channelSummary {
	summary := channelSummary{
		ID:       ch.ID(),
		State:    ch.State().String(),
		ActiveAt: ch.ActiveAt(),
	}
	if addr := ch.RemoteAddr(); addr != nil {
		summary.RemoteAddr = addr.String()
	}
	return summary
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("failed to encode debug response: %v", err)
	}
}
