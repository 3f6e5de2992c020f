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
	"context"
	"crypto/tls"
	"net"
)

// handshakeTLS 在 conn 上完成 TLS 握手 自动区分客户端/服务端角色
//
// 如果配置了 certValidator conf.InsecureSkipVerify 会被置位 握手完成后由
// certValidator 对 cs.PeerCertificates 做出最终裁决 取代标准库默认的链校验
func (ch *Channel) handshakeTLS(ctx context.Context, conn net.Conn) (net.Conn, error) {
	conf := ch.tlsConfig.Clone()

	if ch.certValidator != nil {
		conf.InsecureSkipVerify = true
		conf.VerifyConnection = func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return newError("no peer certificate presented")
			}
			if !ch.certValidator(cs.PeerCertificates[0], cs.PeerCertificates) {
				return newError("peer certificate rejected by validator")
			}
			return nil
		}
	}

	var tlsConn *tls.Conn
	if conf.GetCertificate != nil || len(conf.Certificates) > 0 {
		tlsConn = tls.Server(conn, conf)
	} else {
		tlsConn = tls.Client(conn, conf)
	}

	done := make(chan error, 1)
	go func() { done <- tlsConn.HandshakeContext(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
		return tlsConn, nil
	case <-ctx.Done():
		_ = conn.Close()
		return nil, ctx.Err()
	}
}
