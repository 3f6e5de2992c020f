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
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/packetd/gosocknet/buffer"
	"github.com/packetd/gosocknet/errkit"
	"github.com/packetd/gosocknet/internal/splitio"
)

// Parse 从 buf 中解析一条完整的 HTTP/1.1 请求或响应报文
//
// 报文边界的判定依赖于 "\r\n\r\n" 起始行+头部块终止符 以及 Content-Length 头部
// chunked transfer-encoding 不在支持范围内 (仅用于升级握手场景 参见 package doc)
//
// 数据不足时整体回退读游标并返回 errkit.Incomplete 与其它 codec 的约定一致
func Parse(buf *buffer.ChunkedBuffer) (*Message, error) {
	start := buf.ReadPosition()
	m, err := tryParse(buf)
	if err != nil {
		_ = buf.SetReadPosition(start)
		return nil, err
	}
	return m, nil
}

func tryParse(buf *buffer.ChunkedBuffer) (*Message, error) {
	avail := int(buf.Len())
	if avail == 0 {
		return nil, errkit.Incomplete
	}

	data, err := buf.Read(avail)
	if err != nil {
		return nil, err
	}

	headerEnd := bytes.Index(data, []byte("\r\n\r\n"))
	sep := 4
	if headerEnd == -1 {
		headerEnd = bytes.Index(data, []byte("\n\n"))
		sep = 2
		if headerEnd == -1 {
			return nil, errkit.Incomplete
		}
	}

	m, err := parseHeaderBlock(data[:headerEnd+sep])
	if err != nil {
		return nil, err
	}

	bodyLen := 0
	if cl := m.Header.Get("Content-Length"); cl != "" {
		bodyLen, err = strconv.Atoi(cl)
		if err != nil || bodyLen < 0 {
			return nil, ErrMalformed
		}
	}

	total := headerEnd + sep + bodyLen
	if len(data) < total {
		return nil, errkit.Incomplete
	}
	m.Body = append([]byte(nil), data[headerEnd+sep:total]...)

	// 回退多读出的字节 (管道化请求/后续消息) 交还给下一次 Parse
	start := buf.ReadPosition() - int64(avail)
	if err := buf.SetReadPosition(start + int64(total)); err != nil {
		return nil, err
	}
	return m, nil
}

// parseHeaderBlock 拆分起始行与各头部字段 复用 splitio 对 "\n" 分隔行的扫描逻辑
func parseHeaderBlock(b []byte) (*Message, error) {
	lr := splitio.NewReader(b)

	startLine, eof := lr.ReadLine()
	if eof || len(bytes.TrimSpace(startLine)) == 0 {
		return nil, ErrMalformed
	}

	m := &Message{Header: make(http.Header)}
	if err := parseStartLine(bytes.TrimRight(startLine, "\r\n"), m); err != nil {
		return nil, err
	}

	for {
		line, eof := lr.ReadLine()
		if eof {
			break
		}
		trimmed := bytes.TrimRight(line, "\r\n")
		if len(trimmed) == 0 {
			break
		}
		if err := parseHeaderLine(trimmed, m.Header); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func parseStartLine(line []byte, m *Message) error {
	fields := strings.SplitN(string(line), " ", 3)
	if len(fields) != 3 {
		return ErrMalformed
	}

	if strings.HasPrefix(fields[0], "HTTP/") {
		m.IsResponse = true
		m.Proto = fields[0]
		code, err := strconv.Atoi(fields[1])
		if err != nil {
			return ErrMalformed
		}
		m.StatusCode = code
		m.StatusText = fields[2]
		return nil
	}

	m.Method = fields[0]
	m.Path = fields[1]
	m.Proto = fields[2]
	return nil
}

func parseHeaderLine(line []byte, header http.Header) error {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return ErrMalformed
	}
	key := strings.TrimSpace(string(line[:idx]))
	value := strings.TrimSpace(string(line[idx+1:]))

	if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(value) {
		return ErrMalformed
	}
	header.Add(key, value)
	return nil
}

// Append 将 m 序列化追加到 dst 末尾 自动依据 Body 长度补齐/覆盖 Content-Length
func Append(dst []byte, m *Message) []byte {
	if m.IsResponse {
		dst = append(dst, m.Proto...)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(m.StatusCode), 10)
		dst = append(dst, ' ')
		dst = append(dst, m.StatusText...)
	} else {
		dst = append(dst, m.Method...)
		dst = append(dst, ' ')
		dst = append(dst, m.Path...)
		dst = append(dst, ' ')
		dst = append(dst, m.Proto...)
	}
	dst = append(dst, "\r\n"...)

	header := m.Header
	if len(m.Body) > 0 || header.Get("Content-Length") != "" {
		header = header.Clone()
		header.Set("Content-Length", strconv.Itoa(len(m.Body)))
	}
	for key, values := range header {
		for _, v := range values {
			dst = append(dst, key...)
			dst = append(dst, ':', ' ')
			dst = append(dst, v...)
			dst = append(dst, "\r\n"...)
		}
	}
	dst = append(dst, "\r\n"...)
	dst = append(dst, m.Body...)
	return dst
}
