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

package hpack

// Decoder 持有一份动态表 把 HPACK 字节流解码为 HeaderField 序列
//
// Decode 可以被多次调用 把跨越多个 HTTP/2 CONTINUATION 帧的头部块片段逐个喂入
// 尚未凑够一个完整 representation 的尾部字节会被缓存到下一次调用
type Decoder struct {
	dyn           *dynamicTable
	maxHeaderSize int

	pending           []byte
	sawRepresentation bool // 本头部块是否已经出现过非 size-update 的 representation
}

// NewDecoder 创建一个动态表容量为 maxDynamicTableSize、单个 name/value 长度上限为
// maxHeaderSize 的 Decoder maxHeaderSize<=0 表示不限制
func NewDecoder(maxDynamicTableSize, maxHeaderSize int) *Decoder {
	return &Decoder{
		dyn:           newDynamicTable(maxDynamicTableSize),
		maxHeaderSize: maxHeaderSize,
	}
}

// DynamicTableSize 返回当前动态表占用的字节数
func (d *Decoder) DynamicTableSize() int {
	return d.dyn.Size()
}

// Decode 消费 src 中所有能够凑成完整 representation 的前缀 对每一个 header
// representation 调用一次 emit 不完整的尾部留给下一次调用
func (d *Decoder) Decode(src []byte, emit func(HeaderField)) error {
	d.pending = append(d.pending, src...)

	for {
		consumed, ok, err := d.tryParseOne(d.pending, emit)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		d.pending = d.pending[consumed:]
	}
	return nil
}

// EndHeaderBlock 断言解码已经停在一个 representation 边界上 否则返回 ErrTruncatedBlock
//
// 成功后重置块内状态 为下一个头部块的 size-update 位置检查做准备
func (d *Decoder) EndHeaderBlock() error {
	if len(d.pending) > 0 {
		return ErrTruncatedBlock
	}
	d.sawRepresentation = false
	return nil
}

// tryParseOne 尝试解析一个 representation ok=false,err=nil 表示数据不足 需要等待更多字节
func (d *Decoder) tryParseOne(src []byte, emit func(HeaderField)) (consumed int, ok bool, err error) {
	if len(src) == 0 {
		return 0, false, nil
	}

	b := src[0]
	switch {
	case b&0x80 != 0: // indexed header field
		idx, n, rok := readInt(src, 7)
		if !rok {
			return 0, false, nil
		}
		hf, found := resolve(int(idx), d.dyn)
		if !found {
			return 0, false, ErrInvalidIndex
		}
		emit(hf)
		d.sawRepresentation = true
		return n, true, nil

	case b&0xc0 == 0x40: // literal with incremental indexing
		return d.parseLiteral(src, 6, true, false, emit)

	case b&0xe0 == 0x20: // dynamic table size update
		if d.sawRepresentation {
			return 0, false, ErrIllegalSizeUpdate
		}
		n64, n, rok := readInt(src, 5)
		if !rok {
			return 0, false, nil
		}
		d.dyn.SetMaxSize(int(n64))
		return n, true, nil

	case b&0xf0 == 0x10: // literal never indexed
		return d.parseLiteral(src, 4, false, true, emit)

	default: // 0000xxxx: literal without indexing
		return d.parseLiteral(src, 4, false, false, emit)
	}
}

func (d *Decoder) parseLiteral(src []byte, prefixBits uint8, indexing, sensitive bool, emit func(HeaderField)) (consumed int, ok bool, err error) {
	idx, n, rok := readInt(src, prefixBits)
	if !rok {
		return 0, false, nil
	}
	offset := n

	var name string
	if idx == 0 {
		nm, nn, serr := readString(src[offset:], d.maxHeaderSize)
		if serr != nil {
			if serr == ErrTruncatedBlock {
				return 0, false, nil
			}
			return 0, false, serr
		}
		name = nm
		offset += nn
	} else {
		hf, found := resolve(int(idx), d.dyn)
		if !found {
			return 0, false, ErrInvalidIndex
		}
		name = hf.Name
	}

	val, vn, serr := readString(src[offset:], d.maxHeaderSize)
	if serr != nil {
		if serr == ErrTruncatedBlock {
			return 0, false, nil
		}
		return 0, false, serr
	}
	offset += vn

	emit(HeaderField{Name: name, Value: val, Sensitive: sensitive})
	if indexing {
		d.dyn.Add(name, val)
	}
	d.sawRepresentation = true
	return offset, true, nil
}
