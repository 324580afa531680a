package textenc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"keylen/pkg/contract"
)

// Format 为输入文本的编码方式。
type Format string

const (
	Raw     Format = "raw"     // 原样字节
	UTF8    Format = "utf-8"   // 同 raw
	Hex     Format = "hex"     // 两位十六进制一字节
	Base64  Format = "base64"  // 标准字母表，'=' 截止
	Binary  Format = "binary"  // 8 个 '0'/'1' 一字节，高位在前
	Letters Format = "letters" // 仅保留 ASCII 字母并转大写
)

// Formats 返回全部支持的格式名。
func Formats() []Format { return []Format{Raw, UTF8, Hex, Base64, Binary, Letters} }

// Options 为解码器配置。
type Options struct {
	// IgnoreErrors: 非法字符不报错。hex/base64 跳过非法字符；binary 按 '0' 处理。
	IgnoreErrors bool `json:"ignore_errors"`
	// TrimSpace: raw/utf-8 去掉首尾空白（常见的末尾换行）。
	TrimSpace bool `json:"trim_space"`
}

// Decoder 将原始文件字节解码为符号序列。
type Decoder struct {
	format Format
	opts   Options
}

// New 构造指定格式的解码器；未知格式返回 ErrInvalidInput。
func New(format string, opts *Options) (*Decoder, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	if f == "" {
		f = Raw
	}
	ok := false
	for _, k := range Formats() {
		ok = ok || k == f
	}
	if !ok {
		return nil, fmt.Errorf("unknown format %q: %w", format, contract.ErrInvalidInput)
	}
	d := &Decoder{format: f}
	if opts != nil {
		d.opts = *opts
	}
	return d, nil
}

func (d *Decoder) Format() Format { return d.format }

// Decode 实现 contract.Decoder。失败均包装 ErrDecode 并带 fileID。
func (d *Decoder) Decode(ctx context.Context, fileID contract.FileID, raw []byte) (contract.Symbols, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		out []byte
		err error
	)
	switch d.format {
	case Raw, UTF8:
		out = raw
		if d.opts.TrimSpace {
			out = bytes.TrimSpace(raw)
		}
		out = append([]byte(nil), out...)
	case Hex:
		out, err = d.hex(raw)
	case Base64:
		out, err = d.base64(raw)
	case Binary:
		out, err = d.binary(raw)
	case Letters:
		out = letters(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", fileID, d.format, err)
	}
	return contract.Symbols(out), nil
}

func (d *Decoder) hex(raw []byte) ([]byte, error) {
	s := stripSpace(raw)
	if d.opts.IgnoreErrors {
		s = keep(s, isHex)
		// 落单的半字节丢弃
		s = s[:len(s)&^1]
	}
	out := make([]byte, hex.DecodedLen(len(s)))
	if _, err := hex.Decode(out, s); err != nil {
		return nil, fmt.Errorf("%v: %w", err, contract.ErrDecode)
	}
	return out, nil
}

func (d *Decoder) base64(raw []byte) ([]byte, error) {
	s := stripSpace(raw)
	if !d.opts.IgnoreErrors {
		for i, c := range s {
			if !isBase64(c) && c != '=' {
				return nil, fmt.Errorf("invalid base64 byte %q at %d: %w", c, i, contract.ErrDecode)
			}
		}
	}
	// 第一个 '=' 之后的内容忽略
	if i := bytes.IndexByte(s, '='); i >= 0 {
		s = s[:i]
	}
	s = keep(s, isBase64)
	if len(s)%4 == 1 {
		if !d.opts.IgnoreErrors {
			return nil, fmt.Errorf("truncated base64 quantum: %w", contract.ErrDecode)
		}
		s = s[:len(s)-1]
	}
	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(s)))
	n, err := base64.RawStdEncoding.Decode(out, s)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, contract.ErrDecode)
	}
	return out[:n], nil
}

// binary 每 8 位一字节；末尾不足 8 位的部分按已有位数组成低位字节。
func (d *Decoder) binary(raw []byte) ([]byte, error) {
	s := stripSpace(raw)
	out := make([]byte, 0, (len(s)+7)/8)
	for i := 0; i < len(s); i += 8 {
		var b byte
		for j := i; j < i+8 && j < len(s); j++ {
			b <<= 1
			switch s[j] {
			case '1':
				b |= 1
			case '0':
			default:
				if !d.opts.IgnoreErrors {
					return nil, fmt.Errorf("invalid bit %q at %d: %w", s[j], j, contract.ErrDecode)
				}
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func letters(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, c := range raw {
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c)
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		}
	}
	return out
}

func stripSpace(b []byte) []byte {
	return keep(b, func(c byte) bool {
		return c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '\f' && c != '\v'
	})
}

func keep(b []byte, ok func(byte) bool) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if ok(c) {
			out = append(out, c)
		}
	}
	return out
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isBase64(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '+' || c == '/'
}
