// Package req 实现 HTTP/1.1 请求的线路编解码。
package req

import (
	"bytes"
	"errors"
	"io"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	"github.com/oxigraph/oxhttp/protocol/http1/ext"
)

// ReadHeader 从 r 读取并解析请求行和标头块。
//
// 连接上没有任何字节即关闭时返回 ErrNothingRead，调用方据此静默关闭。
func ReadHeader(h *protocol.RequestHeader, r network.Reader, maxHeaderSize int) error {
	if maxHeaderSize <= 0 {
		maxHeaderSize = consts.DefaultMaxHeaderSize
	}

	block, blockLen, err := ext.ReadHeaderBlock(r, maxHeaderSize)
	if err != nil {
		// 新请求的首个字节之前对端关闭，静默处理
		if errors.Is(err, io.EOF) && r.Len() == 0 {
			return errs.New(errs.ErrNothingRead, errs.ErrorTypePrivate, nil)
		}
		return err
	}

	h.Reset()

	n, err := parseFirstLine(h, block)
	if err != nil {
		return err
	}

	if err = parseHeaders(h, block[n:]); err != nil {
		return err
	}

	r.Skip(blockLen)
	return nil
}

// 解析请求行：method SP target SP HTTP-version CRLF。
func parseFirstLine(h *protocol.RequestHeader, buf []byte) (int, error) {
	nNext := bytes.IndexByte(buf, '\n')
	if nNext < 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "请求行缺少换行")
	}
	b := buf[:nNext]
	if len(b) > 0 && b[len(b)-1] == '\r' {
		b = b[:len(b)-1]
	}

	// 方法
	n := bytes.IndexByte(b, ' ')
	if n <= 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "请求行找不到方法")
	}
	method := b[:n]
	if !isTokenBytes(method) {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的请求方法")
	}
	h.SetMethodBytes(method)
	b = b[n+1:]

	// 请求目标
	n = bytes.LastIndexByte(b, ' ')
	if n <= 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "请求行找不到 HTTP 版本")
	}
	target := b[:n]
	if len(target) == 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "请求目标为空")
	}
	// 仅接受 origin-form 和 absolute-form
	if target[0] != '/' && !bytes.Contains(target, bytestr.StrColonSlashSlash) {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "不支持的请求目标形式")
	}
	h.SetRequestURIBytes(target)

	// HTTP 版本
	protocolStr := b[n+1:]
	switch {
	case bytes.Equal(protocolStr, bytestr.StrHTTP11):
		h.SetProtocolBytes(bytestr.StrHTTP11)
	case bytes.Equal(protocolStr, bytestr.StrHTTP10):
		h.SetProtocolBytes(bytestr.StrHTTP10)
		// HTTP/1.0 默认短连接
		h.SetConnectionClose(true)
	default:
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "不支持的 HTTP 版本")
	}

	return nNext + 1, nil
}

// 解析标头块，分发单值标头并校验重复项。
func parseHeaders(h *protocol.RequestHeader, buf []byte) error {
	var s ext.HeaderScanner
	s.B = buf

	var (
		hasHost          bool
		hasContentLength bool
		hasChunked       bool
		contentLength    int
	)

	for s.Next() {
		key, value := s.Key, s.Value
		if !protocol.ValidHeaderName(key) {
			return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的标头名称")
		}
		if !protocol.ValidHeaderValue(value) {
			return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的标头值")
		}

		switch {
		case bytes.EqualFold(key, bytestr.StrHost):
			if hasHost {
				return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "重复的 Host 标头")
			}
			hasHost = true
			h.SetHostBytes(value)

		case bytes.EqualFold(key, bytestr.StrContentLength):
			v, err := bytesconv.ParseUint(value)
			if err != nil {
				return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的 Content-Length")
			}
			// 相同的重复值合并；不同的重复值拒绝
			if hasContentLength && v != contentLength {
				return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "Content-Length 重复且不一致")
			}
			hasContentLength = true
			contentLength = v

		case bytes.EqualFold(key, bytestr.StrTransferEncoding):
			if !bytes.EqualFold(value, bytestr.StrChunked) {
				return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "不支持的 Transfer-Encoding")
			}
			hasChunked = true

		case bytes.EqualFold(key, bytestr.StrConnection):
			if bytes.EqualFold(value, bytestr.StrClose) {
				h.SetConnectionClose(true)
			} else if bytes.EqualFold(value, bytestr.StrKeepAlive) {
				h.SetConnectionClose(false)
				h.SetExplicitKeepAlive(true)
			}

		default:
			h.AddBytesKV(key, value)
		}
	}
	if s.Err != nil {
		return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, s.Err.Error())
	}

	// 两种正文框架同时出现即拒绝
	if hasContentLength && hasChunked {
		return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "Content-Length 与 chunked 不能并存")
	}
	if hasChunked {
		h.SetContentLength(consts.HeaderContentLengthChunked)
	} else {
		h.SetContentLength(contentLength)
	}

	return nil
}

// WriteHeader 将请求行和标头块写入 w。Host 恒为首个标头。
func WriteHeader(h *protocol.RequestHeader, w network.Writer) error {
	dst := make([]byte, 0, 256)
	dst = append(dst, h.Method()...)
	dst = append(dst, ' ')
	dst = append(dst, h.RequestURI()...)
	dst = append(dst, ' ')
	dst = append(dst, bytestr.StrHTTP11...)
	dst = append(dst, bytestr.StrCRLF...)

	// Host 在客户端请求中恒为第一个标头
	dst = append(dst, bytestr.StrHost...)
	dst = append(dst, bytestr.StrColonSpace...)
	dst = append(dst, h.Host()...)
	dst = append(dst, bytestr.StrCRLF...)

	// 零长度的 Content-Length 仅在正文段必须存在时发出
	if h.ContentLength() > 0 || (h.ContentLength() == 0 && (h.IsPost() || h.IsPut())) {
		dst = append(dst, bytestr.StrContentLength...)
		dst = append(dst, bytestr.StrColonSpace...)
		dst = bytesconv.AppendUint(dst, h.ContentLength())
		dst = append(dst, bytestr.StrCRLF...)
	} else if h.IsChunked() {
		dst = append(dst, bytestr.StrTransferEncoding...)
		dst = append(dst, bytestr.StrColonSpace...)
		dst = append(dst, bytestr.StrChunked...)
		dst = append(dst, bytestr.StrCRLF...)
	}

	if h.ConnectionClose() {
		dst = append(dst, bytestr.StrConnection...)
		dst = append(dst, bytestr.StrColonSpace...)
		dst = append(dst, bytestr.StrClose...)
		dst = append(dst, bytestr.StrCRLF...)
	}

	h.VisitAll(func(key, value []byte) {
		dst = append(dst, key...)
		dst = append(dst, bytestr.StrColonSpace...)
		dst = append(dst, value...)
		dst = append(dst, bytestr.StrCRLF...)
	})

	dst = append(dst, bytestr.StrCRLF...)

	_, err := w.WriteBinary(dst)
	return err
}

func isTokenBytes(b []byte) bool {
	return protocol.ValidHeaderName(b)
}
