// Package resp 实现 HTTP/1.1 响应的线路编解码。
package resp

import (
	"bytes"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	"github.com/oxigraph/oxhttp/protocol/http1/ext"
)

// ReadHeader 从 r 读取并解析状态行和标头块。
func ReadHeader(h *protocol.ResponseHeader, r network.Reader, maxHeaderSize int) error {
	if maxHeaderSize <= 0 {
		maxHeaderSize = consts.DefaultMaxHeaderSize
	}

	block, blockLen, err := ext.ReadHeaderBlock(r, maxHeaderSize)
	if err != nil {
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

// 解析状态行："HTTP/" 1*DIGIT "." 1*DIGIT SP 3DIGIT SP *VCHAR CRLF。
func parseFirstLine(h *protocol.ResponseHeader, buf []byte) (int, error) {
	nNext := bytes.IndexByte(buf, '\n')
	if nNext < 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "状态行缺少换行")
	}
	b := buf[:nNext]
	if len(b) > 0 && b[len(b)-1] == '\r' {
		b = b[:len(b)-1]
	}

	// HTTP 版本
	n := bytes.IndexByte(b, ' ')
	if n < 0 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "状态行找不到 HTTP 版本")
	}
	protocolStr := b[:n]
	switch {
	case bytes.Equal(protocolStr, bytestr.StrHTTP11):
		h.SetProtocolBytes(bytestr.StrHTTP11)
	case bytes.Equal(protocolStr, bytestr.StrHTTP10):
		h.SetProtocolBytes(bytestr.StrHTTP10)
		// HTTP/1.0 默认短连接，除非显式声明 keep-alive
		h.SetConnectionClose(true)
	default:
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "不支持的 HTTP 版本")
	}
	b = b[n+1:]

	// 状态码
	n = bytes.IndexByte(b, ' ')
	statusBytes := b
	if n >= 0 {
		statusBytes = b[:n]
	}
	statusCode, err := bytesconv.ParseUint(statusBytes)
	if err != nil || statusCode < 100 || statusCode > 599 {
		return 0, errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的状态码")
	}
	h.SetStatusCode(statusCode)

	// 原因短语仅作参考
	if n >= 0 {
		h.SetStatusMessageBytes(b[n+1:])
	}

	return nNext + 1, nil
}

func parseHeaders(h *protocol.ResponseHeader, buf []byte) error {
	var s ext.HeaderScanner
	s.B = buf

	var (
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
		case bytes.EqualFold(key, bytestr.StrContentLength):
			v, err := bytesconv.ParseUint(value)
			if err != nil {
				return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "非法的 Content-Length")
			}
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

	if hasContentLength && hasChunked {
		return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "Content-Length 与 chunked 不能并存")
	}
	switch {
	case hasChunked:
		h.SetContentLength(consts.HeaderContentLengthChunked)
	case hasContentLength:
		h.SetContentLength(contentLength)
	default:
		// 两者皆无的响应读取至连接关闭
		h.SetContentLength(consts.HeaderContentLengthIdentity)
	}

	return nil
}

// WriteHeader 将状态行和标头块写入 w。
func WriteHeader(h *protocol.ResponseHeader, w network.Writer) error {
	dst := make([]byte, 0, 256)

	statusCode := h.StatusCode()
	if msg := h.StatusMessage(); len(msg) > 0 {
		dst = append(dst, bytestr.StrHTTP11...)
		dst = append(dst, ' ')
		dst = bytesconv.AppendUint(dst, statusCode)
		dst = append(dst, ' ')
		dst = append(dst, msg...)
		dst = append(dst, bytestr.StrCRLF...)
	} else {
		dst = append(dst, consts.StatusLine(statusCode)...)
	}

	if h.ContentLength() >= 0 {
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
