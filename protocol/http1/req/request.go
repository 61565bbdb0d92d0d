package req

import (
	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	"github.com/oxigraph/oxhttp/protocol/http1/ext"
)

// Read 读取完整请求：请求行、标头块和正文。
func Read(req *protocol.Request, r network.Reader, maxHeaderSize, maxBodySize int) error {
	if err := ReadHeader(&req.Header, r, maxHeaderSize); err != nil {
		return err
	}
	return ReadBody(req, r, maxBodySize)
}

// ReadBody 按标头声明的框架读取请求正文。
//
// 请求没有 Content-Length 也没有 chunked 时按零长度正文处理。
func ReadBody(req *protocol.Request, r network.Reader, maxBodySize int) error {
	if maxBodySize <= 0 {
		maxBodySize = consts.DefaultMaxRequestBodySize
	}

	contentLength := req.Header.ContentLength()
	if contentLength == 0 {
		return nil
	}

	body, err := ext.ReadBody(r, contentLength, maxBodySize, nil)
	if err != nil {
		return err
	}
	req.SetBodyRaw(body)
	if contentLength == consts.HeaderContentLengthChunked {
		req.Header.SetContentLength(len(body))
	}
	return nil
}

// Write 将请求序列化到 w。未刷新，调用方负责 Flush。
//
// 流式正文长度未知且未分块时拒绝发送。
func Write(req *protocol.Request, w network.Writer) error {
	if err := req.CheckWriteBody(); err != nil {
		return err
	}

	// 确保 Host 与请求网址一致
	if len(req.Header.Host()) == 0 {
		host := req.URI().Host()
		if len(host) == 0 {
			return errs.New(errs.ErrInvalidURL, errs.ErrorTypePublic, "请求缺少主机")
		}
		req.Header.SetHostBytes(host)
	}

	// 发送时重写请求目标为 origin-form
	uri := req.URI()
	req.Header.SetRequestURIBytes(uri.RequestURI())

	// 正文段的有无遵循存在性规则：POST/PUT 恒有正文段
	if !req.IsBodyStream() {
		if n := req.BodyLength(); n > 0 || req.MustWriteBody() {
			req.Header.SetContentLength(n)
		}
	}

	if err := WriteHeader(&req.Header, w); err != nil {
		return err
	}

	return writeBody(req, w)
}

func writeBody(req *protocol.Request, w network.Writer) error {
	if req.IsBodyStream() {
		if req.Header.IsChunked() {
			return ext.WriteBodyChunked(w, req.BodyStream())
		}
		return ext.WriteBodyFixedSize(w, req.BodyStream(), int64(req.Header.ContentLength()))
	}

	body := req.Body()
	if len(body) == 0 && !req.MustWriteBody() {
		return nil
	}
	_, err := w.WriteBinary(body)
	return err
}
