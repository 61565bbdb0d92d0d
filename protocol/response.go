package protocol

import (
	"io"
	"sync"

	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/nocopy"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

var responsePool = &sync.Pool{
	New: func() any {
		return &Response{}
	},
}

// AcquireResponse 从池中获取空白响应。用完应通过 ReleaseResponse 释放，以降低 GC 压力。
func AcquireResponse() *Response {
	return responsePool.Get().(*Response)
}

// ReleaseResponse 将 AcquireResponse 获取的响应释放回池。释放后切勿再使用。
func ReleaseResponse(resp *Response) {
	resp.Reset()
	responsePool.Put(resp)
}

// Response 表示 HTTP 响应。
//
// 禁止值拷贝。可新建实例或使用 CopyTo。
//
// Response 的实例不可在多协程间共用。
type Response struct {
	noCopy nocopy.NoCopy

	Header ResponseHeader

	// SkipBody 为真时不写正文段（HEAD 响应）。
	SkipBody bool

	body       []byte
	bodyStream io.Reader
}

// Reset 重置响应。
func (resp *Response) Reset() {
	resp.Header.Reset()
	resp.ResetBody()
	resp.SkipBody = false
}

// ResetBody 重置响应正文。与连接关联的正文流会被关闭。
func (resp *Response) ResetBody() {
	resp.CloseBodyStream()
	resp.body = resp.body[:0]
}

// CopyTo 将响应深拷贝到 dst。流式正文无法拷贝，只拷贝已缓冲的部分。
func (resp *Response) CopyTo(dst *Response) {
	dst.Reset()
	resp.Header.CopyTo(&dst.Header)
	dst.SkipBody = resp.SkipBody
	dst.body = append(dst.body[:0], resp.body...)
}

// StatusCode 返回响应状态码。
func (resp *Response) StatusCode() int {
	return resp.Header.StatusCode()
}

// SetStatusCode 设置响应状态码。
func (resp *Response) SetStatusCode(statusCode int) {
	resp.Header.SetStatusCode(statusCode)
}

// ConnectionClose 汇报是否设置了 Connection: close。
func (resp *Response) ConnectionClose() bool {
	return resp.Header.ConnectionClose()
}

// SetConnectionClose 设置 Connection: close 标志。
func (resp *Response) SetConnectionClose() {
	resp.Header.SetConnectionClose(true)
}

// SetBody 设置自有缓冲区正文。
func (resp *Response) SetBody(body []byte) {
	resp.CloseBodyStream()
	resp.bodyStream = nil
	resp.body = append(resp.body[:0], body...)
	resp.Header.SetContentLength(len(body))
}

// SetBodyString 设置字符串正文。
func (resp *Response) SetBodyString(body string) {
	resp.SetBody(bytesconv.S2b(body))
}

// SetBodyRaw 直接引用 body 作为正文，不做拷贝。调用方须保证其存活。
func (resp *Response) SetBodyRaw(body []byte) {
	resp.CloseBodyStream()
	resp.bodyStream = nil
	resp.body = body
	resp.Header.SetContentLength(len(body))
}

// SetBodyStream 设置流式正文。
//
// bodySize >= 0 时按已知长度发送；bodySize == -1 时按分块传输发送。
func (resp *Response) SetBodyStream(bodyStream io.Reader, bodySize int) {
	resp.body = resp.body[:0]
	resp.bodyStream = bodyStream
	resp.Header.SetContentLength(bodySize)
}

// IsBodyStream 汇报正文是否为流式。
func (resp *Response) IsBodyStream() bool {
	return resp.bodyStream != nil
}

// BodyStream 返回流式正文读取器。无流式正文时返回空。
func (resp *Response) BodyStream() io.Reader {
	return resp.bodyStream
}

// HasBodySection 汇报响应在线路上是否有正文段。
// 1xx、204、304 响应和 HEAD 响应没有正文段。
func (resp *Response) HasBodySection() bool {
	if resp.SkipBody {
		return false
	}
	code := resp.StatusCode()
	if code < consts.StatusOK || code == consts.StatusNoContent || code == consts.StatusNotModified {
		return false
	}
	return true
}

// Body 返回完整正文。流式正文会被读完并缓冲；正文是一次性的，
// 流式读取器在读完后即为空。
func (resp *Response) Body() []byte {
	body, _ := resp.BodyE()
	return body
}

// BodyE 返回完整正文和读取错误。
func (resp *Response) BodyE() ([]byte, error) {
	if resp.bodyStream != nil {
		b, err := io.ReadAll(resp.bodyStream)
		resp.CloseBodyStream()
		if err != nil {
			return nil, err
		}
		resp.body = append(resp.body[:0], b...)
	}
	return resp.body, nil
}

// BodyLength 返回已缓冲正文的长度。
func (resp *Response) BodyLength() int {
	return len(resp.body)
}

// CloseBodyStream 关闭流式正文。与连接关联的流会在此处归还或丢弃连接。
func (resp *Response) CloseBodyStream() error {
	if resp.bodyStream == nil {
		return nil
	}
	var err error
	if closer, ok := resp.bodyStream.(io.Closer); ok {
		err = closer.Close()
	}
	resp.bodyStream = nil
	return err
}
