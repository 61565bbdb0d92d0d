package protocol

import (
	"io"
	"sync"

	"github.com/oxigraph/oxhttp/common/config"
	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/nocopy"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

var requestPool = &sync.Pool{
	New: func() any {
		return &Request{}
	},
}

// AcquireRequest 从池中获取空白请求。用完应通过 ReleaseRequest 释放，以降低 GC 压力。
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest 将 AcquireRequest 获取的请求释放回池。释放后切勿再使用。
func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

// Request 表示 HTTP 请求。
//
// 禁止值拷贝。可新建实例或使用 CopyTo。
//
// Request 的实例不可在多协程间共用。
type Request struct {
	noCopy nocopy.NoCopy

	Header RequestHeader

	uri       URI
	parsedURI bool

	// 正文的三种形态：自有缓冲区、流式读取器，或两者皆空（无正文）。
	body       []byte
	bodyStream io.Reader

	options *config.RequestOptions
}

// Reset 重置请求。
func (req *Request) Reset() {
	req.Header.Reset()
	req.ResetBody()
	req.uri.Reset()
	req.parsedURI = false
	req.options = nil
}

// ResetBody 重置请求正文。
func (req *Request) ResetBody() {
	req.body = req.body[:0]
	req.bodyStream = nil
}

// CopyTo 将请求深拷贝到 dst。流式正文无法拷贝，只拷贝已缓冲的部分。
func (req *Request) CopyTo(dst *Request) {
	dst.Reset()
	req.Header.CopyTo(&dst.Header)
	req.uri.CopyTo(&dst.uri)
	dst.parsedURI = req.parsedURI
	dst.body = append(dst.body[:0], req.body...)
	if req.options != nil {
		dst.options = &config.RequestOptions{}
		req.options.CopyTo(dst.options)
	}
}

// SetMethod 设置请求方法。
func (req *Request) SetMethod(method string) {
	req.Header.SetMethod(method)
}

// Method 返回请求方法。
func (req *Request) Method() []byte {
	return req.Header.Method()
}

// SetRequestURI 设置完整网址或 origin-form 请求目标。
func (req *Request) SetRequestURI(requestURI string) {
	req.Header.SetRequestURI(requestURI)
	req.parsedURI = false
}

// URI 返回解析后的请求网址。惰性解析，解析结果会被缓存。
func (req *Request) URI() *URI {
	req.ParseURI()
	return &req.uri
}

// ParseURI 由 Host 标头和请求目标解析网址。
func (req *Request) ParseURI() {
	if req.parsedURI {
		return
	}
	req.parsedURI = true
	req.uri.Parse(req.Header.Host(), req.Header.RequestURI())
}

// SetBody 设置自有缓冲区正文。
func (req *Request) SetBody(body []byte) {
	req.bodyStream = nil
	req.body = append(req.body[:0], body...)
	if req.Header.ContentLength() >= 0 || len(body) > 0 {
		req.Header.SetContentLength(len(body))
	}
}

// SetBodyString 设置字符串正文。
func (req *Request) SetBodyString(body string) {
	req.SetBody(bytesconv.S2b(body))
}

// SetBodyRaw 直接引用 body 作为正文，不做拷贝。调用方须保证其存活。
func (req *Request) SetBodyRaw(body []byte) {
	req.bodyStream = nil
	req.body = body
	req.Header.SetContentLength(len(body))
}

// SetBodyStream 设置流式正文。
//
// bodySize >= 0 时按已知长度发送；bodySize == -1 时按分块传输发送。
// 长度未知且不分块的请求会在发送前被拒绝。
func (req *Request) SetBodyStream(bodyStream io.Reader, bodySize int) {
	req.body = req.body[:0]
	req.bodyStream = bodyStream
	req.Header.SetContentLength(bodySize)
}

// IsBodyStream 汇报正文是否为流式。
func (req *Request) IsBodyStream() bool {
	return req.bodyStream != nil
}

// BodyStream 返回流式正文读取器，无流式正文时返回空。
func (req *Request) BodyStream() io.Reader {
	return req.bodyStream
}

// HasBody 汇报请求是否携带正文。
func (req *Request) HasBody() bool {
	return len(req.body) > 0 || req.bodyStream != nil
}

// Body 返回完整正文。流式正文会被读完并缓冲；正文是一次性的，
// 流式读取器在读完后即为空。
func (req *Request) Body() []byte {
	body, _ := req.BodyE()
	return body
}

// BodyE 返回完整正文和读取错误。
func (req *Request) BodyE() ([]byte, error) {
	if req.bodyStream != nil {
		b, err := io.ReadAll(req.bodyStream)
		req.bodyStream = nil
		if err != nil {
			return nil, err
		}
		req.body = append(req.body[:0], b...)
	}
	return req.body, nil
}

// BodyLength 返回已缓冲正文的长度。
func (req *Request) BodyLength() int {
	return len(req.body)
}

// MayContinue 汇报请求是否携带 Expect: 100-continue。
func (req *Request) MayContinue() bool {
	return req.Header.MayContinue()
}

// MustWriteBody 汇报发送时是否必须写入正文段。
//
// POST 和 PUT 请求即使正文为空也必须带有正文段，
// 以便长连接的对端无须阻塞等待。
func (req *Request) MustWriteBody() bool {
	if req.HasBody() {
		return true
	}
	return req.Header.IsPost() || req.Header.IsPut()
}

// CheckWriteBody 校验请求正文是否可发送：长度未知且未分块的流式正文会被拒绝。
func (req *Request) CheckWriteBody() error {
	if req.bodyStream == nil {
		return nil
	}
	if req.Header.ContentLength() < consts.HeaderContentLengthChunked {
		return errs.ErrNoBodyLength
	}
	return nil
}

// SetOptions 应用请求级选项。
func (req *Request) SetOptions(opts ...config.RequestOption) {
	req.Options().Apply(opts)
}

// Options 返回请求级选项，没有则新建。
func (req *Request) Options() *config.RequestOptions {
	if req.options == nil {
		req.options = config.NewRequestOptions(nil)
	}
	return req.options
}

// ConnectionClose 汇报是否设置了 Connection: close。
func (req *Request) ConnectionClose() bool {
	return req.Header.ConnectionClose()
}

// SetConnectionClose 设置 Connection: close 标志。
func (req *Request) SetConnectionClose() {
	req.Header.SetConnectionClose(true)
}

// NewRequest 创建给定方法、网址和可选正文的请求。
//
// method 为空时默认 GET。
func NewRequest(method, url string, body io.Reader) *Request {
	if method == "" {
		method = consts.MethodGet
	}
	req := new(Request)
	req.SetMethod(method)
	req.SetRequestURI(url)
	if body != nil {
		req.SetBodyStream(body, consts.HeaderContentLengthChunked)
	}
	return req
}
