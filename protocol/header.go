package protocol

import (
	"bytes"

	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/internal/nocopy"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

// RequestHeader 表示 HTTP 请求标头。
//
// 禁止值拷贝。可新建实例或使用 CopyTo。
type RequestHeader struct {
	noCopy nocopy.NoCopy

	method     []byte
	requestURI []byte
	protocol   []byte

	// 单值标头单独保存：Host、Content-Length、Transfer-Encoding
	host          []byte
	contentLength int

	connectionClose   bool
	explicitKeepAlive bool // HTTP/1.0 显式声明的 keep-alive

	h []argsKV
}

// Reset 重置请求标头。
func (h *RequestHeader) Reset() {
	h.method = h.method[:0]
	h.requestURI = h.requestURI[:0]
	h.protocol = h.protocol[:0]
	h.host = h.host[:0]
	h.contentLength = 0
	h.connectionClose = false
	h.explicitKeepAlive = false
	h.h = h.h[:0]
}

// CopyTo 将 h 深拷贝到 dst。
func (h *RequestHeader) CopyTo(dst *RequestHeader) {
	dst.Reset()
	dst.method = append(dst.method[:0], h.method...)
	dst.requestURI = append(dst.requestURI[:0], h.requestURI...)
	dst.protocol = append(dst.protocol[:0], h.protocol...)
	dst.host = append(dst.host[:0], h.host...)
	dst.contentLength = h.contentLength
	dst.connectionClose = h.connectionClose
	dst.explicitKeepAlive = h.explicitKeepAlive
	dst.h = copyArgs(dst.h, h.h)
}

// Method 返回请求方法，默认 GET。
func (h *RequestHeader) Method() []byte {
	if len(h.method) == 0 {
		return bytestr.StrGet
	}
	return h.method
}

// SetMethod 设置请求方法。
func (h *RequestHeader) SetMethod(method string) {
	h.method = append(h.method[:0], method...)
}

func (h *RequestHeader) SetMethodBytes(method []byte) {
	h.method = append(h.method[:0], method...)
}

func (h *RequestHeader) IsGet() bool {
	return bytes.Equal(h.Method(), bytestr.StrGet)
}

func (h *RequestHeader) IsHead() bool {
	return bytes.Equal(h.Method(), bytestr.StrHead)
}

func (h *RequestHeader) IsPost() bool {
	return bytes.Equal(h.Method(), bytestr.StrPost)
}

func (h *RequestHeader) IsPut() bool {
	return bytes.Equal(h.Method(), bytestr.StrPut)
}

// RequestURI 返回请求目标，默认 /。
func (h *RequestHeader) RequestURI() []byte {
	if len(h.requestURI) == 0 {
		return bytestr.StrSlash
	}
	return h.requestURI
}

// SetRequestURI 设置请求目标。
func (h *RequestHeader) SetRequestURI(requestURI string) {
	h.requestURI = append(h.requestURI[:0], requestURI...)
}

func (h *RequestHeader) SetRequestURIBytes(requestURI []byte) {
	h.requestURI = append(h.requestURI[:0], requestURI...)
}

// Protocol 返回 HTTP 版本，默认 HTTP/1.1。
func (h *RequestHeader) Protocol() []byte {
	if len(h.protocol) == 0 {
		return bytestr.StrHTTP11
	}
	return h.protocol
}

// SetProtocolBytes 设置 HTTP 版本。
func (h *RequestHeader) SetProtocolBytes(protocol []byte) {
	h.protocol = append(h.protocol[:0], protocol...)
}

// IsHTTP11 汇报是否为 HTTP/1.1 请求。
func (h *RequestHeader) IsHTTP11() bool {
	return bytes.Equal(h.Protocol(), bytestr.StrHTTP11)
}

// Host 返回 Host 标头。
func (h *RequestHeader) Host() []byte {
	return h.host
}

// SetHost 设置 Host 标头。
func (h *RequestHeader) SetHost(host string) {
	h.host = append(h.host[:0], host...)
}

func (h *RequestHeader) SetHostBytes(host []byte) {
	h.host = append(h.host[:0], host...)
}

// ContentLength 返回请求正文长度。
//
// 若正文为分块传输则返回 -1。
func (h *RequestHeader) ContentLength() int {
	return h.contentLength
}

// SetContentLength 设置请求正文长度。-1 表示分块传输。
func (h *RequestHeader) SetContentLength(contentLength int) {
	h.contentLength = contentLength
}

// IsChunked 汇报正文是否为分块传输。
func (h *RequestHeader) IsChunked() bool {
	return h.contentLength == consts.HeaderContentLengthChunked
}

// ConnectionClose 汇报是否设置了 Connection: close。
func (h *RequestHeader) ConnectionClose() bool {
	return h.connectionClose
}

// SetConnectionClose 设置 Connection: close 标志。
func (h *RequestHeader) SetConnectionClose(close bool) {
	h.connectionClose = close
}

// ExplicitKeepAlive 汇报 HTTP/1.0 请求是否显式声明了 keep-alive。
func (h *RequestHeader) ExplicitKeepAlive() bool {
	return h.explicitKeepAlive
}

// SetExplicitKeepAlive 记录 HTTP/1.0 显式声明的 keep-alive。
func (h *RequestHeader) SetExplicitKeepAlive(b bool) {
	h.explicitKeepAlive = b
}

// UserAgent 返回 User-Agent 标头。
func (h *RequestHeader) UserAgent() []byte {
	return h.Peek("User-Agent")
}

// SetUserAgent 设置 User-Agent 标头。
func (h *RequestHeader) SetUserAgent(userAgent string) {
	h.Set("User-Agent", userAgent)
}

func (h *RequestHeader) SetUserAgentBytes(userAgent []byte) {
	h.h = setArgBytes(h.h, bytestr.StrUserAgent, userAgent)
}

// Set 设置标头。同名标头（忽略大小写）将被覆盖。
//
// 非法的标头名称会被忽略；值中的 CR/LF 会被剥除，确保不会写入网络。
func (h *RequestHeader) Set(key, value string) {
	h.SetBytesKV(bytesconv.S2b(key), bytesconv.S2b(value))
}

func (h *RequestHeader) SetBytesKV(key, value []byte) {
	if !ValidHeaderName(key) {
		return
	}
	if h.setSpecialHeader(key, value) {
		return
	}
	h.h = setArgBytes(h.h, key, sanitizeHeaderValue(value))
}

// Add 追加标头，允许同名标头重复。
//
// 非法的标头名称会被忽略；值中的 CR/LF 会被剥除。
func (h *RequestHeader) Add(key, value string) {
	h.AddBytesKV(bytesconv.S2b(key), bytesconv.S2b(value))
}

func (h *RequestHeader) AddBytesKV(key, value []byte) {
	if !ValidHeaderName(key) {
		return
	}
	if h.setSpecialHeader(key, value) {
		return
	}
	h.h = appendArgBytes(h.h, key, sanitizeHeaderValue(value))
}

// setSpecialHeader 拦截由专用字段管理的标头。Content-Length 和
// Transfer-Encoding 由正文框架决定，外部设置会被忽略。
func (h *RequestHeader) setSpecialHeader(key, value []byte) bool {
	switch {
	case bytes.EqualFold(key, bytestr.StrHost):
		h.SetHostBytes(sanitizeHeaderValue(value))
		return true
	case bytes.EqualFold(key, bytestr.StrContentLength),
		bytes.EqualFold(key, bytestr.StrTransferEncoding):
		return true
	case bytes.EqualFold(key, bytestr.StrConnection):
		h.connectionClose = bytes.EqualFold(sanitizeHeaderValue(value), bytestr.StrClose)
		return true
	}
	return false
}

// Peek 返回标头值（忽略大小写）。Host 由专用字段兜底；Content-Length 与
// Transfer-Encoding 不在标头列表中，经 Peek 查询返回空。
func (h *RequestHeader) Peek(key string) []byte {
	return h.PeekBytes(bytesconv.S2b(key))
}

func (h *RequestHeader) PeekBytes(key []byte) []byte {
	if bytes.EqualFold(key, bytestr.StrHost) {
		return h.host
	}
	return peekArgBytes(h.h, key)
}

// Del 删除标头（忽略大小写）。
func (h *RequestHeader) Del(key string) {
	h.h = delArgBytes(h.h, bytesconv.S2b(key))
}

// VisitAll 按序遍历所有非单值标头。
func (h *RequestHeader) VisitAll(f func(key, value []byte)) {
	for i := range h.h {
		f(h.h[i].key, h.h[i].value)
	}
}

// Len 返回非单值标头的数量。
func (h *RequestHeader) Len() int {
	return len(h.h)
}

// MayContinue 汇报请求是否携带 Expect: 100-continue。
func (h *RequestHeader) MayContinue() bool {
	return bytes.EqualFold(h.Peek("Expect"), bytestr.Str100Continue)
}

// ResponseHeader 表示 HTTP 响应标头。
//
// 禁止值拷贝。可新建实例或使用 CopyTo。
type ResponseHeader struct {
	noCopy nocopy.NoCopy

	statusCode    int
	statusMessage []byte
	protocol      []byte

	contentLength int

	connectionClose   bool
	explicitKeepAlive bool // HTTP/1.0 显式声明的 keep-alive

	h []argsKV
}

// Reset 重置响应标头。
func (h *ResponseHeader) Reset() {
	h.statusCode = 0
	h.statusMessage = h.statusMessage[:0]
	h.protocol = h.protocol[:0]
	h.contentLength = 0
	h.connectionClose = false
	h.explicitKeepAlive = false
	h.h = h.h[:0]
}

// CopyTo 将 h 深拷贝到 dst。
func (h *ResponseHeader) CopyTo(dst *ResponseHeader) {
	dst.Reset()
	dst.statusCode = h.statusCode
	dst.statusMessage = append(dst.statusMessage[:0], h.statusMessage...)
	dst.protocol = append(dst.protocol[:0], h.protocol...)
	dst.contentLength = h.contentLength
	dst.connectionClose = h.connectionClose
	dst.explicitKeepAlive = h.explicitKeepAlive
	dst.h = copyArgs(dst.h, h.h)
}

// StatusCode 返回响应状态码，默认 200。
func (h *ResponseHeader) StatusCode() int {
	if h.statusCode == 0 {
		return consts.StatusOK
	}
	return h.statusCode
}

// SetStatusCode 设置响应状态码。
func (h *ResponseHeader) SetStatusCode(statusCode int) {
	h.statusCode = statusCode
}

// StatusMessage 返回原因短语，仅供参考，无语义。
func (h *ResponseHeader) StatusMessage() []byte {
	return h.statusMessage
}

// SetStatusMessageBytes 设置原因短语。
func (h *ResponseHeader) SetStatusMessageBytes(statusMessage []byte) {
	h.statusMessage = append(h.statusMessage[:0], statusMessage...)
}

// Protocol 返回 HTTP 版本，默认 HTTP/1.1。
func (h *ResponseHeader) Protocol() []byte {
	if len(h.protocol) == 0 {
		return bytestr.StrHTTP11
	}
	return h.protocol
}

// SetProtocolBytes 设置 HTTP 版本。
func (h *ResponseHeader) SetProtocolBytes(protocol []byte) {
	h.protocol = append(h.protocol[:0], protocol...)
}

// IsHTTP11 汇报是否为 HTTP/1.1 响应。
func (h *ResponseHeader) IsHTTP11() bool {
	return bytes.Equal(h.Protocol(), bytestr.StrHTTP11)
}

// ContentLength 返回响应正文长度。
//
// -1 表示分块传输，-2 表示读取至连接关闭。
func (h *ResponseHeader) ContentLength() int {
	return h.contentLength
}

// SetContentLength 设置响应正文长度。
func (h *ResponseHeader) SetContentLength(contentLength int) {
	h.contentLength = contentLength
}

// IsChunked 汇报正文是否为分块传输。
func (h *ResponseHeader) IsChunked() bool {
	return h.contentLength == consts.HeaderContentLengthChunked
}

// ConnectionClose 汇报是否设置了 Connection: close。
func (h *ResponseHeader) ConnectionClose() bool {
	return h.connectionClose
}

// SetConnectionClose 设置 Connection: close 标志。
func (h *ResponseHeader) SetConnectionClose(close bool) {
	h.connectionClose = close
}

// ExplicitKeepAlive 汇报 HTTP/1.0 响应是否显式声明了 keep-alive。
func (h *ResponseHeader) ExplicitKeepAlive() bool {
	return h.explicitKeepAlive
}

// SetExplicitKeepAlive 记录 HTTP/1.0 显式声明的 keep-alive。
func (h *ResponseHeader) SetExplicitKeepAlive(b bool) {
	h.explicitKeepAlive = b
}

// Server 返回 Server 标头。
func (h *ResponseHeader) Server() []byte {
	return h.Peek("Server")
}

// SetServerBytes 设置 Server 标头。
func (h *ResponseHeader) SetServerBytes(server []byte) {
	h.h = setArgBytes(h.h, bytestr.StrServer, server)
}

// ContentType 返回 Content-Type 标头。
func (h *ResponseHeader) ContentType() []byte {
	return h.Peek("Content-Type")
}

// SetContentType 设置 Content-Type 标头。
func (h *ResponseHeader) SetContentType(contentType string) {
	h.h = setArgBytes(h.h, bytestr.StrContentType, bytesconv.S2b(contentType))
}

func (h *ResponseHeader) SetContentTypeBytes(contentType []byte) {
	h.h = setArgBytes(h.h, bytestr.StrContentType, contentType)
}

// ContentEncoding 返回 Content-Encoding 标头。
func (h *ResponseHeader) ContentEncoding() []byte {
	return h.Peek("Content-Encoding")
}

// PeekLocation 返回 Location 标头。
func (h *ResponseHeader) PeekLocation() []byte {
	return h.Peek("Location")
}

// Set 设置标头。同名标头（忽略大小写）将被覆盖。
//
// 非法的标头名称会被忽略；值中的 CR/LF 会被剥除，确保不会写入网络。
func (h *ResponseHeader) Set(key, value string) {
	h.SetBytesKV(bytesconv.S2b(key), bytesconv.S2b(value))
}

func (h *ResponseHeader) SetBytesKV(key, value []byte) {
	if !ValidHeaderName(key) {
		return
	}
	if h.setSpecialHeader(key, value) {
		return
	}
	h.h = setArgBytes(h.h, key, sanitizeHeaderValue(value))
}

// setSpecialHeader 拦截由专用字段管理的标头。
func (h *ResponseHeader) setSpecialHeader(key, value []byte) bool {
	switch {
	case bytes.EqualFold(key, bytestr.StrContentLength),
		bytes.EqualFold(key, bytestr.StrTransferEncoding):
		return true
	case bytes.EqualFold(key, bytestr.StrConnection):
		h.connectionClose = bytes.EqualFold(sanitizeHeaderValue(value), bytestr.StrClose)
		return true
	}
	return false
}

// Add 追加标头，允许同名标头重复。
func (h *ResponseHeader) Add(key, value string) {
	h.AddBytesKV(bytesconv.S2b(key), bytesconv.S2b(value))
}

func (h *ResponseHeader) AddBytesKV(key, value []byte) {
	if !ValidHeaderName(key) {
		return
	}
	if h.setSpecialHeader(key, value) {
		return
	}
	h.h = appendArgBytes(h.h, key, sanitizeHeaderValue(value))
}

// Peek 返回标头值（忽略大小写）。
func (h *ResponseHeader) Peek(key string) []byte {
	return h.PeekBytes(bytesconv.S2b(key))
}

func (h *ResponseHeader) PeekBytes(key []byte) []byte {
	return peekArgBytes(h.h, key)
}

// Del 删除标头（忽略大小写）。
func (h *ResponseHeader) Del(key string) {
	h.h = delArgBytes(h.h, bytesconv.S2b(key))
}

// VisitAll 按序遍历所有标头。
func (h *ResponseHeader) VisitAll(f func(key, value []byte)) {
	for i := range h.h {
		f(h.h[i].key, h.h[i].value)
	}
}

// Len 返回标头数量。
func (h *ResponseHeader) Len() int {
	return len(h.h)
}

// ValidHeaderName 校验标头名称是否仅含 RFC 7230 token 字符。
func ValidHeaderName(name []byte) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range name {
		if bytesconv.ValidHeaderFieldNameTable[c] == 0 {
			return false
		}
	}
	return true
}

// ValidHeaderValue 校验标头值是否不含 CR、LF 和 NUL。
func ValidHeaderValue(value []byte) bool {
	for _, c := range value {
		if c == '\r' || c == '\n' || c == 0 {
			return false
		}
	}
	return true
}

// sanitizeHeaderValue 剥除值中的 CR/LF/NUL 并裁剪首尾可选空白。
func sanitizeHeaderValue(value []byte) []byte {
	if ValidHeaderValue(value) {
		return trimOWS(value)
	}
	dst := make([]byte, 0, len(value))
	for _, c := range value {
		if c == '\r' || c == '\n' || c == 0 {
			continue
		}
		dst = append(dst, c)
	}
	return trimOWS(dst)
}

// trimOWS 裁剪首尾的 SP 和 HTAB。
func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func copyArgs(dst, src []argsKV) []argsKV {
	dst = dst[:0]
	for i := range src {
		dst = appendArgBytes(dst, src[i].key, src[i].value)
	}
	return dst
}
