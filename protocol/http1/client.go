// Package http1 实现 HTTP/1.1 的主机客户端和连接服务循环。
package http1

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"sync"
	"time"

	"github.com/oxigraph/oxhttp/common/compress"
	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/hlog"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/network/dialer"
	"github.com/oxigraph/oxhttp/protocol"
	reqI "github.com/oxigraph/oxhttp/protocol/http1/req"
	respI "github.com/oxigraph/oxhttp/protocol/http1/resp"
)

var errConnectionClosed = errs.NewPublic("服务器在返回首个响应字节之前关闭了连接")

// ClientOptions 表示主机客户端选项。
type ClientOptions struct {
	// 客户端名称。用于 User-Agent 请求标头。
	Name string

	// 若在请求时排除 User-Agent 标头，则设为真。
	NoDefaultUserAgentHeader bool

	// 用于建立主机连接的拨号器。
	Dialer network.Dialer

	// 拨号超时时长。
	DialTimeout time.Duration

	// 安全连接配置。
	TLSConfig *tls.Config

	// 单次请求的整体截止时长，0 代表永不超时。
	RequestTimeout time.Duration

	// 响应正文的上限，0 代表不限制。
	MaxResponseBodySize int

	// 是否保持长连接。
	KeepAlive bool

	// 为真时不自动解压 gzip/deflate 响应正文。
	DisableDecompression bool

	// 为真时响应正文保持流式读取，由调用方负责消费完毕。
	ResponseBodyStream bool
}

// HostClient 针对单个 ConnectionKey（方案+主机+端口）平衡请求。
//
// 禁止值拷贝。可新建实例。
type HostClient struct {
	*ClientOptions

	// Addr 为 host:port 形式的目标地址。
	Addr  string
	IsTLS bool

	// 每个键位至多保留一条闲置连接
	connLock sync.Mutex
	idleConn *clientConn
	closed   bool
}

// clientConn 为单条客户端连接及其复用簿记。
type clientConn struct {
	c        network.Conn
	reusable bool
}

// NewHostClient 创建给定选项的主机客户端。
func NewHostClient(opts *ClientOptions, addr string, isTLS bool) *HostClient {
	if opts.Dialer == nil {
		opts.Dialer = dialer.DefaultDialer()
	}
	return &HostClient{
		ClientOptions: opts,
		Addr:          addr,
		IsTLS:         isTLS,
	}
}

// Do 执行一次完整的请求响应交换。
//
// 连接从闲置池取得或新建；交换完成且正文被完全消费后归还池中。
func (c *HostClient) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	cc, err := c.acquireConn()
	if err != nil {
		return err
	}

	shouldClose, err := c.doConn(ctx, cc, req, resp)
	if err != nil || shouldClose {
		c.closeConn(cc)
		return err
	}
	return nil
}

// CloseIdleConnections 关闭当前闲置的连接。
func (c *HostClient) CloseIdleConnections() {
	c.connLock.Lock()
	cc := c.idleConn
	c.idleConn = nil
	c.connLock.Unlock()
	if cc != nil {
		cc.c.Close()
	}
}

// ConnectionCount 返回闲置连接数（0 或 1）。
func (c *HostClient) ConnectionCount() int {
	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.idleConn != nil {
		return 1
	}
	return 0
}

// ShouldRemove 汇报主机客户端是否可从上层清理。
func (c *HostClient) ShouldRemove() bool {
	return c.ConnectionCount() == 0
}

func (c *HostClient) acquireConn() (*clientConn, error) {
	c.connLock.Lock()
	cc := c.idleConn
	c.idleConn = nil
	c.connLock.Unlock()

	if cc != nil {
		if c.validateIdleConn(cc) {
			return cc, nil
		}
		// 校验失败的闲置连接静默丢弃
		cc.c.Close()
	}

	return c.dialConn()
}

// validateIdleConn 校验闲置连接仍然可用：无残留字节且对端未关闭。
func (c *HostClient) validateIdleConn(cc *clientConn) bool {
	if cc.c.Len() > 0 {
		return false
	}
	// 瞬时读探测：健康的闲置连接应当超时，读到数据或 EOF 都意味着连接已不可用
	cc.c.SetReadTimeout(time.Millisecond)
	_, err := cc.c.Peek(1)
	cc.c.SetReadTimeout(0)
	if err == nil || cc.c.Len() > 0 {
		return false
	}
	if normalized := normalizeConnErr(cc.c, err); normalized == errs.ErrTimeout {
		return true
	}
	return false
}

func (c *HostClient) dialConn() (*clientConn, error) {
	var tlsConfig *tls.Config
	if c.IsTLS {
		tlsConfig = c.TLSConfig
		if tlsConfig == nil {
			tlsConfig = sharedTLSConfig()
		}
	}
	conn, err := c.Dialer.DialConnection("tcp", c.Addr, c.DialTimeout, tlsConfig)
	if err != nil {
		return nil, err
	}
	return &clientConn{c: conn}, nil
}

// doConn 在给定连接上执行一次交换。返回值指示连接是否必须关闭。
func (c *HostClient) doConn(ctx context.Context, cc *clientConn, req *protocol.Request, resp *protocol.Response) (shouldClose bool, err error) {
	conn := cc.c

	// 单一截止时长同时约束读和写
	timeout := c.RequestTimeout
	if o := req.Options(); o.RequestTimeout() > 0 {
		timeout = o.RequestTimeout()
	}
	if timeout > 0 {
		conn.SetWriteTimeout(timeout)
		conn.SetReadTimeout(timeout)
	}

	if !c.KeepAlive {
		req.Header.SetConnectionClose(true)
	}
	c.prepareHeaders(req)

	// 写入请求
	if err = reqI.Write(req, conn); err != nil {
		return true, normalizeConnErr(conn, err)
	}
	if err = conn.Flush(); err != nil {
		return true, normalizeConnErr(conn, err)
	}

	// 读取响应
	skipBody := req.Header.IsHead()
	if err = respI.ReadHeader(&resp.Header, conn, 0); err != nil {
		if conn.Len() == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			return true, errConnectionClosed
		}
		return true, normalizeConnErr(conn, err)
	}

	// 对端要求关闭，或响应为 HTTP/1.0 且未显式 keep-alive，则不可复用
	respClose := resp.Header.ConnectionClose() ||
		(!resp.Header.IsHTTP11() && !resp.Header.ExplicitKeepAlive())
	reqClose := req.Header.ConnectionClose()

	if c.ResponseBodyStream {
		releaseFn := func(readErr error) error {
			if readErr != nil || respClose || reqClose {
				c.closeConn(cc)
				return readErr
			}
			c.releaseConn(cc)
			return nil
		}
		if err = respI.ReadBodyStream(resp, conn, skipBody, releaseFn); err != nil {
			return true, normalizeConnErr(conn, err)
		}
		c.decompressBodyStream(resp)
		// 连接的归还由正文流负责
		return false, nil
	}

	if err = readRespBody(resp, conn, skipBody, c.MaxResponseBodySize); err != nil {
		return true, normalizeConnErr(conn, err)
	}
	if err = c.decompressBody(resp); err != nil {
		return true, err
	}

	if respClose || reqClose {
		return true, nil
	}
	c.releaseConn(cc)
	return false, nil
}

func readRespBody(resp *protocol.Response, conn network.Conn, skipBody bool, maxBodySize int) error {
	if err := respI.ReadBodyOnly(resp, conn, skipBody, maxBodySize); err != nil {
		return err
	}
	return conn.Release()
}

// prepareHeaders 注入默认 User-Agent 和 Accept-Encoding。
func (c *HostClient) prepareHeaders(req *protocol.Request) {
	if len(req.Header.UserAgent()) == 0 && !c.NoDefaultUserAgentHeader {
		ua := bytestr.DefaultUserAgent
		if c.Name != "" {
			ua = []byte(c.Name)
		}
		req.Header.SetUserAgentBytes(ua)
	}
	if !c.DisableDecompression && len(req.Header.Peek("Range")) == 0 &&
		len(req.Header.Peek("Accept-Encoding")) == 0 {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
}

// decompressBody 按 Content-Encoding 解压已缓冲的响应正文。
// 未知编码原样透传给调用方。
func (c *HostClient) decompressBody(resp *protocol.Response) error {
	if c.DisableDecompression {
		return nil
	}
	encoding := resp.Header.ContentEncoding()
	if len(encoding) == 0 {
		return nil
	}
	var (
		body []byte
		err  error
	)
	switch {
	case bytes.EqualFold(encoding, bytestr.StrGzip):
		body, err = compress.AppendGunzipBytes(nil, resp.Body())
	case bytes.EqualFold(encoding, bytestr.StrDeflate):
		body, err = compress.AppendInflateBytes(nil, resp.Body())
	default:
		return nil
	}
	if err != nil {
		return errs.New(err, errs.ErrorTypePublic, "解压响应正文")
	}
	resp.Header.Del("Content-Encoding")
	resp.SetBodyRaw(body)
	return nil
}

// decompressBodyStream 将流式正文包装为解压读取器。先去分块，再解压。
func (c *HostClient) decompressBodyStream(resp *protocol.Response) {
	if c.DisableDecompression || !resp.IsBodyStream() {
		return
	}
	encoding := resp.Header.ContentEncoding()
	if len(encoding) == 0 {
		return
	}
	switch {
	case bytes.EqualFold(encoding, bytestr.StrGzip):
		resp.SetBodyStream(newLazyDecompressStream(resp.BodyStream(), compressGzip), resp.Header.ContentLength())
		resp.Header.Del("Content-Encoding")
	case bytes.EqualFold(encoding, bytestr.StrDeflate):
		resp.SetBodyStream(newLazyDecompressStream(resp.BodyStream(), compressDeflate), resp.Header.ContentLength())
		resp.Header.Del("Content-Encoding")
	}
}

func (c *HostClient) releaseConn(cc *clientConn) {
	cc.c.SetReadTimeout(0)
	cc.c.SetWriteTimeout(0)

	c.connLock.Lock()
	defer c.connLock.Unlock()
	if c.closed || c.idleConn != nil {
		// 键位已有闲置连接，多余的直接关闭
		cc.c.Close()
		return
	}
	c.idleConn = cc
}

func (c *HostClient) closeConn(cc *clientConn) {
	if err := cc.c.Close(); err != nil {
		hlog.SystemLogger().Debugf("关闭客户端连接出错：%s", err.Error())
	}
}

// Close 关闭主机客户端及其闲置连接。
func (c *HostClient) Close() error {
	c.connLock.Lock()
	c.closed = true
	cc := c.idleConn
	c.idleConn = nil
	c.connLock.Unlock()
	if cc != nil {
		return cc.c.Close()
	}
	return nil
}

func normalizeConnErr(conn network.Conn, err error) error {
	if n, ok := conn.(network.ErrorNormalization); ok {
		return n.ToError(err)
	}
	return err
}

type compressKind int

const (
	compressGzip compressKind = iota
	compressDeflate
)

// lazyDecompressStream 在首次读取时才构建解压读取器，
// 以免在标头刚读完、正文未到达时阻塞。
type lazyDecompressStream struct {
	raw  io.Reader
	kind compressKind
	zr   io.Reader
	err  error
}

func newLazyDecompressStream(raw io.Reader, kind compressKind) io.Reader {
	return &lazyDecompressStream{raw: raw, kind: kind}
}

func (s *lazyDecompressStream) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.zr == nil {
		var err error
		switch s.kind {
		case compressGzip:
			s.zr, err = compress.AcquireGzipReader(s.raw)
		default:
			s.zr, err = compress.AcquireFlateReader(s.raw)
		}
		if err != nil {
			s.err = err
			return 0, err
		}
	}
	return s.zr.Read(p)
}

// Close 关闭解压流并同步关闭底层正文流。
func (s *lazyDecompressStream) Close() error {
	if closer, ok := s.raw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
