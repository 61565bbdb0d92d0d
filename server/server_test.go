package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxigraph/oxhttp/client"
	"github.com/oxigraph/oxhttp/common/config"
	"github.com/oxigraph/oxhttp/common/hlog"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	"github.com/oxigraph/oxhttp/server/render"
)

// 测试共用的路由处理器。
func testHandler(c context.Context, req *protocol.Request, resp *protocol.Response) {
	switch string(req.URI().Path()) {
	case "/":
		render.Text(resp, consts.StatusOK, "home")
	case "/peer":
		render.Text(resp, consts.StatusOK, RemoteAddrFromContext(c).String())
	case "/a":
		resp.SetStatusCode(consts.StatusFound)
		resp.Header.Set("Location", "/b")
	case "/b":
		render.Text(resp, consts.StatusOK, "ok")
	case "/echo":
		render.Data(resp, consts.StatusOK, "application/octet-stream", req.Body())
	case "/empty":
		resp.SetStatusCode(consts.StatusNoContent)
	case "/panic":
		panic("处理器故意恐慌")
	default:
		render.Text(resp, consts.StatusNotFound, "not found")
	}
}

func startServer(t *testing.T, opts ...config.Option) (*Server, string) {
	t.Helper()
	opts = append(opts, config.WithBind("127.0.0.1:0"))
	s := New(testHandler, opts...)
	require.Nil(t, s.Spawn())
	addr := s.Addrs()[0].String()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return s, addr
}

func TestGetHome(t *testing.T) {
	_, addr := startServer(t, config.WithServerName("oxhttp-test"))

	c, err := client.NewClient()
	require.Nil(t, err)

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI("http://" + addr + "/")
	require.Nil(t, c.Do(context.Background(), req, resp))

	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, 4, resp.Header.ContentLength())
	assert.Equal(t, []byte("home"), resp.Body())
	assert.Equal(t, []byte("oxhttp-test"), resp.Header.Server())
}

func TestKeepAliveReuse(t *testing.T) {
	_, addr := startServer(t)

	c, err := client.NewClient()
	require.Nil(t, err)

	// 同一客户端的两个顺序请求应当复用同一条连接：
	// 服务器观察到相同的对端端口
	status, first, err := c.Get(context.Background(), "http://"+addr+"/peer")
	require.Nil(t, err)
	require.Equal(t, consts.StatusOK, status)

	_, second, err := c.Get(context.Background(), "http://"+addr+"/peer")
	require.Nil(t, err)
	assert.Equal(t, string(first), string(second))

	// 丢弃闲置连接后将另建连接，对端端口不同
	c.CloseIdleConnections()
	_, third, err := c.Get(context.Background(), "http://"+addr+"/peer")
	require.Nil(t, err)
	assert.NotEqual(t, string(first), string(third))
}

func TestIdlePoolHoldsAtMostOne(t *testing.T) {
	_, addr := startServer(t)

	c, err := client.NewClient()
	require.Nil(t, err)
	// 顺序请求始终复用同一条连接：服务器观察到的对端地址不变，
	// 客户端从未持有第二条连接
	_, first, err := c.Get(context.Background(), "http://"+addr+"/peer")
	require.Nil(t, err)
	for i := 0; i < 4; i++ {
		_, peer, err := c.Get(context.Background(), "http://"+addr+"/peer")
		require.Nil(t, err)
		assert.Equal(t, string(first), string(peer))
	}
}

func TestRedirect(t *testing.T) {
	_, addr := startServer(t)

	// 预算为 0：302 原样返回
	c0, err := client.NewClient()
	require.Nil(t, err)
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	req.SetRequestURI("http://" + addr + "/a")
	require.Nil(t, c0.Do(context.Background(), req, resp))
	assert.Equal(t, consts.StatusFound, resp.StatusCode())
	assert.Equal(t, []byte("/b"), resp.Header.PeekLocation())
	protocol.ReleaseRequest(req)
	protocol.ReleaseResponse(resp)

	// 预算为 1：跟随到 /b
	c1, err := client.NewClient(config.WithRedirectLimit(1))
	require.Nil(t, err)
	status, body, err := c1.Get(context.Background(), "http://"+addr+"/a")
	require.Nil(t, err)
	assert.Equal(t, consts.StatusOK, status)
	assert.Equal(t, []byte("ok"), body)
}

func TestChunkedUploadEcho(t *testing.T) {
	_, addr := startServer(t)

	c, err := client.NewClient()
	require.Nil(t, err)

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI("http://" + addr + "/echo")
	req.SetBodyStream(strings.NewReader("abcde"), consts.HeaderContentLengthChunked)

	require.Nil(t, c.Do(context.Background(), req, resp))
	assert.Equal(t, consts.StatusOK, resp.StatusCode())
	assert.Equal(t, []byte("abcde"), resp.Body())
}

func TestNoContentHasNoBodySection(t *testing.T) {
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /empty HTTP/1.1\r\nHost: a\r\nConnection: close\r\n\r\n"))
	require.Nil(t, err)

	raw, err := io.ReadAll(conn)
	require.Nil(t, err)
	wire := string(raw)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 204 No Content\r\n"), wire)
	assert.NotContains(t, wire, "Content-Length")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"))
}

func TestOversizeHeaderGets431(t *testing.T) {
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	// 单个 1 MiB 的标头值；服务器应在越过上限后立即拒绝
	go func() {
		conn.Write([]byte("GET / HTTP/1.1\r\nHost: a\r\nX-Big: "))
		payload := bytes.Repeat([]byte("a"), 1024*1024)
		conn.Write(payload)
		conn.Write([]byte("\r\n\r\n"))
	}()

	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(string(buf[:n]), "HTTP/1.1 431 "), string(buf[:n]))
}

func TestClientDisconnectIsSilent(t *testing.T) {
	var logBuf bytes.Buffer
	hlog.SetOutput(&logBuf)
	t.Cleanup(func() { hlog.SetOutput(io.Discard) })

	_, addr := startServer(t)

	// 连接后一个字节都不发即关闭
	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	conn.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, logBuf.Len(), "预请求断开不应产生任何日志：%s", logBuf.String())
}

func TestHandlerPanicGives500(t *testing.T) {
	hlog.SetOutput(io.Discard)
	_, addr := startServer(t)

	c, err := client.NewClient()
	require.Nil(t, err)
	status, body, err := c.Get(context.Background(), "http://"+addr+"/panic")
	require.Nil(t, err)
	assert.Equal(t, consts.StatusInternalServerError, status)
	assert.Equal(t, []byte("Internal Server Error"), body)
}

func TestExpectContinue(t *testing.T) {
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("POST /echo HTTP/1.1\r\nHost: a\r\nExpect: 100-continue\r\nContent-Length: 4\r\nConnection: close\r\n\r\n"))
	require.Nil(t, err)

	// 先收到过渡响应
	buf := make([]byte, 25)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = io.ReadFull(conn, buf)
	require.Nil(t, err)
	assert.Equal(t, "HTTP/1.1 100 Continue\r\n\r\n", string(buf))

	// 再发送正文并收到最终响应
	_, err = conn.Write([]byte("data"))
	require.Nil(t, err)
	raw, err := io.ReadAll(conn)
	require.Nil(t, err)
	wire := string(raw)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 200 OK\r\n"), wire)
	assert.True(t, strings.HasSuffix(wire, "data"))
}

func TestExpectUnsupportedGets417(t *testing.T) {
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: a\r\nExpect: bad\r\n\r\n"))
	require.Nil(t, err)

	raw, err := io.ReadAll(conn)
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "HTTP/1.1 417 "), string(raw))
}

func TestBadRequestGets400(t *testing.T) {
	hlog.SetOutput(io.Discard)
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nfoo\r\n\r\n"))
	require.Nil(t, err)

	raw, err := io.ReadAll(conn)
	require.Nil(t, err)
	wire := string(raw)
	assert.True(t, strings.HasPrefix(wire, "HTTP/1.1 400 "), wire)
	assert.Contains(t, wire, "Content-Type: text/plain; charset=utf-8\r\n")
}

func TestHTTP10ClosesWithoutKeepAlive(t *testing.T) {
	_, addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	require.Nil(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.0\r\nHost: a\r\n\r\n"))
	require.Nil(t, err)

	// 服务器发送响应后关闭连接，ReadAll 返回
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := io.ReadAll(conn)
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "home"))
}

func TestMultipleBinds(t *testing.T) {
	s := New(testHandler,
		config.WithBind("127.0.0.1:0"),
		config.WithBind("127.0.0.1:0"),
	)
	require.Nil(t, s.Spawn())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})

	addrs := s.Addrs()
	require.Equal(t, 2, len(addrs))

	c, err := client.NewClient()
	require.Nil(t, err)
	for _, addr := range addrs {
		status, body, err := c.Get(context.Background(), "http://"+addr.String()+"/")
		require.Nil(t, err)
		assert.Equal(t, consts.StatusOK, status)
		assert.Equal(t, []byte("home"), body)
	}
}

func TestConcurrencyLimitStillServes(t *testing.T) {
	_, addr := startServer(t, config.WithMaxConcurrentConns(1))

	for i := 0; i < 3; i++ {
		c, err := client.NewClient(config.WithKeepAlive(false))
		require.Nil(t, err)
		status, body, err := c.Get(context.Background(), "http://"+addr+"/")
		require.Nil(t, err)
		assert.Equal(t, consts.StatusOK, status)
		assert.Equal(t, []byte("home"), body)
		c.CloseIdleConnections()
	}
}

func TestShutdown(t *testing.T) {
	s := New(testHandler, config.WithBind("127.0.0.1:0"))
	require.Nil(t, s.Spawn())
	addr := s.Addrs()[0].String()

	c, err := client.NewClient()
	require.Nil(t, err)
	_, _, err = c.Get(context.Background(), "http://"+addr+"/")
	require.Nil(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Nil(t, s.Shutdown(ctx))
	require.Nil(t, s.Join())

	// 停机后不再接受新连接
	c2, err := client.NewClient()
	require.Nil(t, err)
	_, _, err = c2.Get(context.Background(), "http://"+addr+"/")
	assert.NotNil(t, err)
}
