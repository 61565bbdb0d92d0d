package req

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/mock"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

func TestReadHeaderOriginForm(t *testing.T) {
	conn := mock.NewConn("GET /a/b?c=d HTTP/1.1\r\nHost: example.com\r\nUser-Agent: test\r\n\r\n")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))

	assert.Equal(t, []byte("GET"), h.Method())
	assert.Equal(t, []byte("/a/b?c=d"), h.RequestURI())
	assert.Equal(t, []byte("example.com"), h.Host())
	assert.Equal(t, []byte("test"), h.UserAgent())
	assert.True(t, h.IsHTTP11())
	assert.False(t, h.ConnectionClose())
}

func TestReadHeaderAbsoluteForm(t *testing.T) {
	conn := mock.NewConn("GET http://example.com/x HTTP/1.1\r\nHost: example.com\r\n\r\n")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.Equal(t, []byte("http://example.com/x"), h.RequestURI())
}

func TestReadHeaderBareLF(t *testing.T) {
	conn := mock.NewConn("GET / HTTP/1.1\nhost: example.com\n\n")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.Equal(t, []byte("example.com"), h.Host())
}

func TestReadHeaderRejects(t *testing.T) {
	cases := []string{
		// 认证形式的请求目标
		"GET example.com:80 HTTP/1.1\r\n\r\n",
		// 星号形式
		"OPTIONS * HTTP/1.1\r\n\r\n",
		// 不支持的版本
		"GET / HTTP/2.0\r\n\r\n",
		"GET / HTTP/0.9\r\n\r\n",
		// 格式错误的请求行
		"GET /\r\n\r\n",
		"\r\n\r\n",
		// 折行
		"GET / HTTP/1.1\r\nX-A: 1\r\n \tb\r\n\r\n",
		// 标头名称带空格
		"GET / HTTP/1.1\r\nBad Name: 1\r\n\r\n",
		// 重复的 Host
		"GET / HTTP/1.1\r\nHost: a\r\nHost: b\r\n\r\n",
		// Content-Length 重复且不一致
		"POST / HTTP/1.1\r\nContent-Length: 1\r\nContent-Length: 2\r\n\r\n",
		// Content-Length 与 chunked 并存
		"POST / HTTP/1.1\r\nContent-Length: 1\r\nTransfer-Encoding: chunked\r\n\r\n",
		// 非法 Content-Length
		"POST / HTTP/1.1\r\nContent-Length: abc\r\n\r\n",
	}
	for _, raw := range cases {
		var h protocol.RequestHeader
		err := ReadHeader(&h, mock.NewConn(raw), 0)
		assert.NotNil(t, err, "应当拒绝：%q", raw)
	}
}

func TestReadHeaderEqualDuplicateContentLength(t *testing.T) {
	// 相同的重复值合并为一个
	conn := mock.NewConn("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 3\r\nContent-Length: 3\r\n\r\nabc")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.Equal(t, 3, h.ContentLength())
}

func TestReadHeaderChunked(t *testing.T) {
	conn := mock.NewConn("POST / HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.True(t, h.IsChunked())
}

func TestReadHeaderNothingRead(t *testing.T) {
	var h protocol.RequestHeader
	err := ReadHeader(&h, mock.NewConn(""), 0)
	assert.ErrorIs(t, err, errs.ErrNothingRead)
}

func TestReadHeaderTooLarge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", consts.DefaultMaxHeaderSize) + "\r\n\r\n"
	var h protocol.RequestHeader
	err := ReadHeader(&h, mock.NewConn(raw), 0)
	assert.ErrorIs(t, err, errs.ErrHeaderTooLarge)
}

func TestReadHeaderHTTP10(t *testing.T) {
	conn := mock.NewConn("GET / HTTP/1.0\r\nHost: a\r\n\r\n")
	var h protocol.RequestHeader
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.False(t, h.IsHTTP11())
	// HTTP/1.0 默认短连接
	assert.True(t, h.ConnectionClose())

	conn = mock.NewConn("GET / HTTP/1.0\r\nHost: a\r\nConnection: keep-alive\r\n\r\n")
	assert.Nil(t, ReadHeader(&h, conn, 0))
	assert.False(t, h.ConnectionClose())
	assert.True(t, h.ExplicitKeepAlive())
}

func TestReadRequestWithBody(t *testing.T) {
	conn := mock.NewConn("POST /up HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")
	var req protocol.Request
	assert.Nil(t, Read(&req, conn, 0, 0))
	assert.Equal(t, []byte("hello"), req.Body())
}

func TestReadRequestChunkedBody(t *testing.T) {
	conn := mock.NewConn("POST /up HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n")
	var req protocol.Request
	assert.Nil(t, Read(&req, conn, 0, 0))
	assert.Equal(t, []byte("abcde"), req.Body())
	assert.Equal(t, 5, req.Header.ContentLength())
}

func TestReadRequestBodyTooLarge(t *testing.T) {
	conn := mock.NewConn("POST / HTTP/1.1\r\nHost: a\r\nContent-Length: 100\r\n\r\n" + strings.Repeat("x", 100))
	var req protocol.Request
	err := Read(&req, conn, 0, 10)
	assert.ErrorIs(t, err, errs.ErrBodyTooLarge)
}

func TestWriteRequestHostFirst(t *testing.T) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.SetRequestURI("http://example.com/a?b=c")
	req.Header.Set("X-Custom", "v")

	conn := mock.NewConn("")
	assert.Nil(t, Write(req, conn))
	wire := string(conn.WrittenData())

	assert.True(t, strings.HasPrefix(wire, "GET /a?b=c HTTP/1.1\r\nHost: example.com\r\n"), wire)
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\n"))
}

func TestWriteRequestBodyFraming(t *testing.T) {
	// 自有正文带 Content-Length
	req := protocol.AcquireRequest()
	req.SetMethod("POST")
	req.SetRequestURI("http://a.com/")
	req.SetBodyString("hello")
	conn := mock.NewConn("")
	assert.Nil(t, Write(req, conn))
	wire := string(conn.WrittenData())
	assert.Contains(t, wire, "Content-Length: 5\r\n")
	assert.True(t, strings.HasSuffix(wire, "\r\n\r\nhello"))
	protocol.ReleaseRequest(req)

	// 无正文的 POST 也必须带正文段
	req = protocol.AcquireRequest()
	req.SetMethod("POST")
	req.SetRequestURI("http://a.com/")
	conn = mock.NewConn("")
	assert.Nil(t, Write(req, conn))
	assert.Contains(t, string(conn.WrittenData()), "Content-Length: 0\r\n")
	protocol.ReleaseRequest(req)

	// 无正文的 GET 不带 Content-Length
	req = protocol.AcquireRequest()
	req.SetRequestURI("http://a.com/")
	conn = mock.NewConn("")
	assert.Nil(t, Write(req, conn))
	assert.NotContains(t, string(conn.WrittenData()), "Content-Length")
	protocol.ReleaseRequest(req)
}

func TestWriteRequestChunked(t *testing.T) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.SetMethod("POST")
	req.SetRequestURI("http://a.com/")
	req.SetBodyStream(strings.NewReader("abcde"), consts.HeaderContentLengthChunked)

	conn := mock.NewConn("")
	assert.Nil(t, Write(req, conn))
	wire := string(conn.WrittenData())
	assert.Contains(t, wire, "Transfer-Encoding: chunked\r\n")
	assert.True(t, strings.HasSuffix(wire, "0\r\n\r\n"))
}

func TestWriteRequestUnknownLengthRejected(t *testing.T) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.SetMethod("POST")
	req.SetRequestURI("http://a.com/")
	req.SetBodyStream(strings.NewReader("x"), consts.HeaderContentLengthIdentity)

	err := Write(req, mock.NewConn(""))
	assert.ErrorIs(t, err, errs.ErrNoBodyLength)
}

// 序列化再解析应当还原请求：方法、目标、Host、正文与标头集合一致。
func TestRequestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	methods := []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}

	for i := 0; i < 1000; i++ {
		method := methods[rnd.Intn(len(methods))]
		path := fmt.Sprintf("/p%d/x%d", rnd.Intn(100), rnd.Intn(100))
		host := fmt.Sprintf("h%d.example.com", rnd.Intn(50))

		req := protocol.AcquireRequest()
		req.SetMethod(method)
		req.SetRequestURI("http://" + host + path)

		headerCount := rnd.Intn(5)
		expect := map[string]string{}
		for j := 0; j < headerCount; j++ {
			k := fmt.Sprintf("X-Rand-%c%d", 'A'+rnd.Intn(26), j)
			v := fmt.Sprintf("value-%d", rnd.Intn(10000))
			req.Header.Set(k, v)
			expect[strings.ToLower(k)] = v
		}
		if method == "POST" || method == "PUT" {
			body := make([]byte, rnd.Intn(64))
			for k := range body {
				body[k] = byte('a' + rnd.Intn(26))
			}
			req.SetBody(body)
		}
		wantBody := append([]byte(nil), req.Body()...)

		conn := mock.NewConn("")
		assert.Nil(t, Write(req, conn))
		protocol.ReleaseRequest(req)

		var parsed protocol.Request
		assert.Nil(t, Read(&parsed, mock.NewConn(string(conn.WrittenData())), 0, 0))

		assert.Equal(t, method, string(parsed.Method()))
		assert.Equal(t, path, string(parsed.Header.RequestURI()))
		assert.Equal(t, host, string(parsed.Header.Host()))
		assert.Equal(t, wantBody, parsed.Body())
		for k, v := range expect {
			assert.Equal(t, v, string(parsed.Header.Peek(k)))
		}
	}
}
