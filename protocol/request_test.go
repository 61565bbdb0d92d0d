package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxigraph/oxhttp/protocol/consts"
)

func TestRequestBodyVariants(t *testing.T) {
	var req Request

	// 无正文
	assert.False(t, req.HasBody())
	assert.Equal(t, 0, len(req.Body()))

	// 自有缓冲区
	req.SetBodyString("hello")
	assert.True(t, req.HasBody())
	assert.Equal(t, []byte("hello"), req.Body())
	assert.Equal(t, 5, req.Header.ContentLength())

	// 已知长度的流式正文
	req.SetBodyStream(strings.NewReader("world"), 5)
	assert.True(t, req.IsBodyStream())
	assert.Equal(t, 5, req.Header.ContentLength())

	// 正文是一次性的：读毕后流即为空
	assert.Equal(t, []byte("world"), req.Body())
	assert.False(t, req.IsBodyStream())
	assert.Equal(t, []byte("world"), req.Body())
}

func TestRequestChunkedStream(t *testing.T) {
	var req Request
	req.SetBodyStream(strings.NewReader("data"), consts.HeaderContentLengthChunked)
	assert.True(t, req.Header.IsChunked())
	assert.Nil(t, req.CheckWriteBody())
}

func TestRequestUnknownLengthRejected(t *testing.T) {
	var req Request
	req.SetBodyStream(strings.NewReader("data"), consts.HeaderContentLengthIdentity)
	assert.NotNil(t, req.CheckWriteBody())
}

func TestRequestMustWriteBody(t *testing.T) {
	var req Request
	req.SetMethod(consts.MethodPost)
	assert.True(t, req.MustWriteBody())

	req.SetMethod(consts.MethodPut)
	assert.True(t, req.MustWriteBody())

	req.SetMethod(consts.MethodGet)
	assert.False(t, req.MustWriteBody())

	req.SetBodyString("x")
	assert.True(t, req.MustWriteBody())
}

func TestRequestURIParsing(t *testing.T) {
	var req Request
	req.SetRequestURI("http://example.com:8080/a?b=c")
	uri := req.URI()
	assert.Equal(t, []byte("example.com:8080"), uri.Host())
	assert.Equal(t, []byte("/a"), uri.Path())
}

func TestRequestCopyTo(t *testing.T) {
	var req Request
	req.SetMethod("POST")
	req.SetRequestURI("http://a.com/x")
	req.SetBodyString("payload")

	var dst Request
	req.CopyTo(&dst)
	assert.Equal(t, []byte("POST"), dst.Method())
	assert.Equal(t, []byte("payload"), dst.Body())
}

func TestAcquireReleaseRequest(t *testing.T) {
	req := AcquireRequest()
	req.SetBodyString("x")
	ReleaseRequest(req)

	req = AcquireRequest()
	assert.False(t, req.HasBody())
	ReleaseRequest(req)
}
