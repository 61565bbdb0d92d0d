package ext

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/mock"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

func TestReadHeaderBlock(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: a\r\n\r\nrest"
	conn := mock.NewConn(raw)
	block, blockLen, err := ReadHeaderBlock(conn, consts.DefaultMaxHeaderSize)
	assert.Nil(t, err)
	assert.Equal(t, len(raw)-4, blockLen)
	assert.True(t, bytes.HasSuffix(block, []byte("\r\n\r\n")))
}

func TestReadHeaderBlockBareLF(t *testing.T) {
	// 接收时容忍无 CR 的 LF
	raw := "GET / HTTP/1.1\nHost: a\n\nrest"
	conn := mock.NewConn(raw)
	block, _, err := ReadHeaderBlock(conn, consts.DefaultMaxHeaderSize)
	assert.Nil(t, err)
	assert.True(t, bytes.HasSuffix(block, []byte("\n\n")))
}

func TestReadHeaderBlockCapBoundary(t *testing.T) {
	// 恰好等于上限的标头块成功
	prefix := "GET / HTTP/1.1\r\nX-Pad: "
	suffix := "\r\n\r\n"
	pad := strings.Repeat("a", consts.DefaultMaxHeaderSize-len(prefix)-len(suffix))
	raw := prefix + pad + suffix
	assert.Equal(t, consts.DefaultMaxHeaderSize, len(raw))

	_, blockLen, err := ReadHeaderBlock(mock.NewConn(raw), consts.DefaultMaxHeaderSize)
	assert.Nil(t, err)
	assert.Equal(t, consts.DefaultMaxHeaderSize, blockLen)

	// 超出一个字节即失败
	raw = prefix + pad + "a" + suffix
	_, _, err = ReadHeaderBlock(mock.NewConn(raw), consts.DefaultMaxHeaderSize)
	assert.ErrorIs(t, err, errs.ErrHeaderTooLarge)
}

func TestReadHeaderBlockHugeHeaderRejected(t *testing.T) {
	// 超大标头在越过上限后立即被拒绝，不等待读完
	raw := "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("a", 1024*1024)
	_, _, err := ReadHeaderBlock(mock.NewConn(raw), consts.DefaultMaxHeaderSize)
	assert.ErrorIs(t, err, errs.ErrHeaderTooLarge)
}

func TestHeaderScanner(t *testing.T) {
	var s HeaderScanner
	s.B = []byte("Host: example.com\r\nContent-Type:text/plain \r\n\r\n")

	assert.True(t, s.Next())
	assert.Equal(t, []byte("Host"), s.Key)
	assert.Equal(t, []byte("example.com"), s.Value)

	assert.True(t, s.Next())
	assert.Equal(t, []byte("Content-Type"), s.Key)
	assert.Equal(t, []byte("text/plain"), s.Value)

	assert.False(t, s.Next())
	assert.Nil(t, s.Err)
	assert.Equal(t, 47, s.HLen)
}

func TestHeaderScannerRejectsFolding(t *testing.T) {
	var s HeaderScanner
	s.B = []byte("Host: a\r\n continuation\r\n\r\n")
	assert.True(t, s.Next())
	assert.False(t, s.Next())
	assert.NotNil(t, s.Err)
}

func TestReadBodyFixed(t *testing.T) {
	conn := mock.NewConn("hello world")
	body, err := ReadBody(conn, 5, 0, nil)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello"), body)
}

func TestReadBodyFixedTooLarge(t *testing.T) {
	conn := mock.NewConn("hello world")
	_, err := ReadBody(conn, 11, 5, nil)
	assert.NotNil(t, err)
}

func TestReadBodyIdentity(t *testing.T) {
	conn := mock.NewConn("read until close")
	body, err := ReadBody(conn, consts.HeaderContentLengthIdentity, 0, nil)
	assert.Nil(t, err)
	assert.Equal(t, []byte("read until close"), body)
}

func TestReadBodyChunked(t *testing.T) {
	conn := mock.NewConn("3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n")
	body, err := ReadBody(conn, consts.HeaderContentLengthChunked, 0, nil)
	assert.Nil(t, err)
	assert.Equal(t, []byte("abcde"), body)
	// 终止块之后的空行也被消费
	assert.Equal(t, 0, conn.Len())
}

func TestReadBodyChunkedWithTrailer(t *testing.T) {
	conn := mock.NewConn("3\r\nabc\r\n0\r\nX-Sum: 1\r\n\r\nnext")
	body, err := ReadBody(conn, consts.HeaderContentLengthChunked, 0, nil)
	assert.Nil(t, err)
	assert.Equal(t, []byte("abc"), body)
	assert.Equal(t, 4, conn.Len())
}

func TestWriteChunkTerminator(t *testing.T) {
	conn := mock.NewConn("")
	assert.Nil(t, WriteChunk(conn, []byte("abc"), true))
	assert.Nil(t, WriteChunk(conn, nil, true))
	// 终止序列恰为 0 CRLF CRLF：一个空行，不是两个
	assert.Equal(t, []byte("3\r\nabc\r\n0\r\n\r\n"), conn.WrittenData())
}

func TestWriteBodyChunked(t *testing.T) {
	conn := mock.NewConn("")
	assert.Nil(t, WriteBodyChunked(conn, strings.NewReader("abcde")))
	assert.True(t, bytes.HasSuffix(conn.WrittenData(), []byte("0\r\n\r\n")))
}

func TestChunkedRoundTrip(t *testing.T) {
	// 随机正文经分块编码再解码应保持不变
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		payload := make([]byte, rnd.Intn(8192))
		rnd.Read(payload)

		conn := mock.NewConn("")
		remaining := payload
		for len(remaining) > 0 {
			n := rnd.Intn(len(remaining)) + 1
			assert.Nil(t, WriteChunk(conn, remaining[:n], false))
			remaining = remaining[n:]
		}
		assert.Nil(t, WriteChunk(conn, nil, false))

		decoded, err := ReadBody(mock.NewConn(string(conn.WrittenData())), consts.HeaderContentLengthChunked, 0, nil)
		assert.Nil(t, err)
		assert.Equal(t, payload, decoded)
	}
}

func TestWriteBodyFixedSize(t *testing.T) {
	conn := mock.NewConn("")
	assert.Nil(t, WriteBodyFixedSize(conn, strings.NewReader("hello"), 5))
	assert.Equal(t, []byte("hello"), conn.WrittenData())
}
