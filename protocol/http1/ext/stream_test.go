package ext

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oxigraph/oxhttp/common/mock"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

func TestBodyStreamSized(t *testing.T) {
	conn := mock.NewConn("hello world")
	released := false
	bs := AcquireBodyStream(conn, 5, func(err error) error {
		assert.Nil(t, err)
		released = true
		return nil
	})

	body, err := io.ReadAll(bs)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello"), body)
	assert.True(t, released)

	// 读毕后保持 EOF
	n, err := bs.Read(make([]byte, 1))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestBodyStreamChunkedStickyEOF(t *testing.T) {
	conn := mock.NewConn("3\r\nabc\r\n2\r\nde\r\n0\r\n\r\n")
	released := false
	bs := AcquireBodyStream(conn, consts.HeaderContentLengthChunked, func(err error) error {
		assert.Nil(t, err)
		released = true
		return nil
	})

	body, err := io.ReadAll(bs)
	assert.Nil(t, err)
	assert.Equal(t, []byte("abcde"), body)
	assert.True(t, released)

	// 终止块之后的任何读取恒返回 0 字节和 EOF，且没有错误状态
	for i := 0; i < 3; i++ {
		n, err := bs.Read(make([]byte, 16))
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
	}
}

func TestBodyStreamChunkedWithTrailer(t *testing.T) {
	conn := mock.NewConn("3\r\nabc\r\n0\r\nX-Sum: 9\r\n\r\nnext")
	bs := AcquireBodyStream(conn, consts.HeaderContentLengthChunked, nil)

	body, err := io.ReadAll(bs)
	assert.Nil(t, err)
	assert.Equal(t, []byte("abc"), body)
	// 挂车被消费，后续数据保留
	assert.Equal(t, 4, conn.Len())
}

func TestBodyStreamIdentity(t *testing.T) {
	conn := mock.NewConn("until close")
	bs := AcquireBodyStream(conn, consts.HeaderContentLengthIdentity, nil)
	body, err := io.ReadAll(bs)
	assert.Nil(t, err)
	assert.Equal(t, []byte("until close"), body)
}

func TestBodyStreamAbandonMarksConnBroken(t *testing.T) {
	conn := mock.NewConn("3\r\nabc\r\n0\r\n\r\n")
	var releaseErr error
	released := false
	bs := AcquireBodyStream(conn, consts.HeaderContentLengthChunked, func(err error) error {
		released = true
		releaseErr = err
		return nil
	})

	// 未读完即关闭，按放弃处理
	closer := bs.(io.Closer)
	assert.Nil(t, closer.Close())
	assert.True(t, released)
	assert.NotNil(t, releaseErr)
}

func TestReleaseBodyStreamDrains(t *testing.T) {
	conn := mock.NewConn("5\r\nhello\r\n0\r\n\r\nnext")
	released := false
	bs := AcquireBodyStream(conn, consts.HeaderContentLengthChunked, func(err error) error {
		assert.Nil(t, err)
		released = true
		return nil
	})

	// 一个字节都没读，Release 负责排空
	assert.Nil(t, ReleaseBodyStream(bs))
	assert.True(t, released)
	assert.Equal(t, 4, conn.Len())
}
