package standard

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	errs "github.com/oxigraph/oxhttp/common/errors"
)

func newPipeConn(t *testing.T) (*Conn, net.Conn) {
	local, remote := net.Pipe()
	c := newConn(local, 0).(*Conn)
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return c, remote
}

func TestConnPeekSkip(t *testing.T) {
	c, remote := newPipeConn(t)
	go remote.Write([]byte("hello world"))

	b, err := c.Peek(5)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello"), b)

	// Peek 不移动读指针
	b, err = c.Peek(5)
	assert.Nil(t, err)
	assert.Equal(t, []byte("hello"), b)

	assert.Nil(t, c.Skip(6))
	b, err = c.Peek(5)
	assert.Nil(t, err)
	assert.Equal(t, []byte("world"), b)
}

func TestConnReadByteReadBinary(t *testing.T) {
	c, remote := newPipeConn(t)
	go remote.Write([]byte("abc"))

	b, err := c.ReadByte()
	assert.Nil(t, err)
	assert.Equal(t, byte('a'), b)

	bin, err := c.ReadBinary(2)
	assert.Nil(t, err)
	assert.Equal(t, []byte("bc"), bin)
}

func TestConnWriteFlush(t *testing.T) {
	c, remote := newPipeConn(t)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := remote.Read(buf)
		got <- buf[:n]
	}()

	n, err := c.WriteBinary([]byte("ping"))
	assert.Nil(t, err)
	assert.Equal(t, 4, n)
	assert.Nil(t, c.Flush())
	assert.Equal(t, []byte("ping"), <-got)
}

func TestConnMalloc(t *testing.T) {
	c, remote := newPipeConn(t)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := remote.Read(buf)
		got <- buf[:n]
	}()

	buf, err := c.Malloc(3)
	assert.Nil(t, err)
	copy(buf, "abc")
	assert.Nil(t, c.Flush())
	assert.Equal(t, []byte("abc"), <-got)
}

func TestConnReadTimeout(t *testing.T) {
	c, _ := newPipeConn(t)
	assert.Nil(t, c.SetReadTimeout(10*time.Millisecond))

	_, err := c.Peek(1)
	assert.NotNil(t, err)
	assert.Equal(t, errs.ErrTimeout, c.ToError(err))
}

func TestConnLen(t *testing.T) {
	c, remote := newPipeConn(t)
	assert.Equal(t, 0, c.Len())

	go remote.Write([]byte("xy"))
	_, err := c.Peek(2)
	assert.Nil(t, err)
	assert.Equal(t, 2, c.Len())

	assert.Nil(t, c.Skip(2))
	assert.Equal(t, 0, c.Len())
}
