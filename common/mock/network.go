// Package mock 提供内存实现的 network.Conn，供编解码测试使用。
package mock

import (
	"bytes"
	"io"
	"net"
	"time"

	"github.com/oxigraph/oxhttp/network"
)

// Conn 是以内存数据为读取源、以缓冲区为写入汇的模拟连接。
type Conn struct {
	readTimeout time.Duration

	data []byte
	off  int

	wbuf bytes.Buffer
}

// NewConn 创建以 source 为读取源的模拟连接。
func NewConn(source string) *Conn {
	return &Conn{data: []byte(source)}
}

// WrittenData 返回写入该连接的全部字节。
func (m *Conn) WrittenData() []byte {
	return m.wbuf.Bytes()
}

// --- 实现 network.Reader ---

func (m *Conn) Len() int {
	return len(m.data) - m.off
}

func (m *Conn) Peek(n int) ([]byte, error) {
	if m.Len() >= n {
		return m.data[m.off : m.off+n], nil
	}
	return m.data[m.off:], io.EOF
}

func (m *Conn) Skip(n int) error {
	if m.Len() < n {
		return io.EOF
	}
	m.off += n
	return nil
}

func (m *Conn) ReadByte() (byte, error) {
	if m.Len() == 0 {
		return 0, io.EOF
	}
	b := m.data[m.off]
	m.off++
	return b, nil
}

func (m *Conn) ReadBinary(n int) ([]byte, error) {
	b, err := m.Peek(n)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), b...)
	return out, m.Skip(n)
}

func (m *Conn) Release() error {
	return nil
}

// --- 实现 network.Writer ---

func (m *Conn) Malloc(n int) ([]byte, error) {
	b := make([]byte, n)
	m.wbuf.Write(b)
	return m.wbuf.Bytes()[m.wbuf.Len()-n:], nil
}

func (m *Conn) WriteBinary(b []byte) (int, error) {
	return m.wbuf.Write(b)
}

func (m *Conn) Flush() error {
	return nil
}

// --- 实现 net.Conn ---

func (m *Conn) Read(b []byte) (int, error) {
	n := copy(b, m.data[m.off:])
	m.off += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (m *Conn) Write(b []byte) (int, error) {
	return m.wbuf.Write(b)
}

func (m *Conn) Close() error {
	return nil
}

func (m *Conn) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func (m *Conn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func (m *Conn) SetDeadline(t time.Time) error {
	return nil
}

func (m *Conn) SetReadDeadline(t time.Time) error {
	return nil
}

func (m *Conn) SetWriteDeadline(t time.Time) error {
	return nil
}

func (m *Conn) SetReadTimeout(t time.Duration) error {
	m.readTimeout = t
	return nil
}

func (m *Conn) SetWriteTimeout(t time.Duration) error {
	return nil
}

var _ network.Conn = (*Conn)(nil)
