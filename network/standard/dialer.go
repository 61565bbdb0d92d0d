package standard

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/network"
)

type dialer struct{}

// NewDialer 创建标准库阻塞式拨号器。
func NewDialer() network.Dialer {
	return &dialer{}
}

func (d *dialer) DialConnection(n, address string, timeout time.Duration, tlsConfig *tls.Config) (conn network.Conn, err error) {
	c, err := net.DialTimeout(n, address, timeout)
	if err != nil {
		return nil, errs.New(err, errs.ErrorTypePublic, "拨号失败")
	}

	// 逐请求的小报文写入不做合并
	if tcpConn, ok := c.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	if tlsConfig != nil {
		cfg := tlsConfig
		if cfg.ServerName == "" {
			cfg = cfg.Clone()
			cfg.ServerName = hostWithoutPort(address)
		}
		tlsConn := tls.Client(c, cfg)
		if timeout > 0 {
			tlsConn.SetDeadline(time.Now().Add(timeout))
		}
		if err = tlsConn.Handshake(); err != nil {
			tlsConn.Close()
			return nil, errs.New(err, errs.ErrorTypePublic, "TLS 握手失败")
		}
		tlsConn.SetDeadline(time.Time{})
		return newTLSConn(tlsConn, defaultMallocSize), nil
	}

	return newConn(c, defaultMallocSize), nil
}

func (d *dialer) DialTimeout(n, address string, timeout time.Duration, tlsConfig *tls.Config) (conn net.Conn, err error) {
	c, err := d.DialConnection(n, address, timeout, tlsConfig)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (d *dialer) AddTLS(conn network.Conn, tlsConfig *tls.Config) (network.Conn, error) {
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.Handshake(); err != nil {
		tlsConn.Close()
		return nil, err
	}
	return newTLSConn(tlsConn, defaultMallocSize), nil
}

func hostWithoutPort(addr string) string {
	if i := strings.LastIndexByte(addr, ':'); i > strings.LastIndexByte(addr, ']') {
		return strings.Trim(addr[:i], "[]")
	}
	return strings.Trim(addr, "[]")
}
