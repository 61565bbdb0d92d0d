// Package server 实现绑定监听、许可并发与生命周期管理的 HTTP/1.1 服务器引擎。
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"golang.org/x/sync/semaphore"

	"github.com/oxigraph/oxhttp/common/config"
	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/hlog"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/network/standard"
	"github.com/oxigraph/oxhttp/protocol/http1"
)

// 重试接受连接的退避区间。
const (
	acceptBackoffMin = 5 * time.Millisecond
	acceptBackoffMax = time.Second
)

// Handler 处理一个请求并填充响应。由所有工作协程共享，必须可安全并发调用。
type Handler = http1.Handler

// Server 表示同步 HTTP/1.1 服务器。
//
// 通过 WithBind 累积监听地址，Spawn 启动接受循环，Join 阻塞等待退出。
type Server struct {
	options *config.Options
	proto   *http1.Server

	mu        sync.Mutex
	listeners []net.Listener
	spawned   bool
	closed    bool

	// 连接许可：在途连接数的硬性上限
	sem *semaphore.Weighted

	acceptWg sync.WaitGroup
	connWg   sync.WaitGroup

	// 在途连接集合，停机时用于强制关闭
	activeConns map[network.Conn]struct{}
}

// New 创建给定处理器和选项的服务器。
func New(handler Handler, opts ...config.Option) *Server {
	options := config.NewOptions(opts)
	if options.IdleTimeout == 0 {
		options.IdleTimeout = options.GlobalTimeout
	}

	proto := http1.NewServer()
	proto.Handler = handler
	proto.ServerName = options.ServerName
	proto.MaxHeaderSize = options.MaxHeaderSize
	proto.MaxRequestBodySize = options.MaxRequestBodySize
	proto.ReadTimeout = options.GlobalTimeout
	proto.IdleTimeout = options.IdleTimeout
	proto.DisableKeepalive = options.DisableKeepalive

	return &Server{
		options:     options,
		proto:       proto,
		sem:         semaphore.NewWeighted(int64(options.MaxConcurrentConns)),
		activeConns: make(map[network.Conn]struct{}),
	}
}

// Spawn 绑定全部监听地址并为每个监听套接字启动一个接受协程。
//
// 返回的错误只反映绑定失败；运行期错误通过日志汇报。
func (s *Server) Spawn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spawned {
		return errs.NewPrivate("服务器已启动")
	}
	if len(s.options.Addrs) == 0 {
		return errs.NewPrivate("服务器没有可绑定的地址")
	}

	for _, addr := range s.options.Addrs {
		ln, err := net.Listen(s.options.Network, addr)
		if err != nil {
			// 绑定失败时回收已绑定的监听套接字
			for _, l := range s.listeners {
				l.Close()
			}
			s.listeners = nil
			return err
		}
		s.listeners = append(s.listeners, ln)
	}

	s.spawned = true
	for _, ln := range s.listeners {
		s.acceptWg.Add(1)
		go s.acceptLoop(ln)
	}
	return nil
}

// Join 阻塞直至所有接受循环退出。
func (s *Server) Join() error {
	s.acceptWg.Wait()
	return nil
}

// ListenAndServe 等价于 Spawn 后 Join。
func (s *Server) ListenAndServe() error {
	if err := s.Spawn(); err != nil {
		return err
	}
	return s.Join()
}

// Addrs 返回实际绑定的监听地址，供绑定 :0 的测试使用。
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := make([]net.Addr, 0, len(s.listeners))
	for _, ln := range s.listeners {
		addrs = append(addrs, ln.Addr())
	}
	return addrs
}

// Shutdown 关闭监听套接字，等待在途交换在 ctx 或全局超时内完成，
// 之后强制关闭剩余连接。
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	lns := s.listeners
	s.mu.Unlock()

	for _, ln := range lns {
		ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.connWg.Wait()
		close(done)
	}()

	if s.options.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.GlobalTimeout)
		defer cancel()
	}

	select {
	case <-done:
	case <-ctx.Done():
		// 超时后强制关闭在途连接
		s.mu.Lock()
		for conn := range s.activeConns {
			conn.Close()
		}
		s.mu.Unlock()
		<-done
	}

	s.acceptWg.Wait()
	return nil
}

// acceptLoop 接受连接并分发给工作协程。瞬时错误按指数退避重试。
func (s *Server) acceptLoop(ln net.Listener) {
	defer s.acceptWg.Done()

	backoff := acceptBackoffMin
	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				// 瞬时错误：退避后重试，加随机抖动避免同步唤醒
				jitter := time.Duration(fastrand.Int63n(int64(backoff)))
				time.Sleep(backoff + jitter)
				backoff *= 2
				if backoff > acceptBackoffMax {
					backoff = acceptBackoffMax
				}
				continue
			}
			hlog.SystemLogger().Errorf("接受连接出错=%s", err.Error())
			return
		}
		backoff = acceptBackoffMin

		// 获得许可后才进入服务；许可总数即在途连接上限
		if err := s.sem.Acquire(context.Background(), 1); err != nil {
			c.Close()
			return
		}

		if tcpConn, ok := c.(*net.TCPConn); ok {
			tcpConn.SetNoDelay(true)
		}
		conn := standard.NewConn(c, s.options.ReadBufferSize)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			s.sem.Release(1)
			return
		}
		s.activeConns[conn] = struct{}{}
		s.connWg.Add(1)
		s.mu.Unlock()

		go s.serveConn(conn)
	}
}

type remoteAddrKey struct{}

// RemoteAddrFromContext 返回处理器上下文中携带的对端地址。
func RemoteAddrFromContext(ctx context.Context) net.Addr {
	addr, _ := ctx.Value(remoteAddrKey{}).(net.Addr)
	return addr
}

// serveConn 服务单个连接。许可在任何退出路径（含恐慌）上都会释放。
func (s *Server) serveConn(conn network.Conn) {
	defer func() {
		if r := recover(); r != nil {
			hlog.SystemLogger().Errorf("服务连接时恐慌已恢复：%v", r)
		}
		conn.Close()

		s.mu.Lock()
		delete(s.activeConns, conn)
		s.mu.Unlock()

		s.connWg.Done()
		s.sem.Release(1)
	}()

	ctx := context.WithValue(context.Background(), remoteAddrKey{}, conn.RemoteAddr())
	if err := s.proto.Serve(ctx, conn); err != nil {
		if rip := remoteIP(conn); !ignorableError(conn, err, rip) {
			hlog.SystemLogger().Debugf("服务连接出错=%s, 远程地址=%s", err.Error(), rip)
		}
	}
}

func remoteIP(conn network.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func ignorableError(conn network.Conn, err error, rip string) bool {
	if handler, ok := conn.(network.HandleSpecificError); ok {
		return handler.HandleSpecificError(err, rip)
	}
	return false
}
