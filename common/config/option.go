// Package config 定义客户端、服务器及单次请求的可选配置。
package config

import (
	"time"

	"github.com/oxigraph/oxhttp/protocol/consts"
)

// Option 是用于配置服务器 Options 的唯一结构体。
type Option struct {
	F func(o *Options)
}

// Options 是服务器配置项的结构体。
type Options struct {
	// Addrs 是累积的监听地址，可多次绑定（典型为 IPv4 + IPv6 双栈）。
	Addrs []string

	// Network 是监听的网络类型，默认 tcp。
	Network string

	// MaxConcurrentConns 是在途连接的硬性上限。
	MaxConcurrentConns int

	// GlobalTimeout 是单次交换（读+写）共用的截止时长，0 代表永不超时。
	GlobalTimeout time.Duration

	// IdleTimeout 是长连接等待下一个请求的闲置超时。默认与 GlobalTimeout 相同。
	IdleTimeout time.Duration

	// ServerName 是响应 Server 标头的默认值。
	ServerName []byte

	// MaxHeaderSize 是标头块的上限，超限返回 431。
	MaxHeaderSize int

	// MaxRequestBodySize 是请求正文的上限，超限返回 413。
	MaxRequestBodySize int

	// ReadBufferSize 是每个连接读缓冲区的大小。
	ReadBufferSize int

	// WriteBufferSize 是每个连接写缓冲区的大小。
	WriteBufferSize int

	// DisableKeepalive 为真时每个连接只服务一个请求。
	DisableKeepalive bool
}

func (o *Options) Apply(opts []Option) {
	for _, op := range opts {
		op.F(o)
	}
}

// NewOptions 创建给定选项的服务器配置。
func NewOptions(opts []Option) *Options {
	options := &Options{
		Network:            "tcp",
		MaxConcurrentConns: consts.DefaultMaxConcurrentConns,
		MaxHeaderSize:      consts.DefaultMaxHeaderSize,
		MaxRequestBodySize: consts.DefaultMaxRequestBodySize,
		ReadBufferSize:     consts.DefaultReadBufferSize,
		WriteBufferSize:    consts.DefaultWriteBufferSize,
	}
	options.Apply(opts)
	return options
}

// WithBind 追加一个监听地址。可多次调用以累积多个监听套接字。
func WithBind(addr string) Option {
	return Option{F: func(o *Options) {
		o.Addrs = append(o.Addrs, addr)
	}}
}

// WithNetwork 设置监听的网络类型（tcp、tcp4、tcp6）。
func WithNetwork(network string) Option {
	return Option{F: func(o *Options) {
		o.Network = network
	}}
}

// WithMaxConcurrentConns 设置在途连接的硬性上限。
func WithMaxConcurrentConns(n int) Option {
	return Option{F: func(o *Options) {
		o.MaxConcurrentConns = n
	}}
}

// WithGlobalTimeout 设置单次交换的读写截止时长。
func WithGlobalTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.GlobalTimeout = t
	}}
}

// WithIdleTimeout 设置长连接的闲置超时。
func WithIdleTimeout(t time.Duration) Option {
	return Option{F: func(o *Options) {
		o.IdleTimeout = t
	}}
}

// WithServerName 设置响应 Server 标头的默认值。
func WithServerName(name string) Option {
	return Option{F: func(o *Options) {
		o.ServerName = []byte(name)
	}}
}

// WithMaxHeaderSize 设置标头块的上限。
func WithMaxHeaderSize(n int) Option {
	return Option{F: func(o *Options) {
		o.MaxHeaderSize = n
	}}
}

// WithMaxRequestBodySize 设置请求正文的上限。
func WithMaxRequestBodySize(n int) Option {
	return Option{F: func(o *Options) {
		o.MaxRequestBodySize = n
	}}
}

// WithReadBufferSize 设置连接读缓冲区的大小。
func WithReadBufferSize(n int) Option {
	return Option{F: func(o *Options) {
		o.ReadBufferSize = n
	}}
}

// WithWriteBufferSize 设置连接写缓冲区的大小。
func WithWriteBufferSize(n int) Option {
	return Option{F: func(o *Options) {
		o.WriteBufferSize = n
	}}
}

// WithDisableKeepalive 设置是否禁用长连接。
func WithDisableKeepalive(disable bool) Option {
	return Option{F: func(o *Options) {
		o.DisableKeepalive = disable
	}}
}
