package config

import (
	"crypto/tls"
	"time"

	"github.com/oxigraph/oxhttp/protocol/consts"
)

// ClientOption 是用于配置 ClientOptions 的唯一结构体。
type ClientOption struct {
	F func(o *ClientOptions)
}

// ClientOptions 是客户端配置项的结构体。
type ClientOptions struct {
	// 客户端名称。用于 User-Agent 请求标头。
	Name string

	// 若在请求时排除 User-Agent 标头，则设为真。
	NoDefaultUserAgentHeader bool

	// 拨号超时时长。
	DialTimeout time.Duration

	// 单次请求的整体截止时长（涵盖读和写），0 代表永不超时。
	RequestTimeout time.Duration

	// 重定向跟随上限。默认为 0，即不跟随重定向。
	RedirectLimit uint8

	// 安全连接配置。为空时使用进程级共享配置。
	TLSConfig *tls.Config

	// 是否保持长连接，默认保持。
	KeepAlive bool

	// 响应正文的上限，0 代表不限制。
	MaxResponseBodySize int

	// 连接读缓冲区大小。
	ReadBufferSize int

	// 连接写缓冲区大小。
	WriteBufferSize int

	// 为真时不自动解压 gzip/deflate 响应正文。
	DisableDecompression bool

	// 为真时响应正文保持流式读取，由调用方负责消费完毕。
	ResponseBodyStream bool
}

func (o *ClientOptions) Apply(opts []ClientOption) {
	for _, op := range opts {
		op.F(o)
	}
}

// NewClientOptions 创建给定选项的客户端配置。
func NewClientOptions(opts []ClientOption) *ClientOptions {
	options := &ClientOptions{
		DialTimeout:     consts.DefaultDialTimeout,
		KeepAlive:       true,
		ReadBufferSize:  consts.DefaultReadBufferSize,
		WriteBufferSize: consts.DefaultWriteBufferSize,
	}
	options.Apply(opts)
	return options
}

// WithName 设置客户端名称，用作默认 User-Agent 请求标头。
func WithName(name string) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.Name = name
	}}
}

// WithNoDefaultUserAgentHeader 设置是否排除默认 User-Agent 标头。
func WithNoDefaultUserAgentHeader(isNoDefaultUserAgentHeader bool) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.NoDefaultUserAgentHeader = isNoDefaultUserAgentHeader
	}}
}

// WithDialTimeout 设置拨号超时时长。
func WithDialTimeout(dialTimeout time.Duration) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.DialTimeout = dialTimeout
	}}
}

// WithRequestTimeout 设置单次请求的整体截止时长。
func WithRequestTimeout(t time.Duration) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.RequestTimeout = t
	}}
}

// WithRedirectLimit 设置重定向跟随上限。0 表示把 3xx 原样返回给调用方。
func WithRedirectLimit(limit uint8) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.RedirectLimit = limit
	}}
}

// WithTLSConfig 设置安全连接配置，绕过进程级共享配置。
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.TLSConfig = cfg
	}}
}

// WithKeepAlive 设置是否保持长连接。
func WithKeepAlive(b bool) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.KeepAlive = b
	}}
}

// WithMaxResponseBodySize 设置响应正文的上限。
func WithMaxResponseBodySize(n int) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.MaxResponseBodySize = n
	}}
}

// WithDisableDecompression 设置是否禁用响应正文的自动解压。
func WithDisableDecompression(disable bool) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.DisableDecompression = disable
	}}
}

// WithResponseBodyStream 设置响应正文是否保持流式读取。
func WithResponseBodyStream(enable bool) ClientOption {
	return ClientOption{F: func(o *ClientOptions) {
		o.ResponseBodyStream = enable
	}}
}
