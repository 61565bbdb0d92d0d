package config

import "time"

// RequestOption 是用于配置 RequestOptions 的唯一结构体。
type RequestOption struct {
	F func(o *RequestOptions)
}

// RequestOptions 是单次请求的配置项，优先于客户端级配置。
type RequestOptions struct {
	readTimeout    time.Duration
	writeTimeout   time.Duration
	requestTimeout time.Duration
}

func (o *RequestOptions) Apply(opts []RequestOption) {
	for _, op := range opts {
		op.F(o)
	}
}

func (o *RequestOptions) ReadTimeout() time.Duration {
	return o.readTimeout
}

func (o *RequestOptions) WriteTimeout() time.Duration {
	return o.writeTimeout
}

func (o *RequestOptions) RequestTimeout() time.Duration {
	return o.requestTimeout
}

func (o *RequestOptions) CopyTo(dst *RequestOptions) {
	dst.readTimeout = o.readTimeout
	dst.writeTimeout = o.writeTimeout
	dst.requestTimeout = o.requestTimeout
}

// NewRequestOptions 创建给定选项的请求配置。
func NewRequestOptions(opts []RequestOption) *RequestOptions {
	options := &RequestOptions{}
	options.Apply(opts)
	return options
}

// WithReadTimeout 设置本次请求的读取超时时长。
func WithReadTimeout(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.readTimeout = t
	}}
}

// WithWriteTimeout 设置本次请求的写入超时时长。
func WithWriteTimeout(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.writeTimeout = t
	}}
}

// WithRequestTimeoutOption 设置本次请求的整体截止时长。
func WithRequestTimeoutOption(t time.Duration) RequestOption {
	return RequestOption{F: func(o *RequestOptions) {
		o.requestTimeout = t
	}}
}
