// Package consts 定义协议层共用的方法名、状态码及默认尺寸。
package consts

import "time"

// HTTP 方法。
const (
	MethodGet     = "GET"
	MethodHead    = "HEAD"
	MethodPost    = "POST"
	MethodPut     = "PUT"
	MethodPatch   = "PATCH"
	MethodDelete  = "DELETE"
	MethodConnect = "CONNECT"
	MethodOptions = "OPTIONS"
	MethodTrace   = "TRACE"
)

const (
	// DefaultMaxHeaderSize 定义标头块（含起始行）的默认上限。
	DefaultMaxHeaderSize = 8 * 1024

	// DefaultReadBufferSize 定义连接读缓冲区的默认大小。
	DefaultReadBufferSize = 16 * 1024

	// DefaultWriteBufferSize 定义连接写缓冲区的默认大小。
	DefaultWriteBufferSize = 16 * 1024

	// DefaultMaxChunkSize 定义单个分块的默认上限。
	DefaultMaxChunkSize = 64 * 1024

	// DefaultMaxRequestBodySize 定义服务器接收请求正文的默认上限。
	DefaultMaxRequestBodySize = 4 * 1024 * 1024

	// DefaultDialTimeout 定义拨号的默认超时时长。
	DefaultDialTimeout = time.Second

	// DefaultMaxConcurrentConns 定义服务器在途连接的默认上限。
	DefaultMaxConcurrentConns = 256 * 1024

	// MaxSmallFileSize 小于该尺寸的正文直接进入写缓冲区
	MaxSmallFileSize = 2 * 4096
)

const (
	// HeaderContentLengthChunked 表示正文采用分块传输。
	HeaderContentLengthChunked = -1

	// HeaderContentLengthIdentity 表示正文读取至连接关闭。
	HeaderContentLengthIdentity = -2
)
