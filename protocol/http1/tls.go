package http1

import (
	"crypto/tls"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

var (
	tlsConfigGroup singleflight.Group
	tlsConfigValue atomic.Value
)

// sharedTLSConfig 返回进程级共享的 TLS 客户端配置。
//
// 配置在整个进程生命周期内只构建一次，所有客户端实例共享同一份
// 不可变值，不做销毁。并发的首次构建由 singleflight 合并。
func sharedTLSConfig() *tls.Config {
	if v := tlsConfigValue.Load(); v != nil {
		return v.(*tls.Config)
	}
	v, _, _ := tlsConfigGroup.Do("client-tls-config", func() (any, error) {
		if v := tlsConfigValue.Load(); v != nil {
			return v, nil
		}
		cfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		tlsConfigValue.Store(cfg)
		return cfg, nil
	})
	return v.(*tls.Config)
}
