package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oxigraph/oxhttp/protocol/consts"
)

func TestDefaultClientOptions(t *testing.T) {
	options := NewClientOptions(nil)

	assert.Equal(t, consts.DefaultDialTimeout, options.DialTimeout)
	assert.True(t, options.KeepAlive)
	assert.Equal(t, uint8(0), options.RedirectLimit)
	assert.False(t, options.DisableDecompression)
}

func TestCustomClientOptions(t *testing.T) {
	options := NewClientOptions([]ClientOption{
		WithName("测试客户端"),
		WithDialTimeout(2 * time.Second),
		WithRequestTimeout(time.Second),
		WithRedirectLimit(3),
		WithKeepAlive(false),
		WithDisableDecompression(true),
	})

	assert.Equal(t, "测试客户端", options.Name)
	assert.Equal(t, 2*time.Second, options.DialTimeout)
	assert.Equal(t, time.Second, options.RequestTimeout)
	assert.Equal(t, uint8(3), options.RedirectLimit)
	assert.False(t, options.KeepAlive)
	assert.True(t, options.DisableDecompression)
}

func TestRequestOptions(t *testing.T) {
	options := NewRequestOptions([]RequestOption{
		WithReadTimeout(time.Second),
		WithWriteTimeout(2 * time.Second),
		WithRequestTimeoutOption(3 * time.Second),
	})

	assert.Equal(t, time.Second, options.ReadTimeout())
	assert.Equal(t, 2*time.Second, options.WriteTimeout())
	assert.Equal(t, 3*time.Second, options.RequestTimeout())

	var dst RequestOptions
	options.CopyTo(&dst)
	assert.Equal(t, 3*time.Second, dst.RequestTimeout())
}
