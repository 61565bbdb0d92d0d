package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/protocol"
)

func doRequest(t *testing.T, url string) error {
	t.Helper()
	c, err := NewClient()
	require.Nil(t, err)

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(url)
	return c.Do(context.Background(), req, resp)
}

func TestUnsupportedScheme(t *testing.T) {
	err := doRequest(t, "ftp://example.com/file")
	assert.ErrorIs(t, err, errs.ErrUnsupportedScheme)

	err = doRequest(t, "file://example.com/not_existing")
	assert.ErrorIs(t, err, errs.ErrUnsupportedScheme)
}

func TestMissingHost(t *testing.T) {
	err := doRequest(t, "/no/host")
	assert.ErrorIs(t, err, errs.ErrInvalidURL)
}

func TestBadPortRejected(t *testing.T) {
	// 22 端口专用于 SSH，fetch 规范禁止用于 HTTP
	err := doRequest(t, "http://example.com:22/")
	assert.ErrorIs(t, err, errs.ErrInvalidURL)

	err = doRequest(t, "http://example.com:6667/")
	assert.ErrorIs(t, err, errs.ErrInvalidURL)
}

func TestHostClientPerKey(t *testing.T) {
	c, err := NewClient()
	require.Nil(t, err)

	hc1 := c.hostClient("a.com", false)
	hc2 := c.hostClient("a.com", false)
	hc3 := c.hostClient("b.com", false)
	hcTLS := c.hostClient("a.com", true)

	assert.Same(t, hc1, hc2)
	assert.NotSame(t, hc1, hc3)
	assert.NotSame(t, hc1, hcTLS)
	assert.Equal(t, "a.com:80", hc1.Addr)
	assert.Equal(t, "a.com:443", hcTLS.Addr)
}
