// Package client 提供面向调用方的同步 HTTP/1.1 客户端。
package client

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/oxigraph/oxhttp/common/config"
	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/utils"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/internal/nocopy"
	"github.com/oxigraph/oxhttp/network/dialer"
	"github.com/oxigraph/oxhttp/protocol"
	protoclient "github.com/oxigraph/oxhttp/protocol/client"
	"github.com/oxigraph/oxhttp/protocol/http1"
)

var errorInvalidURI = errs.New(errs.ErrInvalidURL, errs.ErrorTypePublic, "无效的网址")

// 禁止用于 HTTP(S) 的端口，参照 fetch 规范。须保持升序以便二分查找。
var badPorts = []int{
	1, 7, 9, 11, 13, 15, 17, 19, 20, 21, 22, 23, 25, 37, 42, 43, 53, 69, 77, 79, 87,
	95, 101, 102, 103, 104, 109, 110, 111, 113, 115, 117, 119, 123, 135, 137, 139,
	143, 161, 179, 389, 427, 465, 512, 513, 514, 515, 526, 530, 531, 532, 540, 548,
	554, 556, 563, 587, 601, 636, 989, 990, 993, 995, 1719, 1720, 1723, 2049, 3659,
	4045, 5060, 5061, 6000, 6566, 6665, 6666, 6667, 6668, 6669, 6697, 10080,
}

// Client 实现同步 HTTP/1.1 客户端。
//
// 禁止值拷贝 Client。可新建实例。
//
// Client 的方法是协程安全的。
type Client struct {
	noCopy nocopy.NoCopy

	options *config.ClientOptions

	mLock sync.Mutex
	m     map[string]*http1.HostClient // http 主机对应的主机客户端
	ms    map[string]*http1.HostClient // https 主机对应的主机客户端
}

// NewClient 创建给定选项的客户端。
func NewClient(opts ...config.ClientOption) (*Client, error) {
	opt := config.NewClientOptions(opts)
	c := &Client{
		options: opt,
		m:       make(map[string]*http1.HostClient),
		ms:      make(map[string]*http1.HostClient),
	}
	return c, nil
}

// GetOptions 获取客户端选项。
func (c *Client) GetOptions() *config.ClientOptions {
	return c.options
}

// CloseIdleConnections 关闭先前建立而当前闲置的长连接。
// 不会中断当前使用中的连接。
func (c *Client) CloseIdleConnections() {
	c.mLock.Lock()
	defer c.mLock.Unlock()
	for _, hc := range c.m {
		hc.CloseIdleConnections()
	}
	for _, hc := range c.ms {
		hc.CloseIdleConnections()
	}
}

// Do 执行给定的 http 请求并填充给定的 http 响应。
//
// Request 至少包含完整网址（包括方案和主机）。
//
// 该函数按客户端配置的 RedirectLimit 跟随重定向；上限为 0 时
// 把 3xx 响应原样返回给调用方。
func (c *Client) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	limit := int(c.options.RedirectLimit)
	if limit == 0 {
		return c.do(ctx, req, resp)
	}
	_, _, err := protoclient.DoRequestFollowRedirects(ctx, req, resp, req.URI().String(), limit, doerFunc(c.do))
	return err
}

// DoRedirects 执行给定的 http 请求并跟随至多 maxRedirectsCount 次重定向。
func (c *Client) DoRedirects(ctx context.Context, req *protocol.Request, resp *protocol.Response, maxRedirectsCount int) error {
	_, _, err := protoclient.DoRequestFollowRedirects(ctx, req, resp, req.URI().String(), maxRedirectsCount, doerFunc(c.do))
	return err
}

// Get 向给定网址发送 GET 请求，返回状态码和响应正文。
func (c *Client) Get(ctx context.Context, url string, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return protoclient.GetURL(ctx, url, doerFunc(c.do), int(c.options.RedirectLimit), requestOptions...)
}

// Post 向给定网址发送 POST 请求，返回状态码和响应正文。
func (c *Client) Post(ctx context.Context, url string, postBody []byte, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	return protoclient.PostURL(ctx, url, postBody, doerFunc(c.do), int(c.options.RedirectLimit), requestOptions...)
}

// do 执行单次交换，不跟随重定向。
func (c *Client) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	uri := req.URI()
	if uri == nil || len(uri.Host()) == 0 {
		return errorInvalidURI
	}

	// 仅支持 http 和 https
	isTLS := false
	scheme := uri.Scheme()
	if bytes.Equal(scheme, bytestr.StrHTTPS) {
		isTLS = true
	} else if !bytes.Equal(scheme, bytestr.StrHTTP) {
		return errs.New(errs.ErrUnsupportedScheme, errs.ErrorTypePublic, string(scheme))
	}

	if err := validatePort(uri); err != nil {
		return err
	}

	// Host 标头必须与网址的授权机构一致
	req.Header.SetHostBytes(uri.Host())

	hc := c.hostClient(string(uri.Host()), isTLS)
	return hc.Do(ctx, req, resp)
}

// hostClient 返回主机对应的客户端，必要时创建。
func (c *Client) hostClient(host string, isTLS bool) *http1.HostClient {
	c.mLock.Lock()
	defer c.mLock.Unlock()

	m := c.m
	if isTLS {
		m = c.ms
	}
	if hc := m[host]; hc != nil {
		return hc
	}

	hc := http1.NewHostClient(&http1.ClientOptions{
		Name:                     c.options.Name,
		NoDefaultUserAgentHeader: c.options.NoDefaultUserAgentHeader,
		Dialer:                   dialer.DefaultDialer(),
		DialTimeout:              c.options.DialTimeout,
		TLSConfig:                c.options.TLSConfig,
		RequestTimeout:           c.options.RequestTimeout,
		MaxResponseBodySize:      c.options.MaxResponseBodySize,
		KeepAlive:                c.options.KeepAlive,
		DisableDecompression:     c.options.DisableDecompression,
		ResponseBodyStream:       c.options.ResponseBodyStream,
	}, utils.AddMissingPort(host, isTLS), isTLS)
	m[host] = hc
	return hc
}

// validatePort 拒绝 fetch 规范禁止的端口。
func validatePort(uri *protocol.URI) error {
	portBytes := uri.Port()
	if len(portBytes) == 0 {
		return nil
	}
	port, err := bytesconv.ParseUint(portBytes)
	if err != nil {
		return errorInvalidURI
	}
	if i := sort.SearchInts(badPorts, port); i < len(badPorts) && badPorts[i] == port {
		return errs.New(errs.ErrInvalidURL, errs.ErrorTypePublic, "该端口不可用于 HTTP(S)")
	}
	return nil
}

type doerFunc func(ctx context.Context, req *protocol.Request, resp *protocol.Response) error

func (f doerFunc) Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	return f(ctx, req, resp)
}
