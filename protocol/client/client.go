// Package client 定义客户端引擎的公共接口和重定向跟随循环。
package client

import (
	"bytes"
	"context"

	"github.com/oxigraph/oxhttp/common/config"
	"github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

var errTooManyRedirects = errors.New(errors.ErrTooManyRedirects, errors.ErrorTypePublic, "执行请求时检测到太多重定向")

// Doer 表示可执行单次请求响应交换的客户端。
type Doer interface {
	Do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error
}

// HostClient 表示针对单个主机的客户端。
type HostClient interface {
	Doer
	CloseIdleConnections()
	ShouldRemove() bool
	ConnectionCount() int
}

// DoRequestFollowRedirects 执行请求并跟随至多 maxRedirectsCount 次重定向。
//
// 301/302/303 重定向时方法降级为 GET 并丢弃正文（HEAD 保持不变）；
// 307/308 保留方法和正文。循环重定向仅由计数器约束。
func DoRequestFollowRedirects(ctx context.Context, req *protocol.Request, resp *protocol.Response, url string, maxRedirectsCount int, c Doer) (statusCode int, body []byte, err error) {
	redirectsCount := 0

	for {
		req.SetRequestURI(url)
		req.ParseURI()

		if err = c.Do(ctx, req, resp); err != nil {
			break
		}
		statusCode = resp.Header.StatusCode()
		if !StatusCodeIsRedirect(statusCode) {
			break
		}

		location := resp.Header.PeekLocation()
		if len(location) == 0 {
			// 没有 Location 的 3xx 原样返回给调用方
			break
		}

		// 预算为 0 即不跟随，把 3xx 原样交给调用方
		if maxRedirectsCount <= 0 {
			break
		}
		redirectsCount++
		if redirectsCount > maxRedirectsCount {
			err = errTooManyRedirects
			break
		}

		// 排空并丢弃中间响应的正文，使连接可以复用
		if _, err = resp.BodyE(); err != nil {
			break
		}

		// 301/302/303 降级为 GET，除非原方法为 HEAD；307/308 保留方法和正文
		switch statusCode {
		case consts.StatusMovedPermanently, consts.StatusFound, consts.StatusSeeOther:
			if !bytes.Equal(req.Header.Method(), bytestr.StrHead) {
				req.Header.SetMethodBytes(bytestr.StrGet)
			}
			req.ResetBody()
			req.Header.SetContentLength(0)
		}

		url = getRedirectURL(url, location)
		resp.Reset()
	}

	return statusCode, resp.Body(), err
}

// StatusCodeIsRedirect 汇报状态码是否为可跟随的重定向。
func StatusCodeIsRedirect(statusCode int) bool {
	return statusCode == consts.StatusMovedPermanently ||
		statusCode == consts.StatusFound ||
		statusCode == consts.StatusSeeOther ||
		statusCode == consts.StatusTemporaryRedirect ||
		statusCode == consts.StatusPermanentRedirect
}

// GetURL 向给定网址发送 GET 请求并返回状态码和响应正文。跟随重定向。
func GetURL(ctx context.Context, url string, c Doer, maxRedirectsCount int, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.SetOptions(requestOptions...)

	resp := protocol.AcquireResponse()
	defer protocol.ReleaseResponse(resp)

	statusCode, body, err = DoRequestFollowRedirects(ctx, req, resp, url, maxRedirectsCount, c)
	body = append([]byte(nil), body...)
	return statusCode, body, err
}

// PostURL 向给定网址发送 POST 请求并返回状态码和响应正文。跟随重定向。
func PostURL(ctx context.Context, url string, postBody []byte, c Doer, maxRedirectsCount int, requestOptions ...config.RequestOption) (statusCode int, body []byte, err error) {
	req := protocol.AcquireRequest()
	defer protocol.ReleaseRequest(req)
	req.Header.SetMethodBytes(bytestr.StrPost)
	req.SetBody(postBody)
	req.SetOptions(requestOptions...)

	resp := protocol.AcquireResponse()
	defer protocol.ReleaseResponse(resp)

	statusCode, body, err = DoRequestFollowRedirects(ctx, req, resp, url, maxRedirectsCount, c)
	body = append([]byte(nil), body...)
	return statusCode, body, err
}

// 由当前网址和 Location 标头计算下一跳网址，相对路径基于当前网址解析。
func getRedirectURL(baseURL string, location []byte) string {
	u := protocol.AcquireURI()
	u.Update(baseURL)
	u.UpdateBytes(location)
	redirectURL := u.String()
	protocol.ReleaseURI(u)
	return redirectURL
}
