package http1

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime/debug"
	"time"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/hlog"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	reqI "github.com/oxigraph/oxhttp/protocol/http1/req"
	respI "github.com/oxigraph/oxhttp/protocol/http1/resp"
)

// Handler 处理一个请求并填充响应。必须可安全并发调用。
type Handler func(c context.Context, req *protocol.Request, resp *protocol.Response)

// Option 表示 HTTP/1.1 服务器选项。
type Option struct {
	DisableKeepalive   bool          // 是否禁用长连接
	ServerName         []byte        // 服务器名称，作为 Server 标头的兜底值
	MaxHeaderSize      int           // 标头块上限
	MaxRequestBodySize int           // 请求正文上限
	ReadTimeout        time.Duration // 单次交换的读写截止时长
	IdleTimeout        time.Duration // 长连接等待下一请求的闲置超时
}

// Server 表示 HTTP/1.1 连接服务循环。
type Server struct {
	Option

	// Handler 处理业务请求，由所有连接共享。
	Handler Handler
}

// NewServer 创建 HTTP/1.1 服务器。
func NewServer() *Server {
	return &Server{}
}

// Serve 在单个连接上顺序服务 1..N 个请求。
//
// 对端在新请求首字节之前断开时静默返回，不记录日志。
func (s *Server) Serve(c context.Context, conn network.Conn) (err error) {
	var (
		req  protocol.Request
		resp protocol.Response

		connRequestNum  = uint64(0)
		connectionClose = s.DisableKeepalive
	)

	defer func() {
		conn.Release()
	}()

	for {
		connRequestNum++

		if connRequestNum > 1 && s.IdleTimeout > 0 {
			// 长连接在闲置超时内等待下一个请求的首字节
			conn.SetReadTimeout(s.IdleTimeout)
			if _, err = conn.Peek(1); err != nil {
				// 只是闲置超时或对端关闭了长连接，静默退出
				return nil
			}
		}

		if s.ReadTimeout > 0 {
			conn.SetReadTimeout(s.ReadTimeout)
			conn.SetWriteTimeout(s.ReadTimeout)
		}

		// 读取请求标头
		err = reqI.ReadHeader(&req.Header, conn, s.MaxHeaderSize)
		if err == nil {
			// 服务器接受 absolute-form，但其授权机构必须与 Host 标头一致
			err = checkAbsoluteForm(&req)
		}

		if err == nil {
			if expect := req.Header.Peek("Expect"); len(expect) > 0 && !bytes.EqualFold(expect, bytestr.Str100Continue) {
				// 不支持的 Expect 值
				resp.Reset()
				resp.SetStatusCode(consts.StatusExpectationFailed)
				resp.Header.SetContentTypeBytes(bytestr.StrTextPlainUTF8)
				resp.SetBodyString("Expect header value is not supported")
				if len(s.ServerName) > 0 {
					resp.Header.SetServerBytes(s.ServerName)
				}
				resp.SetConnectionClose()
				if err = respI.Write(&resp, conn); err != nil {
					return err
				}
				return conn.Flush()
			}
		}

		if err == nil && req.MayContinue() {
			// 先回复 100 Continue 再读正文
			if _, err = conn.WriteBinary(bytestr.StrResponseContinue); err != nil {
				return err
			}
			if err = conn.Flush(); err != nil {
				return err
			}
		}

		if err == nil {
			err = reqI.ReadBody(&req, conn, s.MaxRequestBodySize)
		}

		if err != nil {
			err = normalizeConnErr(conn, err)
			if errors.Is(err, errs.ErrNothingRead) {
				// 对端未发送任何字节即断开
				return nil
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				// 请求中途对端关闭，无法回写响应
				return errs.New(errs.ErrConnectionClosed, errs.ErrorTypePrivate, "读取请求时对端关闭")
			}
			// 格式良好的解析错误回写一个合成响应后关闭连接
			writeErrorResponse(conn, &resp, s.ServerName, err)
			return err
		}

		connectionClose = connectionClose || req.Header.ConnectionClose()
		if !req.Header.IsHTTP11() && !req.Header.ExplicitKeepAlive() {
			// HTTP/1.0 未显式声明 keep-alive 即短连接
			connectionClose = true
		}

		// 调用业务处理器，恐慌转为 500
		s.invokeHandler(c, &req, &resp)

		if len(s.ServerName) > 0 && len(resp.Header.Server()) == 0 {
			resp.Header.SetServerBytes(s.ServerName)
		}

		resp.SkipBody = resp.SkipBody || req.Header.IsHead()

		connectionClose = connectionClose || resp.ConnectionClose()
		if connectionClose {
			resp.Header.SetConnectionClose(true)
		}

		if err = respI.Write(&resp, conn); err != nil {
			return err
		}
		if err = conn.Flush(); err != nil {
			return err
		}
		conn.Release()

		if connectionClose {
			return nil
		}

		req.Reset()
		resp.Reset()
	}
}

// invokeHandler 捕获处理器恐慌并转为 500 响应。
func (s *Server) invokeHandler(c context.Context, req *protocol.Request, resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			hlog.SystemLogger().Errorf("[Recovery] 处理器恐慌已恢复：%v\n%s", r, debug.Stack())
			resp.Reset()
			resp.SetStatusCode(consts.StatusInternalServerError)
			resp.Header.SetContentTypeBytes(bytestr.StrTextPlainUTF8)
			resp.SetBodyString("Internal Server Error")
			resp.SetConnectionClose()
		}
	}()
	s.Handler(c, req, resp)
}

// checkAbsoluteForm 校验 absolute-form 请求目标与 Host 标头的一致性，
// 并把目标重写为 origin-form，统一后续处理。
func checkAbsoluteForm(req *protocol.Request) error {
	target := req.Header.RequestURI()
	if len(target) == 0 || target[0] == '/' {
		return nil
	}
	uri := protocol.AcquireURI()
	defer protocol.ReleaseURI(uri)
	uri.Parse(nil, target)
	host := req.Header.Host()
	if len(host) > 0 && string(uri.Host()) != string(hostToLower(host)) {
		return errs.New(errs.ErrBadRequest, errs.ErrorTypePublic, "absolute-form 与 Host 标头不一致")
	}
	req.Header.SetHostBytes(uri.Host())
	req.Header.SetRequestURIBytes(uri.RequestURI())
	return nil
}

func hostToLower(host []byte) []byte {
	lower := append([]byte(nil), host...)
	for i, c := range lower {
		if c >= 'A' && c <= 'Z' {
			lower[i] = c + 'a' - 'A'
		}
	}
	return lower
}

// writeErrorResponse 按错误类别写出合成响应：431、413、408 或 400。
func writeErrorResponse(conn network.Conn, resp *protocol.Response, serverName []byte, err error) {
	resp.Reset()
	switch {
	case errors.Is(err, errs.ErrHeaderTooLarge):
		resp.SetStatusCode(consts.StatusRequestHeaderFieldsTooLarge)
		resp.SetBodyString("request header fields too large")
	case errors.Is(err, errs.ErrBodyTooLarge):
		resp.SetStatusCode(consts.StatusRequestEntityTooLarge)
		resp.SetBodyString("request entity too large")
	case errors.Is(err, errs.ErrTimeout):
		resp.SetStatusCode(consts.StatusRequestTimeout)
		resp.SetBodyString("request timeout")
	default:
		resp.SetStatusCode(consts.StatusBadRequest)
		resp.SetBodyString(err.Error())
	}
	resp.Header.SetContentTypeBytes(bytestr.StrTextPlainUTF8)
	if len(serverName) > 0 {
		resp.Header.SetServerBytes(serverName)
	}
	resp.SetConnectionClose()

	if err := respI.Write(resp, conn); err != nil {
		return
	}
	conn.Flush()
}
