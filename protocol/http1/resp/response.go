package resp

import (
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol"
	"github.com/oxigraph/oxhttp/protocol/consts"
	"github.com/oxigraph/oxhttp/protocol/http1/ext"
)

// Read 读取完整响应：状态行、标头块和正文。
//
// skipBody 为真（HEAD 请求的响应）时不读正文。
func Read(resp *protocol.Response, r network.Reader, skipBody bool, maxBodySize int) error {
	if err := ReadHeader(&resp.Header, r, 0); err != nil {
		return err
	}
	return ReadBodyOnly(resp, r, skipBody, maxBodySize)
}

// ReadBodyOnly 在标头已读取完毕后读取正文。
func ReadBodyOnly(resp *protocol.Response, r network.Reader, skipBody bool, maxBodySize int) error {
	resp.SkipBody = skipBody || !resp.HasBodySection()
	if resp.SkipBody {
		return nil
	}

	body, err := ext.ReadBody(r, resp.Header.ContentLength(), maxBodySize, nil)
	if err != nil {
		return err
	}
	resp.SetBodyRaw(body)
	resp.Header.SetContentLength(len(body))
	return nil
}

// ReadBodyStream 以流式正文读取响应。releaseFn 在正文读毕或出错时回调。
//
// 标头已读取完毕后调用。
func ReadBodyStream(resp *protocol.Response, r network.Reader, skipBody bool, releaseFn func(error) error) error {
	resp.SkipBody = skipBody || !resp.HasBodySection()
	if resp.SkipBody {
		// 没有正文段，直接归还连接
		if releaseFn != nil {
			return releaseFn(nil)
		}
		return nil
	}
	resp.SetBodyStream(ext.AcquireBodyStream(r, resp.Header.ContentLength(), releaseFn), resp.Header.ContentLength())
	return nil
}

// Write 将响应序列化到 w。未刷新，调用方负责 Flush。
//
// 正文段的存在性规则：1xx、204、304 和 HEAD 的响应没有正文段，
// 其余响应必有正文段（定长或分块），以便长连接对端无须阻塞等待。
func Write(resp *protocol.Response, w network.Writer) error {
	hasBodySection := resp.HasBodySection()

	if !resp.IsBodyStream() {
		if hasBodySection {
			resp.Header.SetContentLength(resp.BodyLength())
		} else if !resp.SkipBody {
			// 1xx/204/304 不发出任何正文框架标头
			resp.Header.SetContentLength(consts.HeaderContentLengthIdentity)
		}
	}

	if err := WriteHeader(&resp.Header, w); err != nil {
		return err
	}

	if !hasBodySection {
		return nil
	}

	if resp.IsBodyStream() {
		if resp.Header.IsChunked() {
			return ext.WriteBodyChunked(w, resp.BodyStream())
		}
		return ext.WriteBodyFixedSize(w, resp.BodyStream(), int64(resp.Header.ContentLength()))
	}

	_, err := w.WriteBinary(resp.Body())
	return err
}
