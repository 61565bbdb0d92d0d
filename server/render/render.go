// Package render 提供构建常见响应正文的便捷函数。
package render

import (
	"github.com/oxigraph/oxhttp/common/json"
	"github.com/oxigraph/oxhttp/protocol"
)

const (
	contentTypeJSON  = "application/json; charset=utf-8"
	contentTypeText  = "text/plain; charset=utf-8"
	contentTypeBytes = "application/octet-stream"
)

// Text 以纯文本正文填充响应。
func Text(resp *protocol.Response, statusCode int, body string) {
	resp.SetStatusCode(statusCode)
	resp.Header.SetContentType(contentTypeText)
	resp.SetBodyString(body)
}

// Data 以给定内容类型的字节正文填充响应。
func Data(resp *protocol.Response, statusCode int, contentType string, body []byte) {
	resp.SetStatusCode(statusCode)
	if contentType == "" {
		contentType = contentTypeBytes
	}
	resp.Header.SetContentType(contentType)
	resp.SetBody(body)
}

// JSON 以 JSON 编码的正文填充响应。编码失败时返回错误，响应保持未修改。
func JSON(resp *protocol.Response, statusCode int, obj any) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	resp.SetStatusCode(statusCode)
	resp.Header.SetContentType(contentTypeJSON)
	resp.SetBody(b)
	return nil
}
