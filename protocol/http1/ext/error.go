// Package ext 实现 HTTP/1.1 线路编解码的共用部件：标头块读取、
// 标头扫描器以及三种正文读取模式（定长、分块、读至关闭）。
package ext

import (
	"fmt"

	errs "github.com/oxigraph/oxhttp/common/errors"
)

var (
	errNeedMore     = errs.New(errs.ErrNeedMore, errs.ErrorTypePublic, "无法找到标头块结尾")
	errBodyTooLarge = errs.New(errs.ErrBodyTooLarge, errs.ErrorTypePublic, "ext 读取正文")
)

// HeaderError 包装标头解析错误，标注消息类别（request 或 response）。
func HeaderError(typ string, err, errParse error, b []byte) error {
	if errParse != errNeedMore {
		return headerErrorMsg(typ, errParse, b)
	}
	if err == nil {
		return errNeedMore
	}
	return headerErrorMsg(typ, err, b)
}

func headerErrorMsg(typ string, err error, b []byte) error {
	return errs.NewPublicf("解析 %s 标头出错：%s。缓冲区大小=%d，内容：%s", typ, err, len(b), BufferSnippet(b))
}

// BufferSnippet 返回字节切片的片段。
//
// 形如: <前缀 20 位>...<后缀=总长度-20位>
//
// 若前缀长 >= 后缀长，则直接返回原始切片。
func BufferSnippet(b []byte) string {
	n := len(b)
	start := 20
	end := n - start
	if start >= end {
		start = n
		end = n
	}
	bStart, bEnd := b[:start], b[end:]
	if len(bEnd) == 0 {
		return fmt.Sprintf("%q", b)
	}
	return fmt.Sprintf("%q...%q", bStart, bEnd)
}
