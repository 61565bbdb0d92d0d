package utils

import (
	"bytes"
	"io"

	"github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

var errBrokenChunk = errors.NewPublic("无法在分块数据结尾找到 crlf")

// ParseChunkSize 解析 r 中下一个分块的大小行。
// 分块扩展会被忽略；分块大小超过上限时报错。
func ParseChunkSize(r network.Reader) (int, error) {
	n, err := bytesconv.ReadHexInt(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return -1, err
	}
	if n > consts.DefaultMaxChunkSize {
		return -1, errors.NewPublicf("分块大小 %d 超过上限 %d", n, consts.DefaultMaxChunkSize)
	}
	skipped := 0
	for {
		c, err := r.ReadByte()
		if err != nil {
			return -1, errors.NewPublicf("无法在块大小的后面读到 '\r': %s", err)
		}
		if c == '\r' {
			break
		}
		// 跳过块大小后尾随的空白和分块扩展
		skipped++
		if skipped > consts.DefaultMaxChunkSize {
			return -1, errors.NewPublic("分块扩展过长")
		}
	}
	c, err := r.ReadByte()
	if err != nil {
		return -1, errors.NewPublicf("无法在块大小的后面读到 '\n': %s", err)
	}
	if c != '\n' {
		return -1, errors.NewPublicf("块大小的后面发现异常字符 %q。期望 %q", c, '\n')
	}
	return n, nil
}

// SkipCRLF 跳过读取器开头的回车换行符 crlf。
func SkipCRLF(reader network.Reader) error {
	p, err := reader.Peek(len(bytestr.StrCRLF))
	reader.Skip(len(p))
	if err != nil {
		return err
	}
	if !bytes.Equal(p, bytestr.StrCRLF) {
		return errBrokenChunk
	}

	return nil
}
