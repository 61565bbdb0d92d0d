package ext

import (
	"bytes"

	errs "github.com/oxigraph/oxhttp/common/errors"
)

// HeaderScanner 逐行扫描标头块。
//
// 接收时容忍无 CR 的 LF 行终止符；拒绝过时的折行。
type HeaderScanner struct {
	B     []byte
	Key   []byte
	Value []byte

	// HLen 为已扫描的字节数，含终止空行。
	HLen int

	Err error
}

// Next 推进到下一个标头字段。返回 false 表示扫描结束或出错。
func (s *HeaderScanner) Next() bool {
	bLen := len(s.B)

	// 空行表示标头块结束
	if bLen >= 2 && s.B[0] == '\r' && s.B[1] == '\n' {
		s.B = s.B[2:]
		s.HLen += 2
		return false
	}
	if bLen >= 1 && s.B[0] == '\n' {
		s.B = s.B[1:]
		s.HLen++
		return false
	}
	if bLen == 0 {
		s.Err = errNeedMore
		return false
	}

	// 过时的折行不被支持
	if s.B[0] == ' ' || s.B[0] == '\t' {
		s.Err = errs.NewPublic("标头中存在过时的折行")
		return false
	}

	n := bytes.IndexByte(s.B, '\n')
	if n < 0 {
		s.Err = errNeedMore
		return false
	}
	line := s.B[:n]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		s.Err = errs.NewPublicf("标头行缺少冒号：%q", line)
		return false
	}
	s.Key = line[:colon]
	if len(s.Key) == 0 {
		s.Err = errs.NewPublic("标头名称为空")
		return false
	}
	// 名称和冒号之间不允许有空白
	if s.Key[len(s.Key)-1] == ' ' || s.Key[len(s.Key)-1] == '\t' {
		s.Err = errs.NewPublicf("标头名称后存在非法空白：%q", s.Key)
		return false
	}
	s.Value = trimOWS(line[colon+1:])

	s.B = s.B[n+1:]
	s.HLen += n + 1
	return true
}

// trimOWS 裁剪首尾的 SP 和 HTAB。
func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}
