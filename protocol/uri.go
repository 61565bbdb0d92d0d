package protocol

import (
	"bytes"
	"sync"

	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/internal/nocopy"
)

var uriPool = &sync.Pool{
	New: func() any {
		return &URI{}
	},
}

// AcquireURI 从池中获取空白 URI。用完应通过 ReleaseURI 释放，以降低 GC 压力。
func AcquireURI() *URI {
	return uriPool.Get().(*URI)
}

// ReleaseURI 将 AcquireURI 获取的 URI 释放回池。释放后切勿再使用。
func ReleaseURI(u *URI) {
	u.Reset()
	uriPool.Put(u)
}

// URI 表示解析后的请求网址。
//
// 禁止值拷贝。可新建实例或使用 CopyTo。
type URI struct {
	noCopy nocopy.NoCopy

	scheme      []byte
	host        []byte
	path        []byte
	queryString []byte

	fullURI []byte
}

// Reset 重置网址。
func (u *URI) Reset() {
	u.scheme = u.scheme[:0]
	u.host = u.host[:0]
	u.path = u.path[:0]
	u.queryString = u.queryString[:0]
	u.fullURI = u.fullURI[:0]
}

// CopyTo 将 u 深拷贝到 dst。
func (u *URI) CopyTo(dst *URI) {
	dst.Reset()
	dst.scheme = append(dst.scheme, u.scheme...)
	dst.host = append(dst.host, u.host...)
	dst.path = append(dst.path, u.path...)
	dst.queryString = append(dst.queryString, u.queryString...)
}

// Scheme 返回网址方案，如 http、https。默认 http。
func (u *URI) Scheme() []byte {
	if len(u.scheme) == 0 {
		return bytestr.StrHTTP
	}
	return u.scheme
}

// SetScheme 设置网址方案。
func (u *URI) SetScheme(scheme string) {
	u.scheme = append(u.scheme[:0], scheme...)
	bytesconv.LowercaseBytes(u.scheme)
	u.fullURI = u.fullURI[:0]
}

func (u *URI) SetSchemeBytes(scheme []byte) {
	u.scheme = append(u.scheme[:0], scheme...)
	bytesconv.LowercaseBytes(u.scheme)
	u.fullURI = u.fullURI[:0]
}

// IsHTTPS 汇报方案是否为 https。
func (u *URI) IsHTTPS() bool {
	return bytes.Equal(u.Scheme(), bytestr.StrHTTPS)
}

// Host 返回主机（可能带端口），始终为小写。
func (u *URI) Host() []byte {
	return u.host
}

// SetHost 设置主机。
func (u *URI) SetHost(host string) {
	u.host = append(u.host[:0], host...)
	bytesconv.LowercaseBytes(u.host)
	u.fullURI = u.fullURI[:0]
}

func (u *URI) SetHostBytes(host []byte) {
	u.host = append(u.host[:0], host...)
	bytesconv.LowercaseBytes(u.host)
	u.fullURI = u.fullURI[:0]
}

// Hostname 返回不带端口的主机名。
func (u *URI) Hostname() []byte {
	host := u.Host()
	if i := bytes.LastIndexByte(host, ':'); i > bytes.LastIndexByte(host, ']') {
		return host[:i]
	}
	return host
}

// Port 返回端口字节。没有显式端口时返回空。
func (u *URI) Port() []byte {
	host := u.Host()
	if i := bytes.LastIndexByte(host, ':'); i > bytes.LastIndexByte(host, ']') {
		return host[i+1:]
	}
	return nil
}

// Path 返回网址路径。默认 /。
func (u *URI) Path() []byte {
	if len(u.path) == 0 {
		return bytestr.StrSlash
	}
	return u.path
}

// SetPath 设置网址路径。
func (u *URI) SetPath(path string) {
	u.path = append(u.path[:0], path...)
	u.fullURI = u.fullURI[:0]
}

func (u *URI) SetPathBytes(path []byte) {
	u.path = append(u.path[:0], path...)
	u.fullURI = u.fullURI[:0]
}

// QueryString 返回查询串（不带问号）。
func (u *URI) QueryString() []byte {
	return u.queryString
}

// SetQueryString 设置查询串。
func (u *URI) SetQueryString(queryString string) {
	u.queryString = append(u.queryString[:0], queryString...)
	u.fullURI = u.fullURI[:0]
}

func (u *URI) SetQueryStringBytes(queryString []byte) {
	u.queryString = append(u.queryString[:0], queryString...)
	u.fullURI = u.fullURI[:0]
}

// RequestURI 返回 origin-form 的请求目标：/path?query。
func (u *URI) RequestURI() []byte {
	dst := make([]byte, 0, len(u.Path())+1+len(u.queryString))
	dst = append(dst, u.Path()...)
	if len(u.queryString) > 0 {
		dst = append(dst, '?')
		dst = append(dst, u.queryString...)
	}
	return dst
}

// FullURI 返回完整网址 {Scheme}://{Host}{RequestURI}。
func (u *URI) FullURI() []byte {
	if len(u.fullURI) == 0 {
		u.fullURI = u.AppendBytes(u.fullURI)
	}
	return u.fullURI
}

// AppendBytes 将完整网址追加到 dst。
func (u *URI) AppendBytes(dst []byte) []byte {
	dst = append(dst, u.Scheme()...)
	dst = append(dst, bytestr.StrColonSlashSlash...)
	dst = append(dst, u.Host()...)
	dst = append(dst, u.RequestURI()...)
	return dst
}

// String 返回完整网址字符串。
func (u *URI) String() string {
	return string(u.FullURI())
}

// Parse 以 host 和 origin-form 或 absolute-form 的 uri 初始化网址。
func (u *URI) Parse(host, uri []byte) {
	u.parse(host, uri)
}

func (u *URI) parse(host, uri []byte) {
	u.Reset()

	if n := bytes.Index(uri, bytestr.StrColonSlashSlash); n >= 0 {
		// absolute-form
		u.SetSchemeBytes(uri[:n])
		uri = uri[n+len(bytestr.StrColonSlashSlash):]
		n = bytes.IndexByte(uri, '/')
		if n < 0 {
			host = uri
			uri = bytestr.StrSlash
		} else {
			host = uri[:n]
			uri = uri[n:]
		}
	}
	u.SetHostBytes(host)

	queryIndex := bytes.IndexByte(uri, '?')
	if queryIndex >= 0 {
		u.SetPathBytes(uri[:queryIndex])
		u.SetQueryStringBytes(uri[queryIndex+1:])
	} else {
		u.SetPathBytes(uri)
	}
}

// Update 按字符串 newURI 更新网址。支持绝对网址、无方案网址、绝对路径和相对路径。
func (u *URI) Update(newURI string) {
	u.UpdateBytes(bytesconv.S2b(newURI))
}

// UpdateBytes 按字节切片 newURI 更新网址，用于重定向 Location 的解析。
func (u *URI) UpdateBytes(newURI []byte) {
	if len(newURI) == 0 {
		return
	}

	if n := bytes.Index(newURI, bytestr.StrColonSlashSlash); n >= 0 {
		// 绝对网址整体替换
		u.parse(nil, newURI)
		return
	}

	if newURI[0] == '/' {
		if len(newURI) > 1 && newURI[1] == '/' {
			// 无方案网址：沿用当前方案
			scheme := append([]byte(nil), u.Scheme()...)
			u.parse(nil, append(append(scheme, bytestr.StrColonSlashSlash...), newURI[2:]...))
			return
		}
		// 绝对路径替换路径和查询串
		u.queryString = u.queryString[:0]
		u.fullURI = u.fullURI[:0]
		queryIndex := bytes.IndexByte(newURI, '?')
		if queryIndex >= 0 {
			u.SetPathBytes(newURI[:queryIndex])
			u.SetQueryStringBytes(newURI[queryIndex+1:])
		} else {
			u.SetPathBytes(newURI)
		}
		return
	}

	// 相对路径基于当前路径的目录解析
	path := u.Path()
	if i := bytes.LastIndexByte(path, '/'); i >= 0 {
		path = path[:i+1]
	}
	merged := make([]byte, 0, len(path)+len(newURI))
	merged = append(merged, path...)

	queryIndex := bytes.IndexByte(newURI, '?')
	if queryIndex >= 0 {
		u.SetQueryStringBytes(newURI[queryIndex+1:])
		merged = append(merged, newURI[:queryIndex]...)
	} else {
		u.queryString = u.queryString[:0]
		merged = append(merged, newURI...)
	}
	u.SetPathBytes(normalizePath(merged))
}

// normalizePath 移除路径中的 . 和 .. 片段。
func normalizePath(path []byte) []byte {
	if len(path) == 0 || path[0] != '/' {
		path = append([]byte{'/'}, path...)
	}

	var segments [][]byte
	for _, seg := range bytes.Split(path[1:], bytestr.StrSlash) {
		switch {
		case bytes.Equal(seg, []byte(".")):
			// 跳过
		case bytes.Equal(seg, []byte("..")):
			if len(segments) > 0 {
				segments = segments[:len(segments)-1]
			}
		default:
			segments = append(segments, seg)
		}
	}

	dst := make([]byte, 0, len(path))
	for _, seg := range segments {
		dst = append(dst, '/')
		dst = append(dst, seg...)
	}
	if len(dst) == 0 {
		dst = append(dst, '/')
	} else if path[len(path)-1] == '/' && dst[len(dst)-1] != '/' {
		// 保留目录结尾的斜杠
		dst = append(dst, '/')
	}
	return dst
}
