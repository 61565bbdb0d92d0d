// Package compress 提供响应正文的 gzip 和 deflate 解压。
// 仅在接收侧使用；发送侧从不压缩。
package compress

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"
	"sync"
)

var (
	gzipReaderPool  sync.Pool
	flateReaderPool sync.Pool
)

// AcquireGzipReader 获取读取 r 的 gzip 解压读取器。
func AcquireGzipReader(r io.Reader) (*gzip.Reader, error) {
	v := gzipReaderPool.Get()
	if v == nil {
		return gzip.NewReader(r)
	}
	zr := v.(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		return nil, err
	}
	return zr, nil
}

// ReleaseGzipReader 将 gzip 解压读取器放回池中。
func ReleaseGzipReader(zr *gzip.Reader) {
	zr.Close()
	gzipReaderPool.Put(zr)
}

// AcquireFlateReader 获取读取 r 的 deflate 解压读取器。
//
// 同时兼容裸 deflate 流和带 zlib 头的流：一些服务器
// 对 `Content-Encoding: deflate` 实际发送的是 zlib 数据。
func AcquireFlateReader(r io.Reader) (io.ReadCloser, error) {
	pr, err := newPeekReader(r)
	if err != nil {
		return nil, err
	}
	if pr.zlibHeader() {
		zr, err := zlib.NewReader(pr)
		if err != nil {
			return nil, err
		}
		// 包一层以免 zlib 读取器混入裸 deflate 的读取器池
		return zlibReader{zr}, nil
	}
	v := flateReaderPool.Get()
	if v == nil {
		return flate.NewReader(pr), nil
	}
	zr := v.(io.ReadCloser)
	if err := zr.(flate.Resetter).Reset(pr, nil); err != nil {
		return nil, err
	}
	return zr, nil
}

// ReleaseFlateReader 将 deflate 解压读取器放回池中。
func ReleaseFlateReader(zr io.ReadCloser) {
	zr.Close()
	if _, ok := zr.(flate.Resetter); ok {
		flateReaderPool.Put(zr)
	}
}

// AppendGunzipBytes 解压 gzip 数据 src 并追加到 dst。
func AppendGunzipBytes(dst, src []byte) ([]byte, error) {
	zr, err := AcquireGzipReader(bytes.NewReader(src))
	if err != nil {
		return dst, err
	}
	dst, err = appendAll(dst, zr)
	ReleaseGzipReader(zr)
	return dst, err
}

// AppendInflateBytes 解压 deflate 数据 src 并追加到 dst。
func AppendInflateBytes(dst, src []byte) ([]byte, error) {
	zr, err := AcquireFlateReader(bytes.NewReader(src))
	if err != nil {
		return dst, err
	}
	dst, err = appendAll(dst, zr)
	ReleaseFlateReader(zr)
	return dst, err
}

func appendAll(dst []byte, r io.Reader) ([]byte, error) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		dst = append(dst, buf[:n]...)
		if err != nil {
			if err == io.EOF {
				return dst, nil
			}
			return dst, err
		}
	}
}

type zlibReader struct {
	io.ReadCloser
}

// peekReader 预读前两个字节以探测 zlib 头。
type peekReader struct {
	r    io.Reader
	head [2]byte
	n    int
	off  int
}

func newPeekReader(r io.Reader) (*peekReader, error) {
	pr := &peekReader{r: r}
	for pr.n < 2 {
		m, err := r.Read(pr.head[pr.n:2])
		pr.n += m
		if err != nil {
			if err == io.EOF {
				return pr, nil
			}
			return nil, err
		}
	}
	return pr, nil
}

func (pr *peekReader) zlibHeader() bool {
	// RFC 1950：CMF 的低四位为 8，且 (CMF<<8|FLG) 可被 31 整除
	if pr.n < 2 {
		return false
	}
	h := uint16(pr.head[0])<<8 | uint16(pr.head[1])
	return pr.head[0]&0x0f == 8 && h%31 == 0
}

func (pr *peekReader) Read(p []byte) (int, error) {
	if pr.off < pr.n {
		m := copy(p, pr.head[pr.off:pr.n])
		pr.off += m
		return m, nil
	}
	return pr.r.Read(p)
}

func (pr *peekReader) ReadByte() (byte, error) {
	if pr.off < pr.n {
		b := pr.head[pr.off]
		pr.off++
		return b, nil
	}
	var one [1]byte
	for {
		n, err := pr.r.Read(one[:])
		if n == 1 {
			return one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}
