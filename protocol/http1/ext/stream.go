package ext

import (
	"io"
	"sync"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/utils"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

var bodyStreamPool = sync.Pool{
	New: func() any {
		return &bodyStream{}
	},
}

// bodyStream 将网络读取器包装为遵循正文框架的 io.Reader。
//
// 三种模式：定长（sizeLeft）、分块（chunkLeft）、读取至连接关闭。
// 分块模式在读到终止块后保持 EOF：后续读取恒返回 (0, io.EOF)。
type bodyStream struct {
	reader        network.Reader
	contentLength int
	sizeLeft      int
	chunkLeft     int
	finished      bool
	err           error

	// releaseFn 在正文完全读毕（err 为空）或读取出错时回调一次，
	// 用于把底层连接归还连接池或丢弃。
	releaseFn func(readErr error) error
}

// AcquireBodyStream 创建遵循 contentLength 框架的正文流。
func AcquireBodyStream(r network.Reader, contentLength int, releaseFn func(error) error) io.Reader {
	bs := bodyStreamPool.Get().(*bodyStream)
	bs.reader = r
	bs.contentLength = contentLength
	bs.sizeLeft = contentLength
	bs.chunkLeft = 0
	bs.finished = false
	bs.err = nil
	bs.releaseFn = releaseFn
	return bs
}

// ReleaseBodyStream 排空并释放正文流。
//
// 未读完的流会被排空；排空失败时连接按出错释放。
func ReleaseBodyStream(r io.Reader) error {
	bs, ok := r.(*bodyStream)
	if !ok {
		return nil
	}
	err := bs.drain()
	bs.reader = nil
	bs.releaseFn = nil
	bodyStreamPool.Put(bs)
	return err
}

func (bs *bodyStream) Read(p []byte) (n int, err error) {
	if bs.finished {
		if bs.err != nil {
			return 0, bs.err
		}
		return 0, io.EOF
	}

	switch {
	case bs.contentLength >= 0:
		n, err = bs.readSized(p)
	case bs.contentLength == consts.HeaderContentLengthChunked:
		n, err = bs.readChunked(p)
	default:
		n, err = bs.readIdentity(p)
	}

	if err != nil && err != io.EOF {
		bs.finish(err)
	}
	return n, err
}

func (bs *bodyStream) readSized(p []byte) (int, error) {
	if bs.sizeLeft == 0 {
		bs.finish(nil)
		return 0, io.EOF
	}
	n := len(p)
	if n > bs.sizeLeft {
		n = bs.sizeLeft
	}
	buf, err := bs.reader.Peek(n)
	if len(buf) == 0 {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	m := copy(p, buf)
	bs.reader.Skip(m)
	bs.sizeLeft -= m
	if bs.sizeLeft == 0 {
		bs.finish(nil)
	}
	return m, nil
}

func (bs *bodyStream) readChunked(p []byte) (int, error) {
	if bs.chunkLeft == 0 {
		chunkSize, err := utils.ParseChunkSize(bs.reader)
		if err != nil {
			return 0, err
		}
		if chunkSize == 0 {
			// 终止块之后丢弃挂车；此后保持 EOF
			if err = SkipTrailer(bs.reader); err != nil {
				return 0, err
			}
			bs.finish(nil)
			return 0, io.EOF
		}
		bs.chunkLeft = chunkSize
	}

	n := len(p)
	if n > bs.chunkLeft {
		n = bs.chunkLeft
	}
	buf, err := bs.reader.Peek(n)
	if len(buf) == 0 {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	m := copy(p, buf)
	bs.reader.Skip(m)
	bs.chunkLeft -= m
	if bs.chunkLeft == 0 {
		if err := utils.SkipCRLF(bs.reader); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (bs *bodyStream) readIdentity(p []byte) (int, error) {
	if bs.reader.Len() == 0 {
		if _, err := bs.reader.Peek(1); err != nil {
			// 对端半关即为正文结束
			bs.finish(nil)
			return 0, io.EOF
		}
	}
	n := bs.reader.Len()
	if n > len(p) {
		n = len(p)
	}
	buf, err := bs.reader.Peek(n)
	if err != nil {
		return 0, err
	}
	m := copy(p, buf)
	bs.reader.Skip(m)
	return m, nil
}

// Close 实现 io.Closer。未读完即关闭的流按放弃处理，连接不可复用。
func (bs *bodyStream) Close() error {
	if !bs.finished {
		bs.finish(errs.ErrConnectionClosed)
	}
	return nil
}

// 排空剩余正文，使连接可服务下一个消息。
func (bs *bodyStream) drain() error {
	if bs.finished {
		return nil
	}
	vbuf := utils.CopyBufPool.Get()
	buf := vbuf.([]byte)
	defer utils.CopyBufPool.Put(vbuf)
	for !bs.finished {
		_, err := bs.Read(buf)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
	return nil
}

func (bs *bodyStream) finish(err error) {
	if bs.finished {
		return
	}
	bs.finished = true
	bs.err = err
	if bs.releaseFn != nil {
		bs.releaseFn(err)
		bs.releaseFn = nil
	}
}
