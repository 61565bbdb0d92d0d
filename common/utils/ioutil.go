package utils

import (
	"io"
	"sync"

	"github.com/oxigraph/oxhttp/network"
)

// CopyBufPool 是 4KiB 拷贝缓冲区的共享池。
var CopyBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 4096)
	},
}

// CopyZeroAlloc 从 r 向 w 零分配地拷贝数据，直至 EOF。
func CopyZeroAlloc(w network.Writer, r io.Reader) (int64, error) {
	vbuf := CopyBufPool.Get()
	buf := vbuf.([]byte)

	var n int64
	for {
		nr, errR := r.Read(buf)
		if nr > 0 {
			nw, errW := w.WriteBinary(buf[:nr])
			n += int64(nw)
			if errW != nil {
				CopyBufPool.Put(vbuf)
				return n, errW
			}
			if nw != nr {
				CopyBufPool.Put(vbuf)
				return n, io.ErrShortWrite
			}
		}
		if errR != nil {
			CopyBufPool.Put(vbuf)
			if errR == io.EOF {
				errR = nil
			}
			return n, errR
		}
	}
}
