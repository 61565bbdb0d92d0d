package ext

import (
	"bytes"
	"io"

	errs "github.com/oxigraph/oxhttp/common/errors"
	"github.com/oxigraph/oxhttp/common/utils"
	"github.com/oxigraph/oxhttp/internal/bytesconv"
	"github.com/oxigraph/oxhttp/internal/bytestr"
	"github.com/oxigraph/oxhttp/network"
	"github.com/oxigraph/oxhttp/protocol/consts"
)

// ReadHeaderBlock 读取到 CRLFCRLF 为止的完整标头块（含终止空行），不移动读指针。
//
// 返回标头块及其总长度，调用方负责 Skip。
// 累积超过 maxHeaderSize 即返回 ErrHeaderTooLarge，不再继续缓冲。
func ReadHeaderBlock(r network.Reader, maxHeaderSize int) ([]byte, int, error) {
	n := 1
	for {
		// 先扫描已缓冲的全部数据，再阻塞等待更多
		if l := r.Len(); l > n {
			n = l
		}
		b, err := r.Peek(n)
		if len(b) == 0 {
			if err == nil {
				err = io.EOF
			}
			return nil, 0, err
		}

		if end := headerBlockEnd(b); end >= 0 {
			if end > maxHeaderSize {
				return nil, 0, errs.New(errs.ErrHeaderTooLarge, errs.ErrorTypePublic, nil)
			}
			return b[:end], end, nil
		}

		// 未见终止符且已超限，立即拒绝，不再为对端分配缓冲
		if len(b) > maxHeaderSize {
			return nil, 0, errs.New(errs.ErrHeaderTooLarge, errs.ErrorTypePublic, nil)
		}

		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, 0, err
		}

		// 还有已缓冲但未扫描的数据时先扫描它们；否则阻塞等待更多数据
		if l := r.Len(); l > len(b) {
			n = l
		} else {
			n = l + 1
		}
	}
}

// headerBlockEnd 返回标头块结尾（终止空行之后）的偏移量，找不到返回 -1。
// 同时接受 CRLFCRLF 和裸 LF 的变体。
func headerBlockEnd(b []byte) int {
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\n' {
			continue
		}
		if i+2 < len(b) && b[i+1] == '\r' && b[i+2] == '\n' {
			return i + 3
		}
		if i+1 < len(b) && b[i+1] == '\n' {
			return i + 2
		}
	}
	return -1
}

// ReadBody 按标头声明的框架读取完整正文并返回。
//
// contentLength >= 0 定长读取；-1 分块读取；-2 读取至连接关闭。
func ReadBody(r network.Reader, contentLength, maxBodySize int, dst []byte) ([]byte, error) {
	dst = dst[:0]
	if contentLength >= 0 {
		if maxBodySize > 0 && contentLength > maxBodySize {
			return dst, errBodyTooLarge
		}
		return appendBodyFixedSize(r, dst, contentLength)
	}

	if contentLength == consts.HeaderContentLengthChunked {
		return readBodyChunked(r, maxBodySize, dst)
	}

	return readBodyIdentity(r, maxBodySize, dst)
}

func readBodyIdentity(r network.Reader, maxBodySize int, dst []byte) ([]byte, error) {
	dst = dst[:cap(dst)]
	if len(dst) == 0 {
		dst = make([]byte, 1024)
	}
	offset := 0
	for {
		nn := r.Len()

		if nn == 0 {
			_, err := r.Peek(1)
			if err != nil {
				// 对端半关即为正文结束
				return dst[:offset], nil
			}
			nn = r.Len()
		}
		if nn >= (len(dst) - offset) {
			nn = len(dst) - offset
		}

		buf, err := r.Peek(nn)
		if err != nil {
			return dst[:offset], err
		}
		copy(dst[offset:], buf)
		r.Skip(nn)

		offset += nn
		if maxBodySize > 0 && offset > maxBodySize {
			return dst[:offset], errBodyTooLarge
		}
		if len(dst) == offset {
			n := round2(2 * offset)
			if maxBodySize > 0 && n > maxBodySize {
				n = maxBodySize + 1
			}
			b := make([]byte, n)
			copy(b, dst)
			dst = b
		}
	}
}

// 将 r 分块读取至 dst，含终止块之后的挂车跳过。
func readBodyChunked(r network.Reader, maxBodySize int, dst []byte) ([]byte, error) {
	if len(dst) > 0 {
		panic("BUG: 期望零长度缓冲区")
	}

	strCRLFLen := len(bytestr.StrCRLF)
	for {
		chunkSize, err := utils.ParseChunkSize(r)
		if err != nil {
			return dst, err
		}
		if chunkSize == 0 {
			// 终止块之后读取并丢弃挂车标头
			return dst, SkipTrailer(r)
		}
		if maxBodySize > 0 && len(dst)+chunkSize > maxBodySize {
			return dst, errBodyTooLarge
		}
		dst, err = appendBodyFixedSize(r, dst, chunkSize+strCRLFLen)
		if err != nil {
			return dst, err
		}
		if !bytes.Equal(dst[len(dst)-strCRLFLen:], bytestr.StrCRLF) {
			return dst, errs.New(errs.ErrChunkedStream, errs.ErrorTypePublic, "无法在分块数据结尾找到 crlf")
		}
		dst = dst[:len(dst)-strCRLFLen]
	}
}

func appendBodyFixedSize(r network.Reader, dst []byte, n int) ([]byte, error) {
	if n == 0 {
		return dst, nil
	}

	offset := len(dst)
	dstLen := offset + n
	// 容量不足，则两倍扩容
	if cap(dst) < dstLen {
		b := make([]byte, round2(dstLen))
		copy(b, dst)
		dst = b
	}
	dst = dst[:dstLen]

	// Peek 可获所有数据，否则会出错
	buf, err := r.Peek(n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return dst[:offset], err
	}
	copy(dst[offset:], buf)
	r.Skip(len(buf))
	return dst, nil
}

// SkipTrailer 读取并丢弃分块正文终止块之后的挂车标头，直至终止空行。
func SkipTrailer(r network.Reader) error {
	empty := true
	for {
		c, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch c {
		case '\r':
			// CR 不影响空行判断
		case '\n':
			if empty {
				return nil
			}
			empty = true
		default:
			empty = false
		}
	}
}

// WriteBodyFixedSize 从 r 中拷贝 size 个字节到 w。
func WriteBodyFixedSize(w network.Writer, r io.Reader, size int64) error {
	if size == 0 {
		return nil
	}
	if size > consts.MaxSmallFileSize {
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if size > 0 {
		r = io.LimitReader(r, size)
	}

	n, err := utils.CopyZeroAlloc(w, r)
	if n != size && err == nil {
		err = errs.NewPublicf("从正文流中拷贝了 %d 个字节而不是 %d 个字节", n, size)
	}
	return err
}

// WriteBodyChunked 将 r 分块写入 w，以 0 长度块终止。
func WriteBodyChunked(w network.Writer, r io.Reader) error {
	vBuf := utils.CopyBufPool.Get()
	buf := vBuf.([]byte)

	var err error
	var n int
	for {
		n, err = r.Read(buf)
		if n == 0 {
			if err == nil {
				panic("BUG: io.Reader 返回了 (0, nil)")
			}
			if err == io.EOF {
				if err = WriteChunk(w, buf[:0], true); err != nil {
					break
				}
				err = nil
			}
			break
		}
		if err = WriteChunk(w, buf[:n], true); err != nil {
			break
		}
	}

	utils.CopyBufPool.Put(vBuf)
	return err
}

// WriteChunk 将数据 b 作为单个分块写入 w。
//
// 零长度的 b 写出终止序列，且恰为 "0\r\n\r\n"：一个空行，不是两个。
func WriteChunk(w network.Writer, b []byte, withFlush bool) (err error) {
	n := len(b)
	if err = bytesconv.WriteHexInt(w, n); err != nil {
		return err
	}

	w.WriteBinary(bytestr.StrCRLF)
	if _, err = w.WriteBinary(b); err != nil {
		return err
	}

	// 数据块在数据后补 CRLF；对终止块而言这正是 "0\r\n\r\n" 的空行，
	// 不再额外写入第二个空行
	w.WriteBinary(bytestr.StrCRLF)

	if !withFlush {
		return nil
	}
	err = w.Flush()
	return
}

// LimitedReaderSize 返回定量读取器的定量值。
func LimitedReaderSize(r io.Reader) int64 {
	lr, ok := r.(*io.LimitedReader)
	if !ok {
		return -1
	}
	return lr.N
}

func round2(n int) int {
	if n <= 0 {
		return 0
	}
	n--
	x := uint(0)
	for n > 0 {
		n >>= 1
		x++
	}
	return 1 << x
}
