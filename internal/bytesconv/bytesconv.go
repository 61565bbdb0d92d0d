package bytesconv

import (
	"reflect"
	"sync"
	"time"
	"unsafe"

	"github.com/oxigraph/oxhttp/network"
)

const (
	upperHex = "0123456789ABCDEF" // 大写的十六进制字符
	lowerHex = "0123456789abcdef" // 小写的十六进制字符

	maxIntChars    = 18 // AppendUint 的缓冲区为 maxIntChars+1 字节，可容纳非负 int64 的 19 位十进制数
	maxHexIntChars = 15 // ReadHexInt 接受的十六进制位数上限；WriteHexInt 的缓冲区为其加 1 字节
)

var hexIntBufPool sync.Pool

// LowercaseBytes 原地将 b 转为小写。
func LowercaseBytes(b []byte) {
	for i, n := 0, len(b); i < n; i++ {
		p := &b[i]
		*p = ToLowerTable[*p]
	}
}

// B2s 将字节切片转为字符串，且不分配内存。
// 详见 https://groups.google.com/forum/#!msg/Golang-Nuts/ENgbUzYvCuU/90yGx7GUAgAJ 。
//
// 注意：如果字符串或切片的标头在未来的go版本中更改，该方法可能会出错。
func B2s(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// S2b 将字符串转为字节切片，且不分配内存。
//
// 注意：如果字符串或切片的标头在未来的go版本中更改，该方法可能会出错。
func S2b(s string) (b []byte) {
	bh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh := (*reflect.StringHeader)(unsafe.Pointer(&s))
	bh.Data = sh.Data
	bh.Len = sh.Len
	bh.Cap = sh.Len
	return b
}

// AppendUint 向 dst 追加十进制正整数 n。
func AppendUint(dst []byte, n int) []byte {
	if n < 0 {
		panic("BUG: int 必须为正整数")
	}

	var b [maxIntChars + 1]byte
	buf := b[:]
	i := len(buf)
	var q int
	for n >= 10 {
		i--
		q = n / 10
		buf[i] = '0' + byte(n-q*10)
		n = q
	}
	i--
	buf[i] = '0' + byte(n)

	dst = append(dst, buf[i:]...)
	return dst
}

// ParseUintBuf 解析 b 开头的十进制正整数，返回数值和已消费的字节数。
func ParseUintBuf(b []byte) (v, n int, err error) {
	n = len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	v = 0
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, errUnexpectedFirstChar
			}
			return v, i, nil
		}
		vNew := 10*v + int(k)
		// 溢出检查
		if vNew < v {
			return -1, i, errTooLongInt
		}
		v = vNew
	}
	return v, n, nil
}

// ParseUint 解析 b 中的十进制正整数。
func ParseUint(b []byte) (int, error) {
	v, n, err := ParseUintBuf(b)
	if n != len(b) {
		return -1, errUnexpectedTrailingChar
	}
	return v, err
}

// AppendHTTPDate 向 dst 追加 HTTP 兼容格式 (RFC1123) 的时间。
func AppendHTTPDate(dst []byte, date time.Time) []byte {
	dst = date.In(time.UTC).AppendFormat(dst, time.RFC1123)
	copy(dst[len(dst)-3:], "GMT")
	return dst
}

// ParseHTTPDate 解析 b 中的 HTTP (RFC1123) 兼容时间。
func ParseHTTPDate(buf []byte) (time.Time, error) {
	return time.Parse(time.RFC1123, B2s(buf))
}

// WriteHexInt 向 w 写入十六进制整数值 n。
func WriteHexInt(w network.Writer, n int) error {
	if n < 0 {
		panic("BUG: int 必须为正整数")
	}

	v := hexIntBufPool.Get()
	if v == nil {
		v = make([]byte, maxHexIntChars+1)
	}
	buf := v.([]byte)

	i := len(buf) - 1
	for {
		buf[i] = lowerHex[n&0xf]
		n >>= 4
		if n == 0 {
			break
		}
		i--
	}
	safeBuf, err := w.Malloc(maxHexIntChars + 1 - i)
	copy(safeBuf, buf[i:])
	hexIntBufPool.Put(v)
	return err
}

// ReadHexInt 读取 r 中的十六进制整数值。
func ReadHexInt(r network.Reader) (int, error) {
	n := 0
	i := 0
	var k int
	for {
		buf, err := r.Peek(1)
		if err != nil {
			r.Skip(1)

			if i > 0 {
				return n, nil
			}
			return -1, err
		}

		c := buf[0]
		k = int(Hex2intTable[c])
		if k == 16 {
			if i == 0 {
				r.Skip(1)
				return -1, errEmptyHexNum
			}
			return n, nil
		}
		if i >= maxHexIntChars {
			r.Skip(1)
			return -1, errTooLargeHexNum
		}

		r.Skip(1)
		n = (n << 4) | k
		i++
	}
}
