// Package bytestr 定义常用字符串的字节切片形式，以免运行时反复转换。
package bytestr

var (
	DefaultServerName = []byte("oxhttp")
	DefaultUserAgent  = []byte("oxhttp")

	StrCRLF            = []byte("\r\n")
	StrSlash           = []byte("/")
	StrColonSlashSlash = []byte("://")
	StrColonSpace      = []byte(": ")

	StrHTTP        = []byte("http")
	StrHTTPS       = []byte("https")
	StrHTTP10      = []byte("HTTP/1.0")
	StrHTTP11      = []byte("HTTP/1.1")
	StrClose       = []byte("close")
	StrKeepAlive   = []byte("keep-alive")
	StrChunked     = []byte("chunked")
	StrGzip        = []byte("gzip")
	StrDeflate     = []byte("deflate")
	Str100Continue = []byte("100-continue")

	StrGet     = []byte("GET")
	StrHead    = []byte("HEAD")
	StrPost    = []byte("POST")
	StrPut     = []byte("PUT")
	StrDelete  = []byte("DELETE")
	StrConnect = []byte("CONNECT")
	StrOptions = []byte("OPTIONS")
	StrTrace   = []byte("TRACE")
	StrPatch   = []byte("PATCH")

	StrHost             = []byte("Host")
	StrUserAgent        = []byte("User-Agent")
	StrServer           = []byte("Server")
	StrDate             = []byte("Date")
	StrConnection       = []byte("Connection")
	StrContentLength    = []byte("Content-Length")
	StrContentType      = []byte("Content-Type")
	StrContentEncoding  = []byte("Content-Encoding")
	StrTransferEncoding = []byte("Transfer-Encoding")
	StrAcceptEncoding   = []byte("Accept-Encoding")
	StrLocation         = []byte("Location")
	StrExpect           = []byte("Expect")
	StrRange            = []byte("Range")

	StrResponseContinue = []byte("HTTP/1.1 100 Continue\r\n\r\n")

	StrTextPlainUTF8 = []byte("text/plain; charset=utf-8")
)
