package dialer

import "github.com/oxigraph/oxhttp/network/standard"

func init() {
	// 全局默认拨号器为标准库阻塞式拨号器
	defaultDialer = standard.NewDialer()
}
