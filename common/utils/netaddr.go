package utils

import "strings"

// AddMissingPort 为缺少端口的地址补全协议的默认端口。
func AddMissingPort(addr string, isTLS bool) string {
	if strings.LastIndexByte(addr, ':') > strings.LastIndexByte(addr, ']') {
		return addr
	}
	if isTLS {
		return addr + ":443"
	}
	return addr + ":80"
}

// CleanHostForKey 返回用于连接池键的主机名（小写、去端口交由调用方处理）。
func CleanHostForKey(host string) string {
	return strings.ToLower(host)
}
