//go:build (linux || windows || darwin) && amd64

// Package json 提供统一的 JSON 编解码入口，优先使用 sonic。
package json

import "github.com/bytedance/sonic"

var json = sonic.ConfigStd

var (
	// Marshal 编码 JSON。
	Marshal = json.Marshal
	// Unmarshal 解码 JSON。
	Unmarshal = json.Unmarshal
	// MarshalString 编码 JSON 为字符串。
	MarshalString = json.MarshalToString
)
