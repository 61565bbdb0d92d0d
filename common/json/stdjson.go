//go:build !((linux || windows || darwin) && amd64)

package json

import "encoding/json"

var (
	// Marshal 编码 JSON。
	Marshal = json.Marshal
	// Unmarshal 解码 JSON。
	Unmarshal = json.Unmarshal
)

// MarshalString 编码 JSON 为字符串。
func MarshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
