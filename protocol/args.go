package protocol

import "bytes"

// argsKV 表示一个保留原始大小写的标头键值对。
type argsKV struct {
	key   []byte
	value []byte
}

// 追加键值对，保留原始大小写。
func appendArgBytes(args []argsKV, key, value []byte) []argsKV {
	n := len(args)
	if cap(args) > n {
		args = args[:n+1]
	} else {
		args = append(args, argsKV{})
	}
	kv := &args[n]
	kv.key = append(kv.key[:0], key...)
	kv.value = append(kv.value[:0], value...)
	return args
}

// 设置键值对。若键已存在（忽略大小写）则覆盖首个并删除其余，否则追加。
func setArgBytes(args []argsKV, key, value []byte) []argsKV {
	for i := range args {
		kv := &args[i]
		if bytes.EqualFold(kv.key, key) {
			kv.value = append(kv.value[:0], value...)
			return delArgBytesFrom(args, key, i+1)
		}
	}
	return appendArgBytes(args, key, value)
}

// 返回键对应的首个值（忽略大小写）。
func peekArgBytes(args []argsKV, key []byte) []byte {
	for i := range args {
		kv := &args[i]
		if bytes.EqualFold(kv.key, key) {
			return kv.value
		}
	}
	return nil
}

func hasArgBytes(args []argsKV, key []byte) bool {
	for i := range args {
		if bytes.EqualFold(args[i].key, key) {
			return true
		}
	}
	return false
}

// 删除键对应的所有键值对（忽略大小写）。
func delArgBytes(args []argsKV, key []byte) []argsKV {
	return delArgBytesFrom(args, key, 0)
}

func delArgBytesFrom(args []argsKV, key []byte, from int) []argsKV {
	for i := from; i < len(args); i++ {
		if bytes.EqualFold(args[i].key, key) {
			tmp := args[i]
			copy(args[i:], args[i+1:])
			args[len(args)-1] = tmp
			args = args[:len(args)-1]
			i--
		}
	}
	return args
}
