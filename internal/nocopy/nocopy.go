// Package nocopy 提供嵌入后禁止值拷贝的标记结构体，由 go vet 的 copylocks 检查强制执行。
package nocopy

// NoCopy 嵌入到结构体后，该结构体即禁止值拷贝。
type NoCopy struct{}

func (*NoCopy) Lock()   {}
func (*NoCopy) Unlock() {}
