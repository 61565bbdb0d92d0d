// Package errors 提供带类型和元信息的错误封装，以及引擎各层共用的哨兵错误。
package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	ErrTimeout           = errors.New("timeout")
	ErrIdleTimeout       = errors.New("idle timeout")
	ErrConnectionClosed  = errors.New("连接已关闭")
	ErrNothingRead       = errors.New("未读取任何内容")
	ErrNeedMore          = errors.New("需要更多数据")
	ErrHeaderTooLarge    = errors.New("标头块超过给定上限")
	ErrBodyTooLarge      = errors.New("正文大小超过给定限制")
	ErrChunkedStream     = errors.New("错误分块的正文流")
	ErrBadRequest        = errors.New("请求格式错误")
	ErrInvalidURL        = errors.New("无效的网址")
	ErrUnsupportedScheme = errors.New("不支持的网址方案")
	ErrTooManyRedirects  = errors.New("重定向次数过多")
	ErrBadPoolConn       = errors.New("连接在连接池中时被对端关闭")
	ErrNoBodyLength      = errors.New("请求正文长度未知且未分块")
)

type ErrorType uint64

const (
	// ErrorTypePrivate 表示引擎内部错误，不应透出给对端。
	ErrorTypePrivate ErrorType = 1 << iota
	// ErrorTypePublic 表示可安全透出给调用方或对端的错误。
	ErrorTypePublic
	// ErrorTypeAny 表示任意错误。
	ErrorTypeAny ErrorType = 1<<64 - 1
)

// Error 表示一个带有错误类型和元信息的错误规范。
type Error struct {
	Err  error
	Type ErrorType
	Meta any
}

// 返回错误的消息字符串。
func (msg *Error) Error() string {
	return msg.Err.Error()
}

func (msg *Error) JSON() any {
	jsonData := make(map[string]any)
	if msg.Meta != nil {
		value := reflect.ValueOf(msg.Meta)
		switch value.Kind() {
		case reflect.Struct:
			return msg.Meta
		case reflect.Map:
			for _, key := range value.MapKeys() {
				jsonData[key.String()] = value.MapIndex(key).Interface()
			}
		default:
			jsonData["meta"] = msg.Meta
		}
	}
	if _, ok := jsonData["error"]; !ok {
		jsonData["error"] = msg.Error()
	}
	return jsonData
}

func (msg *Error) Unwrap() error {
	return msg.Err
}

func (msg *Error) IsType(flags ErrorType) bool {
	return (msg.Type & flags) > 0
}

func (msg *Error) SetType(flags ErrorType) *Error {
	msg.Type = flags
	return msg
}

func (msg *Error) SetMeta(data any) *Error {
	msg.Meta = data
	return msg
}

// New 创建给定类型和元信息的错误。
func New(err error, t ErrorType, meta any) *Error {
	return &Error{
		Err:  err,
		Type: t,
		Meta: meta,
	}
}

// NewPublic 创建给定文本的公有错误。
func NewPublic(err string) *Error {
	return New(errors.New(err), ErrorTypePublic, nil)
}

// NewPublicf 创建给定格式的公有错误。
func NewPublicf(format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePublic, nil)
}

// NewPrivate 创建给定文本的私有错误。
func NewPrivate(err string) *Error {
	return New(errors.New(err), ErrorTypePrivate, nil)
}

// NewPrivatef 创建给定格式的私有错误。
func NewPrivatef(format string, v ...any) *Error {
	return New(fmt.Errorf(format, v...), ErrorTypePrivate, nil)
}

// ErrorChain 表示错误链。
type ErrorChain []*Error

func (a ErrorChain) String() string {
	if len(a) == 0 {
		return ""
	}
	var buffer strings.Builder
	for i, msg := range a {
		fmt.Fprintf(&buffer, "Error #%02d: %s\n", i+1, msg.Err)
		if msg.Meta != nil {
			fmt.Fprintf(&buffer, "     Meta: %v\n", msg.Meta)
		}
	}
	return buffer.String()
}

// Errors 返回错误链中所有错误的消息。
func (a ErrorChain) Errors() []string {
	if len(a) == 0 {
		return nil
	}
	errorStrings := make([]string, len(a))
	for i, err := range a {
		errorStrings[i] = err.Error()
	}
	return errorStrings
}

// ByType 返回错误链中指定类型的子链。
func (a ErrorChain) ByType(typ ErrorType) ErrorChain {
	if len(a) == 0 {
		return nil
	}
	if typ == ErrorTypeAny {
		return a
	}
	var result ErrorChain
	for _, msg := range a {
		if msg.IsType(typ) {
			result = append(result, msg)
		}
	}
	return result
}

// Last 返回错误链中的最后一个错误。
func (a ErrorChain) Last() *Error {
	if length := len(a); length > 0 {
		return a[length-1]
	}
	return nil
}
