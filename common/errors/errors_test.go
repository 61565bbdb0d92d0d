package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	baseError := errors.New("测试错误")
	err := &Error{
		Err:  baseError,
		Type: ErrorTypePrivate,
	}
	assert.Equal(t, err.Error(), baseError.Error())
	assert.Equal(t, map[string]any{"error": baseError.Error()}, err.JSON())

	assert.Equal(t, err.SetType(ErrorTypePublic), err)
	assert.True(t, err.IsType(ErrorTypePublic))
	assert.False(t, err.IsType(ErrorTypePrivate))

	assert.Equal(t, err.SetMeta("一些元数据"), err)
	assert.Equal(t, map[string]any{
		"error": baseError.Error(),
		"meta":  "一些元数据",
	}, err.JSON())

	assert.ErrorIs(t, err, baseError)
}

func TestErrorSentinels(t *testing.T) {
	err := New(ErrHeaderTooLarge, ErrorTypePublic, nil)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
	assert.NotErrorIs(t, err, ErrBodyTooLarge)
}

func TestErrorChain(t *testing.T) {
	var chain ErrorChain
	chain = append(chain, NewPublic("第一个"))
	chain = append(chain, NewPrivate("第二个"))

	assert.Equal(t, []string{"第一个", "第二个"}, chain.Errors())
	assert.Equal(t, 1, len(chain.ByType(ErrorTypePublic)))
	assert.Equal(t, "第二个", chain.Last().Error())
}
