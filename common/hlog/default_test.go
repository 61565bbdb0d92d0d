package hlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&buf)

	SetLevel(LevelInfo)
	Debugf("不应输出 %d", 1)
	assert.Equal(t, 0, buf.Len())

	Infof("应当输出 %d", 2)
	assert.Contains(t, buf.String(), "[Info] 应当输出 2")

	buf.Reset()
	Warnf("警告 %s", "内容")
	assert.Contains(t, buf.String(), "[Warn] 警告 内容")

	SetLevel(LevelTrace)
}

func TestSystemLoggerPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	SystemLogger().Errorf("引擎错误=%d", 7)
	out := buf.String()
	assert.Contains(t, out, systemLogPrefix)
	assert.Contains(t, out, "引擎错误=7")
}
