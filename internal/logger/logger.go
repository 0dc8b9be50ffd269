// Package logger 基于 logrus 的结构化日志封装
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger 日志封装，携带组件字段
type Logger struct {
	*logrus.Entry
}

// New 创建指定组件的日志器
func New(component string) *Logger {
	return &Logger{
		Entry: logrus.StandardLogger().WithField("component", component),
	}
}

// Init 初始化全局日志级别与格式
func Init(level string, debug bool) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if debug && lvl > logrus.DebugLevel {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// WithField 附加单个字段
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields 附加多个字段
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}

// WithError 附加错误字段
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}
