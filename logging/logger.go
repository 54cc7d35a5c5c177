package logging

import (
	"os"
	"sync"
)

// LogLevel 日志级别
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Field 日志字段
type Field struct {
	Key   string
	Value any
}

// Logger 结构化日志接口
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	Log(level LogLevel, msg string, fields ...Field)
	WithFields(fields ...Field) Logger
	WithCategory(category string) Logger
}

// LoggerFactory 日志工厂接口
type LoggerFactory interface {
	CreateLogger(category string) Logger
	AddProvider(provider LoggerProvider)
	SetMinimumLevel(level LogLevel)
}

// LoggerProvider 日志提供者接口
type LoggerProvider interface {
	CreateLogger(category string) Logger
	SetMinimumLevel(level LogLevel)
}

// loggerFactory 日志工厂实现
type loggerFactory struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.RWMutex
}

func (f *loggerFactory) CreateLogger(category string) Logger {
	f.mu.RLock()
	defer f.mu.RUnlock()

	loggers := make([]Logger, 0, len(f.providers))
	for _, provider := range f.providers {
		loggers = append(loggers, provider.CreateLogger(category))
	}

	return &compositeLogger{loggers: loggers, category: category}
}

func (f *loggerFactory) AddProvider(provider LoggerProvider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	provider.SetMinimumLevel(f.minimumLevel)
	f.providers = append(f.providers, provider)
}

func (f *loggerFactory) SetMinimumLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minimumLevel = level
	for _, provider := range f.providers {
		provider.SetMinimumLevel(level)
	}
}

// compositeLogger 组合日志记录器（将日志分发到多个提供者）
type compositeLogger struct {
	loggers  []Logger
	category string
	fields   []Field
}

func (c *compositeLogger) Trace(msg string, fields ...Field) { c.Log(LogLevelTrace, msg, fields...) }
func (c *compositeLogger) Debug(msg string, fields ...Field) { c.Log(LogLevelDebug, msg, fields...) }
func (c *compositeLogger) Info(msg string, fields ...Field)  { c.Log(LogLevelInfo, msg, fields...) }
func (c *compositeLogger) Warn(msg string, fields ...Field)  { c.Log(LogLevelWarn, msg, fields...) }
func (c *compositeLogger) Error(msg string, fields ...Field) { c.Log(LogLevelError, msg, fields...) }

func (c *compositeLogger) Fatal(msg string, fields ...Field) {
	c.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (c *compositeLogger) Log(level LogLevel, msg string, fields ...Field) {
	all := fields
	if len(c.fields) > 0 {
		all = make([]Field, 0, len(c.fields)+len(fields))
		all = append(all, c.fields...)
		all = append(all, fields...)
	}
	for _, logger := range c.loggers {
		logger.Log(level, msg, all...)
	}
}

func (c *compositeLogger) WithFields(fields ...Field) Logger {
	return &compositeLogger{
		loggers:  c.loggers,
		category: c.category,
		fields:   append(append([]Field(nil), c.fields...), fields...),
	}
}

func (c *compositeLogger) WithCategory(category string) Logger {
	loggers := make([]Logger, 0, len(c.loggers))
	for _, logger := range c.loggers {
		loggers = append(loggers, logger.WithCategory(category))
	}
	return &compositeLogger{loggers: loggers, category: category, fields: c.fields}
}

// nopLogger 丢弃全部输出的 Logger（静默场景或测试使用）
type nopLogger struct{}

// NewNopLogger 创建丢弃全部输出的 Logger
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Trace(string, ...Field)         {}
func (nopLogger) Debug(string, ...Field)         {}
func (nopLogger) Info(string, ...Field)          {}
func (nopLogger) Warn(string, ...Field)          {}
func (nopLogger) Error(string, ...Field)         {}
func (nopLogger) Fatal(string, ...Field)         {}
func (nopLogger) Log(LogLevel, string, ...Field) {}
func (n nopLogger) WithFields(...Field) Logger   { return n }
func (n nopLogger) WithCategory(string) Logger   { return n }
