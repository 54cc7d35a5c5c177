package logging

import (
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleLoggerOptions 控制台日志选项
type ConsoleLoggerOptions struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
	Output           io.Writer
	Formatter        Formatter
}

// consoleLoggerProvider 控制台日志提供者
type consoleLoggerProvider struct {
	formatter    Formatter
	out          io.Writer
	mu           *sync.Mutex
	minimumLevel LogLevel
}

// NewConsoleLoggerProvider 创建控制台日志提供者
func NewConsoleLoggerProvider(options ConsoleLoggerOptions) LoggerProvider {
	formatter := options.Formatter
	if formatter == nil {
		formatter = &TextFormatter{
			IncludeTimestamp: options.IncludeTimestamp,
			TimestampFormat:  options.TimestampFormat,
			ColorOutput:      options.ColorOutput,
		}
	}
	out := options.Output
	if out == nil {
		out = os.Stdout
	}
	return &consoleLoggerProvider{
		formatter: formatter,
		out:       out,
		mu:        &sync.Mutex{},
	}
}

func (p *consoleLoggerProvider) CreateLogger(category string) Logger {
	return &writerLogger{provider: p, category: category}
}

func (p *consoleLoggerProvider) SetMinimumLevel(level LogLevel) {
	p.minimumLevel = level
}

// writerLogger 把格式化后的日志条目写入提供者输出的 Logger
type writerLogger struct {
	provider *consoleLoggerProvider
	category string
	fields   []Field
}

func (l *writerLogger) Trace(msg string, fields ...Field) { l.Log(LogLevelTrace, msg, fields...) }
func (l *writerLogger) Debug(msg string, fields ...Field) { l.Log(LogLevelDebug, msg, fields...) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.Log(LogLevelInfo, msg, fields...) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.Log(LogLevelWarn, msg, fields...) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.Log(LogLevelError, msg, fields...) }

func (l *writerLogger) Fatal(msg string, fields ...Field) {
	l.Log(LogLevelFatal, msg, fields...)
	os.Exit(1)
}

func (l *writerLogger) Log(level LogLevel, msg string, fields ...Field) {
	if level < l.provider.minimumLevel {
		return
	}

	entry := &LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: l.category,
		Message:  msg,
	}
	entry.Fields = append(entry.Fields, l.fields...)
	entry.Fields = append(entry.Fields, fields...)

	data, err := l.provider.formatter.Format(entry)
	if err != nil {
		return
	}

	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	_, _ = l.provider.out.Write(data)
}

func (l *writerLogger) WithFields(fields ...Field) Logger {
	return &writerLogger{
		provider: l.provider,
		category: l.category,
		fields:   append(append([]Field(nil), l.fields...), fields...),
	}
}

func (l *writerLogger) WithCategory(category string) Logger {
	return &writerLogger{provider: l.provider, category: category, fields: l.fields}
}
