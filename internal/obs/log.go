package obs

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex
	logger   *zap.Logger
)

// Logger returns the shared structured logger used across the console.
func Logger() *zap.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = newLogger(false)
	}
	return logger
}

// InitLogger replaces the shared logger with a JSON logger at info level, or
// debug level when debug is set.
func InitLogger(debug bool) {
	l := newLogger(debug)
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// SetLogger swaps the shared logger and returns a function restoring the
// previous one. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) (restore func()) {
	loggerMu.Lock()
	prev := logger
	logger = l
	loggerMu.Unlock()
	return func() {
		loggerMu.Lock()
		logger = prev
		loggerMu.Unlock()
	}
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Must(cfg.Build())
}

// LogRequest emits a structured log line with common HTTP fields.
func LogRequest(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}
