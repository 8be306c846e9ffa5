// File: internal/observability/logger.go
package observability

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/sgexplore/internal/config"
)

// missionLog is the process wide logger plus the rotating file behind it, if any.
type missionLog struct {
	logger *zap.Logger
	file   *lumberjack.Logger
}

var (
	current atomic.Pointer[missionLog]
	once    sync.Once
)

const (
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorReset   = "\x1b[0m"
)

func ansi(name string) string {
	switch name {
	case "red":
		return colorRed
	case "green":
		return colorGreen
	case "yellow":
		return colorYellow
	case "blue":
		return colorBlue
	case "magenta":
		return colorMagenta
	case "cyan":
		return colorCyan
	case "white":
		return colorWhite
	}
	return ""
}

// Initialize builds the mission logger. The console stream uses cfg.Format and the
// optional log file is always JSON. Only the first call takes effect.
func Initialize(cfg config.LoggerConfig, console zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		_ = level.UnmarshalText([]byte(cfg.Level))

		ml := &missionLog{}
		cores := []zapcore.Core{zapcore.NewCore(consoleOrJSON(cfg), console, level)}
		if cfg.LogFile != "" {
			path, err := homedir.Expand(cfg.LogFile)
			if err != nil {
				path = cfg.LogFile
			}
			ml.file = &lumberjack.Logger{
				Filename:   path,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
			cores = append(cores, zapcore.NewCore(jsonEncoder(), zapcore.AddSync(ml.file), level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}
		ml.logger = zap.New(zapcore.NewTee(cores...), opts...)
		if cfg.ServiceName != "" {
			ml.logger = ml.logger.Named(cfg.ServiceName)
		}
		current.Store(ml)
		zap.ReplaceGlobals(ml.logger)
	})
}

// InitializeLogger initializes with a locked Stdout console stream.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ResetForTest drops the mission logger so Initialize can run again.
func ResetForTest() {
	current.Store(nil)
	once = sync.Once{}
}

func jsonEncoder() zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(ec)
}

// consoleOrJSON renders one line per entry with a coloured level and dotted
// component names when cfg.Format is "console".
func consoleOrJSON(cfg config.LoggerConfig) zapcore.Encoder {
	if cfg.Format != "console" {
		return jsonEncoder()
	}
	colors := map[zapcore.Level]string{
		zapcore.DebugLevel:  ansi(cfg.Colors.Debug),
		zapcore.InfoLevel:   ansi(cfg.Colors.Info),
		zapcore.WarnLevel:   ansi(cfg.Colors.Warn),
		zapcore.ErrorLevel:  ansi(cfg.Colors.Error),
		zapcore.DPanicLevel: ansi(cfg.Colors.DPanic),
		zapcore.PanicLevel:  ansi(cfg.Colors.Panic),
		zapcore.FatalLevel:  ansi(cfg.Colors.Fatal),
	}
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		name := strings.ToUpper(l.String())
		if c := colors[l]; c != "" {
			name = c + name + colorReset
		}
		enc.AppendString(name)
	}
	ec.EncodeName = func(n string, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(n + ".") }
	return zapcore.NewConsoleEncoder(ec)
}

// GetLogger returns the mission logger, or zap's global logger before Initialize.
func GetLogger() *zap.Logger {
	if ml := current.Load(); ml != nil {
		return ml.logger
	}
	return zap.L()
}

// Sync flushes buffered entries and closes the log file. Call it before exiting.
func Sync() {
	ml := current.Load()
	if ml == nil {
		return
	}
	// Terminals reject fsync with one of these.
	if err := ml.logger.Sync(); err != nil &&
		!errors.Is(err, syscall.EINVAL) && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.ENOTSUP) {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
	if ml.file != nil {
		_ = ml.file.Close()
	}
}
