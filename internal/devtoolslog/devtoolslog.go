// Package devtoolslog provides the daemon's structured logger: a thin
// wrapper around zap configured for calm, human-readable console output
// in interactive use and JSON in daemonized/CI use.
package devtoolslog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide structured logger. It is safe to use before
// Initialize is called — it starts out as a no-op sink so packages that
// log during init don't panic.
var Logger *zap.SugaredLogger

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize configures the global logger. jsonOutput selects structured
// JSON (for daemonized runs, log aggregation) over a human-readable
// console encoder (for `devtools-daemon daemon` run from a terminal).
func Initialize(jsonOutput bool) error {
	var zapLogger *zap.Logger
	var err error

	if jsonOutput {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		zapLogger, err = cfg.Build()
		if err != nil {
			return err
		}
	} else {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.New(
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(encoderCfg),
				zapcore.AddSync(os.Stdout),
				zap.InfoLevel,
			),
		)
	}

	Logger = zapLogger.Sugar()
	return nil
}

// Sync flushes any buffered log entries. Errors from Sync on stdout/stderr
// are routinely EINVAL on Linux/macOS and are safe to ignore.
func Sync() error {
	if Logger == nil {
		return nil
	}
	return Logger.Sync()
}
