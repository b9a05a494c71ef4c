package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"compass-tape.klederson.com/internal/config"
)

// New builds a JSON logger writing to a rotating file. The terminal belongs
// to the TUI, so nothing is ever written to stdout or stderr. An empty path
// returns a no-op logger.
func New(path, level string) (*zap.SugaredLogger, func() error, error) {
	if path == "" {
		return zap.NewNop().Sugar(), func() error { return nil }, nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    config.LogMaxSizeMB,
		MaxBackups: config.LogMaxBackups,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), lvl)
	logger := zap.New(core).Named("compass")

	closeFn := func() error {
		_ = logger.Sync()
		return sink.Close()
	}
	return logger.Sugar(), closeFn, nil
}
