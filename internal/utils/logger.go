package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop()

// InitLogger builds the production logger at logLevel and installs it as the
// zap global so packages can use zap.L().
func InitLogger(logLevel string) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)
	built, err := config.Build()
	if err != nil {
		return
	}
	Logger = built
	zap.ReplaceGlobals(Logger)
}
