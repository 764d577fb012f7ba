//go:build rp2040

package main

import (
	"machine"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger writes console-encoded entries to the USB CDC port.
func newLogger() *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = "" // no wall clock on the board
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(machine.Serial), zap.InfoLevel)
	return zap.New(core)
}
