//go:build !rp2040

package main

import "go.uber.org/zap"

func newLogger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
