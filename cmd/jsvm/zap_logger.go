package main

import (
	"go.uber.org/zap"

	"jsvm/internal/enginelog"
)

// zapEngineLogger adapts a *zap.Logger to enginelog.Logger, the CLI-layer
// wiring DESIGN.md's internal/enginelog entry describes: the engine core
// stays dependency-free, and cmd/jsvm supplies a real sink the way the
// teacher's cmd/nerd/main.go builds one *zap.Logger per process.
type zapEngineLogger struct {
	s *zap.SugaredLogger
}

func newZapEngineLogger(l *zap.Logger) enginelog.Logger {
	return &zapEngineLogger{s: l.Sugar()}
}

func (z *zapEngineLogger) Debug(format string, args ...interface{}) { z.s.Debugf(format, args...) }
func (z *zapEngineLogger) Info(format string, args ...interface{})  { z.s.Infof(format, args...) }
func (z *zapEngineLogger) Warn(format string, args ...interface{})  { z.s.Warnf(format, args...) }
func (z *zapEngineLogger) Error(format string, args ...interface{}) { z.s.Errorf(format, args...) }
