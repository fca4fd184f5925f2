// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
	security *SecurityLogger
}

var _ LoggerInterface = (*Logger)(nil)

// Security returns the structured security event logger facet.
func (l *Logger) Security() SecurityLoggerInterface {
	return l.security
}

// Sync flushes buffered log entries, ignoring sync errors on stderr.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

// NewLogger creates a production zap logger at the given level. An
// unparsable level falls back to error to keep startup possible.
func NewLogger(level string) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.ErrorLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}

	return &Logger{
		SugaredLogger: l.Sugar(),
		security:      &SecurityLogger{l: l},
	}
}

// SecurityLogger writes security events as structured entries with a fixed
// "security_event" marker so they can be filtered downstream.
type SecurityLogger struct {
	l *zap.Logger
}

var _ SecurityLoggerInterface = (*SecurityLogger)(nil)

func (s *SecurityLogger) AuthnSuccess(subject string) {
	s.l.Info("authentication succeeded",
		zap.String("security_event", "authn_success"),
		zap.String("subject", subject),
	)
}

func (s *SecurityLogger) AuthnFailure(subject, reason string) {
	s.l.Warn("authentication failed",
		zap.String("security_event", "authn_failure"),
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
}

func (s *SecurityLogger) AuthzFailure(subject, action string) {
	s.l.Warn("authorization denied",
		zap.String("security_event", "authz_failure"),
		zap.String("subject", subject),
		zap.String("action", action),
	)
}

func (s *SecurityLogger) SystemStartup() {
	s.l.Info("service starting", zap.String("security_event", "system_startup"))
}

func (s *SecurityLogger) SystemShutdown() {
	s.l.Info("service stopping", zap.String("security_event", "system_shutdown"))
}
