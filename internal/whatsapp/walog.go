package whatsapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"leadbot_backend/platform/logger"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter feeds whatsmeow's printf-style logging into the service logger.
type slogAdapter struct {
	log    *logger.Logger
	module string
	min    slog.Level
}

// newWALogger returns a whatsmeow logger that drops records below level
// (DEBUG, INFO, WARN or ERROR).
func newWALogger(log *logger.Logger, module, level string) waLog.Logger {
	return &slogAdapter{log: log, module: module, min: parseLevel(level)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (a *slogAdapter) emit(level slog.Level, msg string, args []interface{}) {
	if level < a.min {
		return
	}
	a.log.Log(context.Background(), level, fmt.Sprintf(msg, args...), "component", "whatsmeow", "module", a.module)
}

func (a *slogAdapter) Errorf(msg string, args ...interface{}) { a.emit(slog.LevelError, msg, args) }
func (a *slogAdapter) Warnf(msg string, args ...interface{})  { a.emit(slog.LevelWarn, msg, args) }
func (a *slogAdapter) Infof(msg string, args ...interface{})  { a.emit(slog.LevelInfo, msg, args) }
func (a *slogAdapter) Debugf(msg string, args ...interface{}) { a.emit(slog.LevelDebug, msg, args) }

func (a *slogAdapter) Sub(module string) waLog.Logger {
	return &slogAdapter{log: a.log, module: a.module + "/" + module, min: a.min}
}
