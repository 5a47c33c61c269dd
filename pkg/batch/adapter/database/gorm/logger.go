package gorm

import (
	"fmt"
	"strings"
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// NewGormLogger creates a gorm logger whose verbosity follows the application log level.
// SQL statements are only traced at DEBUG.
func NewGormLogger(level logger.LogLevel) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch {
	case level <= logger.LevelDebug:
		gormLevel = gorm_logger.Info
	case level <= logger.LevelWarn:
		gormLevel = gorm_logger.Warn
	default:
		gormLevel = gorm_logger.Error
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects gorm output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm_logger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Warnf("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "CREATE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}
