package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/mattn/go-colorable"
	"gorm.io/gorm/logger"

	"github.com/lucke/calcutta-web/internal/util/slogx"
	"github.com/lucke/calcutta-web/internal/util/style"
)

type slogLogger struct {
	log  *slog.Logger
	slow time.Duration
}

// Logger bridges gorm logs into slog. In debug mode, every query is printed to stdout with gorm's
// own colored logger instead.
func Logger(srcLog *slog.Logger, o Options) logger.Interface {
	if o.Debug {
		return logger.New(
			log.New(colorable.NewColorableStdout(), "", log.LstdFlags),
			logger.Config{
				SlowThreshold: o.SlowThreshold,
				LogLevel:      logger.Info,
				Colorful:      style.StdoutSupportsColor(),
			},
		)
	}
	return &slogLogger{
		log:  srcLog.With(slog.String("component", "gorm")),
		slow: o.SlowThreshold,
	}
}

func (l *slogLogger) LogMode(logger.LogLevel) logger.Interface {
	return l
}

func (l *slogLogger) Info(ctx context.Context, msg string, data ...any) {
	l.log.InfoContext(ctx, "gorm info", slog.String("msg", fmt.Sprintf(msg, data...)))
}

func (l *slogLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.log.WarnContext(ctx, "gorm warn", slog.String("msg", fmt.Sprintf(msg, data...)))
}

func (l *slogLogger) Error(ctx context.Context, msg string, data ...any) {
	l.log.ErrorContext(ctx, "gorm error", slog.String("msg", fmt.Sprintf(msg, data...)))
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		sql, rows := fc()
		l.log.ErrorContext(ctx, "sql error",
			slog.Duration("elapsed", elapsed),
			slog.Int64("rows", rows),
			slog.String("sql", sql),
			slogx.Err(err),
		)
	case l.slow > 0 && elapsed > l.slow:
		sql, rows := fc()
		l.log.WarnContext(ctx, "slow sql",
			slog.Duration("elapsed", elapsed),
			slog.Int64("rows", rows),
			slog.String("sql", sql),
		)
	}
}
