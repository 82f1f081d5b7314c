// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"paper-trader/internal/config"
	"paper-trader/internal/models"
)

// NewLogger creates a logger from the application logging configuration.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		writers = append(writers, consoleWriter)
	}

	if cfg.File != "" {
		logDir := filepath.Dir(cfg.File)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stderr
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithOwner adds an owner to the logger context.
func WithOwner(logger zerolog.Logger, owner string) zerolog.Logger {
	return logger.With().Str("owner", owner).Logger()
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// LogFill logs a position fill event.
func LogFill(logger zerolog.Logger, pos *models.TrackedPosition) {
	logger.Info().
		Str("event", "fill").
		Str("owner", pos.Owner).
		Str("symbol", pos.Symbol).
		Int("quantity", pos.Quantity).
		Float64("fill_price", pos.FillPrice).
		Float64("invested", pos.InvestedAmount).
		Msg("Position filled")
}

// LogExit logs a position close event.
func LogExit(logger zerolog.Logger, rec *models.TradeRecord) {
	logger.Info().
		Str("event", "exit").
		Str("owner", rec.Owner).
		Str("symbol", rec.Symbol).
		Int("quantity", rec.Quantity).
		Float64("exit_price", rec.ExitPrice).
		Float64("pnl", rec.PnL).
		Str("reason", string(rec.Reason)).
		Float64("balance_after", rec.BalanceAfter).
		Msg("Position closed")
}
