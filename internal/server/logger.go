package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omarluq/hotswap/internal/config"
)

type ctxKey string

// RequestIDKey is the context key for request IDs.
const RequestIDKey ctxKey = "request_id"

// NewLogger creates a zerolog.Logger from a LogConfig.
// Returns a configured logger ready for use as global logger.
func NewLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	output, outputFile, err := selectOutput(cfg.Output)
	if err != nil {
		return zerolog.Logger{}, err
	}

	ctx := zerolog.New(consoleFor(cfg.Format, output, outputFile)).
		Level(cfg.ParseLevel()).
		With()
	if cfg.Format != config.FormatCompact {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger(), nil
}

// selectOutput returns the output writer and file handle for the given output config.
func selectOutput(outputCfg string) (io.Writer, *os.File, error) {
	switch outputCfg {
	case "", "stdout":
		return os.Stdout, os.Stdout, nil
	case "stderr":
		return os.Stderr, os.Stderr, nil
	default:
		outputCfg = filepath.Clean(outputCfg)
		f, err := os.OpenFile(outputCfg, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	}
}

// consoleFor picks the writer for a log format. JSON is written raw; every
// other format goes through a ConsoleWriter, colored only on a terminal.
func consoleFor(format string, output io.Writer, outputFile *os.File) io.Writer {
	if strings.ToLower(format) == config.FormatJSON {
		return output
	}

	colored := outputFile != nil && isatty.IsTerminal(outputFile.Fd())
	w := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		NoColor:    !colored,
	}

	switch strings.ToLower(format) {
	case config.FormatCompact:
		w.PartsExclude = []string{zerolog.TimestampFieldName}
	case config.FormatFull:
		w.TimeFormat = "2006-01-02T15:04:05.000Z07:00"
	}

	if colored {
		w.FormatLevel = formatLevel
		w.FormatMessage = formatMessage
		w.FormatFieldName = formatFieldName
		w.FormatFieldValue = func(i any) string {
			return fmt.Sprintf("%s", i)
		}
	}
	return w
}

// formatLevel formats log level with ANSI colors.
func formatLevel(i any) string {
	levelStr, ok := i.(string)
	if !ok {
		return ""
	}

	levelColors := map[string]string{
		"trace": "\033[90mTRC\033[0m", // Gray
		"debug": "\033[36mDBG\033[0m", // Cyan
		"info":  "\033[32mINF\033[0m", // Green
		"warn":  "\033[33mWRN\033[0m", // Yellow
		"error": "\033[31mERR\033[0m", // Red
		"fatal": "\033[35mFTL\033[0m", // Magenta
		"panic": "\033[35mPNC\033[0m", // Magenta
	}

	if colored, exists := levelColors[levelStr]; exists {
		return colored
	}
	return levelStr
}

// formatMessage formats log message with arrow prefix.
func formatMessage(i any) string {
	if i == nil {
		return ""
	}
	return fmt.Sprintf("-> %s", i)
}

// formatFieldName formats field names with dim styling.
func formatFieldName(i any) string {
	return fmt.Sprintf("\033[2m%s=\033[0m", i)
}

// AddRequestID stores requestID in the context and in the context logger.
// An empty requestID is replaced with a new UUID.
func AddRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx = context.WithValue(ctx, RequestIDKey, requestID)

	logger := log.Ctx(ctx).With().Str("request_id", requestID).Logger()

	return logger.WithContext(ctx)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}

	return ""
}
