package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// defaultLogger backs Default(); callers that haven't built a configured
// logger yet (e.g. package-level negotiation code in wsproto) still get
// structured output instead of falling back to the stdlib log package.
var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(New("info", "text"))
}

// SetDefault replaces the logger returned by Default, letting main wire the
// configured logger in once startup has parsed its configuration.
func SetDefault(l *slog.Logger) {
	defaultLogger.Store(l)
}

// Default returns the process-wide fallback logger.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// WithConnID returns a child logger tagging every record with the
// connection's id, so a single Endpoint's handshake, heartbeat, and close
// decisions can be grepped out of a busy server's log stream.
func WithConnID(l *slog.Logger, id uuid.UUID) *slog.Logger {
	return l.With(slog.String("conn_id", id.String()))
}

// New creates a new structured logger based on configuration.
func New(level, format string) *slog.Logger {
	// Parse log level
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	// Create handler options
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// Create handler based on format
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
