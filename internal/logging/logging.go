// Package logging — общий zerolog-логгер клиента.
package logging

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Config struct {
	Level   string `mapstructure:"level"`
	Pretty  bool   `mapstructure:"pretty"`
	Service string `mapstructure:"service"`
}

const (
	FieldService  = "service"
	FieldConnID   = "conn_id"
	FieldUniqueID = "unique_id"
	FieldRoomID   = "room_id"
	FieldSource   = "source"
	FieldBackend  = "backend"
	FieldMsgType  = "msg_type"
)

var (
	global zerolog.Logger
	once   sync.Once
)

func init() {
	global = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// New пишет в stderr: stdout занят выводом событий.
func New(cfg Config) zerolog.Logger {
	return NewWriter(os.Stderr, cfg)
}

func NewWriter(out io.Writer, cfg Config) zerolog.Logger {
	w := out
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.Service != "" {
		logger = logger.With().Str(FieldService, cfg.Service).Logger()
	}
	return logger
}

// Init настраивает глобальный логгер (один раз) и перенаправляет в него
// стандартный log.
func Init(cfg Config) {
	once.Do(func() {
		global = New(cfg)
		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

func L() zerolog.Logger {
	return global
}

// ForConnection — дочерний логгер с новым conn_id.
func ForConnection(parent zerolog.Logger, uniqueID string) zerolog.Logger {
	return parent.With().
		Str(FieldConnID, uuid.NewString()).
		Str(FieldUniqueID, uniqueID).
		Logger()
}

type ctxKey struct{}

func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx — логгер из контекста или глобальный.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
