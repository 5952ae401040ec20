// Package logging adapts zerolog to the auth Logger interface and provides
// a request logging middleware for fiber.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Setup returns the process logger. Development mode logs at debug level
// through a console writer, otherwise JSON at info level.
func Setup(dev bool) zerolog.Logger {
	return SetupWriter(os.Stderr, dev)
}

// SetupWriter is Setup with an explicit output
func SetupWriter(out io.Writer, dev bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: out, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Adapter implements the key/value Logger interface on a zerolog.Logger
type Adapter struct {
	logger zerolog.Logger
}

// New returns an Adapter over Setup(dev)
func New(dev bool) *Adapter {
	return NewAdapter(Setup(dev))
}

// NewAdapter wraps an existing zerolog logger
func NewAdapter(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Zerolog returns the wrapped logger
func (a *Adapter) Zerolog() zerolog.Logger {
	return a.logger
}

func (a *Adapter) Debug(msg string, args ...any) {
	a.logger.Debug().Fields(fields(args)).Msg(msg)
}

func (a *Adapter) Info(msg string, args ...any) {
	a.logger.Info().Fields(fields(args)).Msg(msg)
}

func (a *Adapter) Warn(msg string, args ...any) {
	a.logger.Warn().Fields(fields(args)).Msg(msg)
}

func (a *Adapter) Error(msg string, args ...any) {
	a.logger.Error().Fields(fields(args)).Msg(msg)
}

// fields turns alternating key/value args into a map. A trailing key
// without a value is kept under "extra".
func fields(args []any) map[string]any {
	out := make(map[string]any, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			out["extra"] = args[i]
			break
		}
		if err, ok := args[i+1].(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = args[i+1]
	}
	return out
}

// Requests logs every request with its status and duration
func Requests(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()

		err := c.Next()

		event := logger.Info()
		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusInternalServerError {
			event = logger.Error().Err(err)
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration", time.Since(started)).
			Msg("http request")

		return err
	}
}
