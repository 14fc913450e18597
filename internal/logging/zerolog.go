package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// ZerologOptions configures the writer stack for subsystem manager
// loggers (database, influx).
type ZerologOptions struct {
	Level string
	File  io.Writer
	// GelfAddress enables a GELF UDP sink when non-empty.
	GelfAddress string
}

// NewZerolog builds the zerolog logger handed to the database and
// influx managers: colored console, plain file, optional GELF. A
// failed GELF connection is returned as a non-fatal error alongside a
// still-usable logger.
func NewZerolog(opts ZerologOptions) (zerolog.Logger, error) {
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}

	if opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	var gelfErr error
	if opts.GelfAddress != "" {
		w, err := gelf.NewWriter(opts.GelfAddress)
		if err != nil {
			gelfErr = err
		} else {
			writers = append(writers, w)
		}
	}

	mlw := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(mlw).With().Timestamp().Logger().
		Level(parseZerologLevel(opts.Level))
	return logger, gelfErr
}

// parseZerologLevel converts a string log level to zerolog.Level.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
