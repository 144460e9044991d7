// Package logging configures the process logger from the [logging] and
// [server] sections of the configuration document.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/registryhq/registry/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup builds the root logger. The returned closer flushes and closes the
// rotating log file; callers close it at shutdown. Output path "-" writes
// to stderr without rotation.
func Setup(doc *config.Document) (zerolog.Logger, io.Closer, error) {
	output, err := doc.GetString("logging", "output")
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	format, err := doc.GetString("logging", "format")
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	dateFormat, err := doc.GetString("logging", "date_format")
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	var w io.Writer
	var closer io.Closer
	if output == "-" {
		w = os.Stderr
		closer = nopCloser{}
	} else {
		sizeStr, err := doc.GetString("logging", "size")
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		size, err := config.ParseSize(sizeStr)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("logging.size: %w", err)
		}
		backups, err := doc.GetInt("logging", "backups")
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   output,
			MaxSize:    megabytes(size),
			MaxBackups: backups,
		}
		w = rotator
		closer = rotator
	}

	switch format {
	case "json":
		// raw zerolog output
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: dateFormat, NoColor: output != "-"}
	default:
		return zerolog.Logger{}, nil, fmt.Errorf("logging.format: unknown format %q", format)
	}

	level := zerolog.InfoLevel
	if debug, err := doc.GetBool("server", "debug"); err == nil && debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// megabytes converts a byte count to whole megabytes for the rotator,
// rounding up so small limits still rotate.
func megabytes(n int64) int {
	const mb = 1 << 20
	out := int((n + mb - 1) / mb)
	if out < 1 {
		out = 1
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
