package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		FormatLevel: func(i interface{}) string {
			level := strings.ToUpper(fmt.Sprintf("%s", i))
			switch level {
			case "DEBUG":
				return "\x1b[36m[DEBUG]\x1b[0m"
			case "INFO":
				return "\x1b[32m[INFO]\x1b[0m"
			case "WARN":
				return "\x1b[33m[WARN]\x1b[0m"
			case "ERROR":
				return "\x1b[31m[ERROR]\x1b[0m"
			default:
				return fmt.Sprintf("[%s]", level)
			}
		},
	}
}

// NewLogger builds a logger writing to out and installs it as the global logger.
// Pretty selects colored console output instead of JSON lines.
func NewLogger(out io.Writer, level string, pretty bool) (*zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if out == nil {
		out = os.Stderr
	}
	if pretty {
		out = consoleWriter(out)
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	zerolog.SetGlobalLevel(lvl)
	return &logger, nil
}

// CheckErr logs err and exits when it is not nil.
func CheckErr(err error) {
	if err != nil {
		log.Error().Msg(err.Error())
		os.Exit(1)
	}
}
