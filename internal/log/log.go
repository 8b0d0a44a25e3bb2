package log

import (
	"io"
	"os"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/config"
	"github.com/rs/zerolog"
)

type Logger = zerolog.Logger

func NewLogger(cfg *config.Config) Logger {
	return New(os.Stderr, cfg.Logging.Level, cfg.Logging.Pretty)
}

func New(out io.Writer, level string, pretty bool) Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
