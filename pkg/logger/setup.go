package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/stark-toolkit/pkg/config"
	"github.com/rs/zerolog"
)

// Configure ajusta o nível global e devolve o logger base do serviço, já com
// o campo "service". Também passa a ser o logger de log.Ctx quando o contexto
// não carrega um.
func Configure(cfg config.LoggingConf, service string) zerolog.Logger {
	return configure(cfg, service, os.Stdout)
}

func configure(cfg config.LoggingConf, service string, out io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	ctx := zerolog.New(writer(cfg, out)).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	logger := ctx.Logger()

	zerolog.DefaultContextLogger = &logger
	return logger
}

// parseLevel usa info para valores vazios ou desconhecidos.
func parseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func writer(cfg config.LoggingConf, out io.Writer) io.Writer {
	switch {
	case !cfg.Enabled:
		return io.Discard
	case cfg.Format == "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return out
	}
}
