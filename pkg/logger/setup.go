package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/cat-wrangler/pkg/config"
	"github.com/rs/zerolog"
)

// Output retorna o writer configurado (JSON em stdout, console ou descarte).
func Output(cfg config.LoggingConf) io.Writer {
	if !cfg.Enabled {
		return io.Discard
	}
	if cfg.Format == "console" {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

// Configure inicializa o logger global baseando-se na configuração.
func Configure(cfg config.LoggingConf) zerolog.Logger {
	// Define o nível de log (default: info)
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	return zerolog.New(Output(cfg)).
		With().
		Timestamp().
		Logger()
}
