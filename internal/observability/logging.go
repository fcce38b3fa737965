package observability

import (
	"FillIndexer/internal/config"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Loggers hands out component loggers that share one writer, level and set
// of static fields.
type Loggers struct {
	root zerolog.Logger
}

// NewLoggers writes JSON to w, or human-readable lines when cfg.Console is
// set. A nil w means stdout.
func NewLoggers(cfg config.LoggingConfig, w io.Writer) *Loggers {
	if w == nil {
		w = os.Stdout
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	ctx := zerolog.New(w).Level(ParseLogLevel(cfg.Level)).With().Timestamp()

	// sorted so every line carries the fields in the same order
	keys := make([]string, 0, len(cfg.Fields))
	for k := range cfg.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ctx = ctx.Str(k, cfg.Fields[k])
	}
	return &Loggers{root: ctx.Logger()}
}

// For tags the shared logger with component.
func (l *Loggers) For(component string) zerolog.Logger {
	return l.root.With().Str("component", component).Logger()
}

// ParseLogLevel accepts zerolog's level names. Empty or unknown is info.
func ParseLogLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
