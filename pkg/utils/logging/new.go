package logging

import (
	"io"
	"log/slog"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
)

// Format selects the log handler
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// redactedFields are masked wherever they appear in log attributes
var redactedFields = []string{
	"token", "secret", "api_key", "password", "authorization", "id_token", "jwt_secret",
}

func redactor() func(groups []string, a slog.Attr) slog.Attr {
	opts := []masq.Option{masq.WithTag("secret")}
	for _, name := range redactedFields {
		opts = append(opts, masq.WithFieldName(name))
	}
	return masq.New(opts...)
}

// New builds a logger writing to w. Secret values are redacted in both
// formats.
func New(w io.Writer, level slog.Level, format Format) (*slog.Logger, error) {
	switch format {
	case FormatConsole:
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(redactor()),
		)), nil

	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: redactor(),
		})), nil

	default:
		return nil, goerr.New("unknown log format", goerr.V("format", format))
	}
}
