package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	reqctx "github.com/icritic/users-service/internal/pkg/context"
)

func TestNew_LevelAndFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantJSON  bool
	}{
		{"defaults", "", "", zerolog.InfoLevel, false},
		{"invalid level", "loud", "console", zerolog.InfoLevel, false},
		{"debug json", "debug", "json", zerolog.DebugLevel, true},
		{"warn json", "warn", "json", zerolog.WarnLevel, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := New(&buf, tc.level, tc.format)
			if lg.GetLevel() != tc.wantLevel {
				t.Fatalf("expected level %s, got %s", tc.wantLevel, lg.GetLevel())
			}

			lg.WithLevel(tc.wantLevel).Str("k", "v").Msg("hello")
			out := strings.TrimSpace(buf.String())
			if !strings.Contains(out, "hello") {
				t.Fatalf("expected message, got %q", out)
			}
			if isJSON := strings.HasPrefix(out, "{"); isJSON != tc.wantJSON {
				t.Fatalf("json=%v, want %v: %q", isJSON, tc.wantJSON, out)
			}
		})
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := New(&buf, "info", "json")
	lg.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug leaked at info level: %q", buf.String())
	}
}

func TestInitWithWriter_ReadsEnvAndSetsGlobal(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	if Logger.GetLevel() != zerolog.ErrorLevel || zlog.Logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("expected error level on both loggers, got %s / %s", Logger.GetLevel(), zlog.Logger.GetLevel())
	}

	zlog.Error().Msg("via global")
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one json line, got %q", buf.String())
	}
	if line["service"] != serviceName || line["message"] != "via global" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestWithCtx_AddsRequestID(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_FORMAT", "json")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	lg := WithCtx(reqctx.WithRequestID(context.Background(), "rid-42"))
	lg.Info().Msg("scoped")
	if !strings.Contains(buf.String(), `"request_id":"rid-42"`) {
		t.Fatalf("expected request_id field, got: %q", buf.String())
	}

	buf.Reset()
	lg = WithCtx(context.Background())
	lg.Info().Msg("plain")
	if strings.Contains(buf.String(), "request_id") {
		t.Fatalf("did not expect request_id, got: %q", buf.String())
	}
}
