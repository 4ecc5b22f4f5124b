package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestFromContext_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is the case under test
	logger := FromContext(nil)

	var buf bytes.Buffer
	out := logger.Output(&buf)
	out.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestFromContext_ContextWithoutLogger(t *testing.T) {
	var buf bytes.Buffer
	old := DefaultLogger()
	SetDefaultLogger(zerolog.New(&buf))
	defer SetDefaultLogger(old)

	log := FromContext(context.Background())
	log.Info().Msg("fallback")

	if !strings.Contains(buf.String(), `"message":"fallback"`) {
		t.Errorf("expected default logger output, got: %s", buf.String())
	}
}

func TestWithLogger_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))

	log := FromContext(ctx)
	log.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("expected output from context logger, got: %s", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithRunID(ctx, "run-1")
	ctx = WithStep(ctx, "io")
	ctx = WithBackend(ctx, "ftp")
	ctx = WithInt(ctx, "repeat", 2)

	log := FromContext(ctx)
	log.Info().Msg("tagged")

	out := buf.String()
	for _, want := range []string{
		`"run_id":"run-1"`,
		`"step":"io"`,
		`"backend":"ftp"`,
		`"repeat":2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output, got: %s", want, out)
		}
	}
}

func TestWithStep_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := WithLogger(context.Background(), zerolog.New(&buf))
	_ = WithStep(parent, "fib")

	log := FromContext(parent)
	log.Info().Msg("parent")

	if strings.Contains(buf.String(), `"step"`) {
		t.Errorf("parent logger gained child field: %s", buf.String())
	}
}

func TestNewConfiguredLogger(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		human     bool
		wantDebug bool
		wantJSON  bool
	}{
		{"info json", false, false, false, true},
		{"debug json", true, false, true, true},
		{"info human", false, true, false, false},
	}

	oldLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(oldLevel)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewConfiguredLogger(&buf, tt.debug, tt.human)

			logger.Debug().Msg("dbg")
			if got := buf.Len() > 0; got != tt.wantDebug {
				t.Errorf("debug output = %v, want %v", got, tt.wantDebug)
			}

			buf.Reset()
			logger.Info().Msg("info")
			if got := strings.HasPrefix(buf.String(), "{"); got != tt.wantJSON {
				t.Errorf("json output = %v, want %v: %s", got, tt.wantJSON, buf.String())
			}
		})
	}
}
