package logging

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestInitWithWriter(t *testing.T) {
	var buf bytes.Buffer
	defer InitWithWriter(io.Discard, false, false)

	InitWithWriter(&buf, false, false)
	L().Info().Msg("test json info")
	L().Debug().Msg("hidden at info level")
	if strings.Contains(buf.String(), "hidden at info level") {
		t.Errorf("debug message logged at info level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"message":"test json info"`) {
		t.Errorf("expected JSON info line, got: %s", buf.String())
	}

	buf.Reset()
	InitWithWriter(&buf, true, false)
	L().Debug().Msg("visible at debug level")
	if !strings.Contains(buf.String(), "visible at debug level") {
		t.Errorf("expected debug message, got: %s", buf.String())
	}

	buf.Reset()
	InitWithWriter(&buf, false, true)
	if !IsPrettyMode() {
		t.Error("human mode should enable pretty mode")
	}
	L().Info().Msg("test human info")
	if buf.Len() == 0 {
		t.Error("expected console output")
	}
	if strings.Contains(buf.String(), `"message"`) {
		t.Errorf("human mode wrote JSON: %s", buf.String())
	}

	InitWithWriter(&buf, false, false)
	if IsPrettyMode() {
		t.Error("json mode should disable pretty mode")
	}
}
