package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Info.Print("hidden")
	l.Warn.Print("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info written while not verbose: %q", out)
	}
	if !strings.Contains(out, "[ Warn ] ") || !strings.Contains(out, "shown") {
		t.Errorf("warning missing: %q", out)
	}

	buf.Reset()
	New(&buf, true).Info.Print("visible")
	if !strings.HasPrefix(buf.String(), "[ Info ] ") {
		t.Errorf("info line = %q", buf.String())
	}
}

func TestHost(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Host()
	out := buf.String()
	if !strings.Contains(out, "CPU: ") || !strings.Contains(out, "SIMD: ") {
		t.Errorf("host report = %q", out)
	}
}
