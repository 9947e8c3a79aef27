package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerSeverityTagging(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info.Print("starting up")
	l.Warn.Print("low memory heap")
	l.Error.Print("device lost")

	out := buf.String()
	require.Contains(t, out, "INFO: ")
	require.Contains(t, out, "WARNING: ")
	require.Contains(t, out, "ERROR: ")
	require.Equal(t, 3, strings.Count(out, "\n"))
}

func TestFatalInvokesHook(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	called := false
	l.SetFatalHook(func(format string, args ...any) {
		called = true
		l.Error.Printf(format, args...)
	})

	l.Fatal("instance creation failed: %v", "out of memory")
	require.True(t, called)
	require.Contains(t, buf.String(), "instance creation failed")
}
