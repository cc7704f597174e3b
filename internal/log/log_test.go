package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/ttlmangle/internal/config"
)

func testConfig(format string) config.LogConfig {
	cfg := config.Default().Log
	cfg.Format = format
	return cfg
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	cfg := testConfig("text")
	cfg.Level = "verbose"
	_, err := New(cfg, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(testConfig("xml"), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig("text")
	cfg.Level = "warn"
	l, err := New(cfg, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, l.IsDebugEnabled())
	assert.False(t, l.IsTraceEnabled())
}

func TestJSONFormatWithFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(testConfig("json"), &buf)
	require.NoError(t, err)

	l.WithField("component", "transformer").
		WithFields(map[string]interface{}{"interface": "eth0"}).
		WithError(errors.New("boom")).
		Error("send failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "send failed", line["msg"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "transformer", line["component"])
	assert.Equal(t, "eth0", line["interface"])
	assert.Equal(t, "boom", line["error"])
}

func TestPatternFormatter(t *testing.T) {
	f := &formatter{pattern: "%time [%level] %msg %field%n", time: "2006-01-02 15:04:05"}
	entry := logrus.NewEntry(logrus.New())
	entry.Time = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	entry.Level = logrus.InfoLevel
	entry.Message = "started 100%n"
	entry.Data = logrus.Fields{"b": 2, "a": "x"}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06 07:08:09 [INFO] started 100%n a=x,b=2\n", string(out))
}

func TestPatternFormatterCaller(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig("pattern")
	cfg.Pattern = "%caller %func %goroutine %msg%n"
	l, err := New(cfg, &buf)
	require.NoError(t, err)

	l.Info("hello")

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, " hello\n"), out)
	assert.Contains(t, out, "log/logger_adapter.go:")
	assert.NotContains(t, out, "unknown")
}

func TestPatternFormatterWithoutCaller(t *testing.T) {
	f := &formatter{pattern: "%caller|%func", time: time.RFC3339}
	out, err := f.Format(logrus.NewEntry(logrus.New()))
	require.NoError(t, err)
	assert.Equal(t, "unknown|unknown", string(out))
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriterContinuesPastFailure(t *testing.T) {
	var buf bytes.Buffer
	w := NewMultiWriter().Add(failingWriter{}).Add(&buf)

	n, err := w.Write([]byte("line\n"))
	assert.Error(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "line\n", buf.String())
}

func TestFileAppender(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ttlmangle.log")
	w := NewMultiWriter().AddFileAppender(FileAppenderOpt{Filename: logPath, MaxSize: 1})

	l, err := New(testConfig("text"), w)
	require.NoError(t, err)
	l.Info("to file")
	require.NoError(t, w.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestInitReplacesGlobalLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "global.log")
	cfg := testConfig("json")
	cfg.Level = "debug"
	cfg.File.Enabled = true
	cfg.File.Path = logPath

	require.NoError(t, Init(cfg))
	t.Cleanup(func() { _ = Close() })

	GetLogger().Debug("global debug")
	require.NoError(t, Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "global debug")
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.WithField("k", "v").Error("nothing")
	assert.False(t, l.IsDebugEnabled())
}
