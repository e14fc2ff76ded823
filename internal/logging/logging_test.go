package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "JSON format to stdout",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
		},
		{
			name: "Console format to stderr",
			config: Config{
				Level:  "debug",
				Format: "console",
				Output: "stderr",
			},
		},
		{
			name: "Invalid log level defaults to info",
			config: Config{
				Level:  "invalid",
				Format: "json",
				Output: "stdout",
			},
		},
		{
			name: "Unwritable file path",
			config: Config{
				Level:  "info",
				Format: "json",
				Output: "/nonexistent-dir/vidfaq.log",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")

	logger.WithOwnerID("owner-1").
		WithEntryID("entry-2").
		WithRequestID("req-3").
		WithField("key", "value").
		Info("entry created")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "owner-1", lines[0]["owner_id"])
	assert.Equal(t, "entry-2", lines[0]["entry_id"])
	assert.Equal(t, "req-3", lines[0]["request_id"])
	assert.Equal(t, "value", lines[0]["key"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "entry created", lines[0]["message"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.LogDatabaseOperation("list_entries", time.Millisecond, nil)
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	lines := decodeLines(t, &buf)
	assert.Len(t, lines, 2)
}

func TestLogFetchOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.LogFetchOperation("thumbnail", "https://www.tiktok.com/@a/video/1", 120*time.Millisecond, nil)
	logger.LogFetchOperation("caption", "https://www.tiktok.com/@a/video/1", time.Second, errors.New("exit status 1"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "thumbnail", lines[0]["kind"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "exit status 1", lines[1]["error"])
}

func TestLogHTTPRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.LogHTTPRequest("GET", "alice.vidfaq.example", "/", "192.168.1.1", 200, 100*time.Millisecond)
	logger.LogHTTPRequest("POST", "app.vidfaq.example", "/api/v1/videos", "192.168.1.1", 503, 10*time.Millisecond)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "alice.vidfaq.example", lines[0]["host"])
	assert.Equal(t, float64(200), lines[0]["status_code"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestLogCaptionJob(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	logger.LogCaptionJob("entry-1", "stored", map[string]interface{}{"language": "he"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "stored", lines[0]["event"])
	assert.Equal(t, "he", lines[0]["language"])
}

func TestLogStorageAndDatabaseOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")

	logger.LogStorageOperation("upload", "thumbnails", "thumbnails/o/e.jpg", 2048, time.Second, nil)
	logger.LogDatabaseOperation("list_entries", 5*time.Millisecond, errors.New("conn reset"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, float64(2048), lines[0]["size_bytes"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.WithOwnerID("o").WithError(errors.New("x")).Error("dropped")
}

func BenchmarkLogWithField(b *testing.B) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithField("key1", "value1").WithOwnerID("owner-1").Info("benchmark message")
	}
}
