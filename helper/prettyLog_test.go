package helper

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerHandle(t *testing.T) {
	ctx := context.Background()

	levels := []struct {
		level  slog.Level
		prefix string
	}{
		{slog.LevelDebug, "DEBUG:"},
		{slog.LevelInfo, "INFO:"},
		{slog.LevelWarn, "WARN:"},
		{slog.LevelError, "ERROR:"},
	}
	for _, tc := range levels {
		t.Run("Handle "+tc.prefix+" record with attributes", func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewPrettyHandler(&buf, PrettyHandlerOptions{SlogOpts: slog.HandlerOptions{Level: slog.LevelDebug}})

			record := slog.NewRecord(time.Now(), tc.level, "ingested paper", 0)
			record.AddAttrs(slog.String("document_id", "doc-1"), slog.Int("num_chunks", 4))

			err := handler.Handle(ctx, record)
			require.NoError(t, err, "Expected Handle to not return an error")

			output := buf.String()
			assert.Contains(t, output, tc.prefix, "Expected output to contain the level")
			assert.Contains(t, output, "ingested paper", "Expected output to contain the message")
			assert.Contains(t, output, "doc-1", "Expected output to contain the string attribute")
			assert.Contains(t, output, "4", "Expected output to contain the int attribute")
			assert.Regexp(t, `\[\d{2}:\d{2}:\d{2}\.\d{3}\]`, output, "Expected output to contain a formatted timestamp")
		})
	}

	t.Run("Handle record without attributes prints empty object", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelInfo, "simple message", 0)
		require.NoError(t, handler.Handle(ctx, record))

		assert.Contains(t, buf.String(), "{}", "Expected output to contain empty JSON object for attributes")
	})

	t.Run("Handle record with error attribute prints the message", func(t *testing.T) {
		var buf bytes.Buffer
		handler := NewPrettyHandler(&buf, PrettyHandlerOptions{})

		record := slog.NewRecord(time.Now(), slog.LevelError, "query failed", 0)
		record.AddAttrs(slog.Any("error", ErrProvider))
		require.NoError(t, handler.Handle(ctx, record))

		assert.Contains(t, buf.String(), "capability provider failure", "Expected error to be rendered as its message")
	})
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	t.Run("Logger created with With keeps attributes", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(NewPrettyHandler(&buf, PrettyHandlerOptions{})).With(slog.String("component", "watcher"))

		logger.Info("started")

		assert.Contains(t, buf.String(), "INFO:", "Expected pretty output after With")
		assert.Contains(t, buf.String(), "watcher", "Expected inherited attribute in output")
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Debug records are dropped at info level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "info")

		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden", "Expected debug record to be filtered")
		assert.Contains(t, buf.String(), "shown", "Expected info record to be written")
	})

	t.Run("Parse log levels", func(t *testing.T) {
		assert.Equal(t, slog.LevelDebug, ParseLogLevel("DEBUG"))
		assert.Equal(t, slog.LevelWarn, ParseLogLevel("warning"))
		assert.Equal(t, slog.LevelError, ParseLogLevel(" error "))
		assert.Equal(t, slog.LevelInfo, ParseLogLevel("unknown"))
	})
}
