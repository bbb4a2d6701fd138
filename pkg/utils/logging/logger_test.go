package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"genstudio/pkg/utils/logging"
)

func TestLevelFiltering(t *testing.T) {
	testCases := []struct {
		level   string
		dropped []string
		kept    []string
	}{
		{"debug", nil, []string{"dbg-line", "info-line", "warn-line", "err-line"}},
		{"info", []string{"dbg-line"}, []string{"info-line", "warn-line", "err-line"}},
		{"warn", []string{"dbg-line", "info-line"}, []string{"warn-line", "err-line"}},
		{"warning", []string{"dbg-line", "info-line"}, []string{"warn-line", "err-line"}},
		{"error", []string{"dbg-line", "info-line", "warn-line"}, []string{"err-line"}},
		{"ERROR", []string{"dbg-line", "info-line", "warn-line"}, []string{"err-line"}},
		{"", []string{"dbg-line"}, []string{"info-line"}},
		{"bogus", []string{"dbg-line"}, []string{"info-line"}},
	}

	for _, tc := range testCases {
		t.Run("level_"+tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)
			logger.Debug("dbg-line")
			logger.Info("info-line")
			logger.Warn("warn-line")
			logger.Error("err-line")

			out := buf.String()
			for _, msg := range tc.kept {
				gt.S(t, out).Contains(msg)
			}
			for _, msg := range tc.dropped {
				gt.S(t, out).NotContains(msg)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf).With("session", "voice")

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("attached message")
	out := buf.String()
	gt.S(t, out).Contains("attached message")
	gt.S(t, out).Contains("session")
}

func TestFromFallsBackToDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	replacement := logging.New("warn", buf)
	logging.SetDefault(replacement)

	// a bare context carries no logger, so From must hand out the default
	got := logging.From(context.Background())
	gt.Equal(t, got, replacement)

	got.Warn("fallback message")
	gt.S(t, buf.String()).Contains("fallback message")
}
