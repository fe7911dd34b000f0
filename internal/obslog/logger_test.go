package obslog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Artisan-Hosting/Artisan-Platform/internal/obslog"
	"github.com/Artisan-Hosting/Artisan-Platform/internal/statusmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(t *testing.T) (*obslog.Logger, *bytes.Buffer) {
	t.Helper()
	logger := obslog.New("aggregator", "debug", "json")
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	return logger, &buf
}

func TestWithErrorIncludesServiceAndError(t *testing.T) {
	logger, buf := newBufferedLogger(t)
	logger.WithError(errors.New("boom")).Error("failed")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "aggregator", fields["service"])
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "failed", fields["message"])
}

func TestWithAppIncludesAppName(t *testing.T) {
	logger, buf := newBufferedLogger(t)
	logger.WithApp(statusmodel.Apache).Info("registered")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "Apache", fields["app"])
}

func TestWithContextIncludesConnID(t *testing.T) {
	logger, buf := newBufferedLogger(t)
	ctx := obslog.WithConnID(context.Background(), "conn-7")
	logger.WithContext(ctx).Info("connected")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "conn-7", fields["conn_id"])
}

func TestNewDefaultsUnknownLevelToInfo(t *testing.T) {
	logger := obslog.New("gateway", "not-a-level", "json")
	assert.Equal(t, "info", logger.GetLevel().String())
}
