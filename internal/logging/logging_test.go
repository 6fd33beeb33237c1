package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "info", "json")

	logger.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestSetupLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "warn", "text")

	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestSetupUnknownFallsBack(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf, "loud", "yaml")

	logger.Debug("dropped")
	assert.Empty(t, buf.String())
	logger.Info("kept")
	assert.Contains(t, buf.String(), "kept")
}
