package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", FormatText).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", FormatText).GetLevel())
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("info", "JSON", &buf)
	l.WithField("user_id", 7).Info("resolved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "resolved", entry["msg"])
	assert.Equal(t, float64(7), entry["user_id"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("warn", "", &buf)
	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
