package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "json", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("module", "test").Debug("hola")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hola", entry["msg"])
	assert.Equal(t, "test", entry["module"])
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "json", nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "json", &buf)
	require.NoError(t, err)

	LogError(logger, "store", "AppendBatch", "writing batch", map[string]int{"rows": 3}, errors.New("disk full"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "disk full", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "store", entry["module"])
	assert.Equal(t, "AppendBatch", entry["funcName"])
	assert.Equal(t, "writing batch", entry["context"])
	assert.NotNil(t, entry["data"])
}

func TestOrDiscard(t *testing.T) {
	assert.NotNil(t, OrDiscard(nil))

	logger := logrus.New()
	assert.Same(t, logger, OrDiscard(logger))
}
