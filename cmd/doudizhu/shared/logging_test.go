package shared

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLoggerToWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&buf, false)

	logger.Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "key")
}

func TestSetupLoggerToLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerTo(&buf, false)
	logger.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	logger = SetupLoggerTo(&buf, true)
	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
