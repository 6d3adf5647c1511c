package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level slog.Level) (*ChanneledLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger, err := NewChanneledLogger(&LoggerConfig{
		OutputToConsole: true,
		Writer:          buf,
		JSONFormat:      true,
		DefaultLevel:    level,
	})
	require.NoError(t, err)
	return logger, buf
}

func TestChannelAttributeIsAttached(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)

	logger.Chain().Info("transaction sent", "hash", "0xabc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chain", entry["channel"])
	assert.Equal(t, "transaction sent", entry["msg"])
	assert.Equal(t, "0xabc", entry["hash"])
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelWarn)

	logger.Story().Info("dropped")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetChannelLevel(ChannelStory, slog.LevelDebug))
	logger.Story().Debug("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Equal(t, "DEBUG", logger.GetChannelLevels()["story"])
	assert.Equal(t, "WARN", logger.GetChannelLevels()["chain"])
}

func TestSetChannelLevelUnknownChannel(t *testing.T) {
	logger, _ := newBufferLogger(t, slog.LevelInfo)
	assert.Error(t, logger.SetChannelLevel(Channel("nope"), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewChanneledLogger(&LoggerConfig{
		OutputToFile: true,
		LogDirectory: dir,
		JSONFormat:   false,
		DefaultLevel: slog.LevelInfo,
	})
	require.NoError(t, err)
	defer logger.Close()

	logger.Database().Info("schema ready")
	assert.FileExists(t, dir+"/database.log")
}
