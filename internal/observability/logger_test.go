// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/sgexplore/internal/config"
)

// syncBuffer is a goroutine safe zapcore.WriteSyncer backed by a bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Sync() error { return nil }

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestInitialize(t *testing.T) {
	t.Run("console logger colours levels and names components", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "sgexplore",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)

		GetLogger().Named("planner").Info("planned", zap.Int("edges", 3))
		Sync()

		line := out.String()
		assert.Contains(t, line, colorGreen+"INFO"+colorReset)
		assert.Contains(t, line, "sgexplore.planner.")
		assert.Contains(t, line, "planned")
		assert.Contains(t, line, `"edges": 3`)
	})

	t.Run("json logger honours level", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, out)

		GetLogger().Info("hidden")
		GetLogger().Warn("visible", zap.String("agent", "a1"))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 1)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "visible", entry["msg"])
		assert.Equal(t, "a1", entry["agent"])
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		out := &syncBuffer{}
		Initialize(config.LoggerConfig{Level: "chatty", Format: "json"}, out)

		GetLogger().Debug("dropped")
		GetLogger().Info("kept")
		assert.NotContains(t, out.String(), "dropped")
		assert.Contains(t, out.String(), "kept")
	})

	t.Run("second initialize is ignored", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		first := &syncBuffer{}
		second := &syncBuffer{}
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, first)
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)

		GetLogger().Info("once")
		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})

	t.Run("log file receives json entries", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)

		logFile := filepath.Join(t.TempDir(), "mission.log")
		Initialize(config.LoggerConfig{Level: "info", Format: "console", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&syncBuffer{}))

		GetLogger().Info("persisted", zap.Int("tick", 4))
		Sync()

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"persisted"`)
		assert.Contains(t, string(data), `"tick":4`)
	})
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Sync without initialisation must be a harmless no-op.
	Sync()
}

func TestSync_ReopensLogFile(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logFile := filepath.Join(t.TempDir(), "mission.log")
	Initialize(config.LoggerConfig{Level: "info", Format: "json", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&syncBuffer{}))

	GetLogger().Info("before", zap.Int("tick", 1))
	Sync()
	GetLogger().Info("after", zap.Int("tick", 2))
	Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"before"`)
	assert.Contains(t, string(data), `"msg":"after"`)
}
