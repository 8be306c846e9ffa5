// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/sgexplore/internal/config"
	"github.com/xkilldash9x/sgexplore/internal/observability"
)

const testScenario = `
name: test-room
bounds: {min_x: -2, min_y: -2, max_x: 2, max_y: 2}
obstacles:
  - {min_x: 0.8, min_y: -2, max_x: 1.0, max_y: 0.5}
world_objects:
  - {kind: hotspot, x: -1.0, y: 1.0}
sensor_range: 2.5
arrival_margin: 0.2
agents:
  - id: scout
    capabilities: [can_move, can_explore, can_assess]
`

func TestMain(m *testing.M) {
	// The global logger is initialised once; claim it with a silent one so commands
	// under test do not write to stdout.
	observability.Initialize(config.LoggerConfig{Level: "fatal", Format: "json"}, zapcore.AddSync(io.Discard))
	os.Exit(m.Run())
}

// useMemFs swaps the application filesystem for an in-memory one holding the test
// scenario at /world.yaml.
func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/world.yaml", []byte(testScenario), 0o644))
	orig := appFs
	appFs = fs
	t.Cleanup(func() { appFs = orig })
	return fs
}

// executeCommand runs a fresh command tree with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

var missionLine = regexp.MustCompile(`Mission ([0-9a-f-]{36}) finished: (\w+) after (\d+) ticks`)

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	t.Setenv("SGEXPLORE_GRID_CELL_COUNT", "64")
	out, err := executeCommand(t, "version")
	require.NoError(t, err, "version must not depend on a valid configuration")
	assert.Equal(t, Version+"\n", out)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t)
	require.NoError(t, err)
	assert.Contains(t, out, "situational graph")
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "validate")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Setenv("SGEXPLORE_GRID_CELL_COUNT", "64")
	useMemFs(t)

	_, err := executeCommand(t, "validate", "--scenario", "/world.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load or validate config")
	assert.Contains(t, err.Error(), "must be odd")
}

func TestRootCmd_ConfigFile(t *testing.T) {
	useMemFs(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("scenario:\n  file: /world.yaml\nmission:\n  step_budget: 3\n"), 0o644))

	out, err := executeCommand(t, "--config", cfgPath, "run")
	require.NoError(t, err)
	m := missionLine.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	ticks, err := strconv.Atoi(m[3])
	require.NoError(t, err)
	assert.LessOrEqual(t, ticks, 3, "step budget from the config file caps the mission")
}

func TestValidateCmd(t *testing.T) {
	useMemFs(t)

	out, err := executeCommand(t, "validate", "--scenario", "/world.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, `Scenario "test-room" is valid: 1 agents, 1 world objects, 1 obstacles`)

	_, err = executeCommand(t, "validate", "--scenario", "/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario")
}

func TestRunCmd_FileStore(t *testing.T) {
	fs := useMemFs(t)
	t.Setenv("SGEXPLORE_STORE_TYPE", "file")
	t.Setenv("SGEXPLORE_STORE_PATH", "/snapshots")

	out, err := executeCommand(t, "run", "--scenario", "/world.yaml", "--steps", "4", "--seed", "7")
	require.NoError(t, err)

	m := missionLine.FindStringSubmatch(out)
	require.NotNil(t, m, out)
	ticks, err := strconv.Atoi(m[3])
	require.NoError(t, err)
	require.GreaterOrEqual(t, ticks, 1)
	assert.LessOrEqual(t, ticks, 4)
	assert.Contains(t, out, "waypoint")

	dir := filepath.Join("/snapshots", m[1])
	for _, name := range []string{"tick-000001.json", fmt.Sprintf("tick-%06d.json", ticks), "final.json"} {
		exists, err := afero.Exists(fs, filepath.Join(dir, name))
		require.NoError(t, err)
		assert.True(t, exists, name)
	}
}

func TestRunCmd_InvalidSteps(t *testing.T) {
	useMemFs(t)
	_, err := executeCommand(t, "run", "--scenario", "/world.yaml", "--steps", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--steps must be at least 1")
}

func TestReportCmd_SQLiteStore(t *testing.T) {
	useMemFs(t)
	t.Setenv("SGEXPLORE_STORE_TYPE", "sqlite")
	t.Setenv("SGEXPLORE_STORE_PATH", filepath.Join(t.TempDir(), "views.db"))

	out, err := executeCommand(t, "run", "--scenario", "/world.yaml", "--steps", "2")
	require.NoError(t, err)
	m := missionLine.FindStringSubmatch(out)
	require.NotNil(t, m, out)

	out, err = executeCommand(t, "report", "--mission-id", m[1])
	require.NoError(t, err)
	assert.Regexp(t, `TICK\s+FINAL\s+NODES\s+EDGES\s+TASKS`, out)
	ticks, err := strconv.Atoi(m[3])
	require.NoError(t, err)
	// One view per tick plus the final one.
	assert.Equal(t, ticks+1, len(regexp.MustCompile(`(?m)^\d+\s+(true|false)`).FindAllString(out, -1)), out)
	assert.Regexp(t, fmt.Sprintf(`(?m)^%s\s+true`, m[3]), out)

	_, err = executeCommand(t, "report", "--mission-id", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --mission-id")
}
