package fileops

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissing(t *testing.T) {
	f := NewFileOps(t.TempDir())

	_, err := f.LoadConfig("ventify.yaml")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestSaveAndLoadConfig(t *testing.T) {
	f := NewFileOps(filepath.Join(t.TempDir(), "nested", "ventify"))
	require.NoError(t, f.EnsureDirectories())

	require.NoError(t, f.SaveConfig("ventify.yaml", []byte("session_type: x\n")))
	data, err := f.LoadConfig("ventify.yaml")
	require.NoError(t, err)
	assert.Equal(t, "session_type: x\n", string(data))
}

func TestPIDLifecycle(t *testing.T) {
	f := NewFileOps(t.TempDir())

	assert.NoError(t, f.CheckPID(), "no PID file means nothing is running")

	require.NoError(t, f.SavePID())
	assert.NoError(t, f.CheckPID(), "own PID is not another instance")

	require.NoError(t, f.CleanupPID())
	assert.NoError(t, f.CleanupPID(), "cleanup is idempotent")
}

func TestCheckPIDDetectsLiveProcess(t *testing.T) {
	f := NewFileOps(t.TempDir())

	// parent of the test binary is alive for the whole test
	ppid := os.Getppid()
	require.NoError(t, os.WriteFile(filepath.Join(f.GetConfigDir(), "ventify.pid"), []byte(strconv.Itoa(ppid)), 0o644))

	assert.ErrorIs(t, f.CheckPID(), ErrProcessAlreadyRunning)
}

func TestCheckPIDInvalidContent(t *testing.T) {
	f := NewFileOps(t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(f.GetConfigDir(), "ventify.pid"), []byte("nope"), 0o644))

	assert.Error(t, f.CheckPID())
}
