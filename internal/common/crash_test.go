package common

import (
	"os"
	"path/filepath"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCrashReport_RecordsRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	config := NewDefaultConfig()
	config.Targets.Path = "data_part_01.json"
	config.Output.Dir = "/srv/rendered_html"
	info := NewCrashContext("folio crawl", []string{"folio.toml", "local.toml"}, config)

	now := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	path, err := writeCrashReport(dir, info, "index out of range", debug.Stack(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "crash-20240301-103000.log"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "command:         folio crawl")
	assert.Contains(t, report, "config files:    folio.toml, local.toml")
	assert.Contains(t, report, "targets:         data_part_01.json")
	assert.Contains(t, report, "output dir:      /srv/rendered_html")
	assert.Contains(t, report, "site:            https://www.newscientist.com/login/")
	assert.Contains(t, report, "panic: index out of range")
	assert.Contains(t, report, "TestWriteCrashReport_RecordsRun")
}

func TestWriteCrashReport_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := writeCrashReport(file, CrashContext{}, "boom", nil, time.Now())
	assert.Error(t, err)
}

func TestInstallCrashHandler_KeepsDefaultDir(t *testing.T) {
	InstallCrashHandler("", CrashContext{Command: "folio login"})

	crashMu.Lock()
	defer crashMu.Unlock()
	assert.Equal(t, "./logs", crashDir)
	assert.Equal(t, "folio login", crashInfo.Command)
}
