package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeCatalog(t, "scripts.yaml", `
scripts:
  - name: install
    path: install.sh
    description: Install everything
    args: ["--verbose"]
  - name: demo
    description: Simulation only
  - path: nameless.sh
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	s, err := c.Get("install")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "install.sh"), s.Path)
	assert.Equal(t, []string{"--verbose"}, s.Args)

	demo, err := c.Get("demo")
	require.NoError(t, err)
	assert.Empty(t, demo.Path)
}

func TestLoadJSON(t *testing.T) {
	path := writeCatalog(t, "scripts.json", `{"scripts":[{"name":"backup","path":"/opt/backup.sh"}]}`)

	c, err := Load(path)
	require.NoError(t, err)

	s, err := c.Get("backup")
	require.NoError(t, err)
	assert.Equal(t, "/opt/backup.sh", s.Path)
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadMalformed(t *testing.T) {
	path := writeCatalog(t, "scripts.yaml", "scripts: [not: valid: yaml:")
	_, err := Load(path)
	require.Error(t, err)
}

func TestGetUnknown(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	_, err = c.Get("ghost")
	require.ErrorIs(t, err, domain.ErrScriptNotFound)
}

func TestNamesFiltersDeveloperOnly(t *testing.T) {
	path := writeCatalog(t, "scripts.yaml", `
scripts:
  - name: install
  - name: debug-dump
    developer_only: true
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"install"}, c.Names(false))
	assert.Equal(t, []string{"debug-dump", "install"}, c.Names(true))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real.sh")
	require.NoError(t, os.WriteFile(real, []byte("#!/bin/sh\n"), 0o755))

	path := writeCatalog(t, "scripts.yaml", `
scripts:
  - name: ok
    path: `+real+`
  - name: sim
`)
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	bad := writeCatalog(t, "scripts.yaml", `
scripts:
  - name: broken
    path: /nonexistent/broken.sh
`)
	c, err = Load(bad)
	require.NoError(t, err)
	require.Error(t, c.Validate())
}
