package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

func sampleHistory() map[string][]domain.RunRecord {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.RunRecord{
		ScriptName: "install",
		ScriptPath: "/opt/install.sh",
		StartTime:  start,
	}
	rec.Finalize(domain.RunSuccess, 0, "", start.Add(3*time.Second))
	return map[string][]domain.RunRecord{"install": {rec}}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleHistory()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded["install"], 1)
	got := loaded["install"][0]
	assert.Equal(t, domain.RunSuccess, got.Status)
	assert.Equal(t, 0, got.ExitCode)
	assert.InDelta(t, 3.0, got.Duration, 0.001)
}

func TestLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "absent.json"))
	history, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).Load(context.Background())
	require.Error(t, err)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleHistory()))
	require.NoError(t, store.Save(ctx, map[string][]domain.RunRecord{}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestDefaultPath(t *testing.T) {
	store := New("")
	assert.Equal(t, filepath.Join(".scriptdeck", "history.json"), store.Path)
}
