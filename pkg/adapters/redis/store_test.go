package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptdeck/scriptdeck/pkg/adapters/redis"
	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

func newTestStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewFromClient(client, opts...), mr
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := domain.RunRecord{
		ScriptName: "install",
		StartTime:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	rec.Finalize(domain.RunStopped, domain.StopExitCode, "", rec.StartTime.Add(time.Second))

	require.NoError(t, store.Save(ctx, map[string][]domain.RunRecord{"install": {rec}}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded["install"], 1)
	assert.Equal(t, domain.RunStopped, loaded["install"][0].Status)
	assert.Equal(t, domain.StopExitCode, loaded["install"][0].ExitCode)
}

func TestLoadEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveReplacesPrevious(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string][]domain.RunRecord{
		"old": {{ScriptName: "old"}},
	}))
	require.NoError(t, store.Save(ctx, map[string][]domain.RunRecord{
		"new": {{ScriptName: "new"}},
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, loaded, "old")
	assert.Contains(t, loaded, "new")
}

func TestTTL(t *testing.T) {
	store, mr := newTestStore(t, redis.WithTTL(time.Minute), redis.WithKey("deck:test"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string][]domain.RunRecord{
		"demo": {{ScriptName: "demo"}},
	}))

	mr.FastForward(2 * time.Minute)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
