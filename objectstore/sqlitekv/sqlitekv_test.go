package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/commonsync/objectstore/objectstore"
)

var _ objectstore.Storage = &Store{}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "objectstore.db")

	store, err := Open(path)
	assert.Equal(t, nil, err)
	defer store.Close()

	kv, err := store.Load(ctx)
	assert.Equal(t, nil, err)

	_, ok, err := kv.TryGet(ctx, "installationId")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, ok)

	err = kv.Add(ctx, "installationId", "value-1")
	assert.Equal(t, nil, err)

	value, ok, err := kv.TryGet(ctx, "installationId")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ok)
	assert.Equal(t, "value-1", value)

	// add replaces an existing value
	err = kv.Add(ctx, "installationId", "value-2")
	assert.Equal(t, nil, err)
	value, _, err = kv.TryGet(ctx, "installationId")
	assert.Equal(t, nil, err)
	assert.Equal(t, "value-2", value)

	err = kv.Remove(ctx, "installationId")
	assert.Equal(t, nil, err)
	_, ok, err = kv.TryGet(ctx, "installationId")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, ok)
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "objectstore.db")

	store, err := Open(path)
	assert.Equal(t, nil, err)
	err = store.Add(ctx, "installationId", "value-1")
	assert.Equal(t, nil, err)
	err = store.Close()
	assert.Equal(t, nil, err)

	reopened, err := Open(path)
	assert.Equal(t, nil, err)
	defer reopened.Close()

	value, ok, err := reopened.TryGet(ctx, "installationId")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, ok)
	assert.Equal(t, "value-1", value)
}

func TestStoreBacksInstallationIds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "objectstore.db")

	store, err := Open(path)
	assert.Equal(t, nil, err)
	defer store.Close()

	installationIds := objectstore.NewInstallationIdProvider(store)
	first, err := installationIds.Get(ctx)
	assert.Equal(t, nil, err)

	// a fresh provider over the same file observes the same identity
	second, err := objectstore.NewInstallationIdProvider(store).Get(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, first, second)
}

func TestOpenValidatesPath(t *testing.T) {
	_, err := Open("")
	assert.NotEqual(t, nil, err)
}
