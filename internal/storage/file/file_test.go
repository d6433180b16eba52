package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/storage"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/file"
)

func TestStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	s, err := file.New(filepath.Join(dir, "data"))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = s.Get(ctx, "shipments")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "shipments", []byte(`[{"id":"a"}]`)))

	got, err := s.Get(ctx, "shipments")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	raw, err := os.ReadFile(filepath.Join(dir, "data", "shipments.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": \"a\"\n  }\n]\n", string(raw))
}

func TestStore_InvalidKey(t *testing.T) {
	s, err := file.New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a b", "名字"} {
		_, err := s.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
		assert.ErrorIs(t, s.Put(ctx, key, []byte(`null`)), storage.ErrInvalidKey, key)
	}
}

func TestStore_RejectsInvalidJSON(t *testing.T) {
	s, err := file.New(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), "broken", []byte(`{`)))

	_, err = s.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
