package credential

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/makistry/meshview/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	_ Provider = (*MemoryStore)(nil)
	_ Provider = (*FileStore)(nil)
	_ Provider = (*RedisStore)(nil)
)

// exerciseProvider runs the common contract against any store
func exerciseProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	v, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, p.Set(ctx, "  sk-test-1234  "))
	v, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-1234", v)

	require.NoError(t, p.Set(ctx, "sk-other"))
	v, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-other", v)

	require.NoError(t, p.Clear(ctx))
	v, err = p.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, v)

	// Clearing an empty store is fine
	require.NoError(t, p.Clear(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseProvider(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultFileName)
	exerciseProvider(t, NewFileStore(path, zap.NewNop()))
}

func TestFileStorePersistsAndKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("other_key: keep\n"), 0o600))

	ctx := context.Background()
	require.NoError(t, NewFileStore(path, nil).Set(ctx, "sk-file"))

	// A fresh store reads what the first wrote
	v, err := NewFileStore(path, nil).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "other_key: keep")
	assert.Contains(t, string(data), Key+": sk-file")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("[not a map"), 0o600))

	_, err := NewFileStore(path, nil).Get(context.Background())
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(RedisOptions{Addr: mr.Addr()}, zap.NewNop())
	defer store.Close()

	exerciseProvider(t, store)
}

func TestRedisStoreKeyAndPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(RedisOptions{Addr: mr.Addr(), Prefix: "alice:"}, nil)
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), "sk-redis"))
	got, err := mr.Get("alice:" + Key)
	require.NoError(t, err)
	assert.Equal(t, "sk-redis", got)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	store := NewRedisStore(RedisOptions{Addr: addr}, nil)
	defer store.Close()

	_, err = store.Get(context.Background())
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "*****", Mask("short"))
	assert.Equal(t, "********5678", Mask("sk-abcd-5678"))
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(config.AssistantConfig{CredentialStore: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, p)

	path := filepath.Join(t.TempDir(), "c.yaml")
	p, err = FromConfig(config.AssistantConfig{CredentialStore: "file", CredentialFile: path}, nil)
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, p)
	assert.Equal(t, path, p.(*FileStore).Path())

	p, err = FromConfig(config.AssistantConfig{CredentialStore: "redis", RedisAddr: "localhost:1"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, p)
	_ = p.(*RedisStore).Close()

	_, err = FromConfig(config.AssistantConfig{CredentialStore: "vault"}, nil)
	assert.Error(t, err)
}
