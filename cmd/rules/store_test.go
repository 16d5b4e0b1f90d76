package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rules/internal/config"
	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/adapters/sqlite"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/persistence/middleware"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore_None(t *testing.T) {
	store, closeFn, err := openStore(context.Background(), &config.Config{Store: config.StoreNone}, logging.NewNop())
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.NoError(t, closeFn())
}

func TestOpenStore_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, closeFn, err := openStore(ctx, &config.Config{
		Store:       config.StoreRedis,
		RedisAddr:   mr.Addr(),
		RedisPrefix: "test:",
	}, logging.NewNop())
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, store.Save(ctx, domain.Variable{Name: "x", Type: schema.Int(), Value: 1}))
	assert.True(t, mr.Exists("test:var:x"))
}

func TestOpenStore_Middleware(t *testing.T) {
	key := make([]byte, middleware.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "rules.db")
	cfg := &config.Config{
		Store:         config.StoreSQLite,
		SQLitePath:    dbPath,
		EncryptionKey: base64.StdEncoding.EncodeToString(key),
		PIIPatterns:   []string{"password"},
	}

	store, closeFn, err := openStore(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, domain.Variable{Name: "total", Type: schema.Int(), Value: int64(7)}))
	require.NoError(t, store.Save(ctx, domain.Variable{Name: "db_password", Type: schema.String(), Value: "hunter2"}))

	v, err := store.Load(ctx, "total")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Value)
	v, err = store.Load(ctx, "db_password")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, v.Value)
	require.NoError(t, closeFn())

	raw, err := sqlite.Open(ctx, dbPath)
	require.NoError(t, err)
	defer raw.Close()
	stored, err := raw.Load(ctx, "total")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Value.(string), "enc:v1:"))
}

func TestOpenStore_BadKey(t *testing.T) {
	_, _, err := openStore(context.Background(), &config.Config{Store: config.StoreMemory, EncryptionKey: "short"}, logging.NewNop())
	assert.ErrorContains(t, err, "RULES_ENCRYPTION_KEY")

	_, _, err = openStore(context.Background(), &config.Config{Store: config.StoreMemory, PIIPatterns: []string{"("}}, logging.NewNop())
	assert.Error(t, err)
}
