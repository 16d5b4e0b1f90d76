package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunVariableStoreContract runs a suite of tests to verify that a VariableStore
// implementation adheres to the defined interface contract.
func RunVariableStoreContract(t *testing.T, store VariableStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		name := prefix + "-user"
		err := store.Save(ctx, domain.Variable{Name: name, Value: "ada", Type: schema.String()})
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, name, loaded.Name)
		assert.Equal(t, "ada", loaded.Value)
		assert.Equal(t, "string", loaded.TypeName())
	})

	t.Run("Integers survive serialization", func(t *testing.T) {
		name := prefix + "-count"
		require.NoError(t, store.Save(ctx, domain.Variable{Name: name, Value: 42, Type: schema.Int()}))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.EqualValues(t, 42, loaded.Value)
		assert.NoError(t, loaded.Type.Validate(loaded.Value))
	})

	t.Run("Overwrite", func(t *testing.T) {
		name := prefix + "-flag"
		require.NoError(t, store.Save(ctx, domain.Variable{Name: name, Value: false, Type: schema.Bool()}))
		require.NoError(t, store.Save(ctx, domain.Variable{Name: name, Value: true, Type: schema.Bool()}))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, true, loaded.Value)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrVariableNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		name := prefix + "-gone"
		require.NoError(t, store.Save(ctx, domain.Variable{Name: name, Value: "x", Type: schema.String()}))

		require.NoError(t, store.Delete(ctx, name), "Delete should not return error")

		_, err := store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrVariableNotFound, "Load after Delete should return ErrVariableNotFound")
		assert.NoError(t, store.Delete(ctx, name), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		a, b := prefix+"-list-a", prefix+"-list-b"
		require.NoError(t, store.Save(ctx, domain.Variable{Name: b, Value: 1, Type: schema.Int()}))
		require.NoError(t, store.Save(ctx, domain.Variable{Name: a, Value: 2, Type: schema.Int()}))
		defer func() {
			_ = store.Delete(ctx, a)
			_ = store.Delete(ctx, b)
		}()

		names, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, names, a)
		assert.Contains(t, names, b)
		assert.IsNonDecreasing(t, names)
	})
}
