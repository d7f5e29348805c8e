package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunArtifactRegistryContract runs a suite of tests to verify that an ArtifactRegistry
// implementation adheres to the defined interface contract.
func RunArtifactRegistryContract(t *testing.T, registry ArtifactRegistry) {
	ctx := context.Background()

	t.Run("Create and Open", func(t *testing.T) {
		data := []byte("PK\x03\x04formatted")
		handle, err := registry.Create(ctx, "sop_formatted.docx", data)
		require.NoError(t, err, "Create should not return error")
		require.NotEmpty(t, handle)
		defer registry.Revoke(ctx, handle)

		blob, err := registry.Open(ctx, handle)
		require.NoError(t, err, "Open should not return error")
		assert.Equal(t, "sop_formatted.docx", blob.Name)
		assert.Equal(t, data, blob.Data)
	})

	t.Run("Handles Are Unique", func(t *testing.T) {
		h1, err := registry.Create(ctx, "a.docx", []byte("a"))
		require.NoError(t, err)
		h2, err := registry.Create(ctx, "a.docx", []byte("a"))
		require.NoError(t, err)
		defer registry.Revoke(ctx, h1)
		defer registry.Revoke(ctx, h2)

		assert.NotEqual(t, h1, h2)
	})

	t.Run("Open Non-Existent", func(t *testing.T) {
		_, err := registry.Open(ctx, "non-existent-handle")
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	})

	t.Run("Revoke", func(t *testing.T) {
		handle, err := registry.Create(ctx, "capa_formatted.docx", []byte("x"))
		require.NoError(t, err)

		require.NoError(t, registry.Revoke(ctx, handle), "Revoke should not return error")

		_, err = registry.Open(ctx, handle)
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound, "Open after Revoke should return ErrArtifactNotFound")

		err = registry.Revoke(ctx, handle)
		assert.ErrorIs(t, err, domain.ErrArtifactNotFound, "second Revoke should return ErrArtifactNotFound")
	})

	t.Run("Stored Data Is Isolated", func(t *testing.T) {
		data := []byte("original")
		handle, err := registry.Create(ctx, "a.docx", data)
		require.NoError(t, err)
		defer registry.Revoke(ctx, handle)

		data[0] = 'X'
		blob, err := registry.Open(ctx, handle)
		require.NoError(t, err)
		assert.Equal(t, "original", string(blob.Data))
	})

	t.Run("List", func(t *testing.T) {
		h1, err := registry.Create(ctx, "1.docx", []byte("1"))
		require.NoError(t, err)
		h2, err := registry.Create(ctx, "2.docx", []byte("2"))
		require.NoError(t, err)

		handles, err := registry.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, handles, h1)
		assert.Contains(t, handles, h2)

		require.NoError(t, registry.Revoke(ctx, h1))
		handles, err = registry.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, handles, h1)
		_ = registry.Revoke(ctx, h2)
	})

	t.Run("Concurrent Use", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				h, err := registry.Create(ctx, fmt.Sprintf("%d.docx", i), []byte{byte(i)})
				if err != nil {
					errs <- err
					return
				}
				if _, err := registry.Open(ctx, h); err != nil {
					errs <- err
					return
				}
				errs <- registry.Revoke(ctx, h)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}
	})
}
