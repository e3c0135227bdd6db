package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap"
)

func TestMapLoader(t *testing.T) {
	ctx := context.Background()
	root := zcap.CreateRootCapability("did:example:alice", "https://example.com/r")
	l := NewMapLoader(root)

	t.Run("loads a registered document", func(t *testing.T) {
		got, err := l.LoadCapability(ctx, root.ID)
		require.NoError(t, err)
		assert.Same(t, root, got)
	})

	t.Run("unknown id is a NotFoundError", func(t *testing.T) {
		_, err := l.LoadCapability(ctx, "urn:zcap:missing")
		require.Error(t, err)
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "urn:zcap:missing", notFound.ID)
	})

	t.Run("Put adds new documents", func(t *testing.T) {
		other := zcap.CreateRootCapability("did:example:bob", "https://example.com/r2")
		l.Put(other)
		got, err := l.LoadCapability(ctx, other.ID)
		require.NoError(t, err)
		assert.Same(t, other, got)
	})
}

func TestDocumentLoaderFunc(t *testing.T) {
	ctx := context.Background()
	called := false
	var f DocumentLoader = DocumentLoaderFunc(func(_ context.Context, id string) (*zcap.Capability, error) {
		called = true
		return &zcap.Capability{ID: id}, nil
	})

	got, err := f.LoadCapability(ctx, "urn:zcap:1")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "urn:zcap:1", got.ID)
}
