package httpapi_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relves/zcapcore/pkg/zcap/revocation"
)

func openTestRevocationStore(t *testing.T) *revocation.Store {
	t.Helper()
	store, err := revocation.Open(filepath.Join(t.TempDir(), "revocations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func revokeID(store *revocation.Store, id string) error {
	return store.Revoke(context.Background(), id)
}
