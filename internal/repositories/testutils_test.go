package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/beforeigo/beforeigo/internal/sqlite"
	"github.com/beforeigo/beforeigo/internal/testhelpers"
	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/fixtures.sql
var testFixtures string

var testUserID = []byte{1, 2, 3, 4, 5, 6, 7, 8}

// newTestDB creates a fresh in-memory database loaded with the test fixtures.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()

	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)

	_, err = dbs.ReadWrite.Exec(testFixtures)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, dbs.Close())
	})

	return dbs
}
