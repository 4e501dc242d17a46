package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bizflow/bizgate/pkg/observability"
	"github.com/bizflow/bizgate/pkg/plans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCatalog_ReseedsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plans:\n  - name: ORTA\n    description: ilk\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seeded := make(chan *plans.Catalog, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchCatalog(ctx, path, 20*time.Millisecond, observability.NopLogger(), func(c *plans.Catalog) error {
			seeded <- c
			return nil
		})
	}()

	// An invalid edit is skipped, the next valid one is seeded.
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(path, []byte("plans:\n  - name: PLATINUM\n"), 0o600))
		require.NoError(t, os.WriteFile(path, []byte("plans:\n  - name: ORTA\n    description: ikinci\n"), 0o600))
		select {
		case c := <-seeded:
			require.Len(t, c.Plans, 1)
			assert.Equal(t, "ikinci", c.Plans[0].Description)
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	for len(seeded) > 0 {
		<-seeded
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	select {
	case <-seeded:
		t.Fatal("unrelated file triggered a reseed")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestLoadCatalog_DefaultsToEmbedded(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Plans, len(plans.KnownPlans()))
}
