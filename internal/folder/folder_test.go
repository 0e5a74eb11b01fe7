package folder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/pattern"
	"github.com/zulandar/stash/internal/testutil"
)

func TestCreate(t *testing.T) {
	db := testutil.OpenDB(t)

	f, err := Create(db, "  Lace ")
	require.NoError(t, err)
	assert.Equal(t, "Lace", f.Name)

	_, err = Create(db, "Lace")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "already exists")

	_, err = Create(db, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRename(t *testing.T) {
	db := testutil.OpenDB(t)
	lace, err := Create(db, "Lace")
	require.NoError(t, err)
	_, err = Create(db, "Cables")
	require.NoError(t, err)

	got, err := Rename(db, lace.ID, "Lace & mohair")
	require.NoError(t, err)
	assert.Equal(t, "Lace & mohair", got.Name)

	_, err = Rename(db, lace.ID, "Cables")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// Renaming to its own name is fine.
	_, err = Rename(db, lace.ID, "Lace & mohair")
	assert.NoError(t, err)

	_, err = Rename(db, 999, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList_Counts(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	lace, err := Create(db, "Lace")
	require.NoError(t, err)
	_, err = Create(db, "Cables")
	require.NoError(t, err)
	for _, name := range []string{"Shawl", "Stole"} {
		_, err := pattern.Create(ctx, db, nil, pattern.CreateOpts{Name: name, FolderID: &lace.ID})
		require.NoError(t, err)
	}

	rows, err := List(db)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cables", rows[0].Name)
	assert.Equal(t, 0, rows[0].PatternCount)
	assert.Equal(t, "Lace", rows[1].Name)
	assert.Equal(t, 2, rows[1].PatternCount)
}

func TestDelete_CascadesPatterns(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	blobs := blob.NewMemory()

	lace, err := Create(db, "Lace")
	require.NoError(t, err)
	shawl, err := pattern.Create(ctx, db, blobs, pattern.CreateOpts{
		Name:     "Shawl",
		FolderID: &lace.ID,
		File:     &pattern.Upload{Name: "shawl.pdf", Body: strings.NewReader("chart")},
	})
	require.NoError(t, err)
	keep, err := pattern.Create(ctx, db, nil, pattern.CreateOpts{Name: "Beanie"})
	require.NoError(t, err)

	n, err := Delete(ctx, db, blobs, lace.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, blobs.Len())

	// Shawl is gone from the library entirely, not unparented.
	_, err = pattern.Get(db, shawl.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = pattern.Get(db, keep.ID)
	assert.NoError(t, err)

	var orphans int64
	require.NoError(t, db.Model(&models.Pattern{}).Where("folder_id = ?", lace.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	_, err = Delete(ctx, db, blobs, lace.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestBuildTree(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	lace, err := Create(db, "Lace")
	require.NoError(t, err)
	empty, err := Create(db, "Socks")
	require.NoError(t, err)
	_, err = pattern.Create(ctx, db, nil, pattern.CreateOpts{Name: "Shawl", FolderID: &lace.ID})
	require.NoError(t, err)
	_, err = pattern.Create(ctx, db, nil, pattern.CreateOpts{Name: "Beanie"})
	require.NoError(t, err)

	tree, err := BuildTree(db)
	require.NoError(t, err)

	require.Len(t, tree.Unfiled, 1)
	assert.Equal(t, "Beanie", tree.Unfiled[0].Name)

	require.Len(t, tree.Folders, 2)
	assert.Equal(t, lace.ID, tree.Folders[0].Folder.ID)
	require.Len(t, tree.Folders[0].Patterns, 1)
	assert.Equal(t, "Shawl", tree.Folders[0].Patterns[0].Name)
	assert.Equal(t, empty.ID, tree.Folders[1].Folder.ID)
	assert.Empty(t, tree.Folders[1].Patterns)
}

func TestDelete_CancelledContext(t *testing.T) {
	db := testutil.OpenDB(t)
	f, err := Create(db, "Socks")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Delete(ctx, db, nil, f.ID)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Get(db, f.ID)
	assert.NoError(t, err)
}
