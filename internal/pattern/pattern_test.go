package pattern

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/testutil"
)

func TestCreate_WithFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	blobs := blob.NewMemory()

	p, err := Create(ctx, db, blobs, CreateOpts{
		Name: "Shawl",
		File: &Upload{Name: "../../Lace Shawl.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	require.NotNil(t, p.FileRef)
	assert.True(t, strings.HasPrefix(*p.FileRef, "patterns/"))
	assert.Equal(t, "Lace_Shawl.pdf", p.FileName)
	assert.Equal(t, 1, blobs.Len())

	got, info, rc, err := Open(ctx, db, blobs, p.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	assert.Equal(t, "application/pdf", info.ContentType)
	assert.Equal(t, "Shawl", got.Name)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)

	_, err := Create(ctx, db, nil, CreateOpts{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Create(ctx, db, blob.NewMemory(), CreateOpts{Name: "x", File: &Upload{Name: "a.pdf"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	missing := uint(77)
	_, err = Create(ctx, db, nil, CreateOpts{Name: "x", FolderID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type failingStore struct{ blob.Store }

func (failingStore) Put(context.Context, string, io.Reader, blob.PutOptions) (blob.Info, error) {
	return blob.Info{}, errors.New("disk full")
}

func TestCreate_BlobFailureWritesNothing(t *testing.T) {
	db := testutil.OpenDB(t)

	_, err := Create(context.Background(), db, failingStore{}, CreateOpts{
		Name: "Shawl",
		File: &Upload{Name: "s.pdf", Body: strings.NewReader("x")},
	})
	assert.ErrorIs(t, err, apperr.ErrStorage)

	var count int64
	require.NoError(t, db.Model(&models.Pattern{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestOpen_NoFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	p, err := Create(ctx, db, nil, CreateOpts{Name: "Notes only"})
	require.NoError(t, err)

	_, _, _, err = Open(ctx, db, blob.NewMemory(), p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, _, err = Open(ctx, db, blob.NewMemory(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	f := models.Folder{Name: "Lace"}
	require.NoError(t, db.Create(&f).Error)

	_, err := Create(ctx, db, nil, CreateOpts{Name: "Shawl", FolderID: &f.ID})
	require.NoError(t, err)
	_, err = Create(ctx, db, nil, CreateOpts{Name: "Beanie"})
	require.NoError(t, err)

	all, err := List(db, ListFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Beanie", all[0].Name)

	inFolder, err := List(db, ListFilters{FolderID: &f.ID})
	require.NoError(t, err)
	require.Len(t, inFolder, 1)
	assert.Equal(t, "Shawl", inFolder[0].Name)

	unfiled, err := List(db, ListFilters{Unfiled: true})
	require.NoError(t, err)
	require.Len(t, unfiled, 1)
	assert.Equal(t, "Beanie", unfiled[0].Name)
}

func TestUpdate_MoveAndRename(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	f := models.Folder{Name: "Hats"}
	require.NoError(t, db.Create(&f).Error)
	p, err := Create(ctx, db, nil, CreateOpts{Name: "Beanie"})
	require.NoError(t, err)

	name := "Slouchy beanie"
	got, err := Update(db, p.ID, UpdateOpts{Name: &name, FolderID: &f.ID})
	require.NoError(t, err)
	assert.Equal(t, "Slouchy beanie", got.Name)
	require.NotNil(t, got.Folder)
	assert.Equal(t, "Hats", got.Folder.Name)

	got, err = Update(db, p.ID, UpdateOpts{ClearFolder: true})
	require.NoError(t, err)
	assert.Nil(t, got.FolderID)

	missing := uint(5)
	_, err = Update(db, p.ID, UpdateOpts{FolderID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_UnlinksProjectsAndRemovesFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	blobs := blob.NewMemory()

	p, err := Create(ctx, db, blobs, CreateOpts{
		Name: "Sweater",
		File: &Upload{Name: "sweater.pdf", Body: strings.NewReader("x")},
	})
	require.NoError(t, err)
	proj := models.Project{Name: "My sweater", PatternID: &p.ID}
	require.NoError(t, db.Create(&proj).Error)

	require.NoError(t, Delete(ctx, db, blobs, p.ID))
	assert.Zero(t, blobs.Len())

	var got models.Project
	require.NoError(t, db.First(&got, proj.ID).Error)
	assert.Nil(t, got.PatternID)

	assert.ErrorIs(t, Delete(ctx, db, blobs, p.ID), apperr.ErrNotFound)
}

func TestDelete_CancelledContext(t *testing.T) {
	db := testutil.OpenDB(t)
	p, err := Create(context.Background(), db, nil, CreateOpts{Name: "Mittens"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Delete(ctx, db, nil, p.ID), context.Canceled)

	_, err = Get(db, p.ID)
	assert.NoError(t, err)
}
