package project

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/testutil"
)

func TestCreate(t *testing.T) {
	db := testutil.OpenDB(t)

	p, err := Create(db, CreateOpts{Name: " Raglan ", RequiredSkeins: 10})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Raglan", p.Name)
	assert.Nil(t, p.PatternID)
}

func TestCreate_WithPattern(t *testing.T) {
	db := testutil.OpenDB(t)
	pat := models.Pattern{Name: "Shawl"}
	require.NoError(t, db.Create(&pat).Error)

	p, err := Create(db, CreateOpts{Name: "Shawl knit", PatternID: &pat.ID})
	require.NoError(t, err)

	got, err := Get(db, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Pattern)
	assert.Equal(t, "Shawl", got.Pattern.Name)

	missing := uint(999)
	_, err = Create(db, CreateOpts{Name: "Orphan", PatternID: &missing})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.OpenDB(t)

	_, err := Create(db, CreateOpts{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Create(db, CreateOpts{Name: "Hat", RequiredSkeins: -2})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestList_Totals(t *testing.T) {
	db := testutil.OpenDB(t)
	y := testutil.SeedYarn(t, db, "Brand A", 10)
	p1 := testutil.SeedProject(t, db, "Sweater", 10)
	p2 := testutil.SeedProject(t, db, "Socks", 1)
	testutil.SeedAllocation(t, db, p1.ID, y.ID, 4)
	testutil.SeedAllocation(t, db, p2.ID, y.ID, 3)

	rows, err := List(db)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, p2.ID, rows[0].ID, "newest first")
	assert.Equal(t, 3, rows[0].Allocated)
	assert.Equal(t, -2, rows[0].Remaining, "over-allocation is informational")
	assert.Equal(t, 4, rows[1].Allocated)
	assert.Equal(t, 6, rows[1].Remaining)
}

func TestUpdate(t *testing.T) {
	db := testutil.OpenDB(t)
	p := testutil.SeedProject(t, db, "Hat", 2)
	pat := models.Pattern{Name: "Beanie"}
	require.NoError(t, db.Create(&pat).Error)

	name := "Winter hat"
	req := 3
	got, err := Update(db, p.ID, UpdateOpts{Name: &name, RequiredSkeins: &req, PatternID: &pat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Winter hat", got.Name)
	assert.Equal(t, 3, got.RequiredSkeins)
	require.NotNil(t, got.PatternID)

	got, err = Update(db, p.ID, UpdateOpts{ClearPattern: true})
	require.NoError(t, err)
	assert.Nil(t, got.PatternID)

	neg := -1
	_, err = Update(db, p.ID, UpdateOpts{RequiredSkeins: &neg})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Update(db, 999, UpdateOpts{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_CascadesAllocations(t *testing.T) {
	db := testutil.OpenDB(t)
	y := testutil.SeedYarn(t, db, "Brand A", 5)
	p := testutil.SeedProject(t, db, "Hat", 2)
	testutil.SeedAllocation(t, db, p.ID, y.ID, 2)

	require.NoError(t, Delete(db, p.ID))

	var count int64
	require.NoError(t, db.Model(&models.ProjectYarn{}).Where("project_id = ?", p.ID).Count(&count).Error)
	assert.Zero(t, count)

	ok, err := Exists(db, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, Delete(db, p.ID), apperr.ErrNotFound)
}

func TestDelete_BoundContext(t *testing.T) {
	db := testutil.OpenDB(t)
	p := testutil.SeedProject(t, db, "Cowl", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Delete(db.WithContext(ctx), p.ID), context.Canceled)

	_, err := Get(db, p.ID)
	assert.NoError(t, err)
}
