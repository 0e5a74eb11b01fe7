package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/logging"
	"github.com/zulandar/stash/internal/metrics"
	"github.com/zulandar/stash/internal/testutil"
	"gorm.io/gorm"
)

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	blobs  *blob.Memory
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	blobs := blob.NewMemory()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewLedger(reg)
	require.NoError(t, err)
	log := logging.Discard()

	router, err := NewRouter(StartOpts{
		DB:       db,
		Blobs:    blobs,
		Ledger:   ledger.New(db, ledger.WithMetrics(m), ledger.WithLogger(log)),
		Gatherer: reg,
		Logger:   log,
	})
	require.NoError(t, err)
	return &testEnv{router: router, db: db, blobs: blobs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestNewRouter_NilDB(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db is required")
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	assert.ErrorContains(t, err, "db is required")
}

func TestHealthAndMetrics(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	y := testutil.SeedYarn(t, e.db, "Brand A", 1)
	p := testutil.SeedProject(t, e.db, "Hat", 1)
	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/allocations", p.ID),
		map[string]any{"yarn_id": y.ID, "skeins_used": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `stash_ledger_operations_total{op="allocate",outcome="ok"} 1`)
}

func TestYarnLifecycle(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/api/yarn", map[string]any{
		"brand_name": "Brand A", "color_name": "Moss", "yarn_weight": "dk", "skeins_owned": 5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[yarnView](t, w)
	assert.Equal(t, 5, created.Available)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/yarn/%d", created.ID), map[string]any{"color_name": "Fern"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Fern", decode[yarnView](t, w).ColorName)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/yarn/%d/adjust", created.ID), map[string]any{"delta": -7})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, decode[yarnView](t, w).SkeinsOwned)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/yarn/%d/adjust", created.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/yarn/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/yarn/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode[map[string]any](t, w)["kind"])
}

func TestListYarn_Sort(t *testing.T) {
	e := setup(t)
	testutil.SeedYarn(t, e.db, "Cascade", 2)
	testutil.SeedYarn(t, e.db, "Adriafil", 9)

	w := e.do(t, http.MethodGet, "/api/yarn?sort=brand", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]yarnView](t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "Adriafil", rows[0].BrandName)

	w = e.do(t, http.MethodGet, "/api/yarn?sort=newest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Adriafil", decode[[]yarnView](t, w)[0].BrandName)

	w = e.do(t, http.MethodGet, "/api/yarn?sort=price", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/yarn?sort="+url.QueryEscape("brand_name;DROP TABLE yarn"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

func TestCreateYarn_Invalid(t *testing.T) {
	e := setup(t)
	w := e.do(t, http.MethodPost, "/api/yarn", map[string]any{"skeins_owned": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, http.MethodPost, "/api/yarn", map[string]any{"brand_name": "A", "skeins_owned": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocate_ConflictAndDetail(t *testing.T) {
	e := setup(t)
	y := testutil.SeedYarn(t, e.db, "Brand A", 5)
	p1 := testutil.SeedProject(t, e.db, "Sweater", 10)
	p2 := testutil.SeedProject(t, e.db, "Hat", 2)

	w := e.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/allocations", p1.ID),
		map[string]any{"yarn_id": y.ID, "skeins_used": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[allocateView](t, w)
	assert.Equal(t, 1, res.Available)
	assert.Equal(t, 6, res.Remaining)

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/allocations", p2.ID),
		map[string]any{"yarn_id": y.ID, "skeins_used": 2})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "insufficient_stock", body["kind"])
	assert.EqualValues(t, 1, body["available"])

	w = e.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/allocations", p2.ID),
		map[string]any{"yarn_id": y.ID, "skeins_used": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d", p1.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[projectDetailView](t, w)
	assert.Equal(t, 4, detail.Allocated)
	require.Len(t, detail.Allocations, 1)
	assert.Equal(t, 4, detail.Allocations[0].SkeinsUsed)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d/allocations/%d", p1.ID, y.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 10, decode[map[string]any](t, w)["remaining"])

	w = e.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode[totalsView](t, w)
	assert.Equal(t, 5, totals.OwnedSkeins)
	assert.Equal(t, 0, totals.AllocatedSkeins)
	assert.EqualValues(t, 2, totals.Projects)
}

func TestProjects_CRUD(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/api/projects", map[string]any{"name": "Shawl", "required_skeins": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[projectDetailView](t, w)
	assert.Equal(t, 3, p.Remaining)

	w = e.do(t, http.MethodPost, "/api/projects", map[string]any{"name": "Bad", "pattern_id": 42})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPatch, fmt.Sprintf("/api/projects/%d", p.ID), map[string]any{"notes": "lace weight"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "lace weight", decode[projectDetailView](t, w).Notes)

	w = e.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]projectView](t, w), 1)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodGet, "/api/projects/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestPatternsAndFolders(t *testing.T) {
	e := setup(t)

	w := e.do(t, http.MethodPost, "/api/folders", map[string]any{"name": "Lace"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lace := decode[folderView](t, w)

	w = e.do(t, http.MethodPost, "/api/folders", map[string]any{"name": "Lace"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct := multipartBody(t, map[string]string{"name": "Shawl", "folder_id": fmt.Sprint(lace.ID)},
		"file", "../../shawl chart.pdf", "%PDF-chart")
	req := httptest.NewRequest(http.MethodPost, "/api/patterns", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	shawl := decode[patternView](t, w)
	assert.True(t, shawl.HasFile)
	assert.Equal(t, 1, e.blobs.Len())

	body, ct = multipartBody(t, map[string]string{"name": "Beanie"}, "", "", "")
	req = httptest.NewRequest(http.MethodPost, "/api/patterns", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/patterns/%d/file", shawl.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-chart", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"),
		w.Header().Get("Content-Disposition"))

	w = e.do(t, http.MethodGet, "/api/library", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lib := decode[libraryView](t, w)
	require.Len(t, lib.Unfiled, 1)
	assert.Equal(t, "Beanie", lib.Unfiled[0].Name)
	require.Len(t, lib.Folders, 1)
	require.Len(t, lib.Folders[0].Patterns, 1)
	assert.Equal(t, "Shawl", lib.Folders[0].Patterns[0].Name)

	w = e.do(t, http.MethodGet, "/api/patterns?unfiled=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]patternView](t, w), 1)

	w = e.do(t, http.MethodDelete, fmt.Sprintf("/api/folders/%d", lace.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["deleted_patterns"])
	assert.Zero(t, e.blobs.Len())

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/patterns/%d", shawl.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestYarnImage(t *testing.T) {
	e := setup(t)
	y := testutil.SeedYarn(t, e.db, "Brand A", 1)

	w := e.do(t, http.MethodGet, fmt.Sprintf("/api/yarn/%d/image", y.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, ct := multipartBody(t, nil, "image", "skein.jpg", "jpeg-bytes")
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/yarn/%d/image", y.ID), body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[yarnView](t, w).HasImage)

	w = e.do(t, http.MethodGet, fmt.Sprintf("/api/yarn/%d/image", y.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "jpeg"))
}

func TestCreatePattern_URLEncodedForm(t *testing.T) {
	e := setup(t)

	form := url.Values{"name": {"Shawl"}}
	req := httptest.NewRequest(http.MethodPost, "/api/patterns", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[patternView](t, w)
	assert.Equal(t, "Shawl", p.Name)
	assert.False(t, p.HasFile)
	assert.Zero(t, e.blobs.Len())

	req = httptest.NewRequest(http.MethodPost, "/api/patterns", strings.NewReader(url.Values{"folder_id": {"1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeallocate_IdempotentAndMissingProject(t *testing.T) {
	e := setup(t)
	y := testutil.SeedYarn(t, e.db, "Brand A", 3)
	p := testutil.SeedProject(t, e.db, "Hat", 2)

	path := fmt.Sprintf("/api/projects/%d/allocations/%d", p.ID, y.ID)
	for range 2 {
		w := e.do(t, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := e.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/999/allocations/%d", y.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
