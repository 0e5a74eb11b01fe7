package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/folder"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/pattern"
)

type folderRequest struct {
	Name string `json:"name" binding:"required"`
}

type updatePatternRequest struct {
	Name        *string `json:"name"`
	FolderID    *uint   `json:"folder_id"`
	ClearFolder bool    `json:"clear_folder"`
}

func (h *handlers) listFolders(c *gin.Context) {
	rows, err := folder.List(h.db)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]folderView, 0, len(rows))
	for _, f := range rows {
		out = append(out, folderView{ID: f.ID, Name: f.Name, PatternCount: f.PatternCount})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	f, err := folder.Create(h.db, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, folderView{ID: f.ID, Name: f.Name})
}

func (h *handlers) getFolder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	f, err := folder.Get(h.db, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, folderView{
		ID:           f.ID,
		Name:         f.Name,
		PatternCount: len(f.Patterns),
		Patterns:     newPatternViews(f.Patterns),
	})
}

func (h *handlers) renameFolder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	f, err := folder.Rename(h.db, id, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, folderView{ID: f.ID, Name: f.Name, PatternCount: len(f.Patterns)})
}

func (h *handlers) deleteFolder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	n, err := folder.Delete(c.Request.Context(), h.db, h.blobs, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_patterns": n})
}

func (h *handlers) listPatterns(c *gin.Context) {
	var filters pattern.ListFilters
	if raw := c.Query("folder_id"); raw != "" {
		id, err := ledger.ParseID("folder_id", raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		filters.FolderID = &id
	}
	if raw := c.Query("unfiled"); raw != "" {
		unfiled, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(c, apperr.Validationf("unfiled must be true or false"))
			return
		}
		filters.Unfiled = unfiled
	}
	rows, err := pattern.List(h.db, filters)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPatternViews(rows))
}

// createPattern accepts a multipart or urlencoded form with name, optional
// folder_id and, for multipart, an optional file.
func (h *handlers) createPattern(c *gin.Context) {
	opts := pattern.CreateOpts{Name: c.PostForm("name")}
	if raw := c.PostForm("folder_id"); raw != "" {
		id, err := ledger.ParseID("folder_id", raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		opts.FolderID = &id
	}

	fh, f, present, err := openUpload(c, "file")
	if err != nil {
		h.fail(c, err)
		return
	}
	if present {
		defer f.Close()
		opts.File = &pattern.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}
	}

	p, err := pattern.Create(c.Request.Context(), h.db, h.blobs, opts)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPatternView(*p))
}

func (h *handlers) getPattern(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	p, err := pattern.Get(h.db, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPatternView(*p))
}

func (h *handlers) updatePattern(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req updatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := pattern.Update(h.db, id, pattern.UpdateOpts(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newPatternView(*p))
}

func (h *handlers) deletePattern(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := pattern.Delete(c.Request.Context(), h.db, h.blobs, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) downloadPattern(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	p, info, rc, err := pattern.Open(c.Request.Context(), h.db, h.blobs, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	serveBlob(c, info, rc, "attachment", p.FileName)
}

func (h *handlers) library(c *gin.Context) {
	tree, err := folder.BuildTree(h.db)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newLibraryView(tree))
}
