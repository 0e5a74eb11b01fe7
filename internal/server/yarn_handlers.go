package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/yarn"
)

type createYarnRequest struct {
	BrandName   string `json:"brand_name" binding:"required"`
	ColorName   string `json:"color_name"`
	YarnWeight  string `json:"yarn_weight"`
	SkeinsOwned int    `json:"skeins_owned" binding:"min=0"`
}

type updateYarnRequest struct {
	BrandName  *string `json:"brand_name"`
	ColorName  *string `json:"color_name"`
	YarnWeight *string `json:"yarn_weight"`
}

type adjustRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

func (h *handlers) listYarn(c *gin.Context) {
	sort, err := yarn.ParseSortKey(c.Query("sort"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := yarn.List(h.db, sort)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]yarnView, 0, len(rows))
	for _, s := range rows {
		out = append(out, newYarnView(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createYarn(c *gin.Context) {
	var req createYarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	y, err := yarn.Create(h.db, yarn.CreateOpts{
		BrandName:   req.BrandName,
		ColorName:   req.ColorName,
		YarnWeight:  req.YarnWeight,
		SkeinsOwned: req.SkeinsOwned,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondStock(c, http.StatusCreated, y.ID)
}

func (h *handlers) getYarn(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	h.respondStock(c, http.StatusOK, id)
}

func (h *handlers) updateYarn(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req updateYarnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if _, err := yarn.Update(h.db, id, yarn.UpdateOpts(req)); err != nil {
		h.fail(c, err)
		return
	}
	h.respondStock(c, http.StatusOK, id)
}

func (h *handlers) adjustYarn(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s, err := h.ledger.AdjustOwned(c.Request.Context(), id, *req.Delta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newYarnView(*s))
}

func (h *handlers) deleteYarn(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := yarn.Delete(c.Request.Context(), h.db, h.blobs, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) uploadYarnImage(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	fh, f, present, err := openUpload(c, "image")
	if err != nil {
		h.fail(c, err)
		return
	}
	if !present {
		h.fail(c, apperr.Validationf("image file is required"))
		return
	}
	defer f.Close()

	if _, err := yarn.SetImage(c.Request.Context(), h.db, h.blobs, id, fh.Filename, fh.Header.Get("Content-Type"), f); err != nil {
		h.fail(c, err)
		return
	}
	h.respondStock(c, http.StatusOK, id)
}

func (h *handlers) downloadYarnImage(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	info, rc, err := yarn.Image(c.Request.Context(), h.db, h.blobs, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	serveBlob(c, info, rc, "inline", "")
}

func (h *handlers) respondStock(c *gin.Context, status int, id uint) {
	s, err := yarn.GetStock(h.db, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, newYarnView(*s))
}
