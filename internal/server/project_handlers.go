package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/project"
)

type createProjectRequest struct {
	Name           string `json:"name" binding:"required"`
	RequiredSkeins int    `json:"required_skeins" binding:"min=0"`
	PatternID      *uint  `json:"pattern_id"`
	Notes          string `json:"notes"`
}

type updateProjectRequest struct {
	Name           *string `json:"name"`
	RequiredSkeins *int    `json:"required_skeins"`
	PatternID      *uint   `json:"pattern_id"`
	ClearPattern   bool    `json:"clear_pattern"`
	Notes          *string `json:"notes"`
}

type allocateRequest struct {
	YarnID     uint `json:"yarn_id" binding:"required"`
	SkeinsUsed int  `json:"skeins_used" binding:"required,gt=0"`
}

func (h *handlers) listProjects(c *gin.Context) {
	rows, err := project.List(h.db)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]projectView, 0, len(rows))
	for _, s := range rows {
		out = append(out, newProjectView(s))
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	p, err := project.Create(h.db, project.CreateOpts(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusCreated, p.ID)
}

func (h *handlers) getProject(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	h.respondProject(c, http.StatusOK, id)
}

func (h *handlers) updateProject(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if _, err := project.Update(h.db, id, project.UpdateOpts(req)); err != nil {
		h.fail(c, err)
		return
	}
	h.respondProject(c, http.StatusOK, id)
}

func (h *handlers) deleteProject(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := project.Delete(h.db.WithContext(c.Request.Context()), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) allocate(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.ledger.Allocate(c.Request.Context(), ledger.AllocateCmd{
		ProjectID: id,
		YarnID:    req.YarnID,
		Amount:    req.SkeinsUsed,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, allocateView{
		ProjectID:  res.ProjectID,
		YarnID:     res.YarnID,
		SkeinsUsed: res.SkeinsUsed,
		Available:  max(res.Available, 0),
		Remaining:  res.Remaining,
	})
}

func (h *handlers) deallocate(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	yarnID, ok := h.idParam(c, "yarn_id")
	if !ok {
		return
	}
	if err := h.ledger.Deallocate(c.Request.Context(), id, yarnID); err != nil {
		h.fail(c, err)
		return
	}
	remaining, err := h.ledger.RemainingRequired(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project_id": id, "yarn_id": yarnID, "remaining": remaining})
}

func (h *handlers) respondProject(c *gin.Context, status int, id uint) {
	d, err := h.ledger.ProjectDetail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, newProjectDetailView(d))
}
