package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, h *handlers, gatherer prometheus.Gatherer) {
	router.GET("/healthz", handleHealth)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.GET("/dashboard", h.dashboard)

	y := api.Group("/yarn")
	y.GET("", h.listYarn)
	y.POST("", h.createYarn)
	y.GET("/:id", h.getYarn)
	y.PATCH("/:id", h.updateYarn)
	y.DELETE("/:id", h.deleteYarn)
	y.POST("/:id/adjust", h.adjustYarn)
	y.PUT("/:id/image", h.uploadYarnImage)
	y.GET("/:id/image", h.downloadYarnImage)

	p := api.Group("/projects")
	p.GET("", h.listProjects)
	p.POST("", h.createProject)
	p.GET("/:id", h.getProject)
	p.PATCH("/:id", h.updateProject)
	p.DELETE("/:id", h.deleteProject)
	p.POST("/:id/allocations", h.allocate)
	p.DELETE("/:id/allocations/:yarn_id", h.deallocate)

	f := api.Group("/folders")
	f.GET("", h.listFolders)
	f.POST("", h.createFolder)
	f.GET("/:id", h.getFolder)
	f.PATCH("/:id", h.renameFolder)
	f.DELETE("/:id", h.deleteFolder)

	pt := api.Group("/patterns")
	pt.GET("", h.listPatterns)
	pt.POST("", h.createPattern)
	pt.GET("/:id", h.getPattern)
	pt.PATCH("/:id", h.updatePattern)
	pt.DELETE("/:id", h.deletePattern)
	pt.GET("/:id/file", h.downloadPattern)

	api.GET("/library", h.library)
}
