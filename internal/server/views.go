package server

import (
	"time"

	"github.com/zulandar/stash/internal/folder"
	"github.com/zulandar/stash/internal/ledger"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/project"
	"github.com/zulandar/stash/internal/yarn"
)

type yarnView struct {
	ID            uint      `json:"id"`
	BrandName     string    `json:"brand_name"`
	ColorName     string    `json:"color_name"`
	YarnWeight    string    `json:"yarn_weight"`
	SkeinsOwned   int       `json:"skeins_owned"`
	Allocated     int       `json:"allocated"`
	Available     int       `json:"available"`
	Overcommitted bool      `json:"overcommitted"`
	HasImage      bool      `json:"has_image"`
	CreatedAt     time.Time `json:"created_at"`
}

func newYarnView(s yarn.Stock) yarnView {
	return yarnView{
		ID:            s.ID,
		BrandName:     s.BrandName,
		ColorName:     s.ColorName,
		YarnWeight:    s.YarnWeight,
		SkeinsOwned:   s.SkeinsOwned,
		Allocated:     s.Allocated,
		Available:     s.DisplayAvailable(),
		Overcommitted: s.Overcommitted(),
		HasImage:      s.ImageRef != nil,
		CreatedAt:     s.CreatedAt,
	}
}

type projectView struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	RequiredSkeins int       `json:"required_skeins"`
	PatternID      *uint     `json:"pattern_id"`
	PatternName    string    `json:"pattern_name,omitempty"`
	Notes          string    `json:"notes"`
	Allocated      int       `json:"allocated"`
	Remaining      int       `json:"remaining"`
	CreatedAt      time.Time `json:"created_at"`
}

func newProjectView(s project.Summary) projectView {
	return projectView{
		ID:             s.ID,
		Name:           s.Name,
		RequiredSkeins: s.RequiredSkeins,
		PatternID:      s.PatternID,
		Notes:          s.Notes,
		Allocated:      s.Allocated,
		Remaining:      s.Remaining,
		CreatedAt:      s.CreatedAt,
	}
}

type allocationView struct {
	YarnID     uint   `json:"yarn_id"`
	BrandName  string `json:"brand_name"`
	ColorName  string `json:"color_name"`
	YarnWeight string `json:"yarn_weight"`
	SkeinsUsed int    `json:"skeins_used"`
}

type projectDetailView struct {
	projectView
	Allocations []allocationView `json:"allocations"`
}

func newProjectDetailView(d *ledger.ProjectDetail) projectDetailView {
	v := projectDetailView{
		projectView: newProjectView(project.Summary{
			Project:   *d.Project,
			Allocated: d.Allocated,
			Remaining: d.Remaining,
		}),
		Allocations: make([]allocationView, 0, len(d.Allocations)),
	}
	if d.Project.Pattern != nil {
		v.PatternName = d.Project.Pattern.Name
	}
	for _, a := range d.Allocations {
		v.Allocations = append(v.Allocations, allocationView(a))
	}
	return v
}

type allocateView struct {
	ProjectID  uint `json:"project_id"`
	YarnID     uint `json:"yarn_id"`
	SkeinsUsed int  `json:"skeins_used"`
	Available  int  `json:"available"`
	Remaining  int  `json:"remaining"`
}

type patternView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	FolderID    *uint  `json:"folder_id"`
	FileName    string `json:"file_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	HasFile     bool   `json:"has_file"`
}

func newPatternView(p models.Pattern) patternView {
	return patternView{
		ID:          p.ID,
		Name:        p.Name,
		FolderID:    p.FolderID,
		FileName:    p.FileName,
		ContentType: p.ContentType,
		HasFile:     p.FileRef != nil,
	}
}

func newPatternViews(ps []models.Pattern) []patternView {
	out := make([]patternView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newPatternView(p))
	}
	return out
}

type folderView struct {
	ID           uint          `json:"id"`
	Name         string        `json:"name"`
	PatternCount int           `json:"pattern_count"`
	Patterns     []patternView `json:"patterns,omitempty"`
}

type libraryView struct {
	Unfiled []patternView `json:"unfiled"`
	Folders []folderView  `json:"folders"`
}

func newLibraryView(t *folder.Tree) libraryView {
	v := libraryView{Unfiled: newPatternViews(t.Unfiled), Folders: make([]folderView, 0, len(t.Folders))}
	for _, g := range t.Folders {
		v.Folders = append(v.Folders, folderView{
			ID:           g.Folder.ID,
			Name:         g.Folder.Name,
			PatternCount: len(g.Patterns),
			Patterns:     newPatternViews(g.Patterns),
		})
	}
	return v
}

type totalsView struct {
	OwnedSkeins     int   `json:"owned_skeins"`
	AllocatedSkeins int   `json:"allocated_skeins"`
	Yarns           int64 `json:"yarns"`
	Projects        int64 `json:"projects"`
	Patterns        int64 `json:"patterns"`
	Folders         int64 `json:"folders"`
}
