package ledger

import (
	"context"
	"fmt"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/project"
)

// AllocationLine is one yarn allocated to a project.
type AllocationLine struct {
	YarnID     uint
	BrandName  string
	ColorName  string
	YarnWeight string
	SkeinsUsed int
}

// ProjectDetail is a project with its allocations and remaining requirement.
type ProjectDetail struct {
	Project     *models.Project
	Allocations []AllocationLine
	Allocated   int
	Remaining   int
}

// Totals summarizes the whole stash for the dashboard.
type Totals struct {
	OwnedSkeins     int
	AllocatedSkeins int
	Yarns           int64
	Projects        int64
	Patterns        int64
	Folders         int64
}

// ProjectAllocations lists a project's allocation lines ordered by brand.
func (l *Ledger) ProjectAllocations(ctx context.Context, projectID uint) ([]AllocationLine, error) {
	var lines []AllocationLine
	err := l.db.WithContext(ctx).Table("project_yarn").
		Select("project_yarn.yarn_id, yarn.brand_name, yarn.color_name, yarn.yarn_weight, project_yarn.skeins_used").
		Joins("JOIN yarn ON yarn.id = project_yarn.yarn_id").
		Where("project_yarn.project_id = ?", projectID).
		Order("yarn.brand_name ASC, yarn.id ASC").
		Scan(&lines).Error
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("ledger: allocations of %d", projectID), err)
	}
	return lines, nil
}

// ProjectDetail loads a project with its allocation lines and totals.
func (l *Ledger) ProjectDetail(ctx context.Context, projectID uint) (*ProjectDetail, error) {
	p, err := project.Get(l.db.WithContext(ctx), projectID)
	if err != nil {
		return nil, err
	}
	lines, err := l.ProjectAllocations(ctx, projectID)
	if err != nil {
		return nil, err
	}
	d := &ProjectDetail{Project: p, Allocations: lines}
	for _, line := range lines {
		d.Allocated += line.SkeinsUsed
	}
	d.Remaining = p.RequiredSkeins - d.Allocated
	return d, nil
}

// Totals computes dashboard totals.
func (l *Ledger) Totals(ctx context.Context) (*Totals, error) {
	db := l.db.WithContext(ctx)
	var t Totals

	if err := db.Model(&models.Yarn{}).Select("COALESCE(SUM(skeins_owned), 0)").Scan(&t.OwnedSkeins).Error; err != nil {
		return nil, apperr.Storage("ledger: totals owned", err)
	}
	if err := db.Model(&models.ProjectYarn{}).Select("COALESCE(SUM(skeins_used), 0)").Scan(&t.AllocatedSkeins).Error; err != nil {
		return nil, apperr.Storage("ledger: totals allocated", err)
	}
	counts := []struct {
		model any
		dst   *int64
		name  string
	}{
		{&models.Yarn{}, &t.Yarns, "yarn"},
		{&models.Project{}, &t.Projects, "projects"},
		{&models.Pattern{}, &t.Patterns, "patterns"},
		{&models.Folder{}, &t.Folders, "folders"},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, apperr.Storage("ledger: count "+c.name, err)
		}
	}
	return &t, nil
}
