// Package project provides the project registry.
package project

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/models"
	"gorm.io/gorm"
)

// CreateOpts holds parameters for creating a project.
type CreateOpts struct {
	Name           string
	RequiredSkeins int
	PatternID      *uint
	Notes          string
}

// Validate checks required fields and trims whitespace.
func (o *CreateOpts) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return apperr.Validationf("project name is required")
	}
	if o.RequiredSkeins < 0 {
		return apperr.Validationf("required skeins cannot be negative (got %d)", o.RequiredSkeins)
	}
	return nil
}

// UpdateOpts holds editable project fields. Nil fields are left unchanged.
// ClearPattern unlinks the pattern and takes precedence over PatternID.
type UpdateOpts struct {
	Name           *string
	RequiredSkeins *int
	PatternID      *uint
	ClearPattern   bool
	Notes          *string
}

// Summary is a project with its allocation totals.
type Summary struct {
	models.Project
	Allocated int
	Remaining int
}

// Create creates a new project. A referenced pattern must exist.
func Create(db *gorm.DB, opts CreateOpts) (*models.Project, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("project: create: %w", err)
	}
	if opts.PatternID != nil {
		if err := checkPattern(db, *opts.PatternID); err != nil {
			return nil, fmt.Errorf("project: create: %w", err)
		}
	}

	p := models.Project{
		Name:           opts.Name,
		RequiredSkeins: opts.RequiredSkeins,
		PatternID:      opts.PatternID,
		Notes:          opts.Notes,
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, apperr.Storage("project: create", err)
	}
	return &p, nil
}

// Get retrieves a project by ID, preloading its pattern.
func Get(db *gorm.DB, id uint) (*models.Project, error) {
	var p models.Project
	if err := db.Preload("Pattern").Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project: %w", apperr.NotFound("project", id))
		}
		return nil, apperr.Storage(fmt.Sprintf("project: get %d", id), err)
	}
	return &p, nil
}

// Exists reports whether a project with id exists.
func Exists(db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Storage(fmt.Sprintf("project: check %d", id), err)
	}
	return count > 0, nil
}

// List returns all projects, newest first, with their allocation totals.
func List(db *gorm.DB) ([]Summary, error) {
	var rows []Summary
	err := db.Table("projects").
		Select("projects.*, " +
			"COALESCE(SUM(project_yarn.skeins_used), 0) AS allocated, " +
			"projects.required_skeins - COALESCE(SUM(project_yarn.skeins_used), 0) AS remaining").
		Joins("LEFT JOIN project_yarn ON project_yarn.project_id = projects.id").
		Group("projects.id").
		Order("projects.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("project: list", err)
	}
	return rows, nil
}

// Update edits project fields.
func Update(db *gorm.DB, id uint, opts UpdateOpts) (*models.Project, error) {
	updates := map[string]interface{}{}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return nil, fmt.Errorf("project: update %d: %w", id, apperr.Validationf("project name cannot be empty"))
		}
		updates["name"] = name
	}
	if opts.RequiredSkeins != nil {
		if *opts.RequiredSkeins < 0 {
			return nil, fmt.Errorf("project: update %d: %w", id, apperr.Validationf("required skeins cannot be negative"))
		}
		updates["required_skeins"] = *opts.RequiredSkeins
	}
	if opts.Notes != nil {
		updates["notes"] = *opts.Notes
	}
	switch {
	case opts.ClearPattern:
		updates["pattern_id"] = nil
	case opts.PatternID != nil:
		if err := checkPattern(db, *opts.PatternID); err != nil {
			return nil, fmt.Errorf("project: update %d: %w", id, err)
		}
		updates["pattern_id"] = *opts.PatternID
	}

	if _, err := Get(db, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Project{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperr.Storage(fmt.Sprintf("project: update %d", id), err)
		}
	}
	return Get(db, id)
}

// Delete removes a project and all of its allocations in one transaction.
// Released skeins become available to other projects immediately.
func Delete(db *gorm.DB, id uint) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("check %d", id), err)
		}
		if count == 0 {
			return apperr.NotFound("project", id)
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectYarn{}).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("delete allocations of %d", id), err)
		}
		if err := tx.Delete(&models.Project{}, id).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("delete %d", id), err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("project: delete: %w", err)
	}
	return nil
}

func checkPattern(db *gorm.DB, patternID uint) error {
	var count int64
	if err := db.Model(&models.Pattern{}).Where("id = ?", patternID).Count(&count).Error; err != nil {
		return apperr.Storage(fmt.Sprintf("check pattern %d", patternID), err)
	}
	if count == 0 {
		return apperr.NotFound("pattern", patternID)
	}
	return nil
}
