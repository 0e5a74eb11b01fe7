// Package pattern provides the pattern library: pattern records and their
// stored files.
package pattern

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/models"
	"gorm.io/gorm"
)

// Upload is a file supplied with a pattern.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// CreateOpts holds parameters for creating a pattern.
type CreateOpts struct {
	Name     string
	FolderID *uint
	File     *Upload
}

// Validate checks required fields and trims whitespace.
func (o *CreateOpts) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return apperr.Validationf("pattern name is required")
	}
	if o.File != nil && o.File.Body == nil {
		return apperr.Validationf("pattern file has no content")
	}
	return nil
}

// UpdateOpts renames or moves a pattern. ClearFolder moves it out of any
// folder and takes precedence over FolderID.
type UpdateOpts struct {
	Name        *string
	FolderID    *uint
	ClearFolder bool
}

// ListFilters narrows a pattern listing.
type ListFilters struct {
	FolderID *uint
	Unfiled  bool
}

// Create stores the optional file and inserts the pattern row. If the insert
// fails the stored file is removed again.
func Create(ctx context.Context, db *gorm.DB, blobs blob.Store, opts CreateOpts) (*models.Pattern, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("pattern: create: %w", err)
	}
	if opts.FolderID != nil {
		if err := checkFolder(db, *opts.FolderID); err != nil {
			return nil, fmt.Errorf("pattern: create: %w", err)
		}
	}

	p := models.Pattern{Name: opts.Name, FolderID: opts.FolderID}
	if opts.File != nil {
		if blobs == nil {
			return nil, fmt.Errorf("pattern: create: %w", apperr.Validationf("no blob store configured"))
		}
		key := blob.NewKey("patterns", opts.File.Name)
		if _, err := blobs.Put(ctx, key, opts.File.Body, blob.PutOptions{ContentType: opts.File.ContentType}); err != nil {
			return nil, apperr.Storage("pattern: store file", err)
		}
		p.FileRef = &key
		p.FileName = blob.SanitizeFilename(opts.File.Name)
		p.ContentType = opts.File.ContentType
	}

	if err := db.Create(&p).Error; err != nil {
		if p.FileRef != nil {
			RemoveFiles(ctx, blobs, []models.Pattern{p})
		}
		return nil, apperr.Storage("pattern: create", err)
	}
	return &p, nil
}

// Get retrieves a pattern by ID, preloading its folder.
func Get(db *gorm.DB, id uint) (*models.Pattern, error) {
	var p models.Pattern
	if err := db.Preload("Folder").Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("pattern: %w", apperr.NotFound("pattern", id))
		}
		return nil, apperr.Storage(fmt.Sprintf("pattern: get %d", id), err)
	}
	return &p, nil
}

// List returns patterns ordered by name.
func List(db *gorm.DB, filters ListFilters) ([]models.Pattern, error) {
	q := db.Model(&models.Pattern{})
	switch {
	case filters.Unfiled:
		q = q.Where("folder_id IS NULL")
	case filters.FolderID != nil:
		q = q.Where("folder_id = ?", *filters.FolderID)
	}

	var patterns []models.Pattern
	if err := q.Order("name ASC, id ASC").Find(&patterns).Error; err != nil {
		return nil, apperr.Storage("pattern: list", err)
	}
	return patterns, nil
}

// Update renames or moves a pattern.
func Update(db *gorm.DB, id uint, opts UpdateOpts) (*models.Pattern, error) {
	updates := map[string]interface{}{}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return nil, fmt.Errorf("pattern: update %d: %w", id, apperr.Validationf("pattern name cannot be empty"))
		}
		updates["name"] = name
	}
	switch {
	case opts.ClearFolder:
		updates["folder_id"] = nil
	case opts.FolderID != nil:
		if err := checkFolder(db, *opts.FolderID); err != nil {
			return nil, fmt.Errorf("pattern: update %d: %w", id, err)
		}
		updates["folder_id"] = *opts.FolderID
	}

	if _, err := Get(db, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Pattern{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperr.Storage(fmt.Sprintf("pattern: update %d", id), err)
		}
	}
	return Get(db, id)
}

// Delete removes a pattern. Projects that used it are unlinked, and the
// stored file is removed once the row is gone.
func Delete(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint) error {
	var p models.Pattern
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("pattern", id)
			}
			return apperr.Storage(fmt.Sprintf("get %d", id), err)
		}
		return DeleteRows(tx, []models.Pattern{p})
	})
	if err != nil {
		return fmt.Errorf("pattern: delete: %w", err)
	}
	RemoveFiles(ctx, blobs, []models.Pattern{p})
	return nil
}

// DeleteRows deletes the given patterns inside tx, unlinking any project that
// references them first so no project points at a missing pattern.
func DeleteRows(tx *gorm.DB, patterns []models.Pattern) error {
	if len(patterns) == 0 {
		return nil
	}
	ids := make([]uint, len(patterns))
	for i, p := range patterns {
		ids[i] = p.ID
	}
	if err := tx.Model(&models.Project{}).Where("pattern_id IN ?", ids).Update("pattern_id", nil).Error; err != nil {
		return apperr.Storage("unlink projects", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Pattern{}).Error; err != nil {
		return apperr.Storage("delete patterns", err)
	}
	return nil
}

// RemoveFiles deletes the stored files of patterns. Failures leave orphaned
// blobs and are logged, not returned.
func RemoveFiles(ctx context.Context, blobs blob.Store, patterns []models.Pattern) {
	if blobs == nil {
		return
	}
	for _, p := range patterns {
		if p.FileRef == nil {
			continue
		}
		if err := blobs.Delete(ctx, *p.FileRef); err != nil && !errors.Is(err, blob.ErrNotFound) {
			slog.Default().Warn("pattern: orphaned file blob", "pattern_id", p.ID, "key", *p.FileRef, "error", err)
		}
	}
}

// Open returns the pattern and a reader for its stored file.
func Open(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint) (*models.Pattern, blob.Info, io.ReadCloser, error) {
	p, err := Get(db, id)
	if err != nil {
		return nil, blob.Info{}, nil, err
	}
	if p.FileRef == nil || blobs == nil {
		return nil, blob.Info{}, nil, fmt.Errorf("pattern: open: %w", apperr.NotFound("file for pattern", id))
	}
	info, rc, err := blobs.Get(ctx, *p.FileRef)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, blob.Info{}, nil, fmt.Errorf("pattern: open: %w", apperr.NotFound("file", *p.FileRef))
	}
	if err != nil {
		return nil, blob.Info{}, nil, apperr.Storage(fmt.Sprintf("pattern: open %d", id), err)
	}
	if info.ContentType == "" {
		info.ContentType = p.ContentType
	}
	return p, info, rc, nil
}

func checkFolder(db *gorm.DB, folderID uint) error {
	var count int64
	if err := db.Model(&models.Folder{}).Where("id = ?", folderID).Count(&count).Error; err != nil {
		return apperr.Storage(fmt.Sprintf("check folder %d", folderID), err)
	}
	if count == 0 {
		return apperr.NotFound("folder", folderID)
	}
	return nil
}
