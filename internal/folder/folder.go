// Package folder provides the folder tree that organizes the pattern library.
// Folders are one level deep.
package folder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/blob"
	"github.com/zulandar/stash/internal/models"
	"github.com/zulandar/stash/internal/pattern"
	"gorm.io/gorm"
)

// Summary is a folder with the number of patterns it holds.
type Summary struct {
	models.Folder
	PatternCount int
}

// Group is one folder and its patterns.
type Group struct {
	Folder   models.Folder
	Patterns []models.Pattern
}

// Tree partitions the pattern library into unfiled patterns and patterns
// grouped by folder. Every folder appears, including empty ones.
type Tree struct {
	Unfiled []models.Pattern
	Folders []Group
}

// Create adds a folder. Names are trimmed and must be unique.
func Create(db *gorm.DB, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder: create: %w", apperr.Validationf("folder name is required"))
	}
	if err := checkUnique(db, name, 0); err != nil {
		return nil, fmt.Errorf("folder: create: %w", err)
	}

	f := models.Folder{Name: name}
	if err := db.Create(&f).Error; err != nil {
		return nil, apperr.Storage("folder: create", err)
	}
	return &f, nil
}

// Get retrieves a folder by ID with its patterns.
func Get(db *gorm.DB, id uint) (*models.Folder, error) {
	var f models.Folder
	err := db.Preload("Patterns", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("name ASC, id ASC")
	}).Where("id = ?", id).First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("folder: %w", apperr.NotFound("folder", id))
		}
		return nil, apperr.Storage(fmt.Sprintf("folder: get %d", id), err)
	}
	return &f, nil
}

// List returns all folders ordered by name, with pattern counts.
func List(db *gorm.DB) ([]Summary, error) {
	var rows []Summary
	err := db.Table("folders").
		Select("folders.*, COUNT(patterns.id) AS pattern_count").
		Joins("LEFT JOIN patterns ON patterns.folder_id = folders.id").
		Group("folders.id").
		Order("folders.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Storage("folder: list", err)
	}
	return rows, nil
}

// Rename changes a folder's name, keeping names unique.
func Rename(db *gorm.DB, id uint, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder: rename %d: %w", id, apperr.Validationf("folder name is required"))
	}
	if _, err := Get(db, id); err != nil {
		return nil, err
	}
	if err := checkUnique(db, name, id); err != nil {
		return nil, fmt.Errorf("folder: rename %d: %w", id, err)
	}
	if err := db.Model(&models.Folder{}).Where("id = ?", id).Update("name", name).Error; err != nil {
		return nil, apperr.Storage(fmt.Sprintf("folder: rename %d", id), err)
	}
	return Get(db, id)
}

// Delete removes a folder and every pattern in it. Patterns are deleted, not
// moved to the unfiled list. Returns the number of patterns removed.
func Delete(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint) (int, error) {
	var contained []models.Pattern
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Folder{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("check %d", id), err)
		}
		if count == 0 {
			return apperr.NotFound("folder", id)
		}
		if err := tx.Where("folder_id = ?", id).Find(&contained).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("list patterns of %d", id), err)
		}
		if err := pattern.DeleteRows(tx, contained); err != nil {
			return err
		}
		if err := tx.Delete(&models.Folder{}, id).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("delete %d", id), err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("folder: delete: %w", err)
	}
	pattern.RemoveFiles(ctx, blobs, contained)
	return len(contained), nil
}

// BuildTree loads the whole pattern library partitioned by folder.
func BuildTree(db *gorm.DB) (*Tree, error) {
	var folders []models.Folder
	if err := db.Order("name ASC, id ASC").Find(&folders).Error; err != nil {
		return nil, apperr.Storage("folder: tree folders", err)
	}
	var patterns []models.Pattern
	if err := db.Order("name ASC, id ASC").Find(&patterns).Error; err != nil {
		return nil, apperr.Storage("folder: tree patterns", err)
	}

	tree := &Tree{Unfiled: []models.Pattern{}, Folders: make([]Group, len(folders))}
	index := make(map[uint]int, len(folders))
	for i, f := range folders {
		tree.Folders[i] = Group{Folder: f, Patterns: []models.Pattern{}}
		index[f.ID] = i
	}
	for _, p := range patterns {
		if p.FolderID == nil {
			tree.Unfiled = append(tree.Unfiled, p)
			continue
		}
		i, ok := index[*p.FolderID]
		if !ok {
			// Folder vanished between the two reads.
			tree.Unfiled = append(tree.Unfiled, p)
			continue
		}
		tree.Folders[i].Patterns = append(tree.Folders[i].Patterns, p)
	}
	return tree, nil
}

func checkUnique(db *gorm.DB, name string, exceptID uint) error {
	var count int64
	q := db.Model(&models.Folder{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Storage("check folder name", err)
	}
	if count > 0 {
		return apperr.Validationf("folder %q already exists", name)
	}
	return nil
}
