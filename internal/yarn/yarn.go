// Package yarn provides the yarn catalog: yarn entries, their stock views and
// their optional images.
package yarn

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

// CreateOpts holds parameters for adding a yarn entry.
type CreateOpts struct {
	BrandName   string
	ColorName   string
	YarnWeight  string
	SkeinsOwned int
}

// Validate checks required fields and trims whitespace.
func (o *CreateOpts) Validate() error {
	o.BrandName = strings.TrimSpace(o.BrandName)
	o.ColorName = strings.TrimSpace(o.ColorName)
	o.YarnWeight = strings.TrimSpace(o.YarnWeight)
	if o.BrandName == "" {
		return apperr.Validationf("brand name is required")
	}
	if o.SkeinsOwned < 0 {
		return apperr.Validationf("skeins owned cannot be negative (got %d)", o.SkeinsOwned)
	}
	return nil
}

// UpdateOpts holds the descriptive fields that may be edited. Nil fields are
// left unchanged. Owned stock is changed through the ledger's AdjustOwned.
type UpdateOpts struct {
	BrandName  *string
	ColorName  *string
	YarnWeight *string
}

// Create adds a new yarn entry.
func Create(db *gorm.DB, opts CreateOpts) (*models.Yarn, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("yarn: create: %w", err)
	}
	y := models.Yarn{
		BrandName:   opts.BrandName,
		ColorName:   opts.ColorName,
		YarnWeight:  opts.YarnWeight,
		SkeinsOwned: opts.SkeinsOwned,
	}
	if err := db.Create(&y).Error; err != nil {
		return nil, apperr.Storage("yarn: create", err)
	}
	return &y, nil
}

// Get retrieves a yarn entry by ID.
func Get(db *gorm.DB, id uint) (*models.Yarn, error) {
	var y models.Yarn
	if err := db.Where("id = ?", id).First(&y).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("yarn: %w", apperr.NotFound("yarn", id))
		}
		return nil, apperr.Storage(fmt.Sprintf("yarn: get %d", id), err)
	}
	return &y, nil
}

// Update edits the descriptive fields of a yarn entry.
func Update(db *gorm.DB, id uint, opts UpdateOpts) (*models.Yarn, error) {
	updates := map[string]interface{}{}
	if opts.BrandName != nil {
		brand := strings.TrimSpace(*opts.BrandName)
		if brand == "" {
			return nil, fmt.Errorf("yarn: update %d: %w", id, apperr.Validationf("brand name cannot be empty"))
		}
		updates["brand_name"] = brand
	}
	if opts.ColorName != nil {
		updates["color_name"] = strings.TrimSpace(*opts.ColorName)
	}
	if opts.YarnWeight != nil {
		updates["yarn_weight"] = strings.TrimSpace(*opts.YarnWeight)
	}

	if _, err := Get(db, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&models.Yarn{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperr.Storage(fmt.Sprintf("yarn: update %d", id), err)
		}
	}
	return Get(db, id)
}

// Delete removes a yarn entry together with every allocation that references
// it. The image blob, if any, is removed after the rows are gone; a failure
// there leaves an orphaned blob and is only logged.
func Delete(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint) error {
	var deleted models.Yarn
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("yarn", id)
			}
			return apperr.Storage(fmt.Sprintf("get %d", id), err)
		}
		if err := tx.Where("yarn_id = ?", id).Delete(&models.ProjectYarn{}).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("delete allocations of %d", id), err)
		}
		if err := tx.Delete(&models.Yarn{}, id).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("delete %d", id), err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("yarn: delete: %w", err)
	}

	if deleted.ImageRef != nil {
		removeBlob(ctx, blobs, *deleted.ImageRef)
	}
	return nil
}

// SetImage stores an image for the yarn entry, replacing any previous one.
func SetImage(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint, filename, contentType string, r io.Reader) (*models.Yarn, error) {
	y, err := Get(db, id)
	if err != nil {
		return nil, err
	}
	if blobs == nil {
		return nil, fmt.Errorf("yarn: set image %d: %w", id, apperr.Validationf("no blob store configured"))
	}

	key := blob.NewKey("yarn", filename)
	if _, err := blobs.Put(ctx, key, r, blob.PutOptions{ContentType: contentType}); err != nil {
		return nil, apperr.Storage(fmt.Sprintf("yarn: store image for %d", id), err)
	}
	if err := db.Model(&models.Yarn{}).Where("id = ?", id).Update("image_ref", key).Error; err != nil {
		removeBlob(ctx, blobs, key)
		return nil, apperr.Storage(fmt.Sprintf("yarn: set image %d", id), err)
	}

	if y.ImageRef != nil {
		removeBlob(ctx, blobs, *y.ImageRef)
	}
	y.ImageRef = &key
	return y, nil
}

// Image opens the stored image of a yarn entry.
func Image(ctx context.Context, db *gorm.DB, blobs blob.Store, id uint) (blob.Info, io.ReadCloser, error) {
	y, err := Get(db, id)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if y.ImageRef == nil || blobs == nil {
		return blob.Info{}, nil, fmt.Errorf("yarn: image: %w", apperr.NotFound("image for yarn", id))
	}
	info, rc, err := blobs.Get(ctx, *y.ImageRef)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, fmt.Errorf("yarn: image: %w", apperr.NotFound("image", *y.ImageRef))
	}
	if err != nil {
		return blob.Info{}, nil, apperr.Storage(fmt.Sprintf("yarn: image %d", id), err)
	}
	return info, rc, nil
}

func removeBlob(ctx context.Context, blobs blob.Store, key string) {
	if blobs == nil {
		return
	}
	if err := blobs.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		slog.Default().Warn("yarn: orphaned image blob", "key", key, "error", err)
	}
}
