package yarn

import (
	"fmt"

	"github.com/zulandar/stash/internal/apperr"
	"github.com/zulandar/stash/internal/models"
	"gorm.io/gorm"
)

// SortKey selects the ordering of a yarn listing.
type SortKey string

const (
	SortBrand     SortKey = "brand"     // brand name ascending
	SortAvailable SortKey = "available" // available skeins descending
	SortWeight    SortKey = "weight"    // weight category ascending
	SortNewest    SortKey = "newest"    // most recently added first
)

// orderBy maps each sort key onto a fixed ORDER BY expression. Caller text
// never reaches the query.
var orderBy = map[SortKey]string{
	SortBrand:     "yarn.brand_name ASC, yarn.id ASC",
	SortAvailable: "available DESC, yarn.id ASC",
	SortWeight:    "yarn.yarn_weight ASC, yarn.brand_name ASC, yarn.id ASC",
	SortNewest:    "yarn.id DESC",
}

// SortKeys lists the accepted sort keys in display order.
func SortKeys() []SortKey {
	return []SortKey{SortBrand, SortAvailable, SortWeight, SortNewest}
}

// ParseSortKey validates caller-supplied sort text. Empty means SortBrand.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortBrand, nil
	}
	k := SortKey(s)
	if _, ok := orderBy[k]; !ok {
		return "", apperr.Validationf("unknown sort key %q (want brand, available, weight or newest)", s)
	}
	return k, nil
}

// Stock is a yarn entry with its derived allocation totals.
type Stock struct {
	models.Yarn
	Allocated int
	Available int
}

// Overcommitted reports whether owned stock was reduced below what is
// already allocated.
func (s Stock) Overcommitted() bool { return s.Available < 0 }

// DisplayAvailable is Available clamped at zero for presentation.
func (s Stock) DisplayAvailable() int {
	if s.Available < 0 {
		return 0
	}
	return s.Available
}

func stockQuery(db *gorm.DB) *gorm.DB {
	return db.Table("yarn").
		Select("yarn.*, " +
			"COALESCE(SUM(project_yarn.skeins_used), 0) AS allocated, " +
			"yarn.skeins_owned - COALESCE(SUM(project_yarn.skeins_used), 0) AS available").
		Joins("LEFT JOIN project_yarn ON project_yarn.yarn_id = yarn.id").
		Group("yarn.id")
}

// List returns every yarn entry with its totals in the requested order.
func List(db *gorm.DB, sort SortKey) ([]Stock, error) {
	order, ok := orderBy[sort]
	if !ok {
		return nil, fmt.Errorf("yarn: list: %w", apperr.Validationf("unknown sort key %q", sort))
	}
	var rows []Stock
	if err := stockQuery(db).Order(order).Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("yarn: list", err)
	}
	return rows, nil
}

// GetStock returns one yarn entry with its totals.
func GetStock(db *gorm.DB, id uint) (*Stock, error) {
	var rows []Stock
	if err := stockQuery(db).Where("yarn.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, apperr.Storage(fmt.Sprintf("yarn: stock %d", id), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("yarn: %w", apperr.NotFound("yarn", id))
	}
	return &rows[0], nil
}
