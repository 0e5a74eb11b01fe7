package models

import "time"

// Yarn is one entry in the yarn catalog: a brand/color combination and how
// many skeins of it are on hand.
type Yarn struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	BrandName   string  `gorm:"size:128;not null;index"`
	ColorName   string  `gorm:"size:128"`
	YarnWeight  string  `gorm:"size:32;index"`
	SkeinsOwned int     `gorm:"not null;default:0"`
	ImageRef    *string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Allocations []ProjectYarn `gorm:"foreignKey:YarnID"`
}

// TableName keeps the catalog table singular.
func (Yarn) TableName() string { return "yarn" }
