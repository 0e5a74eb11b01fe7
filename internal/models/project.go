package models

import "time"

// Project is a piece of work that consumes yarn.
type Project struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"size:255;not null"`
	RequiredSkeins int    `gorm:"not null;default:0"`
	PatternID      *uint  `gorm:"index"`
	Notes          string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Pattern     *Pattern      `gorm:"foreignKey:PatternID"`
	Allocations []ProjectYarn `gorm:"foreignKey:ProjectID"`
}

// ProjectYarn reserves SkeinsUsed skeins of one yarn entry for one project.
// The composite primary key allows at most one row per (project, yarn) pair.
type ProjectYarn struct {
	ProjectID  uint `gorm:"primaryKey"`
	YarnID     uint `gorm:"primaryKey;index"`
	SkeinsUsed int  `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName matches the join table name used by the allocation ledger.
func (ProjectYarn) TableName() string { return "project_yarn" }
