package models

import "time"

// Pattern is a stored pattern, optionally backed by an uploaded file and
// optionally filed in a folder.
type Pattern struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:255;not null"`
	FileRef     *string `gorm:"size:255"`
	FileName    string  `gorm:"size:255"`
	ContentType string  `gorm:"size:128"`
	FolderID    *uint   `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Folder *Folder `gorm:"foreignKey:FolderID"`
}

// Folder groups patterns. Folders do not nest.
type Folder struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time

	Patterns []Pattern `gorm:"foreignKey:FolderID"`
}
