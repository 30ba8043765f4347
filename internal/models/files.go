package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File references an uploaded payload by opaque storage handle. The
// payload bytes live with the blob-storage collaborator.
type File struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null" json:"ownerId"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	StorageKey string    `gorm:"size:500;not null" json:"storageKey"`
	URL        string    `gorm:"size:500" json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Version is an immutable payload snapshot of a file, ordered by
// creation time.
type Version struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	FileID     uuid.UUID `gorm:"type:uuid;not null;index" json:"fileId"`
	StorageKey string    `gorm:"size:500;not null" json:"storageKey"`
	URL        string    `gorm:"size:500" json:"url"`
	Note       string    `gorm:"type:text" json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (v *Version) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// FileShare grants exactly one target (public, user, or group) access
// to one file at one level. At most one grant per target per file;
// re-sharing updates the existing row.
type FileShare struct {
	ID                uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	FileID            uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_file_shares_file_user;uniqueIndex:idx_file_shares_file_group" json:"fileId"`
	SharedWithUserID  *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_file_shares_file_user" json:"sharedWithUserId,omitempty"`
	SharedWithGroupID *uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_file_shares_file_group" json:"sharedWithGroupId,omitempty"`
	IsPublic          bool        `gorm:"not null;default:false" json:"isPublic"`
	Permission        AccessLevel `gorm:"size:5;not null;default:read" json:"permission"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (s *FileShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
