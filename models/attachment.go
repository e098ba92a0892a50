package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Attachment is the metadata half of a file stored against a client.
// FilePath points at the blob half in the storage provider.
type Attachment struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	ClientID string `gorm:"type:uuid;not null;index" json:"client_id"`
	UserID   string `gorm:"type:uuid;not null" json:"user_id"`

	// File metadata
	FileName    string  `gorm:"not null" json:"file_name"`
	FilePath    string  `gorm:"not null;uniqueIndex" json:"file_path"`
	FileSize    int64   `gorm:"not null" json:"file_size"`
	FileType    string  `json:"file_type"`
	Description *string `gorm:"type:text" json:"description,omitempty"`

	DownloadURL string `gorm:"-" json:"download_url"`
}

// BeforeCreate hook to generate UUID
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

func (Attachment) TableName() string {
	return "attachments"
}

// GetDownloadURL returns the API path serving this attachment
func (a *Attachment) GetDownloadURL() string {
	return "/api/attachments/" + a.ID + "/download"
}

// AfterCreate fills DownloadURL once the ID is known
func (a *Attachment) AfterCreate(tx *gorm.DB) error {
	a.DownloadURL = a.GetDownloadURL()
	return nil
}

// AfterFind fills DownloadURL on loaded rows
func (a *Attachment) AfterFind(tx *gorm.DB) error {
	a.DownloadURL = a.GetDownloadURL()
	return nil
}
