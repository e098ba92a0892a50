package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is the display identity of an application user.
// It is only ever used as a join target by the other entities.
type Profile struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string  `gorm:"size:100;not null" json:"name"`
	Email     string  `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone     *string `gorm:"size:50" json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// BeforeCreate hook to generate UUID
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (Profile) TableName() string {
	return "profiles"
}

// Ref returns the denormalized reference used by read-time joins
func (p *Profile) Ref() *ProfileRef {
	return &ProfileRef{ID: p.ID, Name: p.Name, Email: p.Email}
}

// ProfileRef is a read-time join of a Profile onto another record. It is never persisted.
type ProfileRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the referenced name, or fallback when the reference is absent
func (r *ProfileRef) DisplayName(fallback string) string {
	if r == nil || r.Name == "" {
		return fallback
	}
	return r.Name
}

// ClientRef is a read-time join of a Client's name onto a Task.
type ClientRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
