package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Known activity actions. The column is an open string; the store may write others.
const (
	ActivityActionCreated = "created"
	ActivityActionUpdated = "updated"
	ActivityActionDeleted = "deleted"
)

// ErrActivityLogImmutable is returned when application code tries to change an activity log
var ErrActivityLogImmutable = errors.New("activity logs are read-only")

// ActivityLog is a per-user history entry written by the backing store.
type ActivityLog struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_activity_user_created" json:"created_at"`

	UserID     string `gorm:"type:uuid;not null;index:idx_activity_user_created" json:"user_id"`
	Action     string `gorm:"size:50;not null" json:"action"`
	EntityType string `gorm:"size:50;not null" json:"entity_type"`

	Profile *ProfileRef `gorm:"-" json:"profiles,omitempty"`
}

// BeforeCreate generates UUID
func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// BeforeUpdate prevents modification of activity logs
func (a *ActivityLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

// BeforeDelete prevents deletion of activity logs
func (a *ActivityLog) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityLogImmutable
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
