package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task status constants
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Task priority constants
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task is a scheduled reminder owned by a user, optionally about a client
type Task struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title       string    `gorm:"size:200;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	DueDate     time.Time `gorm:"not null;index" json:"due_date"`
	Status      string    `gorm:"size:20;not null;default:pending;index" json:"status"`
	Priority    string    `gorm:"size:20;not null;default:medium" json:"priority"`

	// Weak reference, denormalized with the client name at read time
	ClientID *string    `gorm:"type:uuid;index" json:"client_id,omitempty"`
	Client   *ClientRef `gorm:"-" json:"clients,omitempty"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
}

// BeforeCreate hook to generate UUID
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TaskStatusPending
	}
	if t.Priority == "" {
		t.Priority = TaskPriorityMedium
	}
	return nil
}

func (Task) TableName() string {
	return "tasks"
}

// IsCompleted reports whether the task has been marked done
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsValidTaskPriority checks if a priority is supported
func IsValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// IsValidTaskStatus checks if a status is supported
func IsValidTaskStatus(s string) bool {
	return s == TaskStatusPending || s == TaskStatusCompleted
}
