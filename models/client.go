package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client status constants
const (
	ClientStatusActive      = "active"
	ClientStatusPending     = "pending"
	ClientStatusInactive    = "inactive"
	ClientStatusNegotiation = "negotiation"
)

// Client field limits
const (
	ClientNameMinLength     = 2
	ClientNameMaxLength     = 100
	ClientEmailMaxLength    = 255
	ClientCategoryMinLength = 2
	ClientCategoryMaxLength = 100
	ClientNotesMaxLength    = 1000
)

// Client is an organisation tracked by the relationship dashboard
type Client struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_client_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string  `gorm:"size:100;not null" json:"name"`
	Email    string  `gorm:"size:255;not null" json:"email"`
	Phone    *string `gorm:"size:50" json:"phone,omitempty"`
	Country  string  `gorm:"size:100;not null;index" json:"country"`
	Industry string  `gorm:"size:100;not null;index" json:"industry"`

	// Map position (optional)
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Status  string  `gorm:"size:20;not null;default:pending;index" json:"status"`
	Revenue float64 `gorm:"not null;default:0" json:"revenue"`
	Notes   *string `gorm:"type:text" json:"notes,omitempty"`

	// Weak reference, no cascade
	AssignedUserID *string     `gorm:"type:uuid;index" json:"assigned_user_id,omitempty"`
	AssignedUser   *ProfileRef `gorm:"-" json:"assigned_user,omitempty"`

	LastContact *time.Time `json:"last_contact,omitempty"`
}

// BeforeCreate hook to generate UUID and default the status
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = ClientStatusPending
	}
	return nil
}

func (Client) TableName() string {
	return "clients"
}

// IsAssigned reports whether the client has an assigned user
func (c *Client) IsAssigned() bool {
	return c.AssignedUserID != nil && *c.AssignedUserID != ""
}

// IsValidClientStatus checks if a status is one of the four enumerated values
func IsValidClientStatus(status string) bool {
	switch status {
	case ClientStatusActive, ClientStatusPending, ClientStatusInactive, ClientStatusNegotiation:
		return true
	}
	return false
}

// ClientStatuses returns the valid statuses in display order
func ClientStatuses() []string {
	return []string{
		ClientStatusActive,
		ClientStatusPending,
		ClientStatusNegotiation,
		ClientStatusInactive,
	}
}

// StatusLabel capitalizes a status for display ("active" -> "Active")
func StatusLabel(status string) string {
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}
