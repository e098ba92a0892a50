package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interaction type constants
const (
	InteractionTypeEmail   = "Email"
	InteractionTypeCall    = "Call"
	InteractionTypeMeeting = "Meeting"
	InteractionTypeNote    = "Note"
)

// Interaction is a logged touchpoint with a client
type Interaction struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index:idx_interaction_client_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Owning client; rows are removed by the store when the client is deleted
	ClientID string  `gorm:"type:uuid;not null;index:idx_interaction_client_created" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"-"`

	Type string `gorm:"size:20;not null" json:"type"`
	Note string `gorm:"type:text;not null" json:"note"`

	// Author
	UserID string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Author *ProfileRef `gorm:"-" json:"profiles,omitempty"`
}

// BeforeCreate hook to generate UUID
func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

func (Interaction) TableName() string {
	return "interactions"
}

// IsValidInteractionType checks if a type is one of the supported interaction types
func IsValidInteractionType(t string) bool {
	switch t {
	case InteractionTypeEmail, InteractionTypeCall, InteractionTypeMeeting, InteractionTypeNote:
		return true
	}
	return false
}
