package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message represents an inbound email stored for a disposable mailbox.
// Immutable after ingest except for the Seen flag and deletion.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Recipient string    `gorm:"not null;size:998;index" json:"recipient"`
	Cc        string    `gorm:"size:998" json:"cc,omitempty"`
	Sender    string    `gorm:"not null;size:998" json:"sender"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	Seen      bool      `gorm:"default:false" json:"seen"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	// Relationships
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns a UUID when the caller did not provide an id.
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
