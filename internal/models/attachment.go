package models

// Attachment is one entry of a message's attachment manifest. The binary
// content lives on disk under {root}/attachments/{message_id}/{filename};
// only the manifest is persisted.
type Attachment struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MessageID string `gorm:"not null;size:36;index" json:"-"`
	ContentID string `gorm:"size:255" json:"content_id,omitempty"`
	Filename  string `gorm:"not null;size:255" json:"filename"`

	// Relationships
	Message Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
