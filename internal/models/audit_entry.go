package models

import (
	"time"
)

// AuditEntry records one first-seen delivery notification. Entries mirror
// the lines appended to the CSV audit log and are purged by the retention
// sweeper after one week.
type AuditEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ViewerIP  string    `gorm:"size:45" json:"viewer_ip"`
	Sender    string    `gorm:"size:998" json:"sender"`
	Recipient string    `gorm:"size:998" json:"recipient"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for AuditEntry
func (AuditEntry) TableName() string {
	return "audit_entries"
}
