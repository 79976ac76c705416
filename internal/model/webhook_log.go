package model

import "time"

// WebhookLog audit record of a handled trigger. One row per inbound
// webhook, written after the response is decided. This is an audit
// trail, not job state: rows are never read back by the request flow.
type WebhookLog struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	StoreID    int64     `gorm:"type:bigint;not null;index" json:"store_id"`
	Resource   string    `gorm:"type:varchar(20);not null" json:"resource"`
	Action     string    `gorm:"type:varchar(20);not null" json:"action"`
	InsertedID string    `gorm:"type:varchar(32);index" json:"inserted_id"`
	EventName  string    `gorm:"type:varchar(40)" json:"event_name,omitempty"`
	Outcome    string    `gorm:"type:varchar(30);not null;index" json:"outcome"`
	StatusCode int       `gorm:"type:int;not null" json:"status_code"`
	Message    string    `gorm:"type:varchar(500)" json:"message,omitempty"`
	CreatedAt  time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName set name
func (WebhookLog) TableName() string {
	return "webhook_logs"
}
