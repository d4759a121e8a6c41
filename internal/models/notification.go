package models

import "time"

// NotificationType categorises in-app notifications.
type NotificationType string

// Notification types.
const (
	NotificationAllocation  NotificationType = "allocation"
	NotificationRequest     NotificationType = "request"
	NotificationMaintenance NotificationType = "maintenance"
	NotificationGeneral     NotificationType = "general"
)

// Notification is a per-user in-app message.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Type      NotificationType `db:"type" json:"type"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
