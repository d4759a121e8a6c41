package models

import "time"

// Activity log actions recorded by services and the audit middleware.
const (
	ActivityActionRegister    = "registration"
	ActivityActionLogin       = "login"
	ActivityActionAllocate    = "allocate"
	ActivityActionCheckIn     = "check_in"
	ActivityActionCheckOut    = "check_out"
	ActivityActionCancel      = "cancel"
	ActivityActionRoomRequest = "room_request"
	ActivityActionMaintenance = "maintenance_request"
)

// ActivityLog is an append-only audit trail row.
type ActivityLog struct {
	ID          string    `db:"id" json:"id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	TableName   string    `db:"table_name" json:"table_name"`
	RecordID    *string   `db:"record_id" json:"record_id,omitempty"`
	Description string    `db:"description" json:"description"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
