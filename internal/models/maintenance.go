package models

import "time"

// MaintenancePriority orders tickets for the maintenance team.
type MaintenancePriority string

// Ticket priorities.
const (
	PriorityLow       MaintenancePriority = "low"
	PriorityMedium    MaintenancePriority = "medium"
	PriorityHigh      MaintenancePriority = "high"
	PriorityEmergency MaintenancePriority = "emergency"
)

// MaintenanceStatus is the handling state of a ticket.
type MaintenanceStatus string

// Ticket statuses.
const (
	MaintenancePending    MaintenanceStatus = "pending"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// MaintenanceRequest is an issue report tied to an occupant and their room.
type MaintenanceRequest struct {
	ID          string              `db:"id" json:"id"`
	UserID      string              `db:"user_id" json:"user_id"`
	RoomID      string              `db:"room_id" json:"room_id"`
	IssueType   string              `db:"issue_type" json:"issue_type"`
	Priority    MaintenancePriority `db:"priority" json:"priority"`
	Description string              `db:"description" json:"description"`
	Status      MaintenanceStatus   `db:"status" json:"status"`
	AdminNotes  string              `db:"admin_notes" json:"admin_notes"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `db:"updated_at" json:"updated_at"`
}

// MaintenanceRequestDetail adds room context to a ticket.
type MaintenanceRequestDetail struct {
	MaintenanceRequest
	RoomNumber  string `db:"room_number" json:"room_number"`
	Building    string `db:"building" json:"building"`
	StudentName string `db:"student_name" json:"student_name"`
}

// MaintenanceFilter provides filters for listing tickets.
type MaintenanceFilter struct {
	UserID   string
	RoomID   string
	Status   MaintenanceStatus
	Priority MaintenancePriority
	Page     int
	PageSize int
}
