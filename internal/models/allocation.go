package models

import "time"

// AllocationStatus represents the lifecycle of a room allocation.
type AllocationStatus string

// Allocation statuses. checked_out and cancelled are terminal.
const (
	AllocationStatusPending    AllocationStatus = "pending"
	AllocationStatusConfirmed  AllocationStatus = "confirmed"
	AllocationStatusCheckedIn  AllocationStatus = "checked_in"
	AllocationStatusCheckedOut AllocationStatus = "checked_out"
	AllocationStatusCancelled  AllocationStatus = "cancelled"
)

// Active reports whether the status counts against the one-active-per-period rule.
func (s AllocationStatus) Active() bool {
	switch s {
	case AllocationStatusPending, AllocationStatusConfirmed, AllocationStatusCheckedIn:
		return true
	}
	return false
}

// Allocation binds one student to one room for one academic period.
type Allocation struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	RoomID         string           `db:"room_id" json:"room_id"`
	AllocationDate time.Time        `db:"allocation_date" json:"allocation_date"`
	AcademicYear   string           `db:"academic_year" json:"academic_year"`
	Semester       string           `db:"semester" json:"semester"`
	Status         AllocationStatus `db:"status" json:"status"`
	CheckInDate    *time.Time       `db:"check_in_date" json:"check_in_date,omitempty"`
	CheckOutDate   *time.Time       `db:"check_out_date" json:"check_out_date,omitempty"`
	AllocatedBy    string           `db:"allocated_by" json:"allocated_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// AllocationDetail enriches Allocation with student and room info.
type AllocationDetail struct {
	Allocation
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	YearLevel     int    `db:"year_level" json:"year_level"`
	RoomNumber    string `db:"room_number" json:"room_number"`
	Building      string `db:"building" json:"building"`
	Floor         int    `db:"floor" json:"floor"`
	TypeName      string `db:"type_name" json:"type_name"`
}

// AllocationFilter provides filters for listing allocations.
type AllocationFilter struct {
	UserID       string
	RoomID       string
	Status       AllocationStatus
	AcademicYear string
	Semester     string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
