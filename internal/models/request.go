package models

import "time"

// AllocationRequestStatus is the review state of a preference request.
type AllocationRequestStatus string

// Preference request statuses.
const (
	RequestStatusPending  AllocationRequestStatus = "pending"
	RequestStatusApproved AllocationRequestStatus = "approved"
	RequestStatusRejected AllocationRequestStatus = "rejected"
)

// AllocationRequest is a student-submitted room preference reviewed by admins.
// Approval is advisory; the actual allocation happens separately.
type AllocationRequest struct {
	ID                 string                  `db:"id" json:"id"`
	UserID             string                  `db:"user_id" json:"user_id"`
	PreferredBuilding  string                  `db:"preferred_building" json:"preferred_building"`
	PreferredFloor     *int                    `db:"preferred_floor" json:"preferred_floor,omitempty"`
	RoommatePreference string                  `db:"roommate_preference" json:"roommate_preference"`
	SpecialNeeds       string                  `db:"special_needs" json:"special_needs"`
	Status             AllocationRequestStatus `db:"status" json:"status"`
	AdminResponse      string                  `db:"admin_response" json:"admin_response"`
	ReviewedBy         *string                 `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time              `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt          time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time               `db:"updated_at" json:"updated_at"`
}

// AllocationRequestDetail adds the requesting student's roster info.
type AllocationRequestDetail struct {
	AllocationRequest
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	YearLevel     int    `db:"year_level" json:"year_level"`
}

// AllocationRequestFilter provides filters for listing preference requests.
type AllocationRequestFilter struct {
	UserID    string
	Status    AllocationRequestStatus
	Page      int
	PageSize  int
	SortOrder string
}
