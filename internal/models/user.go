package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	StudentNumber string     `db:"student_number" json:"student_number"`
	FirstName     string     `db:"first_name" json:"first_name"`
	LastName      string     `db:"last_name" json:"last_name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	Phone         string     `db:"phone" json:"phone"`
	Gender        string     `db:"gender" json:"gender"`
	Role          UserRole   `db:"role" json:"role"`
	YearLevel     int        `db:"year_level" json:"year_level"`
	Program       string     `db:"program" json:"program"`
	Active        bool       `db:"active" json:"active"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins the stored name parts for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// StudentSummary is the roster view of a student joined with housing state.
type StudentSummary struct {
	ID            string   `db:"id" json:"id"`
	StudentNumber string   `db:"student_number" json:"student_number"`
	FirstName     string   `db:"first_name" json:"first_name"`
	LastName      string   `db:"last_name" json:"last_name"`
	Email         string   `db:"email" json:"email"`
	YearLevel     int      `db:"year_level" json:"year_level"`
	Program       string   `db:"program" json:"program"`
	Active        bool     `db:"active" json:"active"`
	HasRoom       bool     `db:"has_room" json:"has_room"`
	Role          UserRole `db:"role" json:"role"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Active    *bool
	YearLevel int
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
