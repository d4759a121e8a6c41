package models

import "time"

// RoommateRequestStatus tracks a pairwise connection request.
type RoommateRequestStatus string

// Roommate request statuses.
const (
	RoommateRequestPending  RoommateRequestStatus = "pending"
	RoommateRequestAccepted RoommateRequestStatus = "accepted"
	RoommateRequestRejected RoommateRequestStatus = "rejected"
)

// RoommateProfile holds self-reported living habits used for candidate filtering.
type RoommateProfile struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	SleepSchedule string    `db:"sleep_schedule" json:"sleep_schedule"`
	Cleanliness   string    `db:"cleanliness" json:"cleanliness"`
	NoiseLevel    string    `db:"noise_level" json:"noise_level"`
	StudyHabits   string    `db:"study_habits" json:"study_habits"`
	Interests     string    `db:"interests" json:"interests"`
	AboutMe       string    `db:"about_me" json:"about_me"`
	LookingFor    string    `db:"looking_for" json:"looking_for"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// RoommateCandidate is a potential roommate in candidate listings.
type RoommateCandidate struct {
	UserID        string `db:"user_id" json:"user_id"`
	StudentNumber string `db:"student_number" json:"student_number"`
	FirstName     string `db:"first_name" json:"first_name"`
	LastName      string `db:"last_name" json:"last_name"`
	Program       string `db:"program" json:"program"`
	Gender        string `db:"gender" json:"gender"`
	SleepSchedule string `db:"sleep_schedule" json:"sleep_schedule"`
	Cleanliness   string `db:"cleanliness" json:"cleanliness"`
	NoiseLevel    string `db:"noise_level" json:"noise_level"`
	StudyHabits   string `db:"study_habits" json:"study_habits"`
	Interests     string `db:"interests" json:"interests"`
	AboutMe       string `db:"about_me" json:"about_me"`
}

// RoommateRequest is a pairwise connection request between two students.
type RoommateRequest struct {
	ID         string                `db:"id" json:"id"`
	FromUserID string                `db:"from_user_id" json:"from_user_id"`
	ToUserID   string                `db:"to_user_id" json:"to_user_id"`
	Status     RoommateRequestStatus `db:"status" json:"status"`
	CreatedAt  time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time             `db:"updated_at" json:"updated_at"`
}

// RoommateRequestDetail adds the counterpart student's info.
type RoommateRequestDetail struct {
	RoommateRequest
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	Program       string `db:"program" json:"program"`
}
