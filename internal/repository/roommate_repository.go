package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

// RoommateRepository handles roommate profiles and pairwise requests.
type RoommateRepository struct {
	db *sqlx.DB
}

// NewRoommateRepository constructs the repository.
func NewRoommateRepository(db *sqlx.DB) *RoommateRepository {
	return &RoommateRepository{db: db}
}

// FindProfileByUser returns a student's roommate profile.
func (r *RoommateRepository) FindProfileByUser(ctx context.Context, userID string) (*models.RoommateProfile, error) {
	const query = `SELECT id, user_id, sleep_schedule, cleanliness, noise_level, study_habits,
        interests, about_me, looking_for, created_at, updated_at
        FROM roommate_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.RoommateProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the student's profile.
func (r *RoommateRepository) UpsertProfile(ctx context.Context, profile *models.RoommateProfile) error {
	now := time.Now().UTC()
	existing, err := r.FindProfileByUser(ctx, profile.UserID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("load roommate profile: %w", err)
	}
	if existing != nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		profile.UpdatedAt = now
		const update = `UPDATE roommate_profiles SET sleep_schedule = :sleep_schedule, cleanliness = :cleanliness,
            noise_level = :noise_level, study_habits = :study_habits, interests = :interests,
            about_me = :about_me, looking_for = :looking_for, updated_at = :updated_at
            WHERE user_id = :user_id`
		if _, err := r.db.NamedExecContext(ctx, update, profile); err != nil {
			return fmt.Errorf("update roommate profile: %w", err)
		}
		return nil
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.CreatedAt = now
	profile.UpdatedAt = now
	const insert = `INSERT INTO roommate_profiles (id, user_id, sleep_schedule, cleanliness, noise_level,
        study_habits, interests, about_me, looking_for, created_at, updated_at)
        VALUES (:id, :user_id, :sleep_schedule, :cleanliness, :noise_level,
        :study_habits, :interests, :about_me, :looking_for, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, insert, profile); err != nil {
		return fmt.Errorf("create roommate profile: %w", err)
	}
	return nil
}

// ListCandidates returns active students with a profile in the same year level,
// excluding the requester and any pair already connected in either direction.
// Plain equality filtering; no compatibility scoring.
func (r *RoommateRepository) ListCandidates(ctx context.Context, userID string, yearLevel int) ([]models.RoommateCandidate, error) {
	const query = `SELECT u.id AS user_id, u.student_number, u.first_name, u.last_name, u.program, u.gender,
        rp.sleep_schedule, rp.cleanliness, rp.noise_level, rp.study_habits, rp.interests, rp.about_me
        FROM users u
        INNER JOIN roommate_profiles rp ON rp.user_id = u.id
        WHERE u.year_level = $2
        AND u.id <> $1
        AND u.role = 'STUDENT'
        AND u.active = TRUE
        AND NOT EXISTS (
            SELECT 1 FROM roommate_requests rr
            WHERE (rr.from_user_id = $1 AND rr.to_user_id = u.id)
            OR (rr.from_user_id = u.id AND rr.to_user_id = $1)
        )
        ORDER BY u.created_at DESC`
	var candidates []models.RoommateCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, userID, yearLevel); err != nil {
		return nil, fmt.Errorf("list roommate candidates: %w", err)
	}
	return candidates, nil
}

// ExistsBetween checks whether a request exists between two users in either direction.
func (r *RoommateRepository) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	const query = `SELECT 1 FROM roommate_requests
        WHERE (from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1)
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userA, userB); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check roommate request pair: %w", err)
	}
	return true, nil
}

// CreateRequest persists a new pairwise request.
func (r *RoommateRepository) CreateRequest(ctx context.Context, request *models.RoommateRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RoommateRequestPending
	}
	const query = `INSERT INTO roommate_requests (id, from_user_id, to_user_id, status, created_at, updated_at)
        VALUES (:id, :from_user_id, :to_user_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create roommate request: %w", err)
	}
	return nil
}

// FindRequestByID returns a pairwise request.
func (r *RoommateRepository) FindRequestByID(ctx context.Context, id string) (*models.RoommateRequest, error) {
	const query = `SELECT id, from_user_id, to_user_id, status, created_at, updated_at
        FROM roommate_requests WHERE id = $1`
	var request models.RoommateRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateRequestStatus records the recipient's decision on a pending request.
func (r *RoommateRepository) UpdateRequestStatus(ctx context.Context, id string, status models.RoommateRequestStatus) (bool, error) {
	const query = `UPDATE roommate_requests SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("update roommate request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update roommate request: %w", err)
	}
	return affected > 0, nil
}

// ListIncoming returns pending requests addressed to the user.
func (r *RoommateRepository) ListIncoming(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	const query = `SELECT rr.id, rr.from_user_id, rr.to_user_id, rr.status, rr.created_at, rr.updated_at,
        u.student_number, u.first_name || ' ' || u.last_name AS student_name, u.program
        FROM roommate_requests rr
        INNER JOIN users u ON u.id = rr.from_user_id
        WHERE rr.to_user_id = $1 AND rr.status = 'pending'
        ORDER BY rr.created_at DESC`
	var requests []models.RoommateRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list incoming roommate requests: %w", err)
	}
	return requests, nil
}

// ListSent returns pending requests the user has sent.
func (r *RoommateRepository) ListSent(ctx context.Context, userID string) ([]models.RoommateRequestDetail, error) {
	const query = `SELECT rr.id, rr.from_user_id, rr.to_user_id, rr.status, rr.created_at, rr.updated_at,
        u.student_number, u.first_name || ' ' || u.last_name AS student_name, u.program
        FROM roommate_requests rr
        INNER JOIN users u ON u.id = rr.to_user_id
        WHERE rr.from_user_id = $1 AND rr.status = 'pending'
        ORDER BY rr.created_at DESC`
	var requests []models.RoommateRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, userID); err != nil {
		return nil, fmt.Errorf("list sent roommate requests: %w", err)
	}
	return requests, nil
}
