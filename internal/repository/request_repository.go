package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

// RequestRepository handles persistence of allocation preference requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `ar.id, ar.user_id, ar.preferred_building, ar.preferred_floor, ar.roommate_preference,
        ar.special_needs, ar.status, ar.admin_response, ar.reviewed_by, ar.reviewed_at, ar.created_at, ar.updated_at`

// List returns preference requests filtered by the provided criteria.
func (r *RequestRepository) List(ctx context.Context, filter models.AllocationRequestFilter) ([]models.AllocationRequestDetail, int, error) {
	base := `FROM allocation_requests ar INNER JOIN users u ON u.id = ar.user_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("ar.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, u.student_number,
        u.first_name || ' ' || u.last_name AS student_name, u.year_level
        %s%s ORDER BY ar.created_at %s LIMIT %d OFFSET %d`,
		requestColumns, base, clause, order, size, offset)

	var requests []models.AllocationRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocation requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocation requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns a preference request with student context.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.AllocationRequestDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.student_number,
        u.first_name || ' ' || u.last_name AS student_name, u.year_level
        FROM allocation_requests ar INNER JOIN users u ON u.id = ar.user_id
        WHERE ar.id = $1`, requestColumns)
	var request models.AllocationRequestDetail
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// HasPending checks whether the student already has a pending request.
func (r *RequestRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM allocation_requests WHERE user_id = $1 AND status = 'pending' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return true, nil
}

// Create persists a new preference request.
func (r *RequestRepository) Create(ctx context.Context, request *models.AllocationRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	const query = `INSERT INTO allocation_requests (id, user_id, preferred_building, preferred_floor,
        roommate_preference, special_needs, status, admin_response, created_at, updated_at)
        VALUES (:id, :user_id, :preferred_building, :preferred_floor,
        :roommate_preference, :special_needs, :status, :admin_response, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create allocation request: %w", err)
	}
	return nil
}

// Review records the admin decision on a pending request. Zero rows means
// the request was not pending anymore.
func (r *RequestRepository) Review(ctx context.Context, id string, status models.AllocationRequestStatus, adminID, response string, when time.Time) (bool, error) {
	const query = `UPDATE allocation_requests SET status = $2, admin_response = $3, reviewed_by = $4,
        reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status, response, adminID, when)
	if err != nil {
		return false, fmt.Errorf("review allocation request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("review allocation request: %w", err)
	}
	return affected > 0, nil
}

// CountPending counts requests awaiting review.
func (r *RequestRepository) CountPending(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM allocation_requests WHERE status = 'pending'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return count, nil
}
