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
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

// AllocationRepository handles persistence of room allocations. The occupancy
// counter on rooms is mutated only here, inside the same transaction as the
// allocation row change.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

const allocationDetailColumns = `a.id, a.user_id, a.room_id, a.allocation_date, a.academic_year, a.semester,
        a.status, a.check_in_date, a.check_out_date, a.allocated_by, a.created_at, a.updated_at,
        u.student_number, u.first_name || ' ' || u.last_name AS student_name, u.year_level,
        r.room_number, r.building, r.floor, rt.name AS type_name`

const allocationDetailJoins = `FROM allocations a
INNER JOIN users u ON u.id = a.user_id
INNER JOIN rooms r ON r.id = a.room_id
INNER JOIN room_types rt ON rt.id = r.type_id`

// List returns allocations filtered by the provided criteria.
func (r *AllocationRepository) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("a.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("a.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("a.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("a.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"allocation_date": "a.allocation_date",
		"created_at":      "a.created_at",
		"student_name":    "student_name",
		"room_number":     "r.room_number",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.created_at"
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

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		allocationDetailColumns, allocationDetailJoins, clause, orderBy, order, size, offset)

	var allocations []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list allocations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", allocationDetailJoins, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count allocations: %w", err)
	}
	return allocations, total, nil
}

// FindByID returns an allocation by its ID.
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	const query = `SELECT id, user_id, room_id, allocation_date, academic_year, semester, status,
        check_in_date, check_out_date, allocated_by, created_at, updated_at
        FROM allocations WHERE id = $1`
	var allocation models.Allocation
	if err := r.db.GetContext(ctx, &allocation, query, id); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// FindDetailByID returns an allocation with student and room context.
func (r *AllocationRepository) FindDetailByID(ctx context.Context, id string) (*models.AllocationDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE a.id = $1", allocationDetailColumns, allocationDetailJoins)
	var detail models.AllocationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindActiveByUser returns the caller's current active allocation, if any.
func (r *AllocationRepository) FindActiveByUser(ctx context.Context, userID string) (*models.AllocationDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.user_id = $1 AND a.status IN ('pending', 'confirmed', 'checked_in')
        ORDER BY a.created_at DESC LIMIT 1`, allocationDetailColumns, allocationDetailJoins)
	var detail models.AllocationDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActiveForPeriod checks whether the student already holds an active
// allocation for the academic period.
func (r *AllocationRepository) ExistsActiveForPeriod(ctx context.Context, userID, academicYear, semester string) (bool, error) {
	const query = `SELECT 1 FROM allocations WHERE user_id = $1 AND academic_year = $2 AND semester = $3
        AND status IN ('pending', 'confirmed', 'checked_in') LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, academicYear, semester); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active allocation: %w", err)
	}
	return true, nil
}

// CountActiveByRoom counts active allocations referencing a room.
func (r *AllocationRepository) CountActiveByRoom(ctx context.Context, roomID string) (int, error) {
	const query = `SELECT COUNT(*) FROM allocations WHERE room_id = $1 AND status IN ('pending', 'confirmed', 'checked_in')`
	var count int
	if err := r.db.GetContext(ctx, &count, query, roomID); err != nil {
		return 0, fmt.Errorf("count active allocations for room: %w", err)
	}
	return count, nil
}

// Allocate atomically claims a seat in the room and inserts the allocation.
// The conditional occupancy update is the overbooking guard: when the room is
// already at capacity zero rows are affected and the transaction aborts with
// ErrRoomFull. The duplicate-period check is repeated inside the transaction
// so two concurrent requests for the same student cannot both pass.
func (r *AllocationRepository) Allocate(ctx context.Context, allocation *models.Allocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if allocation.AllocationDate.IsZero() {
		allocation.AllocationDate = now
	}
	allocation.CreatedAt = now
	allocation.UpdatedAt = now
	if allocation.Status == "" {
		allocation.Status = models.AllocationStatusConfirmed
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocate: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.GetContext(ctx, &exists,
		`SELECT 1 FROM allocations WHERE user_id = $1 AND academic_year = $2 AND semester = $3
         AND status IN ('pending', 'confirmed', 'checked_in') LIMIT 1`,
		allocation.UserID, allocation.AcademicYear, allocation.Semester)
	if err == nil {
		return appErrors.Clone(appErrors.ErrConflict, "student already has an allocation for this period")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("recheck active allocation: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE rooms SET current_occupancy = current_occupancy + 1,
         status = CASE WHEN status <> 'maintenance' AND current_occupancy + 1 >= capacity THEN 'full' ELSE status END,
         updated_at = $2
         WHERE id = $1 AND current_occupancy < capacity`,
		allocation.RoomID, now)
	if err != nil {
		return fmt.Errorf("claim room seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim room seat: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrRoomFull
	}

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO allocations (id, user_id, room_id, allocation_date, academic_year, semester,
         status, allocated_by, created_at, updated_at)
         VALUES (:id, :user_id, :room_id, :allocation_date, :academic_year, :semester,
         :status, :allocated_by, :created_at, :updated_at)`, allocation); err != nil {
		return fmt.Errorf("insert allocation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocate: %w", err)
	}
	return nil
}

// CheckIn transitions a confirmed allocation to checked_in. Occupancy is not
// touched; the seat was counted at allocation time.
func (r *AllocationRepository) CheckIn(ctx context.Context, id string, when time.Time) error {
	const query = `UPDATE allocations SET status = 'checked_in', check_in_date = $2, updated_at = $2
        WHERE id = $1 AND status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, query, id, when)
	if err != nil {
		return fmt.Errorf("check in allocation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check in allocation: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrInvalidState, "allocation is not in confirmed state")
	}
	return nil
}

// Release ends an active allocation as checked_out or cancelled and returns
// the seat to the room in the same transaction. The occupancy decrement floors
// at zero and the derived status never overwrites a maintenance room.
func (r *AllocationRepository) Release(ctx context.Context, id string, toStatus models.AllocationStatus, when time.Time) error {
	if toStatus != models.AllocationStatusCheckedOut && toStatus != models.AllocationStatusCancelled {
		return appErrors.Clone(appErrors.ErrInvalidState, "release target must be checked_out or cancelled")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var roomID string
	var checkOutDate interface{}
	if toStatus == models.AllocationStatusCheckedOut {
		checkOutDate = when
	}
	err = tx.QueryRowxContext(ctx,
		`UPDATE allocations SET status = $2, check_out_date = COALESCE($3, check_out_date), updated_at = $4
         WHERE id = $1 AND status IN ('confirmed', 'checked_in')
         RETURNING room_id`,
		id, toStatus, checkOutDate, when).Scan(&roomID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrInvalidState, "allocation is not active")
		}
		return fmt.Errorf("release allocation: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET current_occupancy = GREATEST(current_occupancy - 1, 0), updated_at = $2 WHERE id = $1`,
		roomID, when); err != nil {
		return fmt.Errorf("release room seat: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET status = 'available'
         WHERE id = $1 AND current_occupancy < capacity AND status <> 'maintenance'`,
		roomID); err != nil {
		return fmt.Errorf("reopen room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	return nil
}

// ListUnallocated returns active students without an active allocation for the period.
func (r *AllocationRepository) ListUnallocated(ctx context.Context, academicYear, semester string) ([]models.StudentSummary, error) {
	const query = `SELECT u.id, u.student_number, u.first_name, u.last_name, u.email, u.year_level,
        u.program, u.active, u.role, FALSE AS has_room
        FROM users u
        WHERE u.role = 'STUDENT' AND u.active = TRUE
        AND NOT EXISTS (
            SELECT 1 FROM allocations a
            WHERE a.user_id = u.id AND a.academic_year = $1 AND a.semester = $2
            AND a.status IN ('pending', 'confirmed', 'checked_in')
        )
        ORDER BY u.year_level, u.last_name`
	var students []models.StudentSummary
	if err := r.db.SelectContext(ctx, &students, query, academicYear, semester); err != nil {
		return nil, fmt.Errorf("list unallocated students: %w", err)
	}
	return students, nil
}

// ListRecent returns the latest allocations for the dashboard.
func (r *AllocationRepository) ListRecent(ctx context.Context, limit int) ([]models.AllocationDetail, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf("SELECT %s %s ORDER BY a.created_at DESC LIMIT %d",
		allocationDetailColumns, allocationDetailJoins, limit)
	var allocations []models.AllocationDetail
	if err := r.db.SelectContext(ctx, &allocations, query); err != nil {
		return nil, fmt.Errorf("list recent allocations: %w", err)
	}
	return allocations, nil
}

// CountActive counts allocations in active statuses.
func (r *AllocationRepository) CountActive(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM allocations WHERE status IN ('confirmed', 'checked_in')`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count active allocations: %w", err)
	}
	return count, nil
}

// CountHousedStudents counts distinct students with an active allocation.
func (r *AllocationRepository) CountHousedStudents(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(DISTINCT user_id) FROM allocations WHERE status IN ('confirmed', 'checked_in')`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count housed students: %w", err)
	}
	return count, nil
}
