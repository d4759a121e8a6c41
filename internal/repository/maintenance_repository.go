package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

// MaintenanceRepository handles persistence of maintenance tickets.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// List returns tickets filtered by the provided criteria.
func (r *MaintenanceRepository) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequestDetail, int, error) {
	base := `FROM maintenance_requests mr
INNER JOIN rooms rm ON rm.id = mr.room_id
INNER JOIN users u ON u.id = mr.user_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("mr.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("mr.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("mr.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		conditions = append(conditions, fmt.Sprintf("mr.priority = $%d", len(args)+1))
		args = append(args, filter.Priority)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT mr.id, mr.user_id, mr.room_id, mr.issue_type, mr.priority, mr.description,
        mr.status, mr.admin_notes, mr.created_at, mr.updated_at,
        rm.room_number, rm.building, u.first_name || ' ' || u.last_name AS student_name
        %s%s ORDER BY mr.created_at DESC LIMIT %d OFFSET %d`, base, clause, size, offset)

	var tickets []models.MaintenanceRequestDetail
	if err := r.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list maintenance requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count maintenance requests: %w", err)
	}
	return tickets, total, nil
}

// FindByID returns a ticket with room and student context.
func (r *MaintenanceRepository) FindByID(ctx context.Context, id string) (*models.MaintenanceRequestDetail, error) {
	const query = `SELECT mr.id, mr.user_id, mr.room_id, mr.issue_type, mr.priority, mr.description,
        mr.status, mr.admin_notes, mr.created_at, mr.updated_at,
        rm.room_number, rm.building, u.first_name || ' ' || u.last_name AS student_name
        FROM maintenance_requests mr
        INNER JOIN rooms rm ON rm.id = mr.room_id
        INNER JOIN users u ON u.id = mr.user_id
        WHERE mr.id = $1`
	var ticket models.MaintenanceRequestDetail
	if err := r.db.GetContext(ctx, &ticket, query, id); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Create persists a new ticket.
func (r *MaintenanceRepository) Create(ctx context.Context, ticket *models.MaintenanceRequest) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	if ticket.Status == "" {
		ticket.Status = models.MaintenancePending
	}
	if ticket.Priority == "" {
		ticket.Priority = models.PriorityMedium
	}
	const query = `INSERT INTO maintenance_requests (id, user_id, room_id, issue_type, priority,
        description, status, admin_notes, created_at, updated_at)
        VALUES (:id, :user_id, :room_id, :issue_type, :priority,
        :description, :status, :admin_notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ticket); err != nil {
		return fmt.Errorf("create maintenance request: %w", err)
	}
	return nil
}

// UpdateStatus records the handling state and optional admin notes.
func (r *MaintenanceRepository) UpdateStatus(ctx context.Context, id string, status models.MaintenanceStatus, adminNotes string) error {
	const query = `UPDATE maintenance_requests SET status = $2, admin_notes = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, adminNotes, time.Now().UTC()); err != nil {
		return fmt.Errorf("update maintenance status: %w", err)
	}
	return nil
}
