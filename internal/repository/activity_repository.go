package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
)

// ActivityRepository appends to and reads the activity log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends an activity log row.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_logs (id, user_id, action, table_name, record_id, description, ip_address, created_at)
        VALUES (:id, :user_id, :action, :table_name, :record_id, :description, :ip_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// ListRecent returns the latest audit entries.
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, user_id, action, table_name, record_id, description, ip_address, created_at
        FROM activity_logs ORDER BY created_at DESC LIMIT %d`, limit)
	var entries []models.ActivityLog
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return entries, nil
}
