package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type maintenanceRepository interface {
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MaintenanceRequestDetail, error)
	Create(ctx context.Context, ticket *models.MaintenanceRequest) error
	UpdateStatus(ctx context.Context, id string, status models.MaintenanceStatus, adminNotes string) error
}

type maintenanceAllocationReader interface {
	FindActiveByUser(ctx context.Context, userID string) (*models.AllocationDetail, error)
}

// ReportIssuePayload is the student-facing ticket body. The room is implied by
// the reporter's active allocation.
type ReportIssuePayload struct {
	IssueType   string                     `json:"issue_type" validate:"required"`
	Priority    models.MaintenancePriority `json:"priority" validate:"omitempty,oneof=low medium high emergency"`
	Description string                     `json:"description" validate:"required"`
}

// UpdateTicketPayload is the admin status transition body.
type UpdateTicketPayload struct {
	Status     models.MaintenanceStatus `json:"status" validate:"required,oneof=in_progress completed cancelled"`
	AdminNotes string                   `json:"admin_notes"`
}

// MaintenanceService manages issue tickets. Tickets track work on a room but
// never change the room's status; that is a separate admin action.
type MaintenanceService struct {
	repo          maintenanceRepository
	allocations   maintenanceAllocationReader
	notifications notificationWriter
	activity      activityWriter
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(repo maintenanceRepository, allocations maintenanceAllocationReader, notifications notificationWriter, activity activityWriter, validate *validator.Validate, logger *zap.Logger) *MaintenanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceService{
		repo:          repo,
		allocations:   allocations,
		notifications: notifications,
		activity:      activity,
		validator:     validate,
		logger:        logger,
	}
}

// List returns tickets. Students see only their own; the handler pins the
// filter's UserID for non-admin callers.
func (s *MaintenanceService) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequestDetail, *models.Pagination, error) {
	tickets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tickets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return tickets, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single ticket with room context.
func (s *MaintenanceService) Get(ctx context.Context, id string) (*models.MaintenanceRequestDetail, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ticket not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ticket")
	}
	return ticket, nil
}

// Report files a ticket against the reporter's current room. Students without
// an active allocation cannot report.
func (s *MaintenanceService) Report(ctx context.Context, userID string, payload ReportIssuePayload) (*models.MaintenanceRequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ticket payload")
	}

	allocation, err := s.allocations.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "no active room allocation to report against")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}

	ticket := &models.MaintenanceRequest{
		UserID:      userID,
		RoomID:      allocation.RoomID,
		IssueType:   payload.IssueType,
		Priority:    payload.Priority,
		Description: payload.Description,
		Status:      models.MaintenancePending,
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ticket")
	}

	s.logActivity(ctx, userID, models.ActivityActionMaintenance, "maintenance_requests", ticket.ID, "Maintenance issue reported")

	return s.Get(ctx, ticket.ID)
}

// UpdateStatus applies an admin transition to a ticket. Terminal tickets
// cannot be modified.
func (s *MaintenanceService) UpdateStatus(ctx context.Context, id, adminID string, payload UpdateTicketPayload) (*models.MaintenanceRequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == models.MaintenanceCompleted || ticket.Status == models.MaintenanceCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("ticket has already been %s", ticket.Status))
	}

	if err := s.repo.UpdateStatus(ctx, id, payload.Status, payload.AdminNotes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ticket")
	}

	s.notifyStatus(ctx, ticket.UserID, payload.Status)

	return s.Get(ctx, id)
}

func (s *MaintenanceService) notifyStatus(ctx context.Context, userID string, status models.MaintenanceStatus) {
	if s.notifications == nil {
		return
	}
	message := "Your maintenance request is now " + string(status) + "."
	err := s.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Title:   "Maintenance update",
		Message: message,
		Type:    models.NotificationMaintenance,
	})
	if err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *MaintenanceService) logActivity(ctx context.Context, userID, action, table, recordID, description string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		UserID:      &userID,
		Action:      action,
		TableName:   table,
		RecordID:    &recordID,
		Description: description,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity log", zap.String("action", action), zap.Error(err))
	}
}
