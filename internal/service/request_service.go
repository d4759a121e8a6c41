package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type requestRepository interface {
	List(ctx context.Context, filter models.AllocationRequestFilter) ([]models.AllocationRequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.AllocationRequestDetail, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	Create(ctx context.Context, request *models.AllocationRequest) error
	Review(ctx context.Context, id string, status models.AllocationRequestStatus, adminID, response string, when time.Time) (bool, error)
}

// SubmitRequestPayload is the student-facing preference request body.
type SubmitRequestPayload struct {
	PreferredBuilding  string `json:"preferred_building"`
	PreferredFloor     *int   `json:"preferred_floor" validate:"omitempty,min=0"`
	RoommatePreference string `json:"roommate_preference"`
	SpecialNeeds       string `json:"special_needs"`
}

// ReviewRequestPayload is the admin decision body.
type ReviewRequestPayload struct {
	Status        models.AllocationRequestStatus `json:"status" validate:"required,oneof=approved rejected"`
	AdminResponse string                         `json:"admin_response"`
}

// RequestService manages the student preference request queue.
type RequestService struct {
	repo          requestRepository
	notifications notificationWriter
	activity      activityWriter
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo requestRepository, notifications notificationWriter, activity activityWriter, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:          repo,
		notifications: notifications,
		activity:      activity,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// List returns preference requests. Students see only their own; the handler
// pins the filter's UserID for non-admin callers.
func (s *RequestService) List(ctx context.Context, filter models.AllocationRequestFilter) ([]models.AllocationRequestDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single preference request.
func (s *RequestService) Get(ctx context.Context, id string) (*models.AllocationRequestDetail, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

// Submit files a new preference request. A student may hold at most one
// pending request at a time.
func (s *RequestService) Submit(ctx context.Context, userID string, payload SubmitRequestPayload) (*models.AllocationRequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	pending, err := s.repo.HasPending(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a pending request already exists")
	}

	request := &models.AllocationRequest{
		UserID:             userID,
		PreferredBuilding:  payload.PreferredBuilding,
		PreferredFloor:     payload.PreferredFloor,
		RoommatePreference: payload.RoommatePreference,
		SpecialNeeds:       payload.SpecialNeeds,
		Status:             models.RequestStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.logActivity(ctx, userID, models.ActivityActionRoomRequest, "allocation_requests", request.ID, "Room preference request submitted")

	return s.Get(ctx, request.ID)
}

// Review records an admin decision on a pending request. Approval does not
// allocate a room; it only signals intent back to the student.
func (s *RequestService) Review(ctx context.Context, id, adminID string, payload ReviewRequestPayload) (*models.AllocationRequestDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("request has already been %s", request.Status))
	}

	updated, err := s.repo.Review(ctx, id, payload.Status, adminID, payload.AdminResponse, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review request")
	}
	if !updated {
		// Lost the race to another reviewer.
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "request is no longer pending")
	}

	s.notifyDecision(ctx, request.UserID, payload.Status, payload.AdminResponse)

	return s.Get(ctx, id)
}

func (s *RequestService) notifyDecision(ctx context.Context, userID string, status models.AllocationRequestStatus, response string) {
	if s.notifications == nil {
		return
	}
	title := "Room request approved"
	message := "Your room preference request has been approved."
	if status == models.RequestStatusRejected {
		title = "Room request rejected"
		message = "Your room preference request has been rejected."
	}
	if response != "" {
		message = message + " " + response
	}
	err := s.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    models.NotificationRequest,
	})
	if err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *RequestService) logActivity(ctx context.Context, userID, action, table, recordID, description string) {
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
