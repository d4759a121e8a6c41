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

type allocationRepository interface {
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Allocation, error)
	FindDetailByID(ctx context.Context, id string) (*models.AllocationDetail, error)
	FindActiveByUser(ctx context.Context, userID string) (*models.AllocationDetail, error)
	ExistsActiveForPeriod(ctx context.Context, userID, academicYear, semester string) (bool, error)
	Allocate(ctx context.Context, allocation *models.Allocation) error
	CheckIn(ctx context.Context, id string, when time.Time) error
	Release(ctx context.Context, id string, toStatus models.AllocationStatus, when time.Time) error
	ListUnallocated(ctx context.Context, academicYear, semester string) ([]models.StudentSummary, error)
}

type allocationUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type allocationRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type activityWriter interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

// AllocateRequest describes an admin allocation payload.
type AllocateRequest struct {
	StudentID    string `json:"student_id" validate:"required"`
	RoomID       string `json:"room_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     string `json:"semester" validate:"required,oneof=1 2"`
}

// AllocationService orchestrates the room allocation lifecycle. It is the only
// code path that changes room occupancy.
type AllocationService struct {
	repo          allocationRepository
	users         allocationUserReader
	rooms         allocationRoomReader
	notifications notificationWriter
	activity      activityWriter
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// AllocationServiceParams groups constructor dependencies.
type AllocationServiceParams struct {
	Repo          allocationRepository
	Users         allocationUserReader
	Rooms         allocationRoomReader
	Notifications notificationWriter
	Activity      activityWriter
	Cache         *CacheService
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// NewAllocationService constructs AllocationService.
func NewAllocationService(params AllocationServiceParams) *AllocationService {
	v := params.Validator
	if v == nil {
		v = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		repo:          params.Repo,
		users:         params.Users,
		rooms:         params.Rooms,
		notifications: params.Notifications,
		activity:      params.Activity,
		cache:         params.Cache,
		metrics:       params.Metrics,
		validator:     v,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RecommendedType maps a year level to the advised room type name. It ranks
// suggestions only; Allocate does not enforce it.
func RecommendedType(yearLevel int) string {
	switch {
	case yearLevel <= 1:
		return "Common Room"
	case yearLevel == 2 || yearLevel == 3:
		return "Double Room"
	default:
		return "Single Room"
	}
}

// List returns allocations with pagination metadata.
func (s *AllocationService) List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, *models.Pagination, error) {
	allocations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return allocations, pagination, nil
}

// Get returns a single allocation with context.
func (s *AllocationService) Get(ctx context.Context, id string) (*models.AllocationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return detail, nil
}

// MyRoom returns the caller's current active allocation.
func (s *AllocationService) MyRoom(ctx context.Context, userID string) (*models.AllocationDetail, error) {
	detail, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active allocation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current allocation")
	}
	return detail, nil
}

// Allocate binds a student to a room for an academic period. All room-side
// effects happen in one repository transaction; the service prechecks fail
// closed before any state is touched.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest, adminID string) (*models.AllocationDetail, error) {
	detail, err := s.allocate(ctx, req, adminID)
	s.metrics.RecordAllocationOperation("allocate", err)
	return detail, err
}

func (s *AllocationService) allocate(ctx context.Context, req AllocateRequest, adminID string) (*models.AllocationDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation payload")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "allocations can only target students")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}

	room, err := s.rooms.FindByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room.Status == models.RoomStatusMaintenance {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "room is under maintenance")
	}
	if room.CurrentOccupancy >= room.Capacity {
		return nil, appErrors.Clone(appErrors.ErrRoomFull, "room is full")
	}

	exists, err := s.repo.ExistsActiveForPeriod(ctx, req.StudentID, req.AcademicYear, req.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate allocation")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an allocation for this period")
	}

	allocation := &models.Allocation{
		UserID:       req.StudentID,
		RoomID:       req.RoomID,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Status:       models.AllocationStatusConfirmed,
		AllocatedBy:  adminID,
	}
	// The repository repeats the capacity and duplicate-period checks inside
	// the transaction; a concurrent allocate for the last seat loses there.
	if err := s.repo.Allocate(ctx, allocation); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create allocation")
	}

	s.invalidateRoomCaches(ctx)
	s.notify(ctx, student.ID, "Room allocated",
		fmt.Sprintf("You have been allocated room %s for %s semester %s.", room.RoomNumber, req.AcademicYear, req.Semester),
		models.NotificationAllocation)
	s.logActivity(ctx, adminID, models.ActivityActionAllocate, "allocations", allocation.ID, "Allocated room to student")

	detail, err := s.repo.FindDetailByID(ctx, allocation.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation detail")
	}
	return detail, nil
}

// CheckIn marks a confirmed allocation as checked in.
func (s *AllocationService) CheckIn(ctx context.Context, id, adminID string) (*models.AllocationDetail, error) {
	detail, err := s.checkIn(ctx, id, adminID)
	s.metrics.RecordAllocationOperation("check_in", err)
	return detail, err
}

func (s *AllocationService) checkIn(ctx context.Context, id, adminID string) (*models.AllocationDetail, error) {
	allocation, err := s.loadAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if allocation.Status != models.AllocationStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot check in allocation in %s state", allocation.Status))
	}
	if err := s.repo.CheckIn(ctx, id, s.now()); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check in")
	}

	s.notify(ctx, allocation.UserID, "Checked in", "Your room check-in has been recorded.", models.NotificationAllocation)
	s.logActivity(ctx, adminID, models.ActivityActionCheckIn, "allocations", id, "Student checked in")

	return s.reloadDetail(ctx, id)
}

// CheckOut ends an active allocation and returns the seat to the room.
func (s *AllocationService) CheckOut(ctx context.Context, id, adminID string) (*models.AllocationDetail, error) {
	detail, err := s.release(ctx, id, adminID, models.AllocationStatusCheckedOut)
	s.metrics.RecordAllocationOperation("check_out", err)
	return detail, err
}

// Cancel voids an active allocation; the room-side effect matches CheckOut.
func (s *AllocationService) Cancel(ctx context.Context, id, adminID string) (*models.AllocationDetail, error) {
	detail, err := s.release(ctx, id, adminID, models.AllocationStatusCancelled)
	s.metrics.RecordAllocationOperation("cancel", err)
	return detail, err
}

func (s *AllocationService) release(ctx context.Context, id, adminID string, toStatus models.AllocationStatus) (*models.AllocationDetail, error) {
	allocation, err := s.loadAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if allocation.Status != models.AllocationStatusConfirmed && allocation.Status != models.AllocationStatusCheckedIn {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("cannot end allocation in %s state", allocation.Status))
	}
	if err := s.repo.Release(ctx, id, toStatus, s.now()); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to end allocation")
	}

	s.invalidateRoomCaches(ctx)
	if toStatus == models.AllocationStatusCheckedOut {
		s.notify(ctx, allocation.UserID, "Checked out", "Your room check-out has been recorded.", models.NotificationAllocation)
		s.logActivity(ctx, adminID, models.ActivityActionCheckOut, "allocations", id, "Student checked out")
	} else {
		s.notify(ctx, allocation.UserID, "Allocation cancelled", "Your room allocation has been cancelled.", models.NotificationAllocation)
		s.logActivity(ctx, adminID, models.ActivityActionCancel, "allocations", id, "Allocation cancelled")
	}

	return s.reloadDetail(ctx, id)
}

// ListUnallocated returns active students lacking an active allocation for the period.
func (s *AllocationService) ListUnallocated(ctx context.Context, academicYear, semester string) ([]models.StudentSummary, error) {
	if academicYear == "" || semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year and semester are required")
	}
	students, err := s.repo.ListUnallocated(ctx, academicYear, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unallocated students")
	}
	return students, nil
}

func (s *AllocationService) loadAllocation(ctx context.Context, id string) (*models.Allocation, error) {
	allocation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "allocation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	return allocation, nil
}

func (s *AllocationService) reloadDetail(ctx context.Context, id string) (*models.AllocationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation detail")
	}
	return detail, nil
}

func (s *AllocationService) invalidateRoomCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, "rooms:*")
	s.cache.Invalidate(ctx, "dashboard:*")
}

func (s *AllocationService) notify(ctx context.Context, userID, title, message string, t models.NotificationType) {
	if s.notifications == nil {
		return
	}
	err := s.notifications.Create(ctx, &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    t,
	})
	if err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *AllocationService) logActivity(ctx context.Context, userID, action, table, recordID, description string) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		Action:      action,
		TableName:   table,
		Description: description,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if recordID != "" {
		entry.RecordID = &recordID
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity log", zap.String("action", action), zap.Error(err))
	}
}
