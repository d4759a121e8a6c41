package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
)

type dashboardUserReader interface {
	CountStudents(ctx context.Context, onlyActive bool) (int, error)
}

type dashboardRoomReader interface {
	CountAll(ctx context.Context) (int, error)
	CountAvailable(ctx context.Context) (int, error)
	OccupancySummary(ctx context.Context) ([]models.RoomOccupancySummary, error)
}

type dashboardAllocationReader interface {
	CountActive(ctx context.Context) (int, error)
	CountHousedStudents(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit int) ([]models.AllocationDetail, error)
}

type dashboardRequestReader interface {
	CountPending(ctx context.Context) (int, error)
}

type dashboardActivityReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

const dashboardSummaryCacheKey = "dashboard:summary"

// DashboardService aggregates occupancy and queue statistics for the admin
// overview. The summary is cached; allocation and room writes invalidate it.
type DashboardService struct {
	users       dashboardUserReader
	rooms       dashboardRoomReader
	allocations dashboardAllocationReader
	requests    dashboardRequestReader
	activity    dashboardActivityReader
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Users       dashboardUserReader
	Rooms       dashboardRoomReader
	Allocations dashboardAllocationReader
	Requests    dashboardRequestReader
	Activity    dashboardActivityReader
	Cache       *CacheService
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{
		users:       params.Users,
		rooms:       params.Rooms,
		allocations: params.Allocations,
		requests:    params.Requests,
		activity:    params.Activity,
		cache:       params.Cache,
		cacheTTL:    ttl,
		logger:      logger,
	}
}

// Summary returns the admin overview, served from cache when fresh. The
// second return reports whether the response came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil && s.cache.Enabled() {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardSummaryCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary := &models.DashboardSummary{}
	var err error

	if summary.TotalStudents, err = s.users.CountStudents(ctx, false); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	if summary.ActiveStudents, err = s.users.CountStudents(ctx, true); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active students")
	}
	if summary.StudentsHoused, err = s.allocations.CountHousedStudents(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count housed students")
	}
	if summary.TotalRooms, err = s.rooms.CountAll(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count rooms")
	}
	if summary.AvailableRooms, err = s.rooms.CountAvailable(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count available rooms")
	}
	if summary.ActiveAllocations, err = s.allocations.CountActive(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count allocations")
	}
	if summary.PendingRequests, err = s.requests.CountPending(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending requests")
	}
	if summary.OccupancyByType, err = s.rooms.OccupancySummary(ctx); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occupancy summary")
	}
	if summary.RecentAllocations, err = s.allocations.ListRecent(ctx, 10); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent allocations")
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, dashboardSummaryCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Debug("failed to cache dashboard summary", zap.Error(err))
		}
	}

	return summary, false, nil
}

// RecentActivity returns the latest audit trail entries.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := s.activity.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity log")
	}
	return entries, nil
}
