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

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindDetailByID(ctx context.Context, id string) (*models.RoomDetail, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	SetMaintenance(ctx context.Context, id string, on bool) error
	ListBuildings(ctx context.Context) ([]string, error)
	ListTypes(ctx context.Context) ([]models.RoomType, error)
	FindTypeByID(ctx context.Context, id string) (*models.RoomType, error)
}

type roomAllocationReader interface {
	CountActiveByRoom(ctx context.Context, roomID string) (int, error)
}

// RoomRequest is the create/update payload for a room.
type RoomRequest struct {
	RoomNumber string `json:"room_number" validate:"required"`
	Building   string `json:"building" validate:"required"`
	Floor      int    `json:"floor" validate:"min=0"`
	TypeID     string `json:"type_id" validate:"required"`
	Capacity   int    `json:"capacity" validate:"required,min=1"`
	Amenities  string `json:"amenities"`
}

// RoomService manages the room catalog. Occupancy and derived status are owned
// by the allocation repository; this service never writes them directly.
type RoomService struct {
	repo        roomRepository
	allocations roomAllocationReader
	cache       *CacheService
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRoomService constructs a RoomService.
func NewRoomService(repo roomRepository, allocations roomAllocationReader, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &RoomService{repo: repo, allocations: allocations, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

type roomListResult struct {
	Rooms      []models.RoomDetail `json:"rooms"`
	TotalCount int                 `json:"total_count"`
}

// List returns rooms matching the filter. Availability listings are cached
// briefly; the allocation path invalidates on every occupancy change.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	cacheKey := ""
	if s.cache != nil && s.cache.Enabled() {
		cacheKey = fmt.Sprintf("rooms:list:%s:%s:%s:%t:%d:%d",
			filter.Building, filter.Status, filter.TypeID, filter.OnlyAvailable, page, size)
		var cached roomListResult
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.TotalCount}, nil
		}
	}

	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, roomListResult{Rooms: rooms, TotalCount: total}, s.cacheTTL); err != nil {
			s.logger.Debug("failed to cache room listing", zap.Error(err))
		}
	}

	return rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a room with its type and derived availability.
func (s *RoomService) Get(ctx context.Context, id string) (*models.RoomDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return detail, nil
}

// Create adds a room to the catalog. New rooms start empty and available.
func (s *RoomService) Create(ctx context.Context, req RoomRequest) (*models.RoomDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if _, err := s.loadType(ctx, req.TypeID); err != nil {
		return nil, err
	}

	room := &models.Room{
		RoomNumber: req.RoomNumber,
		Building:   req.Building,
		Floor:      req.Floor,
		TypeID:     req.TypeID,
		Capacity:   req.Capacity,
		Status:     models.RoomStatusAvailable,
		Amenities:  req.Amenities,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}

	s.invalidate(ctx)
	return s.Get(ctx, room.ID)
}

// Update changes the descriptive fields of a room. Capacity may not drop below
// the current occupancy.
func (s *RoomService) Update(ctx context.Context, id string, req RoomRequest) (*models.RoomDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if req.Capacity < room.CurrentOccupancy {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("capacity %d is below current occupancy %d", req.Capacity, room.CurrentOccupancy))
	}
	if _, err := s.loadType(ctx, req.TypeID); err != nil {
		return nil, err
	}

	room.RoomNumber = req.RoomNumber
	room.Building = req.Building
	room.Floor = req.Floor
	room.TypeID = req.TypeID
	room.Capacity = req.Capacity
	room.Amenities = req.Amenities

	if err := s.repo.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room")
	}

	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a room that has no active allocations.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.allocations.CountActiveByRoom(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room allocations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "room has active allocations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	s.invalidate(ctx)
	return nil
}

// SetMaintenance flips maintenance mode. Turning it off recomputes the
// availability state from occupancy; turning it on never evicts occupants.
func (s *RoomService) SetMaintenance(ctx context.Context, id string, on bool) (*models.RoomDetail, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if on && room.Status == models.RoomStatusMaintenance {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "room is already under maintenance")
	}
	if !on && room.Status != models.RoomStatusMaintenance {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "room is not under maintenance")
	}

	if err := s.repo.SetMaintenance(ctx, id, on); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room status")
	}

	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// ListBuildings returns the distinct buildings present in the catalog.
func (s *RoomService) ListBuildings(ctx context.Context) ([]string, error) {
	buildings, err := s.repo.ListBuildings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list buildings")
	}
	return buildings, nil
}

// ListTypes returns the room type reference data.
func (s *RoomService) ListTypes(ctx context.Context) ([]models.RoomType, error) {
	types, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room types")
	}
	return types, nil
}

func (s *RoomService) loadType(ctx context.Context, typeID string) (*models.RoomType, error) {
	roomType, err := s.repo.FindTypeByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room type")
	}
	return roomType, nil
}

func (s *RoomService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, "rooms:*")
	s.cache.Invalidate(ctx, "dashboard:*")
}
