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

// RoomRepository handles persistence of rooms and room types.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomDetailColumns = `r.id, r.room_number, r.building, r.floor, r.type_id, r.capacity,
        r.current_occupancy, r.status, r.amenities, r.created_at, r.updated_at,
        rt.name AS type_name, r.capacity - r.current_occupancy AS spaces_available`

// List returns rooms filtered by the provided criteria.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error) {
	base := `FROM rooms r INNER JOIN room_types rt ON rt.id = r.type_id`
	var conditions []string
	var args []interface{}

	if filter.Building != "" {
		conditions = append(conditions, fmt.Sprintf("r.building = $%d", len(args)+1))
		args = append(args, filter.Building)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.TypeID != "" {
		conditions = append(conditions, fmt.Sprintf("r.type_id = $%d", len(args)+1))
		args = append(args, filter.TypeID)
	}
	if filter.OnlyAvailable {
		conditions = append(conditions, "r.status = 'available' AND r.current_occupancy < r.capacity")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"room_number": "r.room_number",
		"building":    "r.building, r.floor, r.room_number",
		"occupancy":   "r.current_occupancy",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.building, r.floor, r.room_number"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		roomDetailColumns, base, clause, orderBy, order, size, offset)

	var rooms []models.RoomDetail
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// FindByID returns a room by its ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, room_number, building, floor, type_id, capacity, current_occupancy,
        status, amenities, created_at, updated_at FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindDetailByID returns a room with its type info.
func (r *RoomRepository) FindDetailByID(ctx context.Context, id string) (*models.RoomDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms r INNER JOIN room_types rt ON rt.id = r.type_id WHERE r.id = $1`, roomDetailColumns)
	var detail models.RoomDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create persists a new room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	const query = `INSERT INTO rooms (id, room_number, building, floor, type_id, capacity,
        current_occupancy, status, amenities, created_at, updated_at)
        VALUES (:id, :room_number, :building, :floor, :type_id, :capacity,
        :current_occupancy, :status, :amenities, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// Update persists room attribute changes. Occupancy and the derived status are
// owned by the allocation lifecycle and are not written here.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET room_number = :room_number, building = :building, floor = :floor,
        type_id = :type_id, capacity = :capacity, amenities = :amenities, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}

// Delete removes a room.
func (r *RoomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return nil
}

// SetMaintenance toggles the manual maintenance flag. Leaving maintenance
// recomputes the derived status from the current occupancy.
func (r *RoomRepository) SetMaintenance(ctx context.Context, id string, on bool) error {
	now := time.Now().UTC()
	var query string
	if on {
		query = `UPDATE rooms SET status = 'maintenance', updated_at = $2 WHERE id = $1`
	} else {
		query = `UPDATE rooms SET status = CASE WHEN current_occupancy >= capacity THEN 'full' ELSE 'available' END,
            updated_at = $2 WHERE id = $1 AND status = 'maintenance'`
	}
	if _, err := r.db.ExecContext(ctx, query, id, now); err != nil {
		return fmt.Errorf("set room maintenance: %w", err)
	}
	return nil
}

// ListBuildings returns the distinct buildings in the catalog.
func (r *RoomRepository) ListBuildings(ctx context.Context) ([]string, error) {
	var buildings []string
	if err := r.db.SelectContext(ctx, &buildings, `SELECT DISTINCT building FROM rooms ORDER BY building`); err != nil {
		return nil, fmt.Errorf("list buildings: %w", err)
	}
	return buildings, nil
}

// ListTypes returns all room types.
func (r *RoomRepository) ListTypes(ctx context.Context) ([]models.RoomType, error) {
	const query = `SELECT id, name, capacity, min_year, max_year, description FROM room_types ORDER BY name`
	var types []models.RoomType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	return types, nil
}

// FindTypeByID returns a room type.
func (r *RoomRepository) FindTypeByID(ctx context.Context, id string) (*models.RoomType, error) {
	const query = `SELECT id, name, capacity, min_year, max_year, description FROM room_types WHERE id = $1`
	var roomType models.RoomType
	if err := r.db.GetContext(ctx, &roomType, query, id); err != nil {
		return nil, err
	}
	return &roomType, nil
}

// OccupancySummary aggregates occupancy per room type.
func (r *RoomRepository) OccupancySummary(ctx context.Context) ([]models.RoomOccupancySummary, error) {
	const query = `SELECT rt.name AS type_name,
        COUNT(r.id) AS total_rooms,
        COALESCE(SUM(r.current_occupancy), 0) AS total_occupied,
        COALESCE(SUM(r.capacity), 0) AS total_capacity
        FROM room_types rt
        LEFT JOIN rooms r ON r.type_id = rt.id
        GROUP BY rt.id, rt.name
        ORDER BY rt.name`
	var summary []models.RoomOccupancySummary
	if err := r.db.SelectContext(ctx, &summary, query); err != nil {
		return nil, fmt.Errorf("room occupancy summary: %w", err)
	}
	return summary, nil
}

// CountAll counts rooms in the catalog.
func (r *RoomRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM rooms`); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return count, nil
}

// CountAvailable counts rooms with free capacity.
func (r *RoomRepository) CountAvailable(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM rooms WHERE status = 'available' AND current_occupancy < capacity`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count available rooms: %w", err)
	}
	return count, nil
}
