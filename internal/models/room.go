package models

import "time"

// RoomStatus is the stored availability state of a room.
type RoomStatus string

// Room statuses. Maintenance is set only by admin action and is never
// overwritten by occupancy-derived transitions.
const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusFull        RoomStatus = "full"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// RoomType is static reference data describing a category of rooms.
type RoomType struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Capacity    int    `db:"capacity" json:"capacity"`
	MinYear     int    `db:"min_year" json:"min_year"`
	MaxYear     int    `db:"max_year" json:"max_year"`
	Description string `db:"description" json:"description"`
}

// Room represents a physical room in a residence building.
type Room struct {
	ID               string     `db:"id" json:"id"`
	RoomNumber       string     `db:"room_number" json:"room_number"`
	Building         string     `db:"building" json:"building"`
	Floor            int        `db:"floor" json:"floor"`
	TypeID           string     `db:"type_id" json:"type_id"`
	Capacity         int        `db:"capacity" json:"capacity"`
	CurrentOccupancy int        `db:"current_occupancy" json:"current_occupancy"`
	Status           RoomStatus `db:"status" json:"status"`
	Amenities        string     `db:"amenities" json:"amenities"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// RoomDetail enriches Room with its type and derived availability.
type RoomDetail struct {
	Room
	TypeName        string `db:"type_name" json:"type_name"`
	SpacesAvailable int    `db:"spaces_available" json:"spaces_available"`
}

// RoomFilter provides filters for listing rooms.
type RoomFilter struct {
	Building      string
	Status        RoomStatus
	TypeID        string
	OnlyAvailable bool
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// RoomOccupancySummary aggregates occupancy per room type for the dashboard.
type RoomOccupancySummary struct {
	TypeName      string `db:"type_name" json:"type_name"`
	TotalRooms    int    `db:"total_rooms" json:"total_rooms"`
	TotalOccupied int    `db:"total_occupied" json:"total_occupied"`
	TotalCapacity int    `db:"total_capacity" json:"total_capacity"`
}
