package models

// DashboardSummary is the admin overview payload.
type DashboardSummary struct {
	TotalStudents     int                    `json:"total_students"`
	ActiveStudents    int                    `json:"active_students"`
	StudentsHoused    int                    `json:"students_housed"`
	TotalRooms        int                    `json:"total_rooms"`
	AvailableRooms    int                    `json:"available_rooms"`
	ActiveAllocations int                    `json:"active_allocations"`
	PendingRequests   int                    `json:"pending_requests"`
	OccupancyByType   []RoomOccupancySummary `json:"occupancy_by_type"`
	RecentAllocations []AllocationDetail     `json:"recent_allocations"`
}
