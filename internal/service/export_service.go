package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	appErrors "github.com/dormkeeper/dormkeeper-api/pkg/errors"
	"github.com/dormkeeper/dormkeeper-api/pkg/export"
)

type exportAllocationReader interface {
	List(ctx context.Context, filter models.AllocationFilter) ([]models.AllocationDetail, int, error)
}

type exportRoomReader interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.RoomDetail, int, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

// Supported export formats.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered document and its content type.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders allocation rosters and room registers as downloadable
// documents. Exports are synchronous and bounded by a fixed row limit.
type ExportService struct {
	allocations exportAllocationReader
	rooms       exportRoomReader
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
	now         func() time.Time
}

const exportRowLimit = 5000

// NewExportService constructs an ExportService.
func NewExportService(allocations exportAllocationReader, rooms exportRoomReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		allocations: allocations,
		rooms:       rooms,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AllocationRoster renders the allocations matching the filter.
func (s *ExportService) AllocationRoster(ctx context.Context, filter models.AllocationFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = exportRowLimit

	allocations, _, err := s.allocations.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocations")
	}

	dataset := export.Dataset{
		Headers: []string{"Student Number", "Student Name", "Year", "Building", "Room", "Type", "Academic Year", "Semester", "Status"},
	}
	for _, a := range allocations {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student Number": a.StudentNumber,
			"Student Name":   a.StudentName,
			"Year":           strconv.Itoa(a.YearLevel),
			"Building":       a.Building,
			"Room":           a.RoomNumber,
			"Type":           a.TypeName,
			"Academic Year":  a.AcademicYear,
			"Semester":       a.Semester,
			"Status":         string(a.Status),
		})
	}

	return s.render(dataset, "Allocation Roster", "allocations", format)
}

// RoomRegister renders the room catalog with occupancy.
func (s *ExportService) RoomRegister(ctx context.Context, filter models.RoomFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = exportRowLimit

	rooms, _, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	dataset := export.Dataset{
		Headers: []string{"Building", "Room", "Floor", "Type", "Capacity", "Occupied", "Status"},
	}
	for _, r := range rooms {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Building": r.Building,
			"Room":     r.RoomNumber,
			"Floor":    strconv.Itoa(r.Floor),
			"Type":     r.TypeName,
			"Capacity": strconv.Itoa(r.Capacity),
			"Occupied": strconv.Itoa(r.CurrentOccupancy),
			"Status":   string(r.Status),
		})
	}

	return s.render(dataset, "Room Register", "rooms", format)
}

func (s *ExportService) render(dataset export.Dataset, title, stem string, format ExportFormat) (*ExportResult, error) {
	stamp := s.now().Format("20060102-150405")
	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("%s-%s.csv", stem, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("%s-%s.pdf", stem, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
