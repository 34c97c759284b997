package shipments

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	pkgpagination "github.com/boldreach/logistics-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxReceiverNameLen = 120
	maxWeightKg        = 100000
	maxPackageQuantity = 100000
	trackingSuffixLen  = 6
	dashboardRecentN   = 5
)

var trackingCharset = []rune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

type shipmentsRepository interface {
	Create(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	List(ctx context.Context, opts listQuery) ([]models.Shipment, error)
	Count(ctx context.Context, opts listQuery) (int64, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendEvent(ctx context.Context, event *models.ShipmentEvent) error
	DeliveredEvents(ctx context.Context, shipmentIDs []uuid.UUID) ([]models.ShipmentEvent, error)
	StatusCounts(ctx context.Context, userID *uuid.UUID) (map[string]int64, error)
	Recent(ctx context.Context, limit int) ([]models.Shipment, error)
}

type usersCounter interface {
	Counts(ctx context.Context) (total int64, admins int64, err error)
}

// FloatPatch distinguishes an omitted numeric field from an explicit null and a value.
type FloatPatch struct {
	Provided bool
	Null     bool
	Value    float64
}

// IntPatch mirrors FloatPatch for fields where null and empty string are not
// valid clear signals. The value stays a float64 until integrality is checked.
type IntPatch struct {
	Provided bool
	Null     bool
	Empty    bool
	Value    float64
}

// CreateShipmentInput holds the fields a user supplies when booking a shipment.
type CreateShipmentInput struct {
	SenderName       string
	ReceiverName     string
	ReceiverPhone    string
	ItemsDescription string
	WeightKg         float64
	PackageQuantity  *int
	OriginLocation   string
	Destination      string
	ShipmentDate     *time.Time
	PackageImageURL  *string
}

// UpdateStatusInput carries a validated-on-entry status transition request.
// The wire field named "status" holds the progress step value; see the
// controller request struct for the preserved naming quirk.
type UpdateStatusInput struct {
	Step            enums.ProgressStep
	Location        string
	ReceiverName    *string
	WeightKg        FloatPatch
	PackageQuantity IntPatch
}

// Stats summarizes one user's shipments.
type Stats struct {
	Total     int64 `json:"total"`
	InTransit int64 `json:"in_transit"`
	Delivered int64 `json:"delivered"`
}

// TrackingView is the public read model for a tracking number lookup.
type TrackingView struct {
	Shipment      *models.Shipment       `json:"shipment"`
	ProgressStep  string                 `json:"progress_step"`
	ProgressIndex int                    `json:"progress_index"`
	BadgeVariant  string                 `json:"badge_variant"`
	Events        []models.ShipmentEvent `json:"events"`
}

// AdminListParams filters the staff-facing shipment list.
type AdminListParams struct {
	Search     string
	Status     string
	Pagination pkgpagination.Params
	All        bool
}

// AdminListResult pairs one page of shipments with its pagination metadata.
type AdminListResult struct {
	Shipments []models.Shipment  `json:"shipments"`
	Meta      pkgpagination.Meta `json:"meta"`
}

// DashboardView aggregates the staff dashboard counters.
type DashboardView struct {
	TotalShipments  int64             `json:"total_shipments"`
	ActiveShipments int64             `json:"active_shipments"`
	TotalUsers      int64             `json:"total_users"`
	AdminUsers      int64             `json:"admin_users"`
	Recent          []models.Shipment `json:"recent_shipments"`
}

// Service exposes shipment creation, tracking, listing, and transition semantics.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateShipmentInput) (*models.Shipment, error)
	ListForUser(ctx context.Context, userID uuid.UUID, search, status string) ([]models.Shipment, error)
	StatsForUser(ctx context.Context, userID uuid.UUID) (*Stats, error)
	Track(ctx context.Context, trackingNumber string) (*TrackingView, error)
	AdminList(ctx context.Context, params AdminListParams) (*AdminListResult, error)
	UpdateStatus(ctx context.Context, actorID, shipmentID uuid.UUID, input UpdateStatusInput) error
	Delete(ctx context.Context, shipmentID uuid.UUID) error
	ResolveDeliveryDates(ctx context.Context, shipmentIDs []string) (map[string]string, error)
	Dashboard(ctx context.Context) (*DashboardView, error)
	ExportRows(ctx context.Context, params AdminListParams) ([]ExportRow, error)
}

type service struct {
	repo          shipmentsRepository
	users         usersCounter
	logg          *logger.Logger
	chunkSize     int
	exportMaxRows int
	now           func() time.Time
}

// NewService builds a shipment service backed by the provided repositories.
func NewService(repo shipmentsRepository, users usersCounter, logg *logger.Logger, chunkSize, exportMaxRows int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if exportMaxRows <= 0 {
		exportMaxRows = 5000
	}
	return &service{
		repo:          repo,
		users:         users,
		logg:          logg,
		chunkSize:     chunkSize,
		exportMaxRows: exportMaxRows,
		now:           time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateShipmentInput) (*models.Shipment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	receiver := strings.TrimSpace(input.ReceiverName)
	if receiver == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver name is required")
	}
	phone, err := normalizePhone(input.ReceiverPhone)
	if err != nil {
		return nil, err
	}
	if input.WeightKg <= 0 || input.WeightKg > maxWeightKg || math.IsNaN(input.WeightKg) || math.IsInf(input.WeightKg, 0) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be a positive number of kilograms")
	}
	if input.PackageQuantity != nil && (*input.PackageQuantity < 1 || *input.PackageQuantity > maxPackageQuantity) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package quantity out of range")
	}
	origin := strings.TrimSpace(input.OriginLocation)
	destination := strings.TrimSpace(input.Destination)
	if origin == "" || destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin and destination are required")
	}

	trackingNumber, err := s.generateTrackingNumber()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking number")
	}

	weight := input.WeightKg
	shipment := &models.Shipment{
		TrackingNumber:   trackingNumber,
		UserID:           userID,
		Status:           enums.ShipmentStatusConfirmed,
		ProgressStep:     nil,
		SenderName:       strings.TrimSpace(input.SenderName),
		ReceiverName:     receiver,
		ReceiverPhone:    phone,
		ItemsDescription: strings.TrimSpace(input.ItemsDescription),
		Weight:           &weight,
		PackageQuantity:  input.PackageQuantity,
		OriginLocation:   origin,
		Destination:      destination,
		ShipmentDate:     input.ShipmentDate,
		PackageImageURL:  input.PackageImageURL,
	}

	created, err := s.repo.Create(ctx, shipment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create shipment")
	}

	// Best-effort creation event. A failure here never unwinds the booking.
	event := &models.ShipmentEvent{
		ShipmentID:  created.ID,
		EventType:   string(enums.ProgressStepPending),
		Description: "Shipment created",
		CreatedBy:   &userID,
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		logCtx := s.logg.WithShipmentID(ctx, created.ID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "shipment.create.event_append_failed")
	}

	return created, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, search, status string) ([]models.Shipment, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	statusFilter := normalizeStatusFilter(status)
	rows, err := s.repo.List(ctx, listQuery{
		userID:       &userID,
		search:       strings.TrimSpace(search),
		status:       statusFilter,
		statusColumn: statusFilterColumn(statusFilter),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipments")
	}
	return rows, nil
}

func (s *service) StatsForUser(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	counts, err := s.repo.StatusCounts(ctx, &userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count shipments")
	}
	stats := &Stats{
		InTransit: counts[string(enums.ShipmentStatusInTransit)],
		Delivered: counts[string(enums.ShipmentStatusDelivered)],
	}
	for _, count := range counts {
		stats.Total += count
	}
	return stats, nil
}

func (s *service) Track(ctx context.Context, trackingNumber string) (*TrackingView, error) {
	trackingNumber = strings.ToUpper(strings.TrimSpace(trackingNumber))
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required")
	}

	shipment, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find shipment")
	}

	step := DisplayStep(shipment)
	return &TrackingView{
		Shipment:      shipment,
		ProgressStep:  step,
		ProgressIndex: ProgressIndex(step),
		BadgeVariant:  BadgeVariant(step),
		Events:        shipment.Events,
	}, nil
}

// DisplayStep resolves the step shown for a shipment: the stored progress step
// when present, otherwise the forward mapping of the coarse status.
func DisplayStep(shipment *models.Shipment) string {
	if shipment == nil {
		return StepForStatus("")
	}
	if shipment.ProgressStep != nil && *shipment.ProgressStep != "" {
		return string(*shipment.ProgressStep)
	}
	return StepForStatus(string(shipment.Status))
}

func (s *service) AdminList(ctx context.Context, params AdminListParams) (*AdminListResult, error) {
	statusFilter := normalizeStatusFilter(params.Status)
	query := listQuery{
		search:       strings.TrimSpace(params.Search),
		status:       statusFilter,
		statusColumn: statusFilterColumn(statusFilter),
	}

	total, err := s.repo.Count(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count shipments")
	}

	page := params.Pagination.Normalize()
	if params.All {
		// escape hatch for the export/print views, still capped
		query.limit = s.exportMaxRows
		query.offset = 0
		page = pkgpagination.Params{Page: 1, Limit: s.exportMaxRows}
	} else {
		query.limit = page.Limit
		query.offset = page.Offset()
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list shipments")
	}

	return &AdminListResult{
		Shipments: rows,
		Meta:      pkgpagination.NewMeta(page, total),
	}, nil
}

// UpdateStatus is the sole writer of (status, progress_step) pairs after
// creation. Validation happens up front so a rejected request performs zero
// writes; the audit event append after the row update is best-effort.
func (s *service) UpdateStatus(ctx context.Context, actorID, shipmentID uuid.UUID, input UpdateStatusInput) error {
	if shipmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}

	status, err := StatusForStep(input.Step)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":        string(status),
		"progress_step": string(input.Step),
		"updated_at":    s.now().UTC(),
	}

	location := strings.TrimSpace(input.Location)
	if location != "" {
		updates["destination"] = location
	}

	if input.ReceiverName != nil {
		receiver := strings.TrimSpace(*input.ReceiverName)
		if receiver == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "receiver name cannot be empty")
		}
		if len(receiver) > maxReceiverNameLen {
			return pkgerrors.New(pkgerrors.CodeValidation, "receiver name too long").WithDetails(map[string]any{"max": maxReceiverNameLen})
		}
		updates["receiver_name"] = receiver
	}

	if input.WeightKg.Provided {
		if input.WeightKg.Null {
			updates["weight"] = nil
		} else {
			w := input.WeightKg.Value
			if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 || w > maxWeightKg {
				return pkgerrors.New(pkgerrors.CodeValidation, "weight must be a positive number of kilograms").WithDetails(map[string]any{"max": maxWeightKg})
			}
			updates["weight"] = w
		}
	}

	if input.PackageQuantity.Provided {
		// null/"" are not valid clear signals for quantity, unlike weight
		if input.PackageQuantity.Null || input.PackageQuantity.Empty {
			return pkgerrors.New(pkgerrors.CodeValidation, "package quantity is required")
		}
		q := input.PackageQuantity.Value
		if q != math.Trunc(q) || q < 1 || q > maxPackageQuantity {
			return pkgerrors.New(pkgerrors.CodeValidation, "package quantity must be a whole number").WithDetails(map[string]any{"min": 1, "max": maxPackageQuantity})
		}
		updates["package_quantity"] = int(q)
	}

	if err := s.repo.ApplyUpdate(ctx, shipmentID, updates); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update shipment")
	}

	event := &models.ShipmentEvent{
		ShipmentID:  shipmentID,
		EventType:   string(input.Step),
		Description: eventDescription(input.Step, location),
	}
	if location != "" {
		loc := location
		event.Location = &loc
	}
	if actorID != uuid.Nil {
		actor := actorID
		event.CreatedBy = &actor
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		logCtx := s.logg.WithShipmentID(ctx, shipmentID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "shipment.update.event_append_failed")
	}

	return nil
}

func (s *service) Delete(ctx context.Context, shipmentID uuid.UUID) error {
	if shipmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipment id is required")
	}
	if err := s.repo.Delete(ctx, shipmentID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete shipment")
	}
	return nil
}

func (s *service) Dashboard(ctx context.Context) (*DashboardView, error) {
	counts, err := s.repo.StatusCounts(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count shipments")
	}

	view := &DashboardView{
		ActiveShipments: counts[string(enums.ShipmentStatusConfirmed)] + counts[string(enums.ShipmentStatusInTransit)],
	}
	for _, count := range counts {
		view.TotalShipments += count
	}

	totalUsers, adminUsers, err := s.users.Counts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count users")
	}
	view.TotalUsers = totalUsers
	view.AdminUsers = adminUsers

	recent, err := s.repo.Recent(ctx, dashboardRecentN)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recent shipments")
	}
	view.Recent = recent

	return view, nil
}

// normalizeStatusFilter lowercases the caller-supplied filter so it matches
// the lowercase enum values stored in the database.
func normalizeStatusFilter(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// statusFilterColumn routes progress-step-valued filters to the progress_step
// column and everything else to status. Expects a normalized value.
func statusFilterColumn(value string) string {
	if enums.ProgressStep(value).IsValid() {
		return "progress_step"
	}
	return "status"
}

func (s *service) generateTrackingNumber() (string, error) {
	suffix := make([]rune, trackingSuffixLen)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(trackingCharset))))
		if err != nil {
			return "", err
		}
		suffix[i] = trackingCharset[n.Int64()]
	}
	return fmt.Sprintf("BRL-%s-%s", s.now().UTC().Format("20060102"), string(suffix)), nil
}

func normalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators tolerated
		case r == '+':
			// accepted only as a leading country-code marker
			if digits.Len() > 0 {
				return "", pkgerrors.New(pkgerrors.CodeValidation, "receiver phone is invalid")
			}
		default:
			return "", pkgerrors.New(pkgerrors.CodeValidation, "receiver phone is invalid")
		}
	}

	phone := digits.String()
	// +234 prefixed numbers normalize to the 11-digit local form
	if strings.HasPrefix(phone, "234") && len(phone) == 13 {
		phone = "0" + phone[3:]
	}
	if len(phone) != 11 || !strings.HasPrefix(phone, "0") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "receiver phone must be an 11-digit local number")
	}
	return phone, nil
}
