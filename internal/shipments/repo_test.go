package shipments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/boldreach/logistics-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupShipmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	shipments := `
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  tracking_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'confirmed',
  progress_step TEXT,
  sender_name TEXT NOT NULL,
  receiver_name TEXT NOT NULL,
  receiver_phone TEXT NOT NULL DEFAULT '',
  items_description TEXT NOT NULL DEFAULT '',
  weight REAL,
  package_quantity INTEGER,
  origin_location TEXT NOT NULL DEFAULT '',
  destination TEXT NOT NULL DEFAULT '',
  shipment_date DATETIME,
  package_image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	events := `
CREATE TABLE IF NOT EXISTS shipment_events (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT,
  event_time DATETIME,
  created_by TEXT
);`
	require.NoError(t, db.Exec(shipments).Error)
	require.NoError(t, db.Exec(events).Error)

	return db
}

func seedShipment(t *testing.T, db *gorm.DB, userID uuid.UUID, tracking string, status enums.ShipmentStatus, createdAt time.Time) *models.Shipment {
	t.Helper()
	row := &models.Shipment{
		ID:             uuid.New(),
		TrackingNumber: tracking,
		UserID:         userID,
		Status:         status,
		SenderName:     "BoldReach Lagos",
		ReceiverName:   "Ada Obi",
		ReceiverPhone:  "08012345678",
		OriginLocation: "Lagos",
		Destination:    "Abuja",
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestRepositoryFindByTrackingNumberPreloadsEvents(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	shipment := seedShipment(t, db, uuid.New(), "BR-2026-0001", enums.ShipmentStatusInTransit, base)

	older := &models.ShipmentEvent{ID: uuid.New(), ShipmentID: shipment.ID, EventType: "processing", EventTime: base.Add(1 * time.Hour)}
	newer := &models.ShipmentEvent{ID: uuid.New(), ShipmentID: shipment.ID, EventType: "in_transit", EventTime: base.Add(3 * time.Hour)}
	require.NoError(t, repo.AppendEvent(ctx, older))
	require.NoError(t, repo.AppendEvent(ctx, newer))

	got, err := repo.FindByTrackingNumber(ctx, "BR-2026-0001")
	require.NoError(t, err)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "in_transit", got.Events[0].EventType)
	assert.Equal(t, "processing", got.Events[1].EventType)
}

func TestRepositoryListFiltersAndOrders(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedShipment(t, db, owner, "BR-A", enums.ShipmentStatusConfirmed, base)
	newest := seedShipment(t, db, owner, "BR-B", enums.ShipmentStatusInTransit, base.Add(2*time.Hour))
	seedShipment(t, db, other, "BR-C", enums.ShipmentStatusConfirmed, base.Add(1*time.Hour))

	rows, err := repo.List(ctx, listQuery{userID: &owner})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newest.ID, rows[0].ID)
	assert.Equal(t, oldest.ID, rows[1].ID)

	rows, err = repo.List(ctx, listQuery{status: string(enums.ShipmentStatusConfirmed)})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.List(ctx, listQuery{limit: 1, offset: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	total, err := repo.Count(ctx, listQuery{userID: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestRepositoryApplyUpdate(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shipment := seedShipment(t, db, uuid.New(), "BR-UPD", enums.ShipmentStatusConfirmed, time.Now().UTC())

	err := repo.ApplyUpdate(ctx, shipment.ID, map[string]any{
		"status":        string(enums.ShipmentStatusInTransit),
		"progress_step": string(enums.ProgressStepInTransit),
	})
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShipmentStatusInTransit, got.Status)
	require.NotNil(t, got.ProgressStep)
	assert.Equal(t, enums.ProgressStepInTransit, *got.ProgressStep)

	err = repo.ApplyUpdate(ctx, uuid.New(), map[string]any{"status": "delivered"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	shipment := seedShipment(t, db, uuid.New(), "BR-DEL", enums.ShipmentStatusConfirmed, time.Now().UTC())

	require.NoError(t, repo.Delete(ctx, shipment.ID))

	_, err := repo.FindByID(ctx, shipment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = repo.Delete(ctx, shipment.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryDeliveredEvents(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 4, 5, 8, 0, 0, 0, time.UTC)
	first := seedShipment(t, db, uuid.New(), "BR-D1", enums.ShipmentStatusDelivered, base)
	second := seedShipment(t, db, uuid.New(), "BR-D2", enums.ShipmentStatusDelivered, base)

	require.NoError(t, repo.AppendEvent(ctx, &models.ShipmentEvent{ID: uuid.New(), ShipmentID: first.ID, EventType: string(enums.ProgressStepDelivered), EventTime: base.Add(time.Hour)}))
	require.NoError(t, repo.AppendEvent(ctx, &models.ShipmentEvent{ID: uuid.New(), ShipmentID: first.ID, EventType: string(enums.ProgressStepDelivered), EventTime: base.Add(2 * time.Hour)}))
	require.NoError(t, repo.AppendEvent(ctx, &models.ShipmentEvent{ID: uuid.New(), ShipmentID: first.ID, EventType: "in_transit", EventTime: base}))
	require.NoError(t, repo.AppendEvent(ctx, &models.ShipmentEvent{ID: uuid.New(), ShipmentID: second.ID, EventType: string(enums.ProgressStepDelivered), EventTime: base}))

	rows, err := repo.DeliveredEvents(ctx, []uuid.UUID{first.ID})
	require.NoError(t, err)
	// Duplicate delivered rows are legal and must all come back.
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, first.ID, row.ShipmentID)
		assert.Equal(t, string(enums.ProgressStepDelivered), row.EventType)
	}

	rows, err = repo.DeliveredEvents(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepositoryStatusCounts(t *testing.T) {
	db := setupShipmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	base := time.Now().UTC()
	seedShipment(t, db, owner, "BR-S1", enums.ShipmentStatusConfirmed, base)
	seedShipment(t, db, owner, "BR-S2", enums.ShipmentStatusInTransit, base)
	seedShipment(t, db, owner, "BR-S3", enums.ShipmentStatusInTransit, base)
	seedShipment(t, db, uuid.New(), "BR-S4", enums.ShipmentStatusDelivered, base)

	counts, err := repo.StatusCounts(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[string(enums.ShipmentStatusConfirmed)])
	assert.Equal(t, int64(2), counts[string(enums.ShipmentStatusInTransit)])
	assert.Zero(t, counts[string(enums.ShipmentStatusDelivered)])

	counts, err = repo.StatusCounts(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[string(enums.ShipmentStatusDelivered)])
}
