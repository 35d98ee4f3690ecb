package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/domain/redemption"
	"github.com/fuelgambia/fuel-voucher/pkg/database"
)

// InventoryRepository implements port.InventoryRepository on SQLite.
// Stock levels are stored as decimal strings to avoid float drift.
type InventoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *sql.DB, logger *zap.Logger) port.InventoryRepository {
	return &InventoryRepository{db: db, logger: logger}
}

// Get returns the station snapshot, or nil when absent
func (r *InventoryRepository) Get(ctx context.Context, stationID string) (*entity.Inventory, error) {
	query := `
		SELECT station_id, station_name, petrol_stock, diesel_stock, last_updated
		FROM inventory
		WHERE station_id = ?
	`

	var inv entity.Inventory
	var petrol, diesel string

	err := r.exec(ctx).QueryRowContext(ctx, query, stationID).Scan(
		&inv.StationID,
		&inv.StationName,
		&petrol,
		&diesel,
		&inv.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inventory", zap.String("station_id", stationID), zap.Error(err))
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	if inv.PetrolStock, err = decimal.NewFromString(petrol); err != nil {
		return nil, fmt.Errorf("corrupt petrol stock value %q: %w", petrol, err)
	}
	if inv.DieselStock, err = decimal.NewFromString(diesel); err != nil {
		return nil, fmt.Errorf("corrupt diesel stock value %q: %w", diesel, err)
	}

	return &inv, nil
}

// Put upserts the full snapshot
func (r *InventoryRepository) Put(ctx context.Context, inv *entity.Inventory) error {
	query := `
		INSERT INTO inventory (station_id, station_name, petrol_stock, diesel_stock, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			station_name = excluded.station_name,
			petrol_stock = excluded.petrol_stock,
			diesel_stock = excluded.diesel_stock,
			last_updated = excluded.last_updated
	`

	_, err := r.exec(ctx).ExecContext(ctx, query,
		inv.StationID,
		inv.StationName,
		inv.PetrolStock.String(),
		inv.DieselStock.String(),
		inv.LastUpdated,
	)
	if err != nil {
		r.logger.Error("Failed to put inventory", zap.String("station_id", inv.StationID), zap.Error(err))
		return fmt.Errorf("failed to put inventory: %w", err)
	}

	return nil
}

// Debit subtracts liters from the matching stock. The read and write
// share the caller's transaction, so the guard and the update are one
// atomic unit. Stock is never driven negative.
func (r *InventoryRepository) Debit(ctx context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) (*entity.Inventory, error) {
	inv, err := r.Get(ctx, stationID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("no inventory for station %s", stationID)
	}

	remaining := inv.StockFor(fuel).Sub(liters)
	if remaining.IsNegative() {
		return nil, fmt.Errorf("%w: %s requested %s, available %s",
			redemption.ErrInsufficientStock, fuel, liters, inv.StockFor(fuel))
	}

	if fuel == entity.FuelDiesel {
		inv.DieselStock = remaining
	} else {
		inv.PetrolStock = remaining
	}
	inv.LastUpdated = time.Now().UTC()

	if err := r.Put(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (r *InventoryRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.InventoryRepository = (*InventoryRepository)(nil)
