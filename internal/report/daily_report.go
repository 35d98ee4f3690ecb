package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// DailyReporter writes the station's end-of-day settlement sheet: one
// row per transaction, per-grade totals and the closing stock snapshot.
type DailyReporter struct {
	transactions port.TransactionRepository
	inventory    port.InventoryRepository
	outputDir    string
	logger       *zap.Logger
}

func NewDailyReporter(transactions port.TransactionRepository, inventory port.InventoryRepository, outputDir string, logger *zap.Logger) *DailyReporter {
	return &DailyReporter{
		transactions: transactions,
		inventory:    inventory,
		outputDir:    outputDir,
		logger:       logger,
	}
}

// Generate writes the report for the given station and day and returns
// the file path. The day is interpreted in UTC.
func (r *DailyReporter) Generate(ctx context.Context, stationID string, day time.Time) (string, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	txs, err := r.transactions.List(ctx, entity.TransactionFilter{
		StationID: stationID,
		Since:     dayStart,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list transactions: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	r.setCell(f, sheet, "A1", fmt.Sprintf("Daily Settlement Report - %s", stationID))
	r.setCell(f, sheet, "A2", dayStart.Format("2006-01-02"))

	headers := []string{"Transaction ID", "User ID", "Fuel", "Mode", "Amount (GMD)", "Liters", "Status", "Time"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		r.setCell(f, sheet, cell, h)
	}

	totals := map[entity.FuelType]struct{ amount, liters decimal.Decimal }{}
	row := 5
	for _, tx := range txs {
		if !tx.CreatedAt.Before(dayEnd) {
			continue
		}
		values := []interface{}{
			tx.ID,
			tx.UserID,
			tx.FuelType.String(),
			tx.Mode.String(),
			tx.Amount.String(),
			tx.Liters.String(),
			string(tx.Status),
			tx.CreatedAt.UTC().Format("15:04:05"),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			r.setCell(f, sheet, cell, v)
		}

		t := totals[tx.FuelType]
		t.amount = t.amount.Add(tx.Amount)
		t.liters = t.liters.Add(tx.Liters)
		totals[tx.FuelType] = t
		row++
	}

	row += 2
	r.setCell(f, sheet, fmt.Sprintf("A%d", row), "Totals")
	row++
	for _, fuel := range []entity.FuelType{entity.FuelPetrol, entity.FuelDiesel} {
		t := totals[fuel]
		r.setCell(f, sheet, fmt.Sprintf("A%d", row), fuel.String())
		r.setCell(f, sheet, fmt.Sprintf("B%d", row), t.amount.String())
		r.setCell(f, sheet, fmt.Sprintf("C%d", row), t.liters.String())
		row++
	}

	if inv, err := r.inventory.Get(ctx, stationID); err == nil && inv != nil {
		row++
		r.setCell(f, sheet, fmt.Sprintf("A%d", row), "Closing Stock")
		r.setCell(f, sheet, fmt.Sprintf("B%d", row), inv.PetrolStock.String()+" L petrol")
		r.setCell(f, sheet, fmt.Sprintf("C%d", row), inv.DieselStock.String()+" L diesel")
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("settlement_%s_%s.xlsx", stationID, dayStart.Format("20060102")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	r.logger.Info("Daily report written",
		zap.String("station_id", stationID),
		zap.String("path", path),
		zap.Int("transactions", len(txs)))
	return path, nil
}

func (r *DailyReporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
