package service

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

var errBackendDown = errors.New("backend unreachable")

// fakeRemote stands in for the central backend. Flipping online
// simulates losing and regaining connectivity mid-flow.
type fakeRemote struct {
	mu        sync.Mutex
	online    bool
	inventory *entity.Inventory

	debits      []entity.InventorySyncPayload
	submitted   []*entity.Transaction
	scans       []entity.QRScanPayload
	debitCalls  int
	submitCalls int
}

func newFakeRemote(online bool) *fakeRemote {
	return &fakeRemote{online: online}
}

func (f *fakeRemote) setOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func (f *fakeRemote) GetInventory(_ context.Context, stationID string) (*entity.Inventory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return nil, errBackendDown
	}
	if f.inventory == nil {
		return nil, errors.New("unknown station")
	}
	clone := *f.inventory
	clone.StationID = stationID
	return &clone, nil
}

func (f *fakeRemote) UpdateInventory(_ context.Context, stationID string, fuel entity.FuelType, liters decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debitCalls++
	if !f.online {
		return errBackendDown
	}
	f.debits = append(f.debits, entity.InventorySyncPayload{
		StationID: stationID,
		FuelType:  fuel,
		Liters:    liters.String(),
	})
	return nil
}

func (f *fakeRemote) SubmitTransaction(_ context.Context, tx *entity.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if !f.online {
		return errBackendDown
	}
	clone := *tx
	f.submitted = append(f.submitted, &clone)
	return nil
}

func (f *fakeRemote) GetTransactions(_ context.Context, _ entity.TransactionFilter) ([]*entity.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return nil, errBackendDown
	}
	return f.submitted, nil
}

func (f *fakeRemote) ReportScan(_ context.Context, scan entity.QRScanPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.online {
		return errBackendDown
	}
	f.scans = append(f.scans, scan)
	return nil
}

// fakeNotifier records alerts instead of delivering them.
type fakeNotifier struct {
	mu            sync.Mutex
	notifications []entity.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

// fakePayments scripts the charge outcome per intent.
type fakePayments struct {
	mu      sync.Mutex
	intents map[string]*entity.PaymentIntent
	decline bool
	nextID  int
}

func newFakePayments() *fakePayments {
	return &fakePayments{intents: make(map[string]*entity.PaymentIntent)}
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, amount decimal.Decimal, fuel entity.FuelType) (*entity.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	intent := &entity.PaymentIntent{
		ID:       "payment-" + string(rune('a'+f.nextID)),
		Amount:   amount,
		FuelType: fuel,
		Status:   entity.PaymentPending,
	}
	f.intents[intent.ID] = intent
	return intent, nil
}

func (f *fakePayments) ProcessPayment(_ context.Context, intentID, method string) (*entity.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	intent, ok := f.intents[intentID]
	if !ok {
		return nil, errors.New("intent not found")
	}
	intent.PaymentMethod = method
	if f.decline {
		intent.Status = entity.PaymentFailed
	} else {
		intent.Status = entity.PaymentSuccess
		intent.TransactionID = "txn-" + intentID
	}
	clone := *intent
	return &clone, nil
}
