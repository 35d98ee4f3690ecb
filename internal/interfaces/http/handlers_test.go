package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/service"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/domain/redemption"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/backend"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/notify"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/external/payment"
	"github.com/fuelgambia/fuel-voucher/internal/infrastructure/persistence/memory"
	"github.com/fuelgambia/fuel-voucher/internal/pricing"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
	"github.com/fuelgambia/fuel-voucher/internal/report"
)

const testStation = "station-001"

// newTestServer wires the full stack on in-memory stores. The backend
// URL points at a closed port, so remote pushes defer to the queue.
func newTestServer(t *testing.T) (*Server, *memory.InventoryStore) {
	t.Helper()
	logger := zap.NewNop()

	vouchers := memory.NewVoucherStore()
	inventory := memory.NewInventoryStore()
	transactions := memory.NewTransactionStore()
	balances := memory.NewBalanceStore()
	queue := memory.NewQueue()

	require.NoError(t, inventory.Put(context.Background(), &entity.Inventory{
		StationID:   testStation,
		StationName: "Test Station",
		PetrolStock: decimal.NewFromInt(5000),
		DieselStock: decimal.NewFromInt(5000),
		LastUpdated: time.Now().UTC(),
	}))

	client := backend.NewClient("http://127.0.0.1:1", 100*time.Millisecond, logger)
	sync := service.NewSyncService(queue, client, client, client, inventory, vouchers,
		service.RetryPolicy{
			BackoffBase:   time.Second,
			BackoffMax:    time.Minute,
			MaxRetries:    5,
			RemoteTimeout: 100 * time.Millisecond,
		}, logger)

	issuer := service.NewIssuerService(vouchers, service.IssuerConfig{
		SubsidyValidity: 720 * time.Hour,
		PaidValidity:    24 * time.Hour,
	}, logger)

	redeemer := service.NewRedemptionService(
		vouchers, inventory, transactions, balances, memory.NoopTxManager{},
		sync, notify.NewLogNotifier(logger), pricing.Default(),
		service.RedemptionConfig{
			StationID:         testStation,
			LowStockThreshold: decimal.NewFromInt(1000),
		}, logger)

	purchases := service.NewPurchaseService(payment.NewSimulator(0, logger), issuer, logger)
	reporter := report.NewDailyReporter(transactions, inventory, t.TempDir(), logger)

	handlers := NewHandlers(issuer, redeemer, purchases, sync,
		inventory, transactions, reporter, testStation, logger)
	return NewServer(DefaultServerConfig(), handlers, logger), inventory
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, testStation, data["station_id"])
}

func TestIssueAndRenderVoucher(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/vouchers/subsidy", IssueSubsidyRequest{
		SubjectID:       "user-1",
		CouponID:        "COUPON-HTTP",
		FuelType:        "PETROL",
		RemainingAmount: "1500.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "COUPON-HTTP", data["voucher_id"])
	assert.Equal(t, "SUBSIDY", data["mode"])
	assert.Equal(t, "1500.5", data["amount"])

	encoded, _ := data["encoded"].(string)
	decoded, err := qr.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "COUPON-HTTP", decoded.VoucherID())

	// The QR image endpoint renders a PNG for the issued voucher
	img := doJSON(t, srv, http.MethodGet, "/api/vouchers/COUPON-HTTP/image", nil)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
	assert.NotEmpty(t, img.Body.Bytes())

	pending := doJSON(t, srv, http.MethodGet, "/api/vouchers/pending", nil)
	assert.Equal(t, http.StatusOK, pending.Code)
}

func TestIssueVoucher_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/vouchers/subsidy", IssueSubsidyRequest{
		SubjectID:       "user-1",
		FuelType:        "PETROL",
		RemainingAmount: "not-a-number",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemEndpoint(t *testing.T) {
	srv, inventory := newTestServer(t)

	raw, err := qr.Encode(entity.SubsidyVoucher{
		SubjectID:       "user-1",
		CouponID:        "COUPON-R1",
		FuelType:        entity.FuelPetrol,
		RemainingAmount: decimal.NewFromInt(1500),
		Expiry:          time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	})
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/redemptions", RedeemRequest{
		Payload: raw,
		Amount:  "500",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, redemption.StateRecorded.String(), data["state"])
	assert.Equal(t, "7.69", data["liters"])

	inv, err := inventory.Get(context.Background(), testStation)
	require.NoError(t, err)
	assert.True(t, inv.PetrolStock.Equal(decimal.RequireFromString("4992.31")))
}

func TestRedeemEndpoint_StatusMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	// Garbage payload is the caller's fault
	w := doJSON(t, srv, http.MethodPost, "/api/redemptions", RedeemRequest{Payload: "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// An expired voucher is well-formed but unprocessable
	expired, err := qr.Encode(entity.PaidVoucher{
		TransactionID: "txn-old",
		FuelType:      entity.FuelDiesel,
		PaidAmount:    decimal.NewFromInt(2000),
		Expiry:        time.Now().Add(-time.Hour).UTC().Truncate(time.Second),
	})
	require.NoError(t, err)

	w = doJSON(t, srv, http.MethodPost, "/api/redemptions", RedeemRequest{Payload: expired})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPaymentFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/payments", PaymentRequest{
		Amount:   "2000",
		FuelType: "DIESEL",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	intentID, _ := data["id"].(string)
	require.NotEmpty(t, intentID)

	w = doJSON(t, srv, http.MethodPost, "/api/payments/"+intentID+"/process", ProcessPaymentRequest{
		PaymentMethod: "mobile_money",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	voucher := decodeData(t, w)
	assert.Equal(t, "PAID", voucher["mode"])
	assert.NotEmpty(t, voucher["encoded"])
}

func TestInventoryAndQueueEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/inventory", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// The backend is unreachable in tests, so refresh fails upstream
	w = doJSON(t, srv, http.MethodPost, "/api/inventory/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/queue", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/queue/drain", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransactionsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	raw, err := qr.Encode(entity.PaidVoucher{
		TransactionID: "txn-list",
		FuelType:      entity.FuelDiesel,
		PaidAmount:    decimal.NewFromInt(680),
		Expiry:        time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	})
	require.NoError(t, err)

	w := doJSON(t, srv, http.MethodPost, "/api/redemptions", RedeemRequest{Payload: raw})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	list := doJSON(t, srv, http.MethodGet, "/api/transactions?mode=PAID", nil)
	require.Equal(t, http.StatusOK, list.Code)

	var resp struct {
		Data []entity.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, entity.ModePaid, resp.Data[0].Mode)

	bad := doJSON(t, srv, http.MethodGet, "/api/transactions?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
