package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/application/service"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
	"github.com/fuelgambia/fuel-voucher/internal/domain/redemption"
	"github.com/fuelgambia/fuel-voucher/internal/qr"
	"github.com/fuelgambia/fuel-voucher/internal/report"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	issuer       *service.IssuerService
	redeemer     *service.RedemptionService
	purchases    *service.PurchaseService
	sync         *service.SyncService
	inventory    port.InventoryRepository
	transactions port.TransactionRepository
	reporter     *report.DailyReporter
	stationID    string
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	issuer *service.IssuerService,
	redeemer *service.RedemptionService,
	purchases *service.PurchaseService,
	sync *service.SyncService,
	inventory port.InventoryRepository,
	transactions port.TransactionRepository,
	reporter *report.DailyReporter,
	stationID string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		issuer:       issuer,
		redeemer:     redeemer,
		purchases:    purchases,
		sync:         sync,
		inventory:    inventory,
		transactions: transactions,
		reporter:     reporter,
		stationID:    stationID,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// IssueSubsidyRequest carries the fields for a subsidy voucher.
// Amounts travel as strings so values survive the round trip exactly.
type IssueSubsidyRequest struct {
	SubjectID       string `json:"subject_id" binding:"required"`
	CouponID        string `json:"coupon_id"`
	FuelType        string `json:"fuel_type" binding:"required"`
	RemainingAmount string `json:"remaining_amount" binding:"required"`
	ExpiresAt       string `json:"expires_at"`
}

// IssuePaidRequest carries the fields for a paid voucher.
type IssuePaidRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	FuelType      string `json:"fuel_type" binding:"required"`
	PaidAmount    string `json:"paid_amount" binding:"required"`
	ExpiresAt     string `json:"expires_at"`
}

// RedeemRequest is a scanned payload plus the dispense amount. A zero
// or absent amount redeems the voucher's full value.
type RedeemRequest struct {
	Payload string `json:"payload" binding:"required"`
	Amount  string `json:"amount"`
}

// PaymentRequest opens a charge for paid fuel.
type PaymentRequest struct {
	Amount   string `json:"amount" binding:"required"`
	FuelType string `json:"fuel_type" binding:"required"`
}

// ProcessPaymentRequest captures an open charge.
type ProcessPaymentRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// IssuedVoucherResponse is the issuance result exposed over the API.
type IssuedVoucherResponse struct {
	VoucherID string `json:"voucher_id"`
	Mode      string `json:"mode"`
	FuelType  string `json:"fuel_type"`
	Amount    string `json:"amount"`
	ExpiresAt string `json:"expires_at"`
	Encoded   string `json:"encoded"`
}

// RedemptionResponse is the redemption outcome exposed over the API.
type RedemptionResponse struct {
	State            string              `json:"state"`
	VoucherID        string              `json:"voucher_id,omitempty"`
	Liters           string              `json:"liters,omitempty"`
	Transaction      *entity.Transaction `json:"transaction,omitempty"`
	RemainingBalance string              `json:"remaining_balance,omitempty"`
	Error            string              `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	backlog, err := h.sync.Backlog(c.Request.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":        status,
			"station_id":    h.stationID,
			"queue_backlog": backlog,
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// IssueSubsidyVoucher handles POST /api/vouchers/subsidy
func (h *Handlers) IssueSubsidyVoucher(c *gin.Context) {
	var req IssueSubsidyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.RemainingAmount)
	if err != nil {
		h.badRequest(c, "invalid remaining_amount", err)
		return
	}
	expiry, ok := h.parseExpiry(c, req.ExpiresAt)
	if !ok {
		return
	}

	issued, err := h.issuer.IssueSubsidyVoucher(c.Request.Context(), req.SubjectID, req.CouponID,
		entity.FuelType(req.FuelType), amount, expiry)
	if err != nil {
		h.badRequest(c, "failed to issue voucher", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toIssuedResponse(issued)})
}

// IssuePaidVoucher handles POST /api/vouchers/paid
func (h *Handlers) IssuePaidVoucher(c *gin.Context) {
	var req IssuePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.PaidAmount)
	if err != nil {
		h.badRequest(c, "invalid paid_amount", err)
		return
	}
	expiry, ok := h.parseExpiry(c, req.ExpiresAt)
	if !ok {
		return
	}

	issued, err := h.issuer.IssuePaidVoucher(c.Request.Context(), req.TransactionID,
		entity.FuelType(req.FuelType), amount, expiry)
	if err != nil {
		h.badRequest(c, "failed to issue voucher", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: toIssuedResponse(issued)})
}

// ListPendingVouchers handles GET /api/vouchers/pending
func (h *Handlers) ListPendingVouchers(c *gin.Context) {
	records, err := h.issuer.ListPending(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to list vouchers", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// GetVoucher handles GET /api/vouchers/:id
func (h *Handlers) GetVoucher(c *gin.Context) {
	record, err := h.issuer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to load voucher", err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "voucher not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: record})
}

// VoucherImage handles GET /api/vouchers/:id/image
func (h *Handlers) VoucherImage(c *gin.Context) {
	record, err := h.issuer.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.internalError(c, "failed to load voucher", err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "voucher not found"})
		return
	}

	size, _ := strconv.Atoi(c.Query("size"))
	png, err := qr.Image(record.EncodedPayload, size)
	if err != nil {
		h.internalError(c, "failed to render image", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Redeem handles POST /api/redemptions
func (h *Handlers) Redeem(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	amount := decimal.Zero
	if req.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(req.Amount)
		if err != nil {
			h.badRequest(c, "invalid amount", err)
			return
		}
	}

	result, err := h.redeemer.Redeem(c.Request.Context(), req.Payload, amount)
	if err != nil {
		status := rejectionStatus(err)
		body := RedemptionResponse{Error: err.Error()}
		if result != nil {
			body.State = result.State.String()
			if result.Voucher != nil {
				body.VoucherID = result.Voucher.VoucherID()
			}
		}
		c.JSON(status, Response{Success: false, Data: body, Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: toRedemptionResponse(result)})
}

// CreatePaymentIntent handles POST /api/payments
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.badRequest(c, "invalid amount", err)
		return
	}

	intent, err := h.purchases.CreateIntent(c.Request.Context(), amount, entity.FuelType(req.FuelType))
	if err != nil {
		h.badRequest(c, "failed to create payment intent", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: intent})
}

// ProcessPayment handles POST /api/payments/:id/process
func (h *Handlers) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	issued, err := h.purchases.Purchase(c.Request.Context(), c.Param("id"), req.PaymentMethod)
	if err != nil {
		if errors.Is(err, service.ErrPaymentFailed) {
			c.JSON(http.StatusPaymentRequired, Response{Success: false, Error: err.Error()})
			return
		}
		h.internalError(c, "failed to process payment", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toIssuedResponse(issued)})
}

// GetInventory handles GET /api/inventory
func (h *Handlers) GetInventory(c *gin.Context) {
	inv, err := h.inventory.Get(c.Request.Context(), h.stationID)
	if err != nil {
		h.internalError(c, "failed to load inventory", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// RefreshInventory handles POST /api/inventory/refresh
func (h *Handlers) RefreshInventory(c *gin.Context) {
	inv, err := h.sync.RefreshInventory(c.Request.Context(), h.stationID)
	if err != nil {
		c.JSON(http.StatusBadGateway, Response{Success: false, Error: "backend unreachable: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// ListTransactions handles GET /api/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	filter := entity.TransactionFilter{
		StationID: h.stationID,
		Mode:      entity.TransactionMode(c.Query("mode")),
		Status:    entity.PaymentStatus(c.Query("status")),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.badRequest(c, "invalid since timestamp", err)
			return
		}
		filter.Since = t
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			h.badRequest(c, "invalid limit", err)
			return
		}
		filter.Limit = n
	}

	txs, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "failed to list transactions", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: txs})
}

// QueueStatus handles GET /api/queue
func (h *Handlers) QueueStatus(c *gin.Context) {
	backlog, err := h.sync.Backlog(c.Request.Context())
	if err != nil {
		h.internalError(c, "failed to read queue", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"backlog": backlog}})
}

// DrainQueue handles POST /api/queue/drain
func (h *Handlers) DrainQueue(c *gin.Context) {
	batch, _ := strconv.Atoi(c.DefaultQuery("batch", "10"))
	stats, err := h.sync.Drain(c.Request.Context(), batch)
	if err != nil {
		h.internalError(c, "queue drain failed", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// GenerateDailyReport handles POST /api/reports/daily
func (h *Handlers) GenerateDailyReport(c *gin.Context) {
	day := time.Now().UTC()
	if d := c.Query("date"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			h.badRequest(c, "invalid date, want YYYY-MM-DD", err)
			return
		}
		day = t
	}

	path, err := h.reporter.Generate(c.Request.Context(), h.stationID, day)
	if err != nil {
		h.internalError(c, "failed to generate report", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"path": path}})
}

func (h *Handlers) parseExpiry(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		h.badRequest(c, "invalid expires_at, want RFC3339", err)
		return time.Time{}, false
	}
	return t, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Warn(msg, zap.Error(err))
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func (h *Handlers) internalError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, Response{Success: false, Error: msg})
}

// rejectionStatus maps redemption failures onto HTTP status codes.
// Structural decode failures are the caller's fault; business
// rejections are unprocessable.
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, qr.ErrMalformedPayload),
		errors.Is(err, qr.ErrUnknownMode),
		errors.Is(err, qr.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, redemption.ErrExpired),
		errors.Is(err, redemption.ErrVoucherConsumed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, redemption.ErrInsufficientStock):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func toIssuedResponse(issued *service.IssuedVoucher) IssuedVoucherResponse {
	return IssuedVoucherResponse{
		VoucherID: issued.Voucher.VoucherID(),
		Mode:      issued.Voucher.Mode().String(),
		FuelType:  issued.Voucher.Fuel().String(),
		Amount:    issued.Voucher.Amount().String(),
		ExpiresAt: issued.Voucher.ExpiresAt().Format(time.RFC3339),
		Encoded:   issued.Encoded,
	}
}

func toRedemptionResponse(result *service.RedemptionResult) RedemptionResponse {
	resp := RedemptionResponse{
		State:       result.State.String(),
		Liters:      result.Liters.String(),
		Transaction: result.Transaction,
	}
	if result.Voucher != nil {
		resp.VoucherID = result.Voucher.VoucherID()
	}
	if result.RemainingBalance != nil {
		resp.RemainingBalance = result.RemainingBalance.String()
	}
	return resp
}
