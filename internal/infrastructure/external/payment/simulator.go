package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fuelgambia/fuel-voucher/internal/application/port"
	"github.com/fuelgambia/fuel-voucher/internal/domain/entity"
)

// Simulator is an in-process payment processor used until a real
// gateway (Flutterwave or Paystack) is integrated. Intents live in
// memory; a configurable failure rate exercises the declined-charge
// path.
type Simulator struct {
	mu       sync.Mutex
	intents  map[string]*entity.PaymentIntent
	failRate float64
	rng      *rand.Rand
	logger   *zap.Logger
}

func NewSimulator(failRate float64, logger *zap.Logger) *Simulator {
	return &Simulator{
		intents:  make(map[string]*entity.PaymentIntent),
		failRate: failRate,
		rng:      rand.New(rand.NewSource(rand.Int63())),
		logger:   logger,
	}
}

// CreatePaymentIntent opens a pending charge.
func (s *Simulator) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, fuel entity.FuelType) (*entity.PaymentIntent, error) {
	intent := &entity.PaymentIntent{
		ID:       "payment-" + uuid.NewString(),
		Amount:   amount,
		FuelType: fuel,
		Status:   entity.PaymentPending,
	}

	s.mu.Lock()
	s.intents[intent.ID] = intent
	s.mu.Unlock()

	s.logger.Debug("Payment intent opened",
		zap.String("intent_id", intent.ID),
		zap.String("amount", amount.String()))
	return clone(intent), nil
}

// ProcessPayment captures a pending intent. The outcome is drawn from
// the configured failure rate; a captured intent carries the settlement
// transaction id.
func (s *Simulator) ProcessPayment(ctx context.Context, intentID, method string) (*entity.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("payment intent %s not found", intentID)
	}
	if intent.Status != entity.PaymentPending {
		return nil, fmt.Errorf("payment intent %s already %s", intentID, intent.Status)
	}

	intent.PaymentMethod = method
	if s.rng.Float64() < s.failRate {
		intent.Status = entity.PaymentFailed
		s.logger.Warn("Payment declined",
			zap.String("intent_id", intentID),
			zap.String("method", method))
		return clone(intent), nil
	}

	intent.Status = entity.PaymentSuccess
	intent.TransactionID = "txn-" + uuid.NewString()
	s.logger.Info("Payment captured",
		zap.String("intent_id", intentID),
		zap.String("transaction_id", intent.TransactionID))
	return clone(intent), nil
}

// VerifyPayment looks up an intent by its settlement transaction id.
func (s *Simulator) VerifyPayment(ctx context.Context, transactionID string) (*entity.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, intent := range s.intents {
		if intent.TransactionID == transactionID {
			return clone(intent), nil
		}
	}
	return nil, fmt.Errorf("no payment found for transaction %s", transactionID)
}

func clone(intent *entity.PaymentIntent) *entity.PaymentIntent {
	c := *intent
	return &c
}

var _ port.PaymentService = (*Simulator)(nil)
