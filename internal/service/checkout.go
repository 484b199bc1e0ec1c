package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

// PaymentAPI defines the subscription and payment endpoints.
type PaymentAPI interface {
	PreBook(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, req models.OrderRequest) (models.PaymentSession, error)
	VerifyOrder(ctx context.Context, conf models.PaymentConfirmation) error
}

// TokenHolder exposes the cached credentials a checkout needs.
type TokenHolder interface {
	Token() string
	Profile() *models.Profile
}

// CheckoutService runs the pre-book, order and verify calls of one
// subscription purchase.
type CheckoutService struct {
	api     PaymentAPI
	session TokenHolder
	log     *zap.Logger
}

// NewCheckoutService constructs a CheckoutService. A nil logger discards output.
func NewCheckoutService(api PaymentAPI, session TokenHolder, log *zap.Logger) *CheckoutService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{api: api, session: session, log: log}
}

// Start pre-books a subscription. Both a token and a cached profile are
// required; without them the user has to log in first.
func (s *CheckoutService) Start(ctx context.Context) (models.PaymentSession, error) {
	if s.session.Token() == "" || s.session.Profile() == nil {
		return models.PaymentSession{}, apperror.Unauthenticated()
	}
	id, err := s.api.PreBook(ctx)
	if err != nil {
		return models.PaymentSession{}, err
	}
	s.log.Debug("subscription pre-booked", zap.String("subscription_id", id))
	return models.PaymentSession{SubscriptionID: id}, nil
}

// CreateOrder opens an INR order for amount rupees. Zero selects the
// default plan.
func (s *CheckoutService) CreateOrder(ctx context.Context, subscriptionID string, amount int64) (models.PaymentSession, error) {
	if strings.TrimSpace(subscriptionID) == "" {
		return models.PaymentSession{}, apperror.Invalid("subscription_id", "subscription is not pre-booked")
	}
	if amount < 0 {
		return models.PaymentSession{}, apperror.Invalid("amount", "amount must be positive")
	}
	if amount == 0 {
		amount = models.DefaultPlanAmount
	}
	ps, err := s.api.CreateOrder(ctx, models.OrderRequest{
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Currency:       models.DefaultPlanCurrency,
	})
	if err != nil {
		return models.PaymentSession{}, err
	}
	s.log.Debug("order created", zap.String("order_id", ps.OrderID), zap.Int64("amount", ps.Amount))
	return ps, nil
}

// Verify checks the confirmation handed back by the payment widget.
func (s *CheckoutService) Verify(ctx context.Context, conf models.PaymentConfirmation) error {
	if conf.PaymentID == "" || conf.OrderID == "" || conf.Signature == "" {
		return apperror.Invalid("payment", "payment confirmation is incomplete")
	}
	if err := s.api.VerifyOrder(ctx, conf); err != nil {
		s.log.Warn("payment verification failed", zap.String("order_id", conf.OrderID), zap.Error(err))
		return err
	}
	s.log.Info("payment verified", zap.String("order_id", conf.OrderID))
	return nil
}
