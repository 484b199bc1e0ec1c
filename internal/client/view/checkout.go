package view

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
	"github.com/jeepedia/jeepedia/internal/models"
)

// CheckoutState is the transient state of the pre-payment page.
type CheckoutState struct {
	Payment models.PaymentSession
	// Contact prefills the payment widget with the user's phone number.
	Contact string
	Paid    bool
}

// Checkout drives one purchase: mounting pre-books a subscription, then
// CreateOrder and Verify run in sequence, each waiting for the server.
type Checkout struct {
	*Resource[CheckoutState]
	flow CheckoutFlow
}

// NewCheckout creates the controller.
func NewCheckout(flow CheckoutFlow, sess Session, log *zap.Logger) *Checkout {
	fetch := func(ctx context.Context) (CheckoutState, error) {
		ps, err := flow.Start(ctx)
		if err != nil {
			return CheckoutState{}, err
		}
		st := CheckoutState{Payment: ps}
		if p := sess.Profile(); p != nil {
			st.Contact = p.PhoneNumber
		}
		return st, nil
	}
	return &Checkout{Resource: NewResource("checkout", fetch, nil, log), flow: flow}
}

// Current returns the checkout state.
func (c *Checkout) Current() CheckoutState {
	_, st, _ := c.Snapshot()
	return st
}

// CreateOrder opens a payment order for amount (rupees) on the pre-booked
// subscription.
func (c *Checkout) CreateOrder(ctx context.Context, amount int64) (models.PaymentSession, error) {
	st := c.Current()
	if st.Payment.SubscriptionID == "" {
		return models.PaymentSession{}, c.Fail(apperror.Invalid("subscription", "subscription is not pre-booked"))
	}
	var out models.PaymentSession
	err := c.Run(ctx, "create order", func(ctx context.Context) error {
		ps, err := c.flow.CreateOrder(ctx, st.Payment.SubscriptionID, amount)
		if err != nil {
			return err
		}
		out = ps
		c.Mutate(func(s *CheckoutState) { s.Payment = ps })
		return nil
	})
	return out, err
}

// Verify confirms the payment returned by the checkout widget.
func (c *Checkout) Verify(ctx context.Context, conf models.PaymentConfirmation) error {
	st := c.Current()
	if st.Payment.OrderID == "" {
		return c.Fail(apperror.Invalid("order", "no order created"))
	}
	if conf.OrderID != st.Payment.OrderID {
		return c.Fail(apperror.Invalid("razorpay_order_id", "payment does not match the open order"))
	}
	return c.Run(ctx, "verify payment", func(ctx context.Context) error {
		if err := c.flow.Verify(ctx, conf); err != nil {
			return err
		}
		c.Mutate(func(s *CheckoutState) { s.Paid = true })
		return nil
	})
}
