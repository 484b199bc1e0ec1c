package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/jeepedia/jeepedia/internal/models"
)

type preBookResponse struct {
	messageResponse
	SubscriptionID string `json:"subscription_id"`
}

func (r *preBookResponse) Validate() error {
	if r.SubscriptionID == "" {
		return errors.New("missing subscription_id")
	}
	return nil
}

type orderResponse struct {
	messageResponse
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func (r *orderResponse) Validate() error {
	if r.OrderID == "" {
		return errors.New("missing order_id")
	}
	return nil
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *verifyResponse) failure() (string, bool) {
	if r.Success {
		return "", false
	}
	if r.Message == "" {
		return "Payment verification failed", true
	}
	return r.Message, true
}

// PreBook reserves a subscription and returns its id.
func (c *Client) PreBook(ctx context.Context) (string, error) {
	var resp preBookResponse
	opts := RequestOptions{JSON: struct{}{}}
	if err := c.Do(ctx, http.MethodPost, "/subscriptions/pre_book_subscription/", opts, &resp); err != nil {
		return "", err
	}
	return resp.SubscriptionID, nil
}

// CreateOrder opens a payment order for a pre-booked subscription.
func (c *Client) CreateOrder(ctx context.Context, req models.OrderRequest) (models.PaymentSession, error) {
	var resp orderResponse
	if err := c.Do(ctx, http.MethodPost, "/payments/create_order/", RequestOptions{JSON: req}, &resp); err != nil {
		return models.PaymentSession{}, err
	}
	return models.PaymentSession{
		SubscriptionID: req.SubscriptionID,
		OrderID:        resp.OrderID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
	}, nil
}

// VerifyOrder confirms a completed payment. Only an explicit success counts.
func (c *Client) VerifyOrder(ctx context.Context, conf models.PaymentConfirmation) error {
	var resp verifyResponse
	return c.Do(ctx, http.MethodPost, "/payments/verify_order/", RequestOptions{JSON: conf}, &resp)
}
