package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/models"
	"github.com/jeepedia/jeepedia/internal/repository"
)

// PaymentStore defines the subscription operations required by the
// PaymentHandler.
type PaymentStore interface {
	PreBook(ctx context.Context, userID int64) (string, error)
	CreateOrder(ctx context.Context, userID int64, subscriptionID string, amount int64, currency string) (repository.Order, error)
	OrderByID(ctx context.Context, id string) (repository.Order, error)
	CompleteOrder(ctx context.Context, userID int64, orderID string) error
}

// PaymentHandler serves the subscription and payment endpoints. Orders are
// settled by a simulated gateway: the payment ID and signature a real
// checkout widget would return are written to the log.
type PaymentHandler struct {
	Payments PaymentStore
	Secret   string
	Log      *zap.Logger
}

// PaymentSignature is the hex HMAC-SHA256 of "order_id|payment_id".
func PaymentSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// PreBook handles POST /subscriptions/pre_book_subscription/.
func (h *PaymentHandler) PreBook(w http.ResponseWriter, r *http.Request) {
	id, err := h.Payments.PreBook(r.Context(), userID(r))
	if err != nil {
		writeStoreError(w, h.Log, err, "User not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "subscription_id": id})
}

// CreateOrder handles POST /payments/create_order/. The amount is given in
// rupees and answered in paise.
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SubscriptionID == "" || req.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "subscription_id and a positive amount are required")
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = models.DefaultPlanCurrency
	}
	o, err := h.Payments.CreateOrder(r.Context(), userID(r), req.SubscriptionID, req.Amount*100, currency)
	if errors.Is(err, repository.ErrConflict) {
		writeMessage(w, http.StatusBadRequest, "Subscription is already paid")
		return
	}
	if err != nil {
		writeStoreError(w, h.Log, err, "Subscription not found")
		return
	}

	paymentID := "pay_" + xid.New().String()
	h.Log.Info("simulated checkout",
		zap.String("order_id", o.ID),
		zap.String("razorpay_payment_id", paymentID),
		zap.String("razorpay_signature", PaymentSignature(h.Secret, o.ID, paymentID)),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "order_id": o.ID, "amount": o.Amount, "currency": o.Currency})
}

// VerifyOrder handles POST /payments/verify_order/.
func (h *PaymentHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	var conf models.PaymentConfirmation
	if !decodeJSON(w, r, &conf) {
		return
	}
	want := PaymentSignature(h.Secret, conf.OrderID, conf.PaymentID)
	if conf.PaymentID == "" || !hmac.Equal([]byte(want), []byte(conf.Signature)) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid payment signature"})
		return
	}
	o, err := h.Payments.OrderByID(r.Context(), conf.OrderID)
	if err != nil {
		writeStoreError(w, h.Log, err, "Order not found")
		return
	}
	if o.UserID != userID(r) {
		writeStoreError(w, h.Log, repository.ErrForbidden, "")
		return
	}
	if o.Paid {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Payment already verified"})
		return
	}
	if err := h.Payments.CompleteOrder(r.Context(), userID(r), conf.OrderID); err != nil {
		writeStoreError(w, h.Log, err, "Order not found")
		return
	}
	h.Log.Info("payment verified", zap.String("order_id", conf.OrderID), zap.Int64("user_id", userID(r)))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Payment verified successfully"})
}
