package models

// Default plan offered on the pre-payment page.
const (
	DefaultPlanAmount   = 199
	DefaultPlanCurrency = "INR"
)

// PaymentSession is the transient state of one checkout attempt.
type PaymentSession struct {
	SubscriptionID string `json:"subscription_id"`
	OrderID        string `json:"order_id"`
	// Amount is in the smallest currency unit as returned by create_order.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// OrderRequest is the body of create_order.
type OrderRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// PaymentConfirmation is what the checkout widget hands back on success.
type PaymentConfirmation struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}
