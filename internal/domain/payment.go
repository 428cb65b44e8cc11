package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// PaymentMethod is passed through to the backend as is; the constants name the
// methods it is known to accept.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodEWallet  PaymentMethod = "e_wallet"
	PaymentMethodCard     PaymentMethod = "credit_card"
)

// Payment settles exactly one Booking. PaymentURL is set when an external
// gateway handles the charge.
type Payment struct {
	ID         int64         `json:"id"`
	BookingID  int64         `json:"bookingId"`
	Method     PaymentMethod `json:"paymentMethod"`
	Status     PaymentStatus `json:"status"`
	Amount     float64       `json:"amount,omitempty"`
	PaymentURL string        `json:"paymentUrl,omitempty"`
	PaidAt     *time.Time    `json:"paidAt,omitempty"`
}
