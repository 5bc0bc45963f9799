package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

var PaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodPayPal,
	PaymentMethodBankTransfer,
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

func (m PaymentMethod) IsCard() bool {
	return m == PaymentMethodCreditCard || m == PaymentMethodDebitCard
}

// RefundWindow is how long after a charge a refund is still accepted.
const RefundWindow = 30 * 24 * time.Hour

type Payment struct {
	Base
	OrderID        string        `json:"orderId"`
	UserID         string        `json:"userId"`
	Method         PaymentMethod `json:"method"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	TransactionID  string        `json:"transactionId,omitempty"`
	CardNumber     string        `json:"cardNumber,omitempty"`
	FailureReason  string        `json:"failureReason,omitempty"`
	RefundedAmount float64       `json:"refundedAmount,omitempty"`
	RefundReason   string        `json:"refundReason,omitempty"`
	RefundedAt     *time.Time    `json:"refundedAt,omitempty"`
}

func (p Payment) Clone() Payment {
	if p.RefundedAt != nil {
		t := *p.RefundedAt
		p.RefundedAt = &t
	}
	return p
}
