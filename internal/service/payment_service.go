package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
	"unicode"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/pricing"
	"github.com/fjod/go_cart/shop-api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultCurrency = "USD"
	amountTolerance = 0.01
)

type ChargeRequest struct {
	OrderID  string
	Amount   float64
	Currency string
	Method   domain.PaymentMethod
}

type ChargeResult struct {
	Approved      bool
	TransactionID string
	DeclineReason string
}

// Gateway charges a payment. The only implementation is simulated.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ApprovalSource decides whether a simulated charge goes through.
type ApprovalSource interface {
	Approve() (bool, string)
}

// AlwaysApprove approves every charge.
type AlwaysApprove struct{}

func (AlwaysApprove) Approve() (bool, string) {
	return true, ""
}

// RandomApproval approves the given share of charges, e.g. 0.95.
type RandomApproval struct {
	Rate float64
}

func (r RandomApproval) Approve() (bool, string) {
	if rand.Float64() < r.Rate {
		return true, ""
	}
	return false, "card declined by issuer"
}

type SimulatedGateway struct {
	approval ApprovalSource
	now      func() time.Time
}

func NewSimulatedGateway(approval ApprovalSource) *SimulatedGateway {
	return &SimulatedGateway{approval: approval, now: time.Now}
}

func (g *SimulatedGateway) Charge(_ context.Context, _ ChargeRequest) (ChargeResult, error) {
	ok, reason := g.approval.Approve()
	return ChargeResult{
		Approved:      ok,
		TransactionID: transactionID(g.now()),
		DeclineReason: reason,
	}, nil
}

// transactionID is TXN-<unix millis>-<8 hex chars>.
func transactionID(at time.Time) string {
	return fmt.Sprintf("TXN-%d-%s", at.UnixMilli(), strings.ToUpper(uuid.NewString()[:8]))
}

type PaymentService struct {
	store   *store.Store
	gateway Gateway
	log     *zap.Logger
	now     func() time.Time
}

func NewPaymentService(s *store.Store, gateway Gateway, log *zap.Logger) *PaymentService {
	return &PaymentService{store: s, gateway: gateway, log: log, now: time.Now}
}

type CardDetails struct {
	Number     string `json:"number"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
	HolderName string `json:"holderName"`
}

type ProcessPaymentInput struct {
	OrderID string               `json:"orderId"`
	Method  domain.PaymentMethod `json:"method"`
	// Amount defaults to the order total.
	Amount *float64     `json:"amount"`
	Card   *CardDetails `json:"card"`
}

type RefundInput struct {
	// Amount defaults to the full payment amount.
	Amount *float64 `json:"amount"`
	Reason string   `json:"reason"`
}

type PaymentMethodInfo struct {
	ID           domain.PaymentMethod `json:"id"`
	Name         string               `json:"name"`
	RequiresCard bool                 `json:"requiresCard"`
}

var methodNames = map[domain.PaymentMethod]string{
	domain.PaymentMethodCreditCard:   "Credit Card",
	domain.PaymentMethodDebitCard:    "Debit Card",
	domain.PaymentMethodPayPal:       "PayPal",
	domain.PaymentMethodBankTransfer: "Bank Transfer",
}

func (s *PaymentService) Methods(_ context.Context) []PaymentMethodInfo {
	methods := make([]PaymentMethodInfo, len(domain.PaymentMethods))
	for i, m := range domain.PaymentMethods {
		methods[i] = PaymentMethodInfo{ID: m, Name: methodNames[m], RequiresCard: m.IsCard()}
	}
	return methods
}

func (in ProcessPaymentInput) validate(now time.Time) error {
	if in.OrderID == "" {
		return domain.Invalid("orderId is required")
	}
	if !in.Method.Valid() {
		return domain.Invalid("unsupported payment method %q", in.Method)
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return domain.Invalid("amount must be greater than 0")
	}
	if !in.Method.IsCard() {
		return nil
	}
	if in.Card == nil {
		return domain.Invalid("card details are required for %s", in.Method)
	}
	return in.Card.Validate(now)
}

// Validate checks number length, a future expiry (MM/YY or MM/YYYY) and CVV.
func (c CardDetails) Validate(now time.Time) error {
	digits := digitsOnly(c.Number)
	if len(digits) < 13 || len(digits) > 19 {
		return domain.Invalid("card number must have 13 to 19 digits")
	}

	month, year, ok := parseExpiry(c.Expiry)
	if !ok {
		return domain.Invalid("card expiry must be MM/YY or MM/YYYY")
	}
	// a card is valid through the last day of its expiry month
	expiresAt := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expiresAt) {
		return domain.Invalid("card has expired")
	}

	cvv := strings.TrimSpace(c.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || digitsOnly(cvv) != cvv {
		return domain.Invalid("cvv must be 3 or 4 digits")
	}
	return nil
}

func parseExpiry(s string) (month, year int, ok bool) {
	mm, yy, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found || len(mm) != 2 || (len(yy) != 2 && len(yy) != 4) {
		return 0, 0, false
	}
	if digitsOnly(mm) != mm || digitsOnly(yy) != yy {
		return 0, 0, false
	}
	_, _ = fmt.Sscanf(mm, "%d", &month)
	_, _ = fmt.Sscanf(yy, "%d", &year)
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	if len(yy) == 2 {
		year += 2000
	}
	return month, year, true
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

func maskCard(number string) string {
	digits := digitsOnly(number)
	if len(digits) < 4 {
		return ""
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// Process charges an order. A declined charge is stored as a failed payment
// and reported as domain.ErrDeclinedByGateway.
func (s *PaymentService) Process(ctx context.Context, in ProcessPaymentInput) (domain.Payment, error) {
	if err := in.validate(s.now()); err != nil {
		return domain.Payment{}, err
	}

	var payment domain.Payment
	err := s.store.Atomically(func() error {
		order, err := s.store.Orders.FindByID(in.OrderID)
		if err != nil {
			return notFound("order", in.OrderID, err)
		}
		if order.Status == domain.OrderStatusCancelled {
			return domain.ErrPaymentOrderCancelled
		}
		if order.PaymentStatus != domain.PaymentStatePending {
			return domain.ErrOrderAlreadyPaid
		}

		amount := order.Totals.Total
		if in.Amount != nil {
			amount = *in.Amount
		}
		if math.Abs(amount-order.Totals.Total) > amountTolerance {
			return domain.Invalid("payment amount %s does not match order total %s",
				pricing.FormatCurrency(amount), pricing.FormatCurrency(order.Totals.Total))
		}

		result, err := s.gateway.Charge(ctx, ChargeRequest{
			OrderID:  order.ID,
			Amount:   amount,
			Currency: DefaultCurrency,
			Method:   in.Method,
		})
		if err != nil {
			return fmt.Errorf("charge order %s: %w", order.ID, err)
		}

		p := domain.Payment{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Method:        in.Method,
			Amount:        pricing.Round2(amount),
			Currency:      DefaultCurrency,
			TransactionID: result.TransactionID,
		}
		if in.Card != nil && in.Method.IsCard() {
			p.CardNumber = maskCard(in.Card.Number)
		}

		if !result.Approved {
			p.Status = domain.PaymentStatusFailed
			p.FailureReason = result.DeclineReason
			if payment, err = s.store.Payments.Insert(p); err != nil {
				return err
			}
			if result.DeclineReason != "" {
				return fmt.Errorf("%w: %s", domain.ErrDeclinedByGateway, result.DeclineReason)
			}
			return domain.ErrDeclinedByGateway
		}

		p.Status = domain.PaymentStatusCompleted
		if payment, err = s.store.Payments.Insert(p); err != nil {
			return err
		}
		if _, err = s.store.Orders.Update(order.ID, func(o *domain.Order) error {
			o.PaymentStatus = domain.PaymentStatePaid
			return nil
		}); err != nil {
			return err
		}
		if order.Status == domain.OrderStatusPending {
			if _, err = transitionOrder(s.store, order.ID, domain.OrderStatusConfirmed, "Payment received", s.now()); err != nil {
				return err
			}
		}

		return recordEvent(s.store, domain.EventPaymentCompleted, payment.ID, paymentEvent{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			Amount:        payment.Amount,
			TransactionID: payment.TransactionID,
		})
	})
	if err != nil {
		if payment.Status == domain.PaymentStatusFailed {
			s.log.Warn("payment declined", zap.String("order_id", in.OrderID), zap.String("payment_id", payment.ID))
		}
		return payment, err
	}

	s.log.Info("payment completed",
		zap.String("payment_id", payment.ID),
		zap.String("order_id", payment.OrderID),
		zap.Float64("amount", payment.Amount))
	return payment, nil
}

// Refund refunds a completed payment within the refund window.
func (s *PaymentService) Refund(_ context.Context, id string, in RefundInput) (domain.Payment, error) {
	var refunded domain.Payment
	err := s.store.Atomically(func() error {
		p, err := s.store.Payments.FindByID(id)
		if err != nil {
			return notFound("payment", id, err)
		}
		if p.Status != domain.PaymentStatusCompleted {
			return domain.ErrPaymentNotRefundable
		}
		now := s.now()
		if now.Sub(p.CreatedAt) > domain.RefundWindow {
			return domain.ErrRefundWindowExpired
		}

		amount := p.Amount
		if in.Amount != nil {
			amount = *in.Amount
		}
		if amount <= 0 {
			return domain.Invalid("refund amount must be greater than 0")
		}
		if amount > p.Amount+1e-9 {
			return domain.ErrRefundExceedsAmount
		}

		refunded, err = s.store.Payments.Update(id, func(p *domain.Payment) error {
			p.Status = domain.PaymentStatusRefunded
			p.RefundedAmount = pricing.Round2(amount)
			p.RefundReason = strings.TrimSpace(in.Reason)
			p.RefundedAt = &now
			return nil
		})
		if err != nil {
			return err
		}

		_, err = s.store.Orders.Update(p.OrderID, func(o *domain.Order) error {
			o.PaymentStatus = domain.PaymentStateRefunded
			return nil
		})
		if err != nil {
			s.log.Warn("refunded payment has no order", zap.String("payment_id", id), zap.Error(err))
		}

		return recordEvent(s.store, domain.EventPaymentRefunded, id, paymentEvent{
			PaymentID:     id,
			OrderID:       p.OrderID,
			Amount:        refunded.RefundedAmount,
			TransactionID: p.TransactionID,
		})
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("payment refunded", zap.String("payment_id", id), zap.Float64("amount", refunded.RefundedAmount))
	return refunded, nil
}

func (s *PaymentService) Get(_ context.Context, id string) (domain.Payment, error) {
	p, err := s.store.Payments.FindByID(id)
	if err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	return p, nil
}

func (s *PaymentService) ForOrder(_ context.Context, orderID string) ([]domain.Payment, error) {
	if _, err := s.store.Orders.FindByID(orderID); err != nil {
		return nil, notFound("order", orderID, err)
	}
	return s.store.Payments.Find(func(p domain.Payment) bool { return p.OrderID == orderID }), nil
}
