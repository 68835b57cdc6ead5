// Package settlement pays for deliveries. It works out who pays whom from the
// delivery record, applies the platform fee, and moves the money as a single
// ledger transfer keyed by the delivery id.
package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"wallet_ledger/internal/directory"
	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/fee"
)

// Ledger is the part of the wallet store settlement needs
type Ledger interface {
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
}

// PaymentRequest asks to settle a delivery for a gross amount. A non-zero
// ActorID must be the delivery's payer; zero skips the check for admin callers.
type PaymentRequest struct {
	DeliveryID string `json:"deliveryId" validate:"required,max=64"`
	SenderID   uint   `json:"senderId"`
	ReceiverID uint   `json:"receiverId"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	ActorID    uint   `json:"-"`
}

// PaymentResult reports the amounts that moved
type PaymentResult struct {
	DeliveryID      string `json:"deliveryId"`
	Amount          int64  `json:"amount"`
	RecipientAmount int64  `json:"recipientAmount"`
	ServiceFee      int64  `json:"serviceFee"`
	FeePercentage   string `json:"feePercentage"`
	PayerID         uint   `json:"payerId"`
	RecipientID     uint   `json:"recipientId"`
	Currency        string `json:"currency"`
	Replayed        bool   `json:"replayed"`
}

// Orchestrator settles delivery payments
type Orchestrator struct {
	deliveries directory.DeliveryReader
	users      directory.UserReader
	ledger     Ledger
	fees       *fee.Calculator
	validate   *validator.Validate
}

// NewOrchestrator wires the collaborators
func NewOrchestrator(deliveries directory.DeliveryReader, users directory.UserReader, ledger Ledger, fees *fee.Calculator) *Orchestrator {
	return &Orchestrator{
		deliveries: deliveries,
		users:      users,
		ledger:     ledger,
		fees:       fees,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (o *Orchestrator) check(req PaymentRequest) error {
	if req.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := o.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", domain.ErrInvalidRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

// PayForDelivery settles req. Retrying with the same delivery id returns the
// first result instead of charging again.
func (o *Orchestrator) PayForDelivery(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	if err := o.check(req); err != nil {
		return nil, err
	}

	delivery, err := o.deliveries.GetDelivery(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	if (req.SenderID != 0 && req.SenderID != delivery.SenderID) ||
		(req.ReceiverID != 0 && req.ReceiverID != delivery.ReceiverID) {
		return nil, fmt.Errorf("%w: sender and receiver do not match delivery %s", domain.ErrInvalidRequest, delivery.ID)
	}
	payerID, recipientID, ok := delivery.Parties()
	if !ok {
		return nil, fmt.Errorf("%w: unknown delivery type %q", domain.ErrInvalidRequest, delivery.Type)
	}
	if payerID == recipientID {
		return nil, fmt.Errorf("%w: delivery %s has the same payer and recipient", domain.ErrInvalidRequest, delivery.ID)
	}
	if req.ActorID != 0 && req.ActorID != payerID {
		return nil, fmt.Errorf("%w: only the payer can settle delivery %s", domain.ErrForbidden, delivery.ID)
	}

	payer, err := o.users.GetUser(ctx, payerID)
	if err != nil {
		return nil, fmt.Errorf("payer %d: %w", payerID, err)
	}
	recipient, err := o.users.GetUser(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("recipient %d: %w", recipientID, err)
	}

	breakdown, err := o.fees.Compute(req.Amount)
	if err != nil {
		return nil, err
	}
	if breakdown.Net <= 0 {
		return nil, fmt.Errorf("%w: amount %d leaves nothing for the recipient", domain.ErrInvalidAmount, req.Amount)
	}

	route := fmt.Sprintf("from %s to %s", delivery.FromCity, delivery.ToCity)
	subject := "delivery"
	if delivery.Type == domain.DeliveryTypeOffer {
		subject = "travel offer"
	}

	result, err := o.ledger.Transfer(ctx, domain.TransferRequest{
		PayerID:           payer.ID,
		RecipientID:       recipient.ID,
		Gross:             breakdown.Gross,
		Net:               breakdown.Net,
		ReferenceID:       delivery.ID,
		Category:          domain.CategoryDeliveryPayment,
		DebitDescription:  fmt.Sprintf("Payment for %s %s", subject, route),
		CreditDescription: fmt.Sprintf("Payment received for %s %s", subject, route),
		DebitMetadata: domain.JSON{
			"deliveryId":      delivery.ID,
			"deliveryType":    delivery.Type,
			"serviceFee":      breakdown.Fee,
			"feeRate":         o.fees.Rate(),
			"recipientId":     recipient.ID,
			"recipientAmount": breakdown.Net,
		},
		CreditMetadata: domain.JSON{
			"deliveryId":     delivery.ID,
			"deliveryType":   delivery.Type,
			"serviceFee":     breakdown.Fee,
			"feeRate":        o.fees.Rate(),
			"payerId":        payer.ID,
			"originalAmount": breakdown.Gross,
		},
	})
	if err != nil {
		return nil, err
	}

	out := &PaymentResult{
		DeliveryID:      delivery.ID,
		Amount:          result.Debit.Amount,
		RecipientAmount: result.Credit.Amount,
		ServiceFee:      result.Debit.Amount - result.Credit.Amount,
		FeePercentage:   o.fees.Percentage(),
		PayerID:         payer.ID,
		RecipientID:     recipient.ID,
		Currency:        result.Debit.Currency,
		Replayed:        result.Replayed,
	}
	logrus.WithFields(logrus.Fields{
		"delivery_id":      out.DeliveryID,
		"delivery_type":    delivery.Type,
		"payer_id":         out.PayerID,
		"recipient_id":     out.RecipientID,
		"amount":           out.Amount,
		"recipient_amount": out.RecipientAmount,
		"service_fee":      out.ServiceFee,
		"replayed":         out.Replayed,
	}).Info("Delivery payment settled")
	return out, nil
}
