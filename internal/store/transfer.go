package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"wallet_ledger/internal/domain"
	"wallet_ledger/internal/events"
)

func validateTransfer(req *domain.TransferRequest) error {
	if req.Gross <= 0 || req.Net <= 0 || req.Net > req.Gross {
		return domain.ErrInvalidAmount
	}
	if req.PayerID == 0 || req.RecipientID == 0 {
		return fmt.Errorf("%w: payer and recipient are required", domain.ErrInvalidRequest)
	}
	if req.PayerID == req.RecipientID {
		return fmt.Errorf("%w: payer and recipient must differ", domain.ErrInvalidRequest)
	}
	req.ReferenceID = strings.TrimSpace(req.ReferenceID)
	if req.ReferenceID == "" {
		return fmt.Errorf("%w: referenceId is required", domain.ErrInvalidRequest)
	}
	if req.Category == "" {
		req.Category = domain.CategoryGeneral
	}
	return nil
}

// Transfer debits Gross from the payer and credits Net to the recipient as one
// database transaction. Both wallet rows are locked in ascending id order so
// opposing transfers between the same pair cannot deadlock. A transfer whose
// reference already carries a completed debit/credit pair is not applied again:
// the earlier pair is returned with Replayed set.
func (s *Store) Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error) {
	if err := validateTransfer(&req); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *domain.TransferResult
	err := s.withRetry(ctx, "transfer", func(ctx context.Context) error {
		db := s.db.WithContext(ctx)
		payer, err := s.getOrCreate(db, req.PayerID)
		if err != nil {
			return err
		}
		recipient, err := s.getOrCreate(db, req.RecipientID)
		if err != nil {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			r, err := s.transferInTx(tx, payer.ID, recipient.ID, req)
			result = r
			return err
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Retry only when a concurrent settlement recorded this reference
			var legs int64
			if countErr := db.Model(&domain.Transaction{}).
				Where("reference_id = ? AND category = ?", req.ReferenceID, req.Category).
				Count(&legs).Error; countErr != nil {
				return countErr
			}
			if legs == 0 {
				return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
			}
		}
		return err
	})

	fields := logrus.Fields{
		"reference_id": req.ReferenceID, // Shared reference of both legs
		"payer_id":     req.PayerID,     // Paying user
		"recipient_id": req.RecipientID, // Receiving user
		"gross":        req.Gross,       // Debited amount
		"net":          req.Net,         // Credited amount
	}
	switch {
	case errors.Is(err, domain.ErrInternalConsistency):
		fields["error"] = err.Error()
		fields["alert"] = "ledger_consistency"
		logrus.WithFields(fields).Error("Settlement rolled back: ledger consistency violation")
		return nil, err
	case errors.Is(err, domain.ErrInsufficientBalance):
		logrus.WithFields(fields).Warn("Settlement rejected: insufficient balance")
		return nil, err
	case err != nil:
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("Settlement failed")
		return nil, err
	}

	fields["replayed"] = result.Replayed
	logrus.WithFields(fields).Info("Settlement transaction")
	if !result.Replayed {
		s.publish(ctx,
			events.FromTransaction(events.KindWalletDebited, result.PayerWallet, result.Debit),
			events.FromTransaction(events.KindWalletCredited, result.RecipientWallet, result.Credit),
			events.FromTransaction(events.KindSettlementCompleted, result.RecipientWallet, result.Credit),
		)
	}
	return result, nil
}

func (s *Store) transferInTx(tx *gorm.DB, payerWalletID, recipientWalletID uint, req domain.TransferRequest) (*domain.TransferResult, error) {
	ids := []uint{payerWalletID, recipientWalletID}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var locked []domain.Wallet
	if err := forUpdate(tx).Where("id IN ?", ids).Order("id").Find(&locked).Error; err != nil {
		return nil, err
	}
	if len(locked) != 2 {
		return nil, domain.ErrWalletNotFound
	}

	prior, err := s.findPriorTransfer(tx, payerWalletID, recipientWalletID, req)
	if err != nil || prior != nil {
		return prior, err
	}

	debited := tx.Model(&domain.Wallet{}).
		Where("id = ? AND balance >= ?", payerWalletID, req.Gross-s.overdraftLimit).
		Update("balance", gorm.Expr("balance - ?", req.Gross))
	if debited.Error != nil {
		return nil, debited.Error
	}
	if debited.RowsAffected == 0 {
		return nil, domain.ErrInsufficientBalance
	}

	credited := tx.Model(&domain.Wallet{}).
		Where("id = ?", recipientWalletID).
		Update("balance", gorm.Expr("balance + ?", req.Net))
	if credited.Error != nil {
		return nil, credited.Error
	}
	if credited.RowsAffected == 0 {
		return nil, domain.ErrWalletNotFound
	}

	var payer, recipient domain.Wallet
	if err := tx.First(&payer, payerWalletID).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&recipient, recipientWalletID).Error; err != nil {
		return nil, err
	}

	ref := req.ReferenceID
	debit := domain.Transaction{
		WalletID:     payer.ID,
		Type:         domain.TypeDebit,
		Amount:       req.Gross,
		Currency:     payer.Currency,
		Status:       domain.StatusCompleted,
		Description:  req.DebitDescription,
		Category:     req.Category,
		ReferenceID:  &ref,
		BalanceAfter: payer.Balance,
		Metadata:     req.DebitMetadata,
	}
	credit := domain.Transaction{
		WalletID:     recipient.ID,
		Type:         domain.TypeCredit,
		Amount:       req.Net,
		Currency:     recipient.Currency,
		Status:       domain.StatusCompleted,
		Description:  req.CreditDescription,
		Category:     req.Category,
		ReferenceID:  &ref,
		BalanceAfter: recipient.Balance,
		Metadata:     req.CreditMetadata,
	}
	if err := tx.Create(&debit).Error; err != nil {
		return nil, err
	}
	if err := tx.Create(&credit).Error; err != nil {
		return nil, err
	}

	var legs int64
	if err := tx.Model(&domain.Transaction{}).
		Where("reference_id = ? AND category = ?", ref, req.Category).
		Count(&legs).Error; err != nil {
		return nil, err
	}
	if legs != 2 {
		return nil, fmt.Errorf("%w: reference %s has %d entries after transfer", domain.ErrInternalConsistency, ref, legs)
	}

	return &domain.TransferResult{PayerWallet: payer, RecipientWallet: recipient, Debit: debit, Credit: credit}, nil
}

// findPriorTransfer returns the earlier result for req.ReferenceID, nil when
// there is none, or ErrInternalConsistency when the reference carries anything
// other than one debit on the payer and one credit on the recipient.
func (s *Store) findPriorTransfer(tx *gorm.DB, payerWalletID, recipientWalletID uint, req domain.TransferRequest) (*domain.TransferResult, error) {
	var rows []domain.Transaction
	if err := tx.Where("reference_id = ? AND category = ?", req.ReferenceID, req.Category).
		Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var debit, credit *domain.Transaction
	for i := range rows {
		row := &rows[i]
		switch {
		case row.Type == domain.TypeDebit && row.WalletID == payerWalletID && debit == nil:
			debit = row
		case row.Type == domain.TypeCredit && row.WalletID == recipientWalletID && credit == nil:
			credit = row
		}
	}
	if len(rows) != 2 || debit == nil || credit == nil ||
		debit.Status != domain.StatusCompleted || credit.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: reference %s has %d unmatched entries", domain.ErrInternalConsistency, req.ReferenceID, len(rows))
	}

	if debit.Amount != req.Gross || credit.Amount != req.Net {
		logrus.WithFields(logrus.Fields{
			"reference_id":    req.ReferenceID,
			"prior_gross":     debit.Amount,
			"prior_net":       credit.Amount,
			"requested_gross": req.Gross,
			"requested_net":   req.Net,
		}).Warn("Settlement replay with different amount, returning the original")
	}

	var payer, recipient domain.Wallet
	if err := tx.First(&payer, payerWalletID).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&recipient, recipientWalletID).Error; err != nil {
		return nil, err
	}
	return &domain.TransferResult{
		PayerWallet:     payer,
		RecipientWallet: recipient,
		Debit:           *debit,
		Credit:          *credit,
		Replayed:        true,
	}, nil
}
