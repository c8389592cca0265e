package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"verity/internal/domain/billing"
	"verity/internal/infrastructure/persistence/mappers"
	"verity/internal/infrastructure/persistence/models"
	"verity/internal/shared/db"
	"verity/internal/shared/logger"
)

type BillingHistoryRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.BillingHistoryMapper
	logger logger.Interface
}

func NewBillingHistoryRepository(
	db *gorm.DB,
	logger logger.Interface,
) billing.BillingHistoryRepository {
	return &BillingHistoryRepositoryImpl{
		db:     db,
		mapper: mappers.NewBillingHistoryMapper(),
		logger: logger,
	}
}

// Create inserts an invoice row. The unique index on stripe_invoice_id makes
// replayed invoice events surface as duplicate key errors, which callers
// treat as already-processed.
func (r *BillingHistoryRepositoryImpl) Create(ctx context.Context, entity *billing.BillingHistory) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map billing history entity to model", "error", err)
		return fmt.Errorf("failed to map billing history entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create billing history: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set billing history ID: %w", err)
	}

	r.logger.Infow("billing history recorded",
		"id", model.ID,
		"invoice_id", model.StripeInvoiceID,
		"amount_cents", model.AmountCents,
	)
	return nil
}

func (r *BillingHistoryRepositoryImpl) GetByStripeInvoiceID(ctx context.Context, invoiceID string) (*billing.BillingHistory, error) {
	var model models.BillingHistoryModel

	if err := r.db.WithContext(ctx).Where("stripe_invoice_id = ?", invoiceID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get billing history", "invoice_id", invoiceID, "error", err)
		return nil, fmt.Errorf("failed to get billing history: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *BillingHistoryRepositoryImpl) ListBySubscriptionID(ctx context.Context, subscriptionID uint, page, pageSize int) ([]*billing.BillingHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingHistoryModel{}).
		Where("subscription_id = ?", subscriptionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count billing history", "subscription_id", subscriptionID, "error", err)
		return nil, 0, fmt.Errorf("failed to count billing history: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var historyModels []*models.BillingHistoryModel
	err := query.
		Order("invoice_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&historyModels).Error
	if err != nil {
		r.logger.Errorw("failed to list billing history", "subscription_id", subscriptionID, "error", err)
		return nil, 0, fmt.Errorf("failed to list billing history: %w", err)
	}

	entities, err := r.mapper.ToEntities(historyModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}
