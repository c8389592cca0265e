package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"verity/internal/domain/billing"
	"verity/internal/infrastructure/persistence/mappers"
	"verity/internal/infrastructure/persistence/models"
	"verity/internal/shared/db"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) billing.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, entity *billing.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription in database", "error", err)
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set subscription ID: %w", err)
	}

	r.logger.Infow("subscription created", "id", model.ID, "user_id", model.UserID)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*billing.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, sid string) (*billing.Subscription, error) {
	return r.getOne(ctx, "sid = ?", sid)
}

func (r *SubscriptionRepositoryImpl) GetByUserID(ctx context.Context, userID uint) (*billing.Subscription, error) {
	var model models.SubscriptionModel

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by user ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) GetByStripeCustomerID(ctx context.Context, customerID string) (*billing.Subscription, error) {
	return r.getOne(ctx, "stripe_customer_id = ?", customerID)
}

func (r *SubscriptionRepositoryImpl) GetByStripeSubscriptionID(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	return r.getOne(ctx, "stripe_subscription_id = ?", subscriptionID)
}

// Update persists the entity with an optimistic concurrency check
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, entity *billing.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "id", entity.ID(), "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.WithContext(ctx).Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"stripe_subscription_id": model.StripeSubscriptionID,
			"plan":                   model.Plan,
			"status":                 model.Status,
			"current_period_start":   model.CurrentPeriodStart,
			"current_period_end":     model.CurrentPeriodEnd,
			"cancel_at_period_end":   model.CancelAtPeriodEnd,
			"canceled_at":            model.CanceledAt,
			"tokens_limit":           model.TokensLimit,
			"tokens_used":            model.TokensUsed,
			"last_event_at":          model.LastEventAt,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.logger.Warnw("subscription version conflict", "id", model.ID, "version", model.Version)
		return errors.NewConflictError("subscription was modified concurrently")
	}

	r.logger.Infow("subscription updated", "id", model.ID, "status", model.Status)
	return nil
}

func (r *SubscriptionRepositoryImpl) getOne(ctx context.Context, cond string, arg interface{}) (*billing.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).Where(cond, arg).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription", "cond", cond, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return r.mapper.ToEntity(&model)
}
