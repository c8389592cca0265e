package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"verity/internal/domain/verification"
	"verity/internal/infrastructure/persistence/mappers"
	"verity/internal/infrastructure/persistence/models"
	"verity/internal/shared/db"
	"verity/internal/shared/errors"
	"verity/internal/shared/logger"
)

type VerificationRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.VerificationMapper
	logger logger.Interface
}

func NewVerificationRepository(
	db *gorm.DB,
	logger logger.Interface,
) verification.Repository {
	return &VerificationRepositoryImpl{
		db:     db,
		mapper: mappers.NewVerificationMapper(),
		logger: logger,
	}
}

func (r *VerificationRepositoryImpl) Create(ctx context.Context, entity *verification.Verification) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map verification entity to model", "error", err)
		return fmt.Errorf("failed to map verification entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create verification in database", "error", err)
		return fmt.Errorf("failed to create verification: %w", err)
	}

	if err := entity.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set verification ID: %w", err)
	}

	r.logger.Infow("verification created", "id", model.ID, "sid", model.SID, "wallet_address", model.WalletAddress)
	return nil
}

func (r *VerificationRepositoryImpl) GetByID(ctx context.Context, id uint) (*verification.Verification, error) {
	var model models.VerificationModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get verification by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

func (r *VerificationRepositoryImpl) GetBySID(ctx context.Context, sid string) (*verification.Verification, error) {
	return r.getOne(ctx, "sid = ?", sid)
}

func (r *VerificationRepositoryImpl) GetByCheckID(ctx context.Context, checkID string) (*verification.Verification, error) {
	return r.getOne(ctx, "check_id = ?", checkID)
}

func (r *VerificationRepositoryImpl) GetByWalletAddress(ctx context.Context, walletAddress string) (*verification.Verification, error) {
	return r.getOne(ctx, "wallet_address = ?", strings.ToLower(walletAddress))
}

func (r *VerificationRepositoryImpl) GetActiveByWalletAddress(ctx context.Context, walletAddress string) (*verification.Verification, error) {
	var model models.VerificationModel

	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", strings.ToLower(walletAddress)).
		Where("status IN ?", []string{
			verification.StatusPending.String(),
			verification.StatusInProgress.String(),
		}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get active verification", "wallet_address", walletAddress, "error", err)
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return r.mapper.ToEntity(&model)
}

// Update persists the entity with an optimistic concurrency check. The
// domain bumps the version on every mutation, so the row must still hold
// the previous version or another writer got there first.
func (r *VerificationRepositoryImpl) Update(ctx context.Context, entity *verification.Verification) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map verification entity to model", "id", entity.ID(), "error", err)
		return fmt.Errorf("failed to map verification entity: %w", err)
	}

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.WithContext(ctx).Model(&models.VerificationModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"applicant_id":       model.ApplicantID,
			"check_id":           model.CheckID,
			"status":             model.Status,
			"verification_level": model.VerificationLevel,
			"country_code":       model.CountryCode,
			"rejection_reasons":  model.RejectionReasons,
			"result_data":        model.ResultData,
			"completed_at":       model.CompletedAt,
			"expires_at":         model.ExpiresAt,
			"version":            model.Version,
			"updated_at":         model.UpdatedAt,
		})

	if result.Error != nil {
		r.logger.Errorw("failed to update verification", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update verification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		r.logger.Warnw("verification version conflict", "id", model.ID, "version", model.Version)
		return errors.NewConflictError("verification was modified concurrently")
	}

	r.logger.Infow("verification updated", "id", model.ID, "status", model.Status)
	return nil
}

func (r *VerificationRepositoryImpl) FindExpiredApproved(ctx context.Context, now time.Time) ([]*verification.Verification, error) {
	var verificationModels []*models.VerificationModel

	err := r.db.WithContext(ctx).
		Where("status = ?", verification.StatusApproved.String()).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Find(&verificationModels).Error
	if err != nil {
		r.logger.Errorw("failed to find expired verifications", "error", err)
		return nil, fmt.Errorf("failed to find expired verifications: %w", err)
	}

	return r.mapper.ToEntities(verificationModels)
}

func (r *VerificationRepositoryImpl) FindStaleInProgress(ctx context.Context, olderThan time.Time) ([]*verification.Verification, error) {
	var verificationModels []*models.VerificationModel

	err := r.db.WithContext(ctx).
		Where("status = ?", verification.StatusInProgress.String()).
		Where("check_id <> ''").
		Where("updated_at < ?", olderThan).
		Order("updated_at ASC").
		Find(&verificationModels).Error
	if err != nil {
		r.logger.Errorw("failed to find stale verifications", "error", err)
		return nil, fmt.Errorf("failed to find stale verifications: %w", err)
	}

	return r.mapper.ToEntities(verificationModels)
}

func (r *VerificationRepositoryImpl) List(ctx context.Context, filter verification.Filter) ([]*verification.Verification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.VerificationModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count verifications", "error", err)
		return nil, 0, fmt.Errorf("failed to count verifications: %w", err)
	}

	order := "created_at ASC"
	if filter.SortDesc {
		order = "created_at DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var verificationModels []*models.VerificationModel
	err := query.
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&verificationModels).Error
	if err != nil {
		r.logger.Errorw("failed to list verifications", "error", err)
		return nil, 0, fmt.Errorf("failed to list verifications: %w", err)
	}

	entities, err := r.mapper.ToEntities(verificationModels)
	if err != nil {
		return nil, 0, err
	}

	return entities, total, nil
}

func (r *VerificationRepositoryImpl) getOne(ctx context.Context, cond string, arg interface{}) (*verification.Verification, error) {
	var model models.VerificationModel

	if err := r.db.WithContext(ctx).Where(cond, arg).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get verification", "cond", cond, "error", err)
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	return r.mapper.ToEntity(&model)
}
