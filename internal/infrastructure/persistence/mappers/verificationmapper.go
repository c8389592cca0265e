package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"verity/internal/domain/verification"
	"verity/internal/infrastructure/persistence/models"
)

type VerificationMapper interface {
	ToEntity(model *models.VerificationModel) (*verification.Verification, error)
	ToModel(entity *verification.Verification) (*models.VerificationModel, error)
	ToEntities(models []*models.VerificationModel) ([]*verification.Verification, error)
}

type VerificationMapperImpl struct{}

func NewVerificationMapper() VerificationMapper {
	return &VerificationMapperImpl{}
}

func (m *VerificationMapperImpl) ToEntity(model *models.VerificationModel) (*verification.Verification, error) {
	if model == nil {
		return nil, nil
	}

	status := verification.Status(model.Status)
	if !verification.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid verification status: %s", model.Status)
	}

	var reasons []string
	if model.RejectionReasons != nil {
		if err := json.Unmarshal(model.RejectionReasons, &reasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rejection reasons: %w", err)
		}
	}

	var resultData map[string]interface{}
	if model.ResultData != nil {
		if err := json.Unmarshal(model.ResultData, &resultData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result data: %w", err)
		}
	}

	entity, err := verification.ReconstructVerification(
		model.ID,
		model.SID,
		model.FirstName,
		model.LastName,
		model.Email,
		model.WalletAddress,
		model.ApplicantID,
		model.CheckID,
		status,
		model.VerificationLevel,
		model.CountryCode,
		reasons,
		resultData,
		model.CompletedAt,
		model.ExpiresAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct verification entity: %w", err)
	}

	return entity, nil
}

func (m *VerificationMapperImpl) ToModel(entity *verification.Verification) (*models.VerificationModel, error) {
	if entity == nil {
		return nil, nil
	}

	var reasons datatypes.JSON
	if len(entity.RejectionReasons()) > 0 {
		data, err := json.Marshal(entity.RejectionReasons())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal rejection reasons: %w", err)
		}
		reasons = data
	}

	var resultData datatypes.JSON
	if entity.ResultData() != nil {
		data, err := json.Marshal(entity.ResultData())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result data: %w", err)
		}
		resultData = data
	}

	return &models.VerificationModel{
		ID:                entity.ID(),
		SID:               entity.SID(),
		FirstName:         entity.FirstName(),
		LastName:          entity.LastName(),
		Email:             entity.Email(),
		WalletAddress:     entity.WalletAddress(),
		ApplicantID:       entity.ApplicantID(),
		CheckID:           entity.CheckID(),
		Status:            entity.Status().String(),
		VerificationLevel: entity.VerificationLevel(),
		CountryCode:       entity.CountryCode(),
		RejectionReasons:  reasons,
		ResultData:        resultData,
		CompletedAt:       entity.CompletedAt(),
		ExpiresAt:         entity.ExpiresAt(),
		Version:           entity.Version(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}, nil
}

func (m *VerificationMapperImpl) ToEntities(verificationModels []*models.VerificationModel) ([]*verification.Verification, error) {
	entities := make([]*verification.Verification, 0, len(verificationModels))
	for _, model := range verificationModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
