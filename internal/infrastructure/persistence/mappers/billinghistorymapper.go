package mappers

import (
	"fmt"

	"verity/internal/domain/billing"
	"verity/internal/infrastructure/persistence/models"
)

type BillingHistoryMapper interface {
	ToEntity(model *models.BillingHistoryModel) (*billing.BillingHistory, error)
	ToModel(entity *billing.BillingHistory) (*models.BillingHistoryModel, error)
	ToEntities(models []*models.BillingHistoryModel) ([]*billing.BillingHistory, error)
}

type BillingHistoryMapperImpl struct{}

func NewBillingHistoryMapper() BillingHistoryMapper {
	return &BillingHistoryMapperImpl{}
}

func (m *BillingHistoryMapperImpl) ToEntity(model *models.BillingHistoryModel) (*billing.BillingHistory, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := billing.ReconstructBillingHistory(
		model.ID,
		model.SubscriptionID,
		model.StripeInvoiceID,
		model.StripePaymentIntentID,
		model.AmountCents,
		model.Currency,
		model.Status,
		model.HostedURL,
		model.PDFURL,
		model.InvoiceDate,
		model.PaidAt,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct billing history entity: %w", err)
	}

	return entity, nil
}

func (m *BillingHistoryMapperImpl) ToModel(entity *billing.BillingHistory) (*models.BillingHistoryModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.BillingHistoryModel{
		ID:                    entity.ID(),
		SubscriptionID:        entity.SubscriptionID(),
		StripeInvoiceID:       entity.StripeInvoiceID(),
		StripePaymentIntentID: entity.StripePaymentIntentID(),
		AmountCents:           entity.AmountCents(),
		Currency:              entity.Currency(),
		Status:                entity.Status(),
		HostedURL:             entity.HostedURL(),
		PDFURL:                entity.PDFURL(),
		InvoiceDate:           entity.InvoiceDate(),
		PaidAt:                entity.PaidAt(),
		CreatedAt:             entity.CreatedAt(),
	}, nil
}

func (m *BillingHistoryMapperImpl) ToEntities(historyModels []*models.BillingHistoryModel) ([]*billing.BillingHistory, error) {
	entities := make([]*billing.BillingHistory, 0, len(historyModels))
	for _, model := range historyModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
