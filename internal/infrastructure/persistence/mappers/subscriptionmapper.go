package mappers

import (
	"fmt"

	"verity/internal/domain/billing"
	"verity/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*billing.Subscription, error)
	ToModel(entity *billing.Subscription) (*models.SubscriptionModel, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*billing.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status := billing.SubscriptionStatus(model.Status)
	if !billing.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	entity, err := billing.ReconstructSubscription(
		model.ID,
		model.SID,
		model.UserID,
		model.StripeCustomerID,
		model.StripeSubscriptionID,
		billing.Plan(model.Plan),
		status,
		model.CurrentPeriodStart,
		model.CurrentPeriodEnd,
		model.CancelAtPeriodEnd,
		model.CanceledAt,
		model.TokensLimit,
		model.TokensUsed,
		model.LastEventAt,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}

	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *billing.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.SubscriptionModel{
		ID:                   entity.ID(),
		SID:                  entity.SID(),
		UserID:               entity.UserID(),
		StripeCustomerID:     entity.StripeCustomerID(),
		StripeSubscriptionID: entity.StripeSubscriptionID(),
		Plan:                 entity.Plan().String(),
		Status:               entity.Status().String(),
		CurrentPeriodStart:   entity.CurrentPeriodStart(),
		CurrentPeriodEnd:     entity.CurrentPeriodEnd(),
		CancelAtPeriodEnd:    entity.CancelAtPeriodEnd(),
		CanceledAt:           entity.CanceledAt(),
		TokensLimit:          entity.TokensLimit(),
		TokensUsed:           entity.TokensUsed(),
		LastEventAt:          entity.LastEventAt(),
		Version:              entity.Version(),
		CreatedAt:            entity.CreatedAt(),
		UpdatedAt:            entity.UpdatedAt(),
	}, nil
}
