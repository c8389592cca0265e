package usecases

import (
	"verity/internal/application/billing/dto"
	"verity/internal/domain/billing"
)

type GetPlansUseCase struct{}

func NewGetPlansUseCase() *GetPlansUseCase {
	return &GetPlansUseCase{}
}

func (uc *GetPlansUseCase) Execute() []*dto.PlanDTO {
	plans := []billing.Plan{billing.PlanStarter, billing.PlanProfessional, billing.PlanEnterprise}
	out := make([]*dto.PlanDTO, len(plans))
	for i, p := range plans {
		out[i] = &dto.PlanDTO{Name: string(p), TokensLimit: p.TokensLimit()}
	}
	return out
}
