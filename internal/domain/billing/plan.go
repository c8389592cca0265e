package billing

type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanEnterprise   Plan = "enterprise"
)

func (p Plan) String() string {
	return string(p)
}

// TokensLimit returns how many asset tokenizations the plan allows per period
func (p Plan) TokensLimit() int {
	switch p {
	case PlanStarter:
		return 3
	case PlanProfessional:
		return 10
	case PlanEnterprise:
		return 100
	default:
		return 0
	}
}

var ValidPlans = map[Plan]bool{
	PlanStarter:      true,
	PlanProfessional: true,
	PlanEnterprise:   true,
}
