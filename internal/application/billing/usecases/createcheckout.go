package usecases

import (
	"context"
	"fmt"
	"strings"

	"verity/internal/application/billing/billingprovider"
	"verity/internal/application/billing/dto"
	"verity/internal/domain/billing"
	"verity/internal/domain/user"
	"verity/internal/shared/db"
	"verity/internal/shared/errors"
	"verity/internal/shared/id"
	"verity/internal/shared/logger"
)

type CreateCheckoutCommand struct {
	Email         string
	Name          string
	WalletAddress string
	Plan          string
}

type CreateCheckoutUseCase struct {
	subscriptionRepo billing.SubscriptionRepository
	userRepo         user.Repository
	provider         billingprovider.Provider
	txMgr            *db.TransactionManager
	dashboardURL     string
	logger           logger.Interface
}

func NewCreateCheckoutUseCase(
	subscriptionRepo billing.SubscriptionRepository,
	userRepo user.Repository,
	provider billingprovider.Provider,
	txMgr *db.TransactionManager,
	dashboardURL string,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		provider:         provider,
		txMgr:            txMgr,
		dashboardURL:     strings.TrimRight(dashboardURL, "/"),
		logger:           logger,
	}
}

// Execute creates a hosted checkout session for the requested plan. The
// subscription row is created in incomplete status and only activated when
// the checkout webhook arrives.
func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*dto.CheckoutDTO, error) {
	if cmd.Email == "" {
		return nil, errors.NewValidationError("email is required")
	}
	plan := billing.Plan(cmd.Plan)
	if !billing.ValidPlans[plan] {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown plan: %s", cmd.Plan))
	}

	// the user and subscription rows are created together, so a failed
	// subscription insert does not strand a fresh user row
	var sub *billing.Subscription
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		u, err := uc.userRepo.GetByEmail(txCtx, strings.ToLower(cmd.Email))
		if err != nil {
			return fmt.Errorf("failed to look up user: %w", err)
		}
		if u == nil {
			u, err = user.NewUser(cmd.Email, cmd.Name)
			if err != nil {
				return errors.NewValidationError(err.Error())
			}
			if cmd.WalletAddress != "" {
				u.SetWalletAddress(cmd.WalletAddress)
			}
			if err := uc.userRepo.Create(txCtx, u); err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		}

		sub, err = uc.subscriptionRepo.GetByUserID(txCtx, u.ID())
		if err != nil {
			return fmt.Errorf("failed to look up subscription: %w", err)
		}
		if sub != nil && sub.Status().CanUseService() {
			return errors.NewConflictError("user already has an active subscription")
		}
		if sub != nil {
			return nil
		}

		customerID, err := uc.provider.CreateCustomer(txCtx, u.Email(), u.Name(), map[string]string{
			"user_id": fmt.Sprintf("%d", u.ID()),
		})
		if err != nil {
			return fmt.Errorf("failed to create billing customer: %w", err)
		}

		sid, err := id.GenerateWithPrefix(id.PrefixSubscription, id.DefaultLength)
		if err != nil {
			return fmt.Errorf("failed to generate subscription ID: %w", err)
		}
		sub, err = billing.NewSubscription(sid, u.ID(), customerID)
		if err != nil {
			return errors.NewValidationError(err.Error())
		}
		if err := uc.subscriptionRepo.Create(txCtx, sub); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	session, err := uc.provider.CreateCheckoutSession(
		ctx,
		sub.StripeCustomerID(),
		plan,
		uc.dashboardURL+"/billing?checkout=success",
		uc.dashboardURL+"/billing?checkout=canceled",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	uc.logger.Infow("checkout session created",
		"subscription_sid", sub.SID(),
		"plan", plan,
		"session_id", session.ID,
	)

	return &dto.CheckoutDTO{SessionID: session.ID, CheckoutURL: session.URL}, nil
}
