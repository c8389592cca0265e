package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verity/internal/application/billing/billingprovider"
	"verity/internal/application/billing/usecases"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/logger"
	"verity/internal/shared/utils"
	"verity/internal/tasks"
)

// BillingHandler handles subscription endpoints and the payment webhook
type BillingHandler struct {
	createCheckoutUseCase *usecases.CreateCheckoutUseCase
	cancelUseCase         *usecases.CancelSubscriptionUseCase
	getUseCase            *usecases.GetSubscriptionUseCase
	listInvoicesUseCase   *usecases.ListInvoicesUseCase
	getUsageUseCase       *usecases.GetUsageUseCase
	consumeTokenUseCase   *usecases.ConsumeTokenUseCase
	getPlansUseCase       *usecases.GetPlansUseCase
	provider              billingprovider.Provider
	enqueuer              queue.Enqueuer
	logger                logger.Interface
}

func NewBillingHandler(
	createCheckoutUC *usecases.CreateCheckoutUseCase,
	cancelUC *usecases.CancelSubscriptionUseCase,
	getUC *usecases.GetSubscriptionUseCase,
	listInvoicesUC *usecases.ListInvoicesUseCase,
	getUsageUC *usecases.GetUsageUseCase,
	consumeTokenUC *usecases.ConsumeTokenUseCase,
	getPlansUC *usecases.GetPlansUseCase,
	provider billingprovider.Provider,
	enqueuer queue.Enqueuer,
	logger logger.Interface,
) *BillingHandler {
	return &BillingHandler{
		createCheckoutUseCase: createCheckoutUC,
		cancelUseCase:         cancelUC,
		getUseCase:            getUC,
		listInvoicesUseCase:   listInvoicesUC,
		getUsageUseCase:       getUsageUC,
		consumeTokenUseCase:   consumeTokenUC,
		getPlansUseCase:       getPlansUC,
		provider:              provider,
		enqueuer:              enqueuer,
		logger:                logger,
	}
}

// CreateCheckoutRequest represents the request to start a subscription checkout
type CreateCheckoutRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name"`
	WalletAddress string `json:"wallet_address"`
	Plan          string `json:"plan" binding:"required,oneof=starter professional enterprise"`
}

// CancelSubscriptionRequest represents the request to cancel a subscription
type CancelSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	Immediately    bool   `json:"immediately"`
}

func (h *BillingHandler) GetPlans(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "", h.getPlansUseCase.Execute())
}

func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	var req CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for create checkout", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createCheckoutUseCase.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		Email:         req.Email,
		Name:          req.Name,
		WalletAddress: req.WalletAddress,
		Plan:          req.Plan,
	})
	if err != nil {
		h.logger.Errorw("failed to create checkout", "error", err, "plan", req.Plan)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Checkout session created successfully")
}

func (h *BillingHandler) GetSubscription(c *gin.Context) {
	sid := c.Query("id")
	if sid == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "subscription id is required")
		return
	}

	result, err := h.getUseCase.Execute(c.Request.Context(), usecases.GetSubscriptionQuery{
		SID: sid,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.cancelUseCase.Execute(c.Request.Context(), usecases.CancelSubscriptionCommand{
		SID:         req.SubscriptionID,
		Immediately: req.Immediately,
	})
	if err != nil {
		h.logger.Errorw("failed to cancel subscription", "error", err, "subscription_sid", req.SubscriptionID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Subscription cancellation requested", nil)
}

func (h *BillingHandler) ListInvoices(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.listInvoicesUseCase.Execute(c.Request.Context(), usecases.ListInvoicesQuery{
		SubscriptionSID: c.Query("id"),
		Page:            page,
		PageSize:        pageSize,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.NewListResponse(items, total, page, pageSize))
}

func (h *BillingHandler) GetUsage(c *gin.Context) {
	result, err := h.getUsageUseCase.Execute(c.Request.Context(), usecases.GetUsageQuery{
		SubscriptionSID: c.Query("id"),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ConsumeTokenRequest identifies the subscription whose quota is spent
type ConsumeTokenRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
}

// ConsumeToken spends one verification token from the subscription quota
func (h *BillingHandler) ConsumeToken(c *gin.Context) {
	var req ConsumeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.consumeTokenUseCase.Execute(c.Request.Context(), req.SubscriptionID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// HandleWebhook receives payment provider events. Signature verification
// happens on the raw body, and the normalized event is acknowledged only
// after it is durably enqueued.
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if !h.provider.VerifyWebhook(rawBody, signature) {
		h.logger.Warnw("rejected billing webhook with invalid signature",
			"client_ip", c.ClientIP(),
			"has_signature", signature != "",
		)
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	event, err := h.provider.ParseWebhook(rawBody)
	if err != nil {
		h.logger.Warnw("failed to parse billing webhook", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	if err := h.enqueuer.Enqueue(c.Request.Context(), tasks.BillingReconcile, tasks.BillingReconcilePayload{
		Event: event,
	}); err != nil {
		h.logger.Errorw("failed to enqueue billing reconciliation", "error", err, "type", event.Type)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to queue webhook")
		return
	}

	c.Status(http.StatusOK)
}
