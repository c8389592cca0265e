package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"verity/internal/application/verification/kycprovider"
	"verity/internal/application/verification/usecases"
	"verity/internal/infrastructure/queue"
	"verity/internal/shared/logger"
	"verity/internal/shared/utils"
	"verity/internal/tasks"
)

const webhookBodyLimit = 1 << 20

// KYCHandler handles verification lifecycle endpoints and the provider webhook
type KYCHandler struct {
	startUseCase       *usecases.StartVerificationUseCase
	createCheckUseCase *usecases.CreateCheckUseCase
	getStatusUseCase   *usecases.GetStatusUseCase
	listUseCase        *usecases.ListVerificationsUseCase
	sdkTokenUseCase    *usecases.GetSDKTokenUseCase
	provider           kycprovider.Provider
	enqueuer           queue.Enqueuer
	logger             logger.Interface
}

func NewKYCHandler(
	startUC *usecases.StartVerificationUseCase,
	createCheckUC *usecases.CreateCheckUseCase,
	getStatusUC *usecases.GetStatusUseCase,
	listUC *usecases.ListVerificationsUseCase,
	sdkTokenUC *usecases.GetSDKTokenUseCase,
	provider kycprovider.Provider,
	enqueuer queue.Enqueuer,
	logger logger.Interface,
) *KYCHandler {
	return &KYCHandler{
		startUseCase:       startUC,
		createCheckUseCase: createCheckUC,
		getStatusUseCase:   getStatusUC,
		listUseCase:        listUC,
		sdkTokenUseCase:    sdkTokenUC,
		provider:           provider,
		enqueuer:           enqueuer,
		logger:             logger,
	}
}

// StartVerificationRequest represents the request to begin identity verification
type StartVerificationRequest struct {
	FirstName     string `json:"first_name" binding:"required"`
	LastName      string `json:"last_name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	WalletAddress string `json:"wallet_address" binding:"required"`
}

// CreateCheckRequest represents the request to submit a verification for checking
type CreateCheckRequest struct {
	VerificationID string   `json:"verification_id" binding:"required"`
	ReportNames    []string `json:"report_names"`
}

func (h *KYCHandler) StartVerification(c *gin.Context) {
	var req StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid request body for start verification", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.startUseCase.Execute(c.Request.Context(), usecases.StartVerificationCommand{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		h.logger.Errorw("failed to start verification", "error", err, "wallet", req.WalletAddress)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result, "Verification started successfully")
}

func (h *KYCHandler) CreateCheck(c *gin.Context) {
	var req CreateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.createCheckUseCase.Execute(c.Request.Context(), usecases.CreateCheckCommand{
		SID:         req.VerificationID,
		ReportNames: req.ReportNames,
	})
	if err != nil {
		h.logger.Errorw("failed to create check", "error", err, "verification_sid", req.VerificationID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Check created successfully", result)
}

func (h *KYCHandler) GetStatus(c *gin.Context) {
	result, err := h.getStatusUseCase.Execute(c.Request.Context(), usecases.GetStatusQuery{
		WalletAddress: c.Param("wallet"),
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}

func (h *KYCHandler) GetSDKToken(c *gin.Context) {
	token, err := h.sdkTokenUseCase.Execute(c.Request.Context(), usecases.GetSDKTokenQuery{
		SID:      c.Param("id"),
		Referrer: c.Query("referrer"),
	})
	if err != nil {
		h.logger.Errorw("failed to generate SDK token", "error", err, "verification_sid", c.Param("id"))
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"token": token})
}

func (h *KYCHandler) ListVerifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.listUseCase.Execute(c.Request.Context(), usecases.ListVerificationsQuery{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", utils.NewListResponse(items, total, page, pageSize))
}

// HandleWebhook receives provider check notifications. The raw body is
// verified against the webhook secret before anything is parsed, and the
// normalized result is acknowledged only after it is durably enqueued.
func (h *KYCHandler) HandleWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := c.GetHeader("X-SHA2-Signature")
	if !h.provider.VerifyWebhook(rawBody, signature) {
		h.logger.Warnw("rejected kyc webhook with invalid signature",
			"client_ip", c.ClientIP(),
			"has_signature", signature != "",
		)
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	result, err := h.provider.ParseWebhook(rawBody)
	if err != nil {
		h.logger.Warnw("failed to parse kyc webhook", "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	if err := h.enqueuer.Enqueue(c.Request.Context(), tasks.KYCReconcile, tasks.KYCReconcilePayload{
		Result: result,
	}); err != nil {
		h.logger.Errorw("failed to enqueue kyc reconciliation", "error", err, "check_id", result.CheckID)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to queue webhook")
		return
	}

	c.Status(http.StatusOK)
}
