package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appar "github.com/arledger/backend/internal/application/ar"
)

// CreditHandler handles customer credit profile API endpoints
type CreditHandler struct {
	BaseHandler
	creditService *appar.CreditService
}

// NewCreditHandler creates a new CreditHandler
func NewCreditHandler(creditService *appar.CreditService) *CreditHandler {
	return &CreditHandler{
		creditService: creditService,
	}
}

// AdjustCreditLimitRequest represents a credit limit adjustment
type AdjustCreditLimitRequest struct {
	NewLimit float64 `json:"new_limit" binding:"gte=0"`
	Reason   string  `json:"reason" binding:"required,min=1,max=500"`
}

// CreditSaleCheckRequest represents a credit gate check for a proposed sale
type CreditSaleCheckRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// GetProfile retrieves a customer's credit profile
func (h *CreditHandler) GetProfile(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	profile, err := h.creditService.GetProfile(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// RefreshBalance recalculates the customer's exposure from open invoices
func (h *CreditHandler) RefreshBalance(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	profile, err := h.creditService.RefreshCustomerBalance(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// CheckCreditSale runs the credit gate for a proposed credit sale
func (h *CreditHandler) CheckCreditSale(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req CreditSaleCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	check, err := h.creditService.CanMakeCreditSale(c.Request.Context(), customerID, decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, check)
}

// AdjustLimit sets a new credit limit for the customer
func (h *CreditHandler) AdjustLimit(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req AdjustCreditLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	profile, err := h.creditService.AdjustCreditLimit(
		c.Request.Context(), customerID, decimal.NewFromFloat(req.NewLimit), req.Reason, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, profile)
}

// RunReview runs an automated credit review for one customer
func (h *CreditHandler) RunReview(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	review, err := h.creditService.RunAutomatedReview(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, review)
}

// RunDueReviews runs automated reviews for every profile whose review
// date has passed
func (h *CreditHandler) RunDueReviews(c *gin.Context) {
	reviews, err := h.creditService.RunDueReviews(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, reviews)
}
