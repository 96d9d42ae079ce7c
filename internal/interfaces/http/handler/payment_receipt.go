package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appar "github.com/arledger/backend/internal/application/ar"
	"github.com/arledger/backend/internal/domain/ar"
)

// PaymentReceiptHandler handles payment receipt API endpoints
type PaymentReceiptHandler struct {
	BaseHandler
	paymentService *appar.PaymentService
}

// NewPaymentReceiptHandler creates a new PaymentReceiptHandler
func NewPaymentReceiptHandler(paymentService *appar.PaymentService) *PaymentReceiptHandler {
	return &PaymentReceiptHandler{
		paymentService: paymentService,
	}
}

// CreateReceiptRequest represents a request to record a payment receipt
type CreateReceiptRequest struct {
	CustomerID    string  `json:"customer_id" binding:"required,uuid"`
	PaymentMethod string  `json:"payment_method" binding:"required,oneof=CASH BANK_TRANSFER CHEQUE GIRO"`
	TotalAmount   float64 `json:"total_amount" binding:"required,gt=0"`
	PaymentDate   string  `json:"payment_date" binding:"required"`
	Notes         string  `json:"notes" binding:"omitempty,max=1000"`
}

// RejectReceiptRequest represents a request to reject a receipt
type RejectReceiptRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ListReceiptsRequest represents receipt list query parameters
type ListReceiptsRequest struct {
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy        string `form:"order_by"`
	OrderDir       string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search         string `form:"search"`
	CustomerID     string `form:"customer_id" binding:"omitempty,uuid"`
	Status         string `form:"status"`
	WorkflowStatus string `form:"workflow_status"`
	PaymentMethod  string `form:"payment_method"`
	DateFrom       string `form:"date_from"`
	DateTo         string `form:"date_to"`
}

// Create records a new payment receipt
func (h *PaymentReceiptHandler) Create(c *gin.Context) {
	var req CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	paymentDate, err := parseDateTime(req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "Invalid payment date format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	appReq := appar.CreateReceiptRequest{
		CustomerID:    customerID,
		PaymentMethod: ar.PaymentMethod(req.PaymentMethod),
		TotalAmount:   decimal.NewFromFloat(req.TotalAmount),
		PaymentDate:   paymentDate,
		Notes:         req.Notes,
	}

	receipt, err := h.paymentService.CreateReceipt(c.Request.Context(), appReq, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, receipt)
}

// List retrieves a paginated list of payment receipts
func (h *PaymentReceiptHandler) List(c *gin.Context) {
	var req ListReceiptsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	filter, err := buildReceiptFilter(req)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.paymentService.ListReceipts(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// GetByID retrieves a payment receipt by its ID
func (h *PaymentReceiptHandler) GetByID(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.paymentService.GetReceipt(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// GetByNumber retrieves a payment receipt by its receipt number
func (h *PaymentReceiptHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Receipt number is required")
		return
	}

	receipt, err := h.paymentService.GetReceiptByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// Verify marks a receipt as verified
func (h *PaymentReceiptHandler) Verify(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	receipt, err := h.paymentService.VerifyReceipt(c.Request.Context(), receiptID, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// Approve approves a receipt pending approval
func (h *PaymentReceiptHandler) Approve(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	receipt, err := h.paymentService.ApproveReceipt(c.Request.Context(), receiptID, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// Reject rejects a receipt with a reason
func (h *PaymentReceiptHandler) Reject(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req RejectReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	receipt, err := h.paymentService.RejectReceipt(c.Request.Context(), receiptID, actorID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}

// Delete cancels a receipt that has no active allocations
func (h *PaymentReceiptHandler) Delete(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	if err := h.paymentService.DeleteReceipt(c.Request.Context(), receiptID, actorID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func buildReceiptFilter(req ListReceiptsRequest) (ar.ReceiptFilter, error) {
	filter := ar.ReceiptFilter{}
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search

	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = &customerID
	}
	if req.Status != "" {
		status := ar.ReceiptStatus(req.Status)
		filter.Status = &status
	}
	if req.WorkflowStatus != "" {
		workflowStatus := ar.WorkflowStatus(req.WorkflowStatus)
		filter.WorkflowStatus = &workflowStatus
	}
	if req.PaymentMethod != "" {
		method := ar.PaymentMethod(req.PaymentMethod)
		filter.PaymentMethod = &method
	}
	if req.DateFrom != "" {
		from, err := parseDateTime(req.DateFrom)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := parseDateTime(req.DateTo)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &to
	}

	return filter, nil
}
