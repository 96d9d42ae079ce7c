package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appar "github.com/arledger/backend/internal/application/ar"
)

// AllocationHandler handles payment allocation API endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *appar.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *appar.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// AllocationItemInput represents one invoice target in an allocation request
type AllocationItemInput struct {
	InvoiceID string  `json:"invoice_id" binding:"required,uuid"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Notes     string  `json:"notes" binding:"omitempty,max=500"`
}

// AllocateRequest represents a manual allocation request
type AllocateRequest struct {
	Items []AllocationItemInput `json:"items" binding:"required,min=1,dive"`
}

// ReverseAllocationRequest represents a reversal request
type ReverseAllocationRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ReduceReceiptTotalRequest represents a receipt total correction
type ReduceReceiptTotalRequest struct {
	NewTotal float64 `json:"new_total" binding:"required,gt=0"`
}

// Allocate creates pending allocations from a receipt to invoices
func (h *AllocationHandler) Allocate(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Actor ID is required")
		return
	}

	items := make([]appar.AllocationItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		invoiceID, err := uuid.Parse(item.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format in allocation items")
			return
		}
		items = append(items, appar.AllocationItemRequest{
			InvoiceID: invoiceID,
			Amount:    decimal.NewFromFloat(item.Amount),
			Notes:     item.Notes,
		})
	}

	allocations, err := h.allocationService.Allocate(c.Request.Context(), receiptID, items, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, allocations)
}

// AutoAllocate distributes a receipt's unallocated amount across the
// customer's outstanding invoices, oldest due date first
func (h *AllocationHandler) AutoAllocate(c *gin.Context) {
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

	allocations, err := h.allocationService.AutoAllocate(c.Request.Context(), receiptID, actorID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, allocations)
}

// Apply posts a pending allocation's balance effects
func (h *AllocationHandler) Apply(c *gin.Context) {
	allocationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	allocation, err := h.allocationService.ApplyAllocation(c.Request.Context(), allocationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, allocation)
}

// Reverse undoes an applied allocation's balance effects
func (h *AllocationHandler) Reverse(c *gin.Context) {
	allocationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	var req ReverseAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	allocation, err := h.allocationService.ReverseAllocation(c.Request.Context(), allocationID, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, allocation)
}

// Cancel cancels a pending allocation before it is applied
func (h *AllocationHandler) Cancel(c *gin.Context) {
	allocationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid allocation ID format")
		return
	}

	allocation, err := h.allocationService.CancelAllocation(c.Request.Context(), allocationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, allocation)
}

// ListByReceipt lists all allocations against a receipt
func (h *AllocationHandler) ListByReceipt(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	allocations, err := h.allocationService.ListByReceipt(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, allocations)
}

// ListByInvoice lists all allocations against an invoice
func (h *AllocationHandler) ListByInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	allocations, err := h.allocationService.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, allocations)
}

// GetSuggestions ranks the customer's outstanding invoices for manual
// allocation of a receipt
func (h *AllocationHandler) GetSuggestions(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	suggestions, err := h.allocationService.GetSuggestions(c.Request.Context(), receiptID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, suggestions)
}

// ReduceTotal corrects a receipt's total downward, releasing pending
// allocations newest first when the new total no longer covers them
func (h *AllocationHandler) ReduceTotal(c *gin.Context) {
	receiptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	var req ReduceReceiptTotalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	receipt, err := h.allocationService.ReduceReceiptTotal(c.Request.Context(), receiptID, decimal.NewFromFloat(req.NewTotal))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, receipt)
}
